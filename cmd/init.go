package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dsaleh/dot/internal/gitrepo"
	"github.com/dsaleh/dot/internal/linker"
	"github.com/dsaleh/dot/internal/shellenv"
)

func newInitCommand(g *globals) *cobra.Command {
	var (
		repo     string
		copyRepo bool
		rcFile   string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Clone or copy the dot repository, write the shell env and link dot into the bin directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := g.resolvePrefix()
			if err != nil {
				return err
			}
			slog.Info("Directory", "dot", prefix.Dot(), "code", prefix.Code())

			fetch := gitrepo.Sync
			if copyRepo {
				fetch = gitrepo.Copy
			}
			res, err := fetch(cmd.Context(), repo, prefix.Dot())
			if err != nil {
				return err
			}
			slog.Info("Dot repository ready", "result", res.String())

			path, err := shellenv.Write(prefix, rcFile, shellenv.Zsh(prefix))
			if err != nil {
				return err
			}
			slog.Info("Wrote shell env", "path", path)

			if err := prefix.EnsureBaseDirs(); err != nil {
				return err
			}

			link, err := linker.Self(prefix.Bin(), "dot")
			if errors.Is(err, linker.ErrRegularFile) {
				slog.Warn("Not linking dot", "err", err)
				return nil
			}
			if err != nil {
				return err
			}
			slog.Info("Linked dot binary", "path", link)
			return nil
		},
	}
	cmd.Flags().StringVarP(&repo, "repo", "r", gitrepo.DefaultURL, "url of the dot git repository")
	cmd.Flags().BoolVarP(&copyRepo, "copy", "c", false, "copy a file:// repository instead of cloning it")
	cmd.Flags().StringVar(&rcFile, "rc-file", "", "custom shell env file, for when ~/.zshenv is read-only")
	return cmd
}
