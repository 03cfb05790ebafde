package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dsaleh/dot/internal/system"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	prefix  string
	verbose int
	quiet   bool
}

func (g *globals) resolvePrefix() (system.Prefix, error) {
	return system.Resolve(g.prefix)
}

func (g *globals) output() io.Writer {
	if g.quiet {
		return io.Discard
	}
	return os.Stderr
}

func logLevel(verbose int) slog.Level {
	switch {
	case verbose >= 2:
		return slog.LevelDebug
	case verbose == 1:
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "dot",
		Short:         "Bootstrap dotfiles and the binaries they rely on",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.quiet {
				slog.SetDefault(slog.New(slog.DiscardHandler))
				return nil
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(g.verbose)})))
			return nil
		},
	}

	root.PersistentFlags().SortFlags = false
	root.PersistentFlags().StringVarP(&g.prefix, "prefix", "p", "", "root of the dot layout (default: parent of $DOTDIR, then $HOME)")
	root.PersistentFlags().CountVarP(&g.verbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	root.PersistentFlags().BoolVarP(&g.quiet, "quiet", "q", false, "hide all log output")

	root.AddCommand(
		newInstallCommand(g),
		newListCommand(g),
		newInitCommand(g),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dot: %v\n", err)
		os.Exit(1)
	}
}
