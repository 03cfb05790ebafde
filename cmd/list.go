package main

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/dsaleh/dot/internal/system"
)

func newListCommand(g *globals) *cobra.Command {
	var catalogFile string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show every known binary with its predefined version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := g.resolvePrefix()
			if err != nil {
				return err
			}
			e, err := newEnv(prefix, catalogFile)
			if err != nil {
				return err
			}
			versions, err := e.resolver.Table()
			if err != nil {
				slog.Warn("Listing without versions", "err", err)
			}
			present := map[string]bool{}
			for _, d := range e.table.All() {
				present[d.Name] = true
			}
			for _, name := range system.MissingBinaries(prefix.Bin(), keys(present)) {
				present[name] = false
			}

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("ID", "NAME", "VERSION", "INSTALLED", "URL")
			for _, id := range e.table.IDs() {
				d, _ := e.table.Resolve(id)
				v := versions[id]
				url := d.URLFor(v)
				if v == "" {
					v = "-"
					url = d.URL
				}
				installed := ""
				if present[d.Name] {
					installed = "yes"
				}
				t.Row(id, d.Name, v, installed, url)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err
		},
	}
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "extra catalog TOML file")
	return cmd
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
