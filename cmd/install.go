package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dsaleh/dot/internal/catalog"
	"github.com/dsaleh/dot/internal/github"
	"github.com/dsaleh/dot/internal/installer"
	"github.com/dsaleh/dot/internal/platform"
	"github.com/dsaleh/dot/internal/system"
	"github.com/dsaleh/dot/internal/versions"
	"github.com/dsaleh/dot/tui"
)

// catalogFileName is picked up next to the version tables when present.
const catalogFileName = "catalog.toml"

type installOptions struct {
	configs []string
	all     bool
	missing bool
	version string
	catalog string
	tui     bool

	name         string
	url          string
	archiveType  string
	archivePaths []string
	versionArg   string
}

// env is everything an install needs, built once per invocation.
type env struct {
	prefix   system.Prefix
	table    *catalog.Table
	resolver *versions.Resolver
}

func newEnv(prefix system.Prefix, catalogFile string) (*env, error) {
	tokens := platform.Current()
	table := catalog.New(tokens)

	path := catalogFile
	if path == "" {
		if p := filepath.Join(prefix.ConfigBinary(), catalogFileName); fileExists(p) {
			path = p
		}
	}
	if path != "" {
		slog.Debug("Loading catalog", "path", path)
		if err := table.LoadFile(path, tokens); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", installer.ErrConfig, path, err)
		}
	}

	gh := github.NewClient("")
	return &env{
		prefix:   prefix,
		table:    table,
		resolver: versions.NewResolver(prefix.ConfigBinary(), versions.WithLatest(gh.LatestVersion)),
	}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// job resolves the version for d. Descriptors without a version placeholder
// only consult the table when a version was asked for explicitly.
func (e *env) job(ctx context.Context, id string, d catalog.Descriptor, override string) (installer.Job, error) {
	j := installer.Job{ID: id, Descriptor: d}
	if override == "" && !d.HasPlaceholder() {
		return j, nil
	}
	v, err := e.resolver.Resolve(ctx, id, d.Repo, override)
	if err != nil {
		return installer.Job{}, fmt.Errorf("%w: %v", installer.ErrConfig, err)
	}
	j.Version = v
	return j, nil
}

// plan maps ids to jobs. Every unknown id and missing version is reported
// and no job is returned unless all resolve.
func (e *env) plan(ctx context.Context, ids []string, override string) ([]installer.Job, error) {
	var (
		jobs []installer.Job
		errs []error
	)
	for _, id := range ids {
		d, err := e.table.Resolve(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", installer.ErrConfig, err))
			continue
		}
		j, err := e.job(ctx, id, d, override)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, j)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := installer.CheckJobs(jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (o *installOptions) adhoc() bool {
	return o.name != "" || o.url != ""
}

func (o *installOptions) validate() error {
	if o.adhoc() && (len(o.configs) > 0 || o.all || o.missing) {
		return fmt.Errorf("--name/--url cannot be combined with --config, --all or --missing")
	}
	if o.adhoc() && o.versionArg == "" {
		o.versionArg = "--version"
	}
	if !o.adhoc() && (o.archiveType != "" || len(o.archivePaths) > 0) {
		return fmt.Errorf("--archive-type and --archive-path need --name and --url")
	}
	return nil
}

// ids returns the catalog ids selected by the flags, filtered by --missing.
func (o *installOptions) ids(e *env) []string {
	ids := o.configs
	if o.all || (o.missing && len(ids) == 0) {
		ids = e.table.IDs()
	}
	if !o.missing {
		return ids
	}

	names := make([]string, len(ids))
	byName := make(map[string]string, len(ids))
	for i, id := range ids {
		d, err := e.table.Resolve(id)
		if err != nil {
			// Kept so plan reports it.
			names[i], byName[id] = id, id
			continue
		}
		names[i], byName[d.Name] = d.Name, id
	}
	var out []string
	for _, name := range system.MissingBinaries(e.prefix.Bin(), names) {
		out = append(out, byName[name])
	}
	return out
}

func newInstallCommand(g *globals) *cobra.Command {
	o := &installOptions{}
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download and install prebuilt binaries into the bin directory",
		Example: `  dot install -c rg -c bat
  dot install --all --missing
  dot install -c starship --bin-version latest
  dot install --name fd --url 'https://example.com/fd-%VERSION%-%TRIPLET%.tar.gz' \
      --archive-type tar.gz --archive-path 'fd-%VERSION%-%TRIPLET%' --archive-path fd --bin-version 10.2.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			prefix, err := g.resolvePrefix()
			if err != nil {
				return err
			}
			e, err := newEnv(prefix, o.catalog)
			if err != nil {
				return err
			}
			return runInstall(cmd.Context(), g, o, e)
		},
	}

	f := cmd.Flags()
	f.SortFlags = false
	f.StringSliceVarP(&o.configs, "config", "c", nil, "catalog id to install (repeatable)")
	f.BoolVar(&o.all, "all", false, "install every catalog entry")
	f.BoolVar(&o.missing, "missing", false, "skip binaries already present in the bin directory")
	f.StringVar(&o.version, "bin-version", "", `version to install instead of the predefined one, or "latest"`)
	f.StringVar(&o.catalog, "catalog", "", "extra catalog TOML file (default: config/binary/catalog.toml when present)")
	f.BoolVar(&o.tui, "tui", false, "interactive selection and progress")
	f.StringVar(&o.name, "name", "", "ad-hoc binary name")
	f.StringVar(&o.url, "url", "", "ad-hoc download url, may contain %VERSION% and platform placeholders")
	f.StringVar(&o.archiveType, "archive-type", "", "ad-hoc archive type: tar.gz, gz, zip or tar.xz")
	f.StringArrayVar(&o.archivePaths, "archive-path", nil, "ad-hoc path segment of the binary inside the archive (repeatable)")
	f.StringVar(&o.versionArg, "version-arg", "", `ad-hoc arguments that print the version (a leading "^" is dropped)`)
	return cmd
}

func runInstall(ctx context.Context, g *globals, o *installOptions, e *env) error {
	if o.adhoc() {
		d, err := catalog.Adhoc(o.name, platform.Current().Expand(o.url), o.archiveType, o.archivePaths, o.versionArg)
		if err != nil {
			return fmt.Errorf("%w: %v", installer.ErrConfig, err)
		}
		j, err := e.job(ctx, o.name, d, o.version)
		if err != nil {
			return err
		}
		return plainInstall(ctx, g, e.prefix.Bin(), []installer.Job{j})
	}

	ids := o.ids(e)
	interactive := isatty.IsTerminal(os.Stdout.Fd()) && !g.quiet
	if len(ids) == 0 {
		if o.missing {
			slog.Info("Nothing missing", "bin", e.prefix.Bin())
			return nil
		}
		if !interactive {
			return fmt.Errorf("nothing to install: pass --config <id>, --all or --name")
		}
		o.tui = true
	}
	plan := func(ctx context.Context, ids []string) ([]installer.Job, error) {
		return e.plan(ctx, ids, o.version)
	}
	if o.tui && interactive {
		return tuiInstall(ctx, e, ids, plan)
	}

	jobs, err := plan(ctx, ids)
	if err != nil {
		return err
	}
	return plainInstall(ctx, g, e.prefix.Bin(), jobs)
}

func tuiInstall(ctx context.Context, e *env, preselected []string, plan tui.PlanFunc) error {
	// The TUI owns the terminal; logs would tear the screen.
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.DiscardHandler))
	defer slog.SetDefault(prev)

	inst := installer.New(e.prefix.Bin(),
		installer.WithLogger(slog.Default()),
		installer.WithOutput(io.Discard, io.Discard),
	)
	// Quitting the program stops the batch and its progress forwarding.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(ctx, inst, e.table.IDs(), preselected, plan)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	if n := final.(tui.RootModel).Failed(); n > 0 {
		return fmt.Errorf("%d binaries failed to install", n)
	}
	return nil
}

func plainInstall(ctx context.Context, g *globals, binDir string, jobs []installer.Job) error {
	out := g.output()
	var stdout io.Writer = os.Stdout
	if g.quiet {
		stdout = io.Discard
	}
	live := !g.quiet && isatty.IsTerminal(os.Stderr.Fd())

	inst := installer.New(binDir,
		installer.WithLogger(slog.Default()),
		installer.WithOutput(stdout, out),
		installer.WithProgress(progressPrinter(out, live)),
	)
	return inst.InstallAll(ctx, jobs)
}

// progressPrinter reports each finished binary on its own line and, on a
// terminal, rewrites a single status line while downloading.
func progressPrinter(w io.Writer, live bool) func(installer.ProgressMsg) {
	return func(msg installer.ProgressMsg) {
		switch msg.State {
		case installer.StateDownloading:
			if !live || msg.Bytes == 0 {
				return
			}
			if msg.Total > 0 {
				fmt.Fprintf(w, "\r\033[K  %s: %s / %s", msg.Program, humanize.Bytes(uint64(msg.Bytes)), humanize.Bytes(uint64(msg.Total)))
			} else {
				fmt.Fprintf(w, "\r\033[K  %s: %s", msg.Program, humanize.Bytes(uint64(msg.Bytes)))
			}
		case installer.StateExtracting, installer.StateInstalling:
			if live {
				fmt.Fprint(w, "\r\033[K")
			}
		case installer.StateDone:
			fmt.Fprintf(w, "✓ %s %s\n", msg.Program, msg.Version)
		case installer.StateError:
			if live {
				fmt.Fprint(w, "\r\033[K")
			}
			fmt.Fprintf(w, "✗ %v\n", msg.Err)
		}
	}
}
