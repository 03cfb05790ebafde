package versions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

const (
	// FileName is the predefined version table shipped with the dot repository.
	FileName = "version.toml"
	// LocalFileName holds machine-local overrides of FileName.
	LocalFileName = "version.local.toml"
	// Latest asks for the newest published release instead of a pinned one.
	Latest = "latest"
)

// ErrMissingVersion is returned when an id has no entry in the version table.
var ErrMissingVersion = errors.New("no predefined version")

// Table maps a tool id to the version to install.
type Table map[string]string

// LoadTable decodes and merges TOML key/version files in order; later files
// win on conflicts. The first file is required, the rest are skipped when
// they do not exist.
func LoadTable(paths ...string) (Table, error) {
	table := Table{}
	for i, path := range paths {
		var raw map[string]string
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			if i > 0 && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load versions from %s: %w", path, err)
		}
		for k, v := range raw {
			table[k] = v
		}
	}
	return table, nil
}

// LatestFunc resolves the newest release version of a GitHub repository.
type LatestFunc func(ctx context.Context, repo string) (string, error)

// Resolver hands out the version to install for a tool id. The table is
// read at most once, on first use, and shared by every caller afterwards.
type Resolver struct {
	dir    string
	latest LatestFunc

	once  sync.Once
	table Table
	err   error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLatest enables the "latest" keyword.
func WithLatest(fn LatestFunc) Option {
	return func(r *Resolver) { r.latest = fn }
}

// NewResolver returns a Resolver reading FileName and LocalFileName from dir.
func NewResolver(dir string, opts ...Option) *Resolver {
	r := &Resolver{dir: dir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Table returns the merged version table, loading it on first call.
func (r *Resolver) Table() (Table, error) {
	r.once.Do(func() {
		r.table, r.err = LoadTable(
			filepath.Join(r.dir, FileName),
			filepath.Join(r.dir, LocalFileName),
		)
	})
	return r.table, r.err
}

// Resolve returns the version for id. A non-empty override is returned as
// is, except Latest which is looked up from repo.
func (r *Resolver) Resolve(ctx context.Context, id, repo, override string) (string, error) {
	if override == Latest {
		if r.latest == nil || repo == "" {
			return "", fmt.Errorf("%s: cannot resolve %q without a release repository", id, Latest)
		}
		v, err := r.latest(ctx, repo)
		if err != nil {
			return "", fmt.Errorf("%s: resolve latest version: %w", id, err)
		}
		return v, nil
	}
	if override != "" {
		return override, nil
	}

	table, err := r.Table()
	if err != nil {
		return "", err
	}
	v, ok := table[id]
	if !ok || v == "" {
		return "", fmt.Errorf("%w for %q in %s", ErrMissingVersion, id, filepath.Join(r.dir, FileName))
	}
	return v, nil
}
