package system

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DotDirEnv names the variable exported by the generated shell env. When set,
// its parent directory is the prefix.
const DotDirEnv = "DOTDIR"

// Prefix is the root every dot managed directory hangs off.
type Prefix struct {
	root string
}

// NewPrefix returns a Prefix rooted at root as given.
func NewPrefix(root string) Prefix {
	return Prefix{root: root}
}

// Resolve picks the prefix from the --prefix flag, then the parent of
// $DOTDIR, then the home directory. The result is absolute and, when it
// exists, has symlinks resolved.
func Resolve(flag string) (Prefix, error) {
	var root string
	switch {
	case flag != "":
		slog.Debug("Prefix from command line", "prefix", flag)
		root = flag
	case os.Getenv(DotDirEnv) != "":
		dot := os.Getenv(DotDirEnv)
		slog.Debug("Prefix from $DOTDIR environment", "dotdir", dot)
		root = filepath.Dir(filepath.Clean(dot))
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return Prefix{}, fmt.Errorf("resolve prefix: %w", err)
		}
		slog.Debug("Prefix from home directory", "home", home)
		root = home
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return Prefix{}, fmt.Errorf("resolve prefix %s: %w", root, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	} else if !errors.Is(err, os.ErrNotExist) {
		return Prefix{}, fmt.Errorf("resolve prefix %s: %w", abs, err)
	}
	slog.Info("Resolved prefix", "prefix", abs)
	return Prefix{root: abs}, nil
}

func (p Prefix) Root() string  { return p.root }
func (p Prefix) Dot() string   { return filepath.Join(p.root, ".dot") }
func (p Prefix) Code() string  { return filepath.Join(p.root, "code") }
func (p Prefix) Local() string { return filepath.Join(p.Dot(), ".local") }
func (p Prefix) Bin() string   { return filepath.Join(p.Local(), "bin") }

// Config is the configuration tree shipped with the dot repository.
func (p Prefix) Config() string { return filepath.Join(p.Dot(), "config") }

// ConfigBinary holds version.toml, version.local.toml and catalog.toml.
func (p Prefix) ConfigBinary() string { return filepath.Join(p.Config(), "binary") }

// ShellCommon and ShellZsh are the shell script roots exported as SHDIR and
// ZDOTDIR.
func (p Prefix) ShellCommon() string { return filepath.Join(p.Dot(), "shell", "common") }
func (p Prefix) ShellZsh() string    { return filepath.Join(p.Dot(), "shell", "zsh") }
