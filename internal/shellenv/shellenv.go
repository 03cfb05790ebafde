// Package shellenv renders the environment file sourced by the login shell.
package shellenv

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/dsaleh/dot/internal/system"
)

const (
	header = "# AUTO GENERATED FILE. DO NOT EDIT"

	// DefaultRCFile is written under the prefix unless --rc-file says otherwise.
	DefaultRCFile = ".zshenv"
)

// Var is one exported variable.
type Var struct {
	Name  string
	Value string
}

// Zsh returns the variables a zsh session needs to find the dot layout.
func Zsh(p system.Prefix) []Var {
	return []Var{
		{system.DotDirEnv, p.Dot()},
		{"CODEDIR", p.Code()},
		{"LOCALDIR", p.Local()},
		{"BINDIR", p.Bin()},
		{"SHDIR", p.ShellCommon()},
		{"ZDOTDIR", p.ShellZsh()},
	}
}

// Render produces the file body: a header, a blank line, one export per var.
func Render(vars []Var) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for _, v := range vars {
		fmt.Fprintf(&b, "export %s=%s\n", v.Name, shellescape.Quote(v.Value))
	}
	return b.String()
}

// Write renders vars into path, replacing any previous content. A relative
// path is taken relative to the prefix root.
func Write(p system.Prefix, path string, vars []Var) (string, error) {
	if path == "" {
		path = DefaultRCFile
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.Root(), path)
	}

	content := Render(vars)
	slog.Debug("Generating shell env", "path", path, "content", content)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
