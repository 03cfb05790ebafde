package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dsaleh/dot/internal/extractor"
)

// VersionPlaceholder marks where the resolved version goes in a URL template
// or an archive path segment.
const VersionPlaceholder = "%VERSION%"

var (
	// ErrUnknown is returned when an id is not in the table.
	ErrUnknown = errors.New("unknown binary")
	// ErrInvalid is returned for descriptors missing required fields.
	ErrInvalid = errors.New("invalid binary description")
)

// Archive describes how the executable is packed inside a download.
type Archive struct {
	Kind extractor.Kind
	// Paths locates the executable below the unpack root. Empty means the
	// executable sits at the root under the descriptor's name.
	Paths []string
}

// Descriptor is everything needed to fetch, unpack and locate one tool.
type Descriptor struct {
	Name       string   // on-disk file name
	URL        string   // may contain VersionPlaceholder
	Archive    *Archive // nil: the payload is the executable
	VersionArg string   // passed to the installed binary as a post-install check
	Repo       string   // GitHub owner/name, used to resolve "latest"
}

// HasPlaceholder reports whether the URL needs a version to be resolved.
func (d Descriptor) HasPlaceholder() bool {
	return strings.Contains(d.URL, VersionPlaceholder)
}

// URLFor substitutes version for every placeholder in the URL template.
func (d Descriptor) URLFor(version string) string {
	return strings.ReplaceAll(d.URL, VersionPlaceholder, version)
}

// BinaryPath returns where the executable lives below an unpack root.
func (d Descriptor) BinaryPath(root, version string) string {
	if d.Archive == nil || len(d.Archive.Paths) == 0 {
		return filepath.Join(root, d.Name)
	}
	parts := make([]string, 0, len(d.Archive.Paths)+1)
	parts = append(parts, root)
	for _, p := range d.Archive.Paths {
		parts = append(parts, strings.ReplaceAll(p, VersionPlaceholder, version))
	}
	return filepath.Join(parts...)
}

// Validate checks the invariants every descriptor must hold before install.
func (d Descriptor) Validate() error {
	var problems []string
	if d.Name == "" {
		problems = append(problems, "name is required")
	} else if strings.ContainsRune(d.Name, '/') || strings.ContainsRune(d.Name, filepath.Separator) || d.Name == "." || d.Name == ".." {
		problems = append(problems, fmt.Sprintf("name %q must be a plain file name", d.Name))
	}
	if d.URL == "" {
		problems = append(problems, "url is required")
	}
	if d.VersionArg == "" {
		problems = append(problems, "version arg is required")
	}
	if d.Archive != nil && d.Archive.Kind == extractor.Gz && len(d.Archive.Paths) > 0 {
		problems = append(problems, "archive paths cannot be combined with a gz archive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, ", "))
	}
	return nil
}
