package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dsaleh/dot/internal/extractor"
	"github.com/dsaleh/dot/internal/platform"
)

// Table maps a tool id to its descriptor.
type Table struct {
	entries map[string]Descriptor
}

func gh(repo, path string) string {
	return "https://github.com/" + repo + "/releases/download/" + path
}

func tarGz(paths ...string) *Archive {
	return &Archive{Kind: extractor.TarGz, Paths: paths}
}

// New builds the predefined table for the given platform.
func New(p platform.Tokens) *Table {
	const v = VersionPlaceholder
	musl := p.Spelling(platform.MuslTriplet)

	entries := []struct {
		id string
		d  Descriptor
	}{
		{"starship", Descriptor{
			Name:    "starship",
			Repo:    "starship/starship",
			URL:     gh("starship/starship", "v"+v+"/starship-"+p.Triplet+".tar.gz"),
			Archive: tarGz("starship"),
		}},
		{"direnv", Descriptor{
			Name: "direnv",
			Repo: "direnv/direnv",
			URL:  gh("direnv/direnv", "v"+v+"/direnv."+p.Uname+"-"+p.ArchShort),
		}},
		{"rye", Descriptor{
			Name:    "rye",
			Repo:    "astral-sh/rye",
			URL:     gh("astral-sh/rye", v+"/rye-"+p.ArchFull+"-"+p.OS+".gz"),
			Archive: &Archive{Kind: extractor.Gz},
		}},
		{"eza", Descriptor{
			Name:    "eza",
			Repo:    "eza-community/eza",
			URL:     gh("eza-community/eza", "v"+v+"/eza_"+p.Triplet+".tar.gz"),
			Archive: tarGz("eza"),
		}},
		{"croc", Descriptor{
			Name: "croc",
			Repo: "schollz/croc",
			URL: gh("schollz/croc", fmt.Sprintf("v%s/croc_v%s_%s-%s.tar.gz",
				v, v, p.Spelling(platform.CrocOS), p.Spelling(platform.CrocArch))),
			Archive: tarGz("croc"),
		}},
		{"just", Descriptor{
			Name:    "just",
			Repo:    "casey/just",
			URL:     gh("casey/just", v+"/just-"+v+"-"+musl+".tar.gz"),
			Archive: tarGz("just"),
		}},
		{"skm", Descriptor{
			Name: "skm",
			Repo: "TimothyYe/skm",
			URL: gh("TimothyYe/skm", fmt.Sprintf("v%s/skm_%s_%s_%s.tar.gz",
				v, v, p.Spelling(platform.PascalUname), p.Spelling(platform.GoArch))),
			Archive: tarGz("skm"),
		}},
		{"dot", Descriptor{
			Name: "dot",
			Repo: "vnghia/dot",
			URL:  gh("vnghia/dot", "v"+v+"/dot."+p.Triplet),
		}},
		{"zoxide", Descriptor{
			Name:    "zoxide",
			Repo:    "ajeetdsouza/zoxide",
			URL:     gh("ajeetdsouza/zoxide", "v"+v+"/zoxide-"+v+"-"+musl+".tar.gz"),
			Archive: tarGz("zoxide"),
		}},
		{"zellij", Descriptor{
			Name:    "zellij",
			Repo:    "zellij-org/zellij",
			URL:     gh("zellij-org/zellij", "v"+v+"/zellij-"+musl+".tar.gz"),
			Archive: tarGz("zellij"),
		}},
		{"bat", Descriptor{
			Name:    "bat",
			Repo:    "sharkdp/bat",
			URL:     gh("sharkdp/bat", "v"+v+"/bat-v"+v+"-"+p.Triplet+".tar.gz"),
			Archive: tarGz("bat-v"+v+"-"+p.Triplet, "bat"),
		}},
		{"ripgrep", Descriptor{
			Name:    "rg",
			Repo:    "BurntSushi/ripgrep",
			URL:     gh("BurntSushi/ripgrep", v+"/ripgrep-"+v+"-"+musl+".tar.gz"),
			Archive: tarGz("ripgrep-"+v+"-"+musl, "rg"),
		}},
	}

	t := &Table{entries: make(map[string]Descriptor, len(entries))}
	for _, e := range entries {
		e.d.VersionArg = "--version"
		t.entries[e.id] = e.d
	}
	return t
}

// Resolve returns the descriptor registered under id.
func (t *Table) Resolve(id string) (Descriptor, error) {
	d, ok := t.entries[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w %q (known: %s)", ErrUnknown, id, strings.Join(t.IDs(), ", "))
	}
	return d, nil
}

// IDs returns every known id in sorted order.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns the descriptors of every known id, ordered like IDs.
func (t *Table) All() []Descriptor {
	ids := t.IDs()
	out := make([]Descriptor, len(ids))
	for i, id := range ids {
		out[i] = t.entries[id]
	}
	return out
}

// program is one [programs.<id>] table of a user catalog file.
type program struct {
	Name       string   `toml:"name"`
	URL        string   `toml:"url"`
	Archive    string   `toml:"archive"`
	Paths      []string `toml:"paths"`
	VersionArg string   `toml:"version_arg"`
	Repo       string   `toml:"repo"`
}

// LoadFile merges user-defined descriptors from a catalog TOML file into the
// table. Platform placeholders in url and paths are expanded with p. All
// entries are validated and every problem is reported at once; nothing is
// merged if any entry is invalid.
func (t *Table) LoadFile(path string, p platform.Tokens) error {
	var raw struct {
		Programs map[string]program `toml:"programs"`
	}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	var errs []string
	loaded := make(map[string]Descriptor, len(raw.Programs))
	for id, prog := range raw.Programs {
		if prog.Name == "" {
			prog.Name = id
		}
		if prog.VersionArg == "" {
			prog.VersionArg = "--version"
		}
		paths := make([]string, len(prog.Paths))
		for i, s := range prog.Paths {
			paths[i] = p.Expand(s)
		}
		d, err := Adhoc(prog.Name, p.Expand(prog.URL), prog.Archive, paths, prog.VersionArg)
		if err != nil {
			errs = append(errs, fmt.Sprintf("[%s]: %v", id, err))
			continue
		}
		d.Repo = prog.Repo
		loaded[id] = d
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("catalog validation errors:\n%s", strings.Join(errs, "\n"))
	}

	for id, d := range loaded {
		t.entries[id] = d
	}
	return nil
}

// Adhoc builds a descriptor from loose user input, such as install flags.
// An empty archiveType means the download is the executable itself. A
// leading '^' on versionArg is dropped so flags like "^--version" survive
// shell and flag parsing.
func Adhoc(name, url, archiveType string, paths []string, versionArg string) (Descriptor, error) {
	d := Descriptor{
		Name:       name,
		URL:        url,
		VersionArg: strings.TrimLeft(versionArg, "^"),
	}
	if archiveType != "" {
		kind, err := extractor.ParseKind(archiveType)
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		d.Archive = &Archive{Kind: kind, Paths: paths}
	} else if len(paths) > 0 {
		return Descriptor{}, fmt.Errorf("%w: archive paths given without an archive type", ErrInvalid)
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}
