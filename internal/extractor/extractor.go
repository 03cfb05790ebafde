package extractor

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// Kind is the archive format of a downloaded payload.
type Kind int

const (
	TarGz Kind = iota
	Gz
	Zip
	TarXz
)

func (k Kind) String() string {
	switch k {
	case TarGz:
		return "tar.gz"
	case Gz:
		return "gz"
	case Zip:
		return "zip"
	case TarXz:
		return "tar.xz"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Unpacks reports whether k unpacks into a directory tree rather than
// producing the executable bytes directly.
func (k Kind) Unpacks() bool {
	return k != Gz
}

var (
	// ErrUnsafePath is returned for archive entries that would land outside
	// the destination directory, textually or through links on disk.
	ErrUnsafePath = errors.New("archive entry escapes destination")
	// ErrUnsupportedEntry is returned for devices, fifos and unknown tar types.
	ErrUnsupportedEntry = errors.New("unsupported archive entry")
)

// ParseKind maps a user supplied archive type to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "tar.gz", "tgz":
		return TarGz, nil
	case "gz", "gzip":
		return Gz, nil
	case "zip":
		return Zip, nil
	case "tar.xz", "txz":
		return TarXz, nil
	}
	return 0, fmt.Errorf("unsupported archive type %q", s)
}

// Extract unpacks data according to kind. Tar and zip archives are written
// under dstDir and nil is returned; a gzip payload is decompressed into
// memory, returned, and dstDir is left untouched.
func Extract(kind Kind, data []byte, dstDir string) ([]byte, error) {
	if kind == Gz {
		return gunzip(data)
	}

	d, err := openDest(dstDir)
	if err != nil {
		return nil, err
	}
	defer d.root.Close()

	switch kind {
	case TarGz:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer gr.Close()
		return nil, d.extractTar(gr)
	case TarXz:
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open xz: %w", err)
		}
		return nil, d.extractTar(xr)
	case Zip:
		return nil, d.extractZip(data)
	}
	return nil, fmt.Errorf("unsupported archive kind %v", kind)
}

func gunzip(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gr.Close()

	// Release assets are a single member; concatenated members are not expected.
	gr.Multistream(false)
	out, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("read gzip: %w", err)
	}
	return out, nil
}

// dest is an extraction target. Files and directories are created through
// root, which refuses to follow links out of the tree; real is the
// symlink-free path of the directory for the checks root cannot do.
type dest struct {
	real string
	root *os.Root
}

func openDest(dir string) (*dest, error) {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(real)
	if err != nil {
		return nil, err
	}
	return &dest{real: real, root: root}, nil
}

// rel cleans an entry name into a path relative to the destination,
// rejecting absolute names and any name that climbs out of it.
func rel(name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	r := filepath.Clean(filepath.FromSlash(name))
	if r == ".." || strings.HasPrefix(r, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return r, nil
}

func (d *dest) within(path string) bool {
	r, err := filepath.Rel(d.real, path)
	return err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(os.PathSeparator))
}

// checkOnDisk follows the links already extracted along name and fails when
// the deepest existing ancestor resolves outside the destination.
func (d *dest) checkOnDisk(name string) error {
	p := filepath.Join(d.real, name)
	for {
		real, err := filepath.EvalSymlinks(p)
		if err == nil {
			if !d.within(real) {
				return fmt.Errorf("%w: %s resolves to %s", ErrUnsafePath, name, real)
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		parent := filepath.Dir(p)
		if parent == p || !d.within(parent) {
			return nil
		}
		p = parent
	}
}

// escaped maps the error os.Root reports for a path leaving the tree.
func escaped(name string, err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) && strings.Contains(pe.Err.Error(), "escapes") {
		return fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return err
}

func (d *dest) mkdirAll(name string) error {
	if name == "." {
		return nil
	}
	if err := d.checkOnDisk(name); err != nil {
		return err
	}
	parts := strings.Split(name, string(os.PathSeparator))
	for i := range parts {
		p := filepath.Join(parts[:i+1]...)
		if err := d.root.Mkdir(p, 0755); err != nil && !errors.Is(err, fs.ErrExist) {
			return escaped(name, err)
		}
	}
	return nil
}

func (d *dest) writeFile(name string, r io.Reader, mode fs.FileMode) error {
	if err := d.mkdirAll(filepath.Dir(name)); err != nil {
		return err
	}
	if err := d.checkOnDisk(name); err != nil {
		return err
	}
	out, err := d.root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return escaped(name, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	// OpenFile is subject to the umask; the archive's mode wins.
	if err := out.Chmod(mode); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (d *dest) symlink(name, target string) error {
	if filepath.IsAbs(target) {
		return fmt.Errorf("%w: %s -> %s", ErrUnsafePath, name, target)
	}
	if _, err := rel(filepath.Join(filepath.Dir(name), target)); err != nil {
		return fmt.Errorf("%w: %s -> %s", ErrUnsafePath, name, target)
	}
	parent := filepath.Dir(name)
	if err := d.mkdirAll(parent); err != nil {
		return err
	}
	if err := d.checkOnDisk(parent); err != nil {
		return err
	}
	realParent, err := filepath.EvalSymlinks(filepath.Join(d.real, parent))
	if err != nil {
		return err
	}
	return os.Symlink(target, filepath.Join(realParent, filepath.Base(name)))
}

// hardlink materialises a link to an earlier entry as a copy of it. The
// source is read through root, so it cannot be outside the tree.
func (d *dest) hardlink(name, target string) error {
	src, err := rel(target)
	if err != nil {
		return err
	}
	in, err := d.root.Open(src)
	if err != nil {
		return fmt.Errorf("hard link %s -> %s: %w", name, target, escaped(target, err))
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: hard link %s -> %s is not a regular file", ErrUnsupportedEntry, name, target)
	}
	return d.writeFile(name, in, info.Mode().Perm())
}

func (d *dest) extractTar(r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %v", ErrUnsafePath, err)
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		name, err := rel(hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			err = d.mkdirAll(name)
		case tar.TypeReg:
			err = d.writeFile(name, tr, hdr.FileInfo().Mode().Perm())
		case tar.TypeSymlink:
			err = d.symlink(name, hdr.Linkname)
		case tar.TypeLink:
			err = d.hardlink(name, hdr.Linkname)
		case tar.TypeXGlobalHeader:
		default:
			err = fmt.Errorf("%w: %s has type %q", ErrUnsupportedEntry, hdr.Name, hdr.Typeflag)
		}
		if err != nil {
			return err
		}
	}
}

func (d *dest) extractZip(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	for _, f := range r.File {
		name, err := rel(f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := d.mkdirAll(name); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		mode := f.Mode().Perm()
		if mode == 0 {
			mode = 0644
		}
		err = d.writeFile(name, rc, mode)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
