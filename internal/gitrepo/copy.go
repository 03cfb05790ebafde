package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotLocal is returned by Copy for urls that are not file:// urls.
var ErrNotLocal = errors.New("copy needs a file:// repository url")

// skipDir is the build output directory of the dot repository.
const skipDir = "target"

// Copy mirrors the local repository at a file:// url into dir instead of
// cloning it. A previous .git directory in dir is removed first; other
// existing files are overwritten but not pruned.
func Copy(ctx context.Context, url, dir string) (Result, error) {
	src, ok := strings.CutPrefix(url, "file://")
	if !ok {
		return 0, fmt.Errorf("%s: %w", url, ErrNotLocal)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	slog.Info("Copying dot repository", "repo", src, "dest", dir)
	if err := os.RemoveAll(filepath.Join(dir, ".git")); err != nil {
		return 0, err
	}

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)

		switch {
		case d.IsDir():
			if d.Name() == skipDir && rel != "." {
				return filepath.SkipDir
			}
			return os.MkdirAll(target, 0755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyFile(path, target)
		}
		slog.Debug("Skipping special file", "path", path)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", src, err)
	}
	return Copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Chmod(info.Mode().Perm()); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
