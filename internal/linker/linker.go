package linker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrRegularFile is returned when the link location holds a real file.
var ErrRegularFile = errors.New("already exists as a regular file")

// Link creates a symlink at binDir/name pointing to src and returns the link
// path. An existing symlink is replaced unless it already points at src; a
// regular file is left alone and ErrRegularFile is returned.
func Link(src, binDir, name string) (string, error) {
	target := filepath.Join(binDir, name)

	info, err := os.Lstat(target)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		if cur, err := os.Readlink(target); err == nil && cur == src {
			return target, nil
		}
		if err := os.Remove(target); err != nil {
			return "", fmt.Errorf("remove existing symlink %s: %w", target, err)
		}
	case err == nil:
		return "", fmt.Errorf("%s %w, remove it manually first", target, ErrRegularFile)
	case !errors.Is(err, os.ErrNotExist):
		return "", err
	}

	if err := os.MkdirAll(binDir, 0755); err != nil {
		return "", err
	}
	if err := os.Symlink(src, target); err != nil {
		return "", fmt.Errorf("create symlink %s -> %s: %w", target, src, err)
	}
	return target, nil
}

// Self links the running executable into binDir as name. Nothing happens
// when the executable already lives at that path.
func Self(binDir, name string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if real, err := filepath.EvalSymlinks(exe); err == nil {
		exe = real
	}
	target := filepath.Join(binDir, name)
	if real, err := filepath.EvalSymlinks(target); err == nil && real == exe {
		return target, nil
	}
	return Link(exe, binDir, name)
}
