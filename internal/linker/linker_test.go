package linker_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsaleh/dot/internal/linker"
)

func setup(t *testing.T) (src, binDir string) {
	t.Helper()
	dir := t.TempDir()
	src = filepath.Join(dir, "dot")
	require.NoError(t, os.WriteFile(src, []byte("binary"), 0755))
	return src, filepath.Join(dir, "bin")
}

func TestLink_createsSymlinkAndBinDir(t *testing.T) {
	src, binDir := setup(t)

	link, err := linker.Link(src, binDir, "dot")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(binDir, "dot"), link)

	got, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestLink_replacesExistingSymlink(t *testing.T) {
	src, binDir := setup(t)
	require.NoError(t, os.MkdirAll(binDir, 0755))
	require.NoError(t, os.Symlink("/old/dot", filepath.Join(binDir, "dot")))

	_, err := linker.Link(src, binDir, "dot")
	require.NoError(t, err)

	got, err := os.Readlink(filepath.Join(binDir, "dot"))
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestLink_sameTargetIsNoop(t *testing.T) {
	src, binDir := setup(t)
	_, err := linker.Link(src, binDir, "dot")
	require.NoError(t, err)
	_, err = linker.Link(src, binDir, "dot")
	assert.NoError(t, err)
}

func TestLink_errorsOnRegularFile(t *testing.T) {
	src, binDir := setup(t)
	require.NoError(t, os.MkdirAll(binDir, 0755))
	existing := filepath.Join(binDir, "dot")
	require.NoError(t, os.WriteFile(existing, []byte("existing"), 0755))

	_, err := linker.Link(src, binDir, "dot")
	require.ErrorIs(t, err, linker.ErrRegularFile)

	got, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(got))
}

func TestSelf_linksTestBinary(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")

	link, err := linker.Self(binDir, "dot")
	require.NoError(t, err)

	exe, err := os.Executable()
	require.NoError(t, err)
	exe, err = filepath.EvalSymlinks(exe)
	require.NoError(t, err)

	real, err := filepath.EvalSymlinks(link)
	require.NoError(t, err)
	assert.Equal(t, exe, real)

	_, err = linker.Self(binDir, "dot")
	assert.NoError(t, err)
}
