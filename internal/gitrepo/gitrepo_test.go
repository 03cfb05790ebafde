package gitrepo_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsaleh/dot/internal/gitrepo"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func commitFile(t *testing.T, dir, name, content string) {
	t.Helper()
	repo, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("update "+name, &gogit.CommitOptions{
		Author: &object.Signature{Name: "dot", Email: "dot@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func upstream(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "upstream")
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, dir, "README", "one")
	return dir
}

func TestSync_cloneThenPull(t *testing.T) {
	requireGit(t)
	src := upstream(t)
	dst := filepath.Join(t.TempDir(), ".dot")
	ctx := context.Background()

	res, err := gitrepo.Sync(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, gitrepo.Cloned, res)
	got, err := os.ReadFile(filepath.Join(dst, "README"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	res, err = gitrepo.Sync(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, gitrepo.UpToDate, res)

	commitFile(t, src, "README", "two")
	res, err = gitrepo.Sync(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, gitrepo.Updated, res)
	got, err = os.ReadFile(filepath.Join(dst, "README"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestSync_divergedHistory(t *testing.T) {
	requireGit(t)
	src := upstream(t)
	dst := filepath.Join(t.TempDir(), ".dot")
	ctx := context.Background()

	_, err := gitrepo.Sync(ctx, src, dst)
	require.NoError(t, err)

	commitFile(t, dst, "local", "mine")
	commitFile(t, src, "remote", "theirs")

	_, err = gitrepo.Sync(ctx, src, dst)
	assert.ErrorIs(t, err, gitrepo.ErrNotFastForward)
}

func TestSync_existingNonRepository(t *testing.T) {
	dst := t.TempDir()
	_, err := gitrepo.Sync(context.Background(), "https://example.invalid/dot.git", dst)
	assert.ErrorIs(t, err, gitrepo.ErrNotRepository)
}

func TestSync_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gitrepo.Sync(ctx, "https://example.invalid/dot.git", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCopy(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "config", "zsh"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "config", "zsh", "common.zsh"), []byte("export A=1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "setup.sh"), []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.Symlink("setup.sh", filepath.Join(src, "run")))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "target", "debug"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "target", "debug", "dot"), []byte("build"), 0755))

	dst := filepath.Join(t.TempDir(), ".dot")
	require.NoError(t, os.MkdirAll(filepath.Join(dst, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, ".git", "HEAD"), []byte("stale"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "setup.sh"), []byte("old"), 0644))

	res, err := gitrepo.Copy(context.Background(), "file://"+src, dst)
	require.NoError(t, err)
	assert.Equal(t, gitrepo.Copied, res)

	got, err := os.ReadFile(filepath.Join(dst, "config", "zsh", "common.zsh"))
	require.NoError(t, err)
	assert.Equal(t, "export A=1\n", string(got))

	got, err = os.ReadFile(filepath.Join(dst, "setup.sh"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(got))
	info, err := os.Stat(filepath.Join(dst, "setup.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	link, err := os.Readlink(filepath.Join(dst, "run"))
	require.NoError(t, err)
	assert.Equal(t, "setup.sh", link)

	assert.NoDirExists(t, filepath.Join(dst, ".git"))
	assert.NoDirExists(t, filepath.Join(dst, "target"))
}

func TestCopy_needsFileURL(t *testing.T) {
	dst := filepath.Join(t.TempDir(), ".dot")
	_, err := gitrepo.Copy(context.Background(), "https://example.invalid/dot.git", dst)
	assert.ErrorIs(t, err, gitrepo.ErrNotLocal)
	assert.NoDirExists(t, dst)
}
