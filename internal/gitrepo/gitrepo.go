// Package gitrepo keeps a local checkout of the dot repository current.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	gogit "github.com/go-git/go-git/v5"
)

// DefaultURL is cloned by `dot init` when no --repo is given.
const DefaultURL = "https://github.com/vnghia/dot.git"

var (
	ErrNotRepository  = errors.New("destination exists but is not a git repository")
	ErrNotFastForward = errors.New("only fast-forward updates are allowed")
)

// Result says what Sync or Copy did.
type Result int

const (
	Cloned Result = iota
	Updated
	UpToDate
	Copied
)

func (r Result) String() string {
	return [...]string{"cloned", "updated", "up to date", "copied"}[r]
}

// Sync clones url into dir, or fast-forwards the existing checkout in dir
// from its origin remote.
func Sync(ctx context.Context, url, dir string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Info("Cloning dot repository", "repo", url, "dest", dir)
		if _, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{URL: url}); err != nil {
			os.RemoveAll(dir)
			return 0, fmt.Errorf("clone %s: %w", url, err)
		}
		return Cloned, nil
	} else if err != nil {
		return 0, err
	}

	slog.Info("Opening existing dot repository", "dest", dir)
	repo, err := gogit.PlainOpen(dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return 0, fmt.Errorf("%s: %w", dir, ErrNotRepository)
	}
	if err != nil {
		return 0, fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return 0, fmt.Errorf("get worktree: %w", err)
	}

	err = wt.PullContext(ctx, &gogit.PullOptions{RemoteName: gogit.DefaultRemoteName})
	switch {
	case errors.Is(err, gogit.NoErrAlreadyUpToDate):
		slog.Info("Already up to date", "dest", dir)
		return UpToDate, nil
	case errors.Is(err, gogit.ErrNonFastForwardUpdate):
		return 0, fmt.Errorf("pull %s: %w", dir, ErrNotFastForward)
	case err != nil:
		return 0, fmt.Errorf("pull %s: %w", dir, err)
	}

	if head, err := repo.Head(); err == nil {
		slog.Info("Fast-forwarded", "commit", head.Hash().String())
	}
	return Updated, nil
}
