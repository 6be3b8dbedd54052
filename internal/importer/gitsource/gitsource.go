// Package gitsource keeps a local checkout of a remote word-list repository.
package gitsource

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// IsURL reports whether src looks like a git remote rather than a local path.
func IsURL(src string) bool {
	for _, prefix := range []string{"https://", "http://", "ssh://", "git://", "file://", "git@"} {
		if strings.HasPrefix(src, prefix) {
			return true
		}
	}
	return strings.HasSuffix(src, ".git") && !isLocalDir(src)
}

func isLocalDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CachePath returns the checkout directory for url below cacheDir.
func CachePath(cacheDir, url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(cacheDir, fmt.Sprintf("%x", sum[:8]))
}

// Sync clones url into its cache directory if it doesn't exist yet, or pulls
// the latest changes if it does. It returns the checkout path.
func Sync(ctx context.Context, url, cacheDir string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	localPath := CachePath(cacheDir, url)

	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		logger.Info("cloning word list", "url", url, "path", localPath)
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create cache dir %s: %w", cacheDir, err)
		}
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: url})
		if err != nil {
			_ = os.RemoveAll(localPath)
			return "", fmt.Errorf("failed to clone repo %s: %w", url, err)
		}

	case err == nil:
		logger.Info("pulling word list", "url", url, "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return "", fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return "", fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}
		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return "", fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}

	default:
		return "", fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return localPath, nil
}
