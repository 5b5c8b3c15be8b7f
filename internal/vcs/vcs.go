package vcs

import "context"

// Service answers best-effort questions about the enclosing repository.
// Implementations return an error when the answer is unavailable; callers
// that only need a hint are expected to ignore it.
type Service interface {
	// CurrentCommit returns the full hash of the checked-out commit.
	CurrentCommit(ctx context.Context) (string, error)
	// RepoURL returns the origin remote URL.
	RepoURL(ctx context.Context) (string, error)
	// LatestTag returns the most recent reachable tag.
	LatestTag(ctx context.Context) (string, error)
	// Changelog returns commit messages between two refs,
	// formatted according to mode ("conventional" or anything else for short form).
	Changelog(ctx context.Context, prev, curr, mode string) (string, error)
}
