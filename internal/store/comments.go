package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AddComment appends a timestamped section to slug's comments.md. This is
// guarded by an exclusive lock on the comments file itself, not the walk
// lock, so comments can be written concurrently with unrelated walk
// operations (spec §4.1).
func (s *Store) AddComment(slug, text string) error {
	dir, _, err := s.IssueDir(slug)
	if err != nil {
		return err
	}
	return s.appendCommentLocked(dir, text)
}

// appendCommentLocked appends to comments.md under dir, which the caller
// may already hold the walk lock for (e.g. Reopen) — comments.md has its
// own independent lock regardless.
func (s *Store) appendCommentLocked(dir, text string) error {
	path := filepath.Join(dir, "comments.md")
	return withCommentsLock(path, func() error {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening comments.md: %w", err)
		}
		defer f.Close()
		section := fmt.Sprintf("\n## %s\n\n%s\n", time.Now().UTC().Format(time.RFC3339), text)
		if _, err := f.WriteString(section); err != nil {
			return fmt.Errorf("appending comment: %w", err)
		}
		return nil
	})
}

// Comments reads the raw comments.md body for an issue, or "" if none
// exists yet.
func (s *Store) Comments(slug string) (string, error) {
	dir, _, err := s.IssueDir(slug)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, "comments.md"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading comments.md: %w", err)
	}
	return string(data), nil
}
