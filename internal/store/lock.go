package store

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// withWalkLock acquires the exclusive advisory lock on .walk.lock for the
// duration of fn. It blocks until the lock is available — per spec §7,
// LockContention is "block until available; no timeout in core".
func (s *Store) withWalkLock(fn func() error) error {
	lockPath := filepath.Join(s.dir, ".walk.lock")
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquiring walk lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// withCommentsLock acquires the exclusive lock on one issue's comments.md,
// independent of the walk lock, so comments can be appended concurrently
// with unrelated walk-lock-guarded operations (spec §4.1).
func withCommentsLock(commentsPath string, fn func() error) error {
	lock := flock.New(commentsPath + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquiring comments lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
