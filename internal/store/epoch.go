package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// CurrentEpoch returns the epoch number epochs/current points at, or 0 if
// no epoch has been created yet (no issue has closed).
func (s *Store) CurrentEpoch() (int, error) {
	link := filepath.Join(s.epochsDir(), "current")
	target, err := os.Readlink(link)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading epochs/current: %w", err)
	}
	n, err := strconv.Atoi(filepath.Base(target))
	if err != nil {
		return 0, &MalformedRecordError{Path: link, Err: err}
	}
	return n, nil
}

// maxEpoch scans epochs/ for the highest existing numeric subdirectory,
// returning 0 if none exist.
func (s *Store) maxEpoch() (int, error) {
	entries, err := os.ReadDir(s.epochsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("listing epochs: %w", err)
	}
	max := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

// IncrementEpoch creates a new epoch directory numbered one past the
// highest existing epoch (bootstrapping to 1 if none exist) and atomically
// repoints epochs/current at it. Must be called under the walk lock by
// callers that also mutate closed/ in the same logical operation (Close
// does this internally); callers invoking it standalone (the driver, for a
// planning round) acquire the lock themselves via this method.
func (s *Store) IncrementEpoch() (int, error) {
	var newEpoch int
	err := s.withWalkLock(func() error {
		var err error
		newEpoch, err = s.incrementEpochLocked()
		return err
	})
	return newEpoch, err
}

func (s *Store) incrementEpochLocked() (int, error) {
	max, err := s.maxEpoch()
	if err != nil {
		return 0, err
	}
	newEpoch := max + 1
	if err := os.MkdirAll(filepath.Join(s.epochsDir(), strconv.Itoa(newEpoch)), 0o755); err != nil {
		return 0, fmt.Errorf("creating epoch directory: %w", err)
	}
	if err := s.setCurrentEpochLocked(newEpoch); err != nil {
		return 0, err
	}
	return newEpoch, nil
}

func (s *Store) setCurrentEpochLocked(n int) error {
	link := filepath.Join(s.epochsDir(), "current")
	tmp := link + ".tmp"
	_ = os.Remove(tmp)
	if err := os.Symlink(strconv.Itoa(n), tmp); err != nil {
		return fmt.Errorf("staging epochs/current: %w", err)
	}
	if err := os.Rename(tmp, link); err != nil {
		return fmt.Errorf("updating epochs/current: %w", err)
	}
	return nil
}

// RecordClosureInEpoch creates the epochs/<epoch>/<slug> symlink to
// ../../closed/<slug>. Idempotent: a pre-existing symlink is left alone.
func (s *Store) RecordClosureInEpoch(slug string, epoch int) error {
	return s.withWalkLock(func() error {
		return s.recordClosureInEpochLocked(slug, epoch)
	})
}

func (s *Store) recordClosureInEpochLocked(slug string, epoch int) error {
	dir := filepath.Join(s.epochsDir(), strconv.Itoa(epoch))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating epoch directory: %w", err)
	}
	link := filepath.Join(dir, slug)
	if _, err := os.Lstat(link); err == nil {
		return nil // idempotent
	}
	target := filepath.Join("..", "..", "closed", slug)
	if err := os.Symlink(target, link); err != nil && !os.IsExist(err) {
		return fmt.Errorf("linking epoch closure: %w", err)
	}
	return nil
}

// Epochs lists every epoch number that has a directory under epochs/,
// ascending.
func (s *Store) Epochs() ([]int, error) {
	entries, err := os.ReadDir(s.epochsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing epochs: %w", err)
	}
	var out []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}
