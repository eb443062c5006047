// Package store implements the filesystem-backed issue store described in
// spec §4.1: issue lifecycle, discovery DAG, epochs, memories, proposals,
// and expansion statistics, all rooted at one walk directory.
//
// Writes that touch more than one file (create, close, epoch increment) are
// guarded by an exclusive advisory lock on .walk.lock. Reads are lock-free
// and tolerate a directory disappearing mid-scan, since a concurrent worker
// may move it from open/ to closed/ between readdir and child open.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store is a handle on one walk directory. It carries no long-lived file
// descriptors; every operation opens what it needs and closes it before
// returning.
type Store struct {
	dir string
	log *slog.Logger
}

// Open returns a Store rooted at dir. dir must already exist and contain
// (or be about to receive) the walk's _walk.md.
func Open(dir string, log *slog.Logger) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening walk directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the walk directory root.
func (s *Store) Dir() string { return s.dir }

func (s *Store) openDir() string    { return filepath.Join(s.dir, "open") }
func (s *Store) closedDir() string  { return filepath.Join(s.dir, "closed") }
func (s *Store) epochsDir() string  { return filepath.Join(s.dir, "epochs") }

func (s *Store) issuePath(slug string) string       { return filepath.Join(s.openDir(), slug) }
func (s *Store) closedIssuePath(slug string) string { return filepath.Join(s.closedDir(), slug) }

// Init creates the directory skeleton for a brand-new walk: open/, closed/,
// epochs/, and an initial _walk.md. It is idempotent on an empty directory
// and fails if _walk.md already exists.
func Init(dir, title, body string) error {
	walkMDPath := filepath.Join(dir, "_walk.md")
	if _, err := os.Stat(walkMDPath); err == nil {
		return fmt.Errorf("walk already initialized at %s", dir)
	}
	for _, sub := range []string{"open", "closed", "epochs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", sub, err)
		}
	}
	s, err := Open(dir, nil)
	if err != nil {
		return err
	}
	return s.writeWalk(&walkDocument{
		Title:  title,
		Status: "open",
	}, body)
}
