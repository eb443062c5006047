package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fdr/walk/internal/types"
)

// walkDocument is the YAML shape of _walk.md's frontmatter.
type walkDocument struct {
	Title        string            `yaml:"title"`
	Status       string            `yaml:"status"`
	FinishedAt   *time.Time        `yaml:"finished_at,omitempty"`
	FinishReason string            `yaml:"finish_reason,omitempty"`
	Config       types.WalkConfig  `yaml:"config"`
}

func (s *Store) walkPath() string { return filepath.Join(s.dir, "_walk.md") }

// Walk returns the current walk metadata.
func (s *Store) Walk() (*types.Walk, error) {
	data, err := os.ReadFile(s.walkPath())
	if err != nil {
		return nil, fmt.Errorf("reading walk metadata: %w", err)
	}
	var doc walkDocument
	body, err := decodeFrontmatter(data, &doc)
	if err != nil {
		return nil, &MalformedRecordError{Path: s.walkPath(), Err: err}
	}
	return &types.Walk{
		Title:        doc.Title,
		Status:       types.WalkStatus(doc.Status),
		Body:         body,
		FinishedAt:   doc.FinishedAt,
		FinishReason: doc.FinishReason,
		Config:       doc.Config,
	}, nil
}

func (s *Store) writeWalk(doc *walkDocument, body string) error {
	data, err := encodeFrontmatter(doc, body)
	if err != nil {
		return err
	}
	return os.WriteFile(s.walkPath(), data, 0o644)
}

// Finalize transitions the walk to a terminal status (completed, stalled,
// stopped) with a human-readable reason and finish time in _walk.md. It
// does not write summary.md; the driver's finalize does that afterwards.
// Re-entry from stalled back to open is handled by SetOpen, not here.
func (s *Store) Finalize(status types.WalkStatus, reason string) error {
	return s.withWalkLock(func() error {
		w, err := s.Walk()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		doc := &walkDocument{
			Title:        w.Title,
			Status:       string(status),
			FinishedAt:   &now,
			FinishReason: reason,
			Config:       w.Config,
		}
		return s.writeWalk(doc, w.Body)
	})
}

// SetOpen resets a stalled walk back to open on re-entry, clearing any
// prior finish metadata (spec §3: "may reset stalled → open on re-entry").
func (s *Store) SetOpen() error {
	return s.withWalkLock(func() error {
		w, err := s.Walk()
		if err != nil {
			return err
		}
		doc := &walkDocument{
			Title:  w.Title,
			Status: string(types.WalkOpen),
			Config: w.Config,
		}
		return s.writeWalk(doc, w.Body)
	})
}
