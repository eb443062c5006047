package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fdr/walk/internal/types"
)

// closeDocument is the YAML shape of closed/<slug>/close.meta.
type closeDocument struct {
	Reason   string     `yaml:"reason"`
	Signal   string     `yaml:"signal"`
	Epoch    int        `yaml:"epoch"`
	ClosedAt time.Time  `yaml:"closed_at"`
}

// Close moves slug from open/ to closed/, stamping it with the current
// epoch (bootstrapping epoch 1 on the walk's first closure), recording the
// closure symlink under epochs/<E>/, removing any priority-override marker,
// and writing the close metadata and result file. Fails with ErrNotOpen if
// slug is not currently open.
func (s *Store) Close(slug, reason string, signal types.Signal) (*types.Issue, error) {
	if signal == "" {
		signal = types.SignalRoutine
	}
	var closed *types.Issue
	err := s.withWalkLock(func() error {
		openDir := s.issuePath(slug)
		if !dirExists(openDir) {
			return fmt.Errorf("%w: %q", ErrNotOpen, slug)
		}

		epoch, err := s.CurrentEpoch()
		if err != nil {
			return err
		}
		if epoch == 0 {
			epoch, err = s.incrementEpochLocked()
			if err != nil {
				return err
			}
		}

		closedDir := s.closedIssuePath(slug)
		if err := os.Rename(openDir, closedDir); err != nil {
			return fmt.Errorf("moving issue to closed: %w", err)
		}

		now := time.Now().UTC()
		doc := closeDocument{Reason: reason, Signal: string(signal), Epoch: epoch, ClosedAt: now}
		data, err := encodeFrontmatter(&doc, "")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(closedDir, "close.meta"), data, 0o644); err != nil {
			return fmt.Errorf("writing close.meta: %w", err)
		}
		if err := os.WriteFile(filepath.Join(closedDir, "result"), []byte(reason+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
		_ = os.Remove(filepath.Join(closedDir, priorityBumpMarker))

		if err := s.recordClosureInEpochLocked(slug, epoch); err != nil {
			return err
		}

		closed, err = s.readIssue(closedDir, slug, types.IssueClosed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// Reopen moves a closed issue back to open/, clearing its close metadata
// and result file. Per spec §9 Open Question (a), the stale
// epochs/<N>/<slug> symlink is deliberately left in place; a comment
// records the reopen so a human inspecting the epoch directory later
// understands the dangling link.
func (s *Store) Reopen(slug, reason string) (*types.Issue, error) {
	var reopened *types.Issue
	err := s.withWalkLock(func() error {
		closedDir := s.closedIssuePath(slug)
		if !dirExists(closedDir) {
			return fmt.Errorf("%w: %q", ErrNotFound, slug)
		}
		openDir := s.issuePath(slug)
		if err := os.Rename(closedDir, openDir); err != nil {
			return fmt.Errorf("moving issue to open: %w", err)
		}
		_ = os.Remove(filepath.Join(openDir, "close.meta"))
		_ = os.Remove(filepath.Join(openDir, "result"))
		if err := s.appendCommentLocked(openDir, fmt.Sprintf(
			"Reopened: %s\n\n(Note: the issue's prior epochs/<N>/%s symlink is not removed; it now dangles per the walk's documented reopen behavior.)",
			reason, slug)); err != nil {
			return err
		}
		var err error
		reopened, err = s.readIssue(openDir, slug, types.IssueOpen)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reopened, nil
}

func (s *Store) readCloseMeta(dir string, issue *types.Issue) error {
	data, err := os.ReadFile(filepath.Join(dir, "close.meta"))
	if err != nil {
		return &MalformedRecordError{Path: dir, Err: err}
	}
	var doc closeDocument
	if _, err := decodeFrontmatter(data, &doc); err != nil {
		return &MalformedRecordError{Path: dir, Err: err}
	}
	issue.CloseReason = doc.Reason
	issue.Signal = types.Signal(doc.Signal)
	issue.Epoch = doc.Epoch
	closedAt := doc.ClosedAt
	issue.ClosedAt = &closedAt
	return nil
}

// ResultReason reads the first line of a result file: the worker's
// self-reported close reason (spec's close protocol option 2), used by the
// agent runner to close an issue the worker left open but annotated.
func ResultReason(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

// workerCloseDocument is the YAML shape of a close.meta file as written by
// a worker subprocess (spec's close protocol option 3), distinct from
// closeDocument above which is what the store itself writes on Close.
type workerCloseDocument struct {
	Status string `yaml:"status"`
	Reason string `yaml:"reason"`
	Signal string `yaml:"signal"`
}

// ReadCloseDocument decodes a worker-authored close.meta file's YAML
// frontmatter (`status`, `reason`, optional `signal`), used by the agent
// runner to close an issue the worker annotated with richer metadata than a
// bare result file. Unlike readCloseMeta, the file need not already live
// under closed/<slug>/ — the worker writes it into the issue's still-open
// directory before the driver has moved the issue anywhere.
func ReadCloseDocument(path string) (reason string, signal types.Signal, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	var doc workerCloseDocument
	if _, err := decodeFrontmatter(data, &doc); err != nil {
		return "", "", err
	}
	signal = types.Signal(doc.Signal)
	if signal == "" {
		signal = types.SignalRoutine
	}
	reason = doc.Reason
	if reason == "" {
		reason = "closed via close.meta"
	}
	return reason, signal, nil
}
