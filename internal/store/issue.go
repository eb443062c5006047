package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fdr/walk/internal/types"
)

// issueDocument is the YAML shape of issue.md's frontmatter.
type issueDocument struct {
	Title    string `yaml:"title"`
	Type     string `yaml:"type"`
	Priority int    `yaml:"priority"`
	// DerivedFrom records parent slugs in the order they were passed to
	// Create. The derived_from/ symlink directory still exists (for
	// reverse lookup by other tooling), but os.ReadDir lists it by name
	// and readDepLinks sorts it alphabetically; this field is the one
	// source of creation order.
	DerivedFrom []string `yaml:"derived_from,omitempty"`
}

const blockedByDriverMarker = "blocked_by_driver"
const priorityBumpMarker = ".next"

// Create adds a new open issue. Fails with ErrAlreadyExists if slug is
// present in open or closed.
func (s *Store) Create(slug, title, body, typ string, priority int, blockedBy, derivedFrom []string) (*types.Issue, error) {
	if !ValidSlug(slug) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	var created *types.Issue
	err := s.withWalkLock(func() error {
		if s.exists(slug) {
			return fmt.Errorf("%w: %q", ErrAlreadyExists, slug)
		}
		dir := s.issuePath(slug)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating issue directory: %w", err)
		}
		doc := issueDocument{Title: title, Type: typ, Priority: priority, DerivedFrom: derivedFrom}
		data, err := encodeFrontmatter(&doc, body)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, "issue.md"), data, 0o644); err != nil {
			return fmt.Errorf("writing issue.md: %w", err)
		}
		if err := os.MkdirAll(filepath.Join(dir, "runs"), 0o755); err != nil {
			return fmt.Errorf("creating runs directory: %w", err)
		}
		for _, dep := range blockedBy {
			if err := s.symlinkDep(dir, "blocked_by", dep); err != nil {
				return err
			}
		}
		for _, parent := range derivedFrom {
			if err := s.symlinkDep(dir, "derived_from", parent); err != nil {
				return err
			}
		}
		created = &types.Issue{
			Slug: slug, Title: title, Type: typ, Priority: priority, Body: body,
			Status: types.IssueOpen, BlockedBy: blockedBy, DerivedFrom: derivedFrom,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) symlinkDep(issueDir, kind, target string) error {
	dir := filepath.Join(issueDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", kind, err)
	}
	link := filepath.Join(dir, target)
	rel := filepath.Join("..", "..", target)
	if err := os.Symlink(rel, link); err != nil && !os.IsExist(err) {
		return fmt.Errorf("linking %s/%s: %w", kind, target, err)
	}
	return nil
}

// exists reports whether slug is present in open or closed. Caller must
// hold the walk lock when this feeds a subsequent write decision.
func (s *Store) exists(slug string) bool {
	if _, err := os.Lstat(s.issuePath(slug)); err == nil {
		return true
	}
	if _, err := os.Lstat(s.closedIssuePath(slug)); err == nil {
		return true
	}
	return false
}

// Show returns the issue by slug, searching open first, then closed.
func (s *Store) Show(slug string) (*types.Issue, error) {
	if dir := s.issuePath(slug); dirExists(dir) {
		return s.readIssue(dir, slug, types.IssueOpen)
	}
	if dir := s.closedIssuePath(slug); dirExists(dir) {
		return s.readIssue(dir, slug, types.IssueClosed)
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// readIssue loads one issue directory's full record: frontmatter, deps,
// runs, and (if closed) closure metadata.
func (s *Store) readIssue(dir, slug string, status types.IssueStatus) (*types.Issue, error) {
	data, err := os.ReadFile(filepath.Join(dir, "issue.md"))
	if err != nil {
		return nil, &MalformedRecordError{Path: dir, Err: err}
	}
	var doc issueDocument
	body, err := decodeFrontmatter(data, &doc)
	if err != nil {
		return nil, &MalformedRecordError{Path: dir, Err: err}
	}
	issue := &types.Issue{
		Slug: slug, Title: doc.Title, Type: doc.Type, Priority: doc.Priority,
		Body: body, Status: status,
	}
	issue.BlockedBy = readDepLinks(filepath.Join(dir, "blocked_by"))
	if len(doc.DerivedFrom) > 0 {
		issue.DerivedFrom = doc.DerivedFrom
	} else {
		// Pre-existing issue.md written before derived_from was recorded
		// in frontmatter; creation order is lost, so fall back to the
		// symlink directory's (alphabetical) listing.
		issue.DerivedFrom = readDepLinks(filepath.Join(dir, "derived_from"))
	}
	issue.Runs = s.readRuns(dir)

	if _, err := os.Stat(filepath.Join(dir, blockedByDriverMarker)); err == nil {
		issue.BlockedByDriver = true
	}
	if _, err := os.Stat(filepath.Join(dir, priorityBumpMarker)); err == nil {
		issue.PriorityOverride = true
	}

	if status == types.IssueClosed {
		if err := s.readCloseMeta(dir, issue); err != nil {
			return nil, err
		}
	}
	return issue, nil
}

// readDepLinks lists the symlink names in a blocked_by/ or derived_from/
// directory, tolerating the directory being absent.
func readDepLinks(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// List returns a sorted listing of issues in the given status. Open issues
// sort ready-first (same key as ReadyIssues, but unfiltered); closed
// issues sort by closed_at.
func (s *Store) List(status types.IssueStatus) ([]*types.Issue, error) {
	var dir string
	if status == types.IssueOpen {
		dir = s.openDir()
	} else {
		dir = s.closedDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", status, err)
	}
	var issues []*types.Issue
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		issue, err := s.readIssue(filepath.Join(dir, e.Name()), e.Name(), status)
		if err != nil {
			if os.IsNotExist(err) {
				continue // vanished mid-scan
			}
			s.log.Warn("skipping malformed issue", "slug", e.Name(), "error", err)
			continue
		}
		issues = append(issues, issue)
	}
	if status == types.IssueOpen {
		sort.SliceStable(issues, func(i, j int) bool {
			return readyLess(issues[i], issues[j])
		})
	} else {
		sort.SliceStable(issues, func(i, j int) bool {
			return closedAtOf(issues[i]).Before(closedAtOf(issues[j]))
		})
	}
	return issues, nil
}

func closedAtOf(i *types.Issue) time.Time {
	if i.ClosedAt == nil {
		return time.Time{}
	}
	return *i.ClosedAt
}

// readyLess implements the (priority_override? 0:1, priority, slug)
// ascending sort key from spec §4.1.
func readyLess(a, b *types.Issue) bool {
	ao, bo := overrideRank(a), overrideRank(b)
	if ao != bo {
		return ao < bo
	}
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Slug < b.Slug
}

func overrideRank(i *types.Issue) int {
	if i.PriorityOverride {
		return 0
	}
	return 1
}
