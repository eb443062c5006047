// Package report renders walk state as Markdown — the summary written on
// finalize (spec §4.5 step 6), and the status/history views cmd/walk
// exposes — as pure functions over an explicit snapshot, then (optionally)
// through ANSI terminal presentation. Grounded on the teacher's internal/ui
// split between pure data-shaping and presentation.
package report

import (
	"time"

	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

// Snapshot is everything the render functions need, gathered once so
// rendering itself never touches the filesystem.
type Snapshot struct {
	Walk             *types.Walk
	Open             []*types.Issue
	Closed           []*types.Issue
	Epochs           []int
	ExpansionOverall types.ExpansionStat
}

// BuildSnapshot reads current walk state into a Snapshot.
func BuildSnapshot(s *store.Store) (*Snapshot, error) {
	w, err := s.Walk()
	if err != nil {
		return nil, err
	}
	open, err := s.List(types.IssueOpen)
	if err != nil {
		return nil, err
	}
	closed, err := s.List(types.IssueClosed)
	if err != nil {
		return nil, err
	}
	epochs, err := s.Epochs()
	if err != nil {
		return nil, err
	}
	overall, _, err := s.ExpansionStats()
	if err != nil {
		return nil, err
	}
	return &Snapshot{Walk: w, Open: open, Closed: closed, Epochs: epochs, ExpansionOverall: overall}, nil
}

// closedAfter returns closed issues with closed_at after t, in the order
// given; RenderHistory sorts them newest first.
func closedAfter(closed []*types.Issue, t time.Time) []*types.Issue {
	var out []*types.Issue
	for _, issue := range closed {
		if issue.ClosedAt != nil && issue.ClosedAt.After(t) {
			out = append(out, issue)
		}
	}
	return out
}
