package store

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/fdr/walk/internal/types"
)

// issueBytes reports the body, result, and comments byte counts for a
// closed issue directory.
func issueBytes(dir string) (bodyBytes, resultBytes, commentsBytes int64) {
	if data, err := os.ReadFile(filepath.Join(dir, "issue.md")); err == nil {
		_, body, err := splitFrontmatter(data)
		if err == nil {
			bodyBytes = int64(len(body))
		}
	}
	if data, err := os.ReadFile(filepath.Join(dir, "result")); err == nil {
		resultBytes = int64(len(data))
	}
	if data, err := os.ReadFile(filepath.Join(dir, "comments.md")); err == nil {
		commentsBytes = int64(len(data))
	}
	return
}

// NewContextSince scans closed issues with closed_at after t and returns
// their total (result+comments) bytes and the set of non-routine signals
// raised, for the driver's adaptive-planning-threshold decision (spec
// §4.6).
func (s *Store) NewContextSince(t time.Time) (*types.NewContext, error) {
	closed, err := s.List(types.IssueClosed)
	if err != nil {
		return nil, err
	}
	out := &types.NewContext{}
	for _, issue := range closed {
		if issue.ClosedAt == nil || !issue.ClosedAt.After(t) {
			continue
		}
		_, resultBytes, commentsBytes := issueBytes(s.closedIssuePath(issue.Slug))
		out.Bytes += resultBytes + commentsBytes
		out.Issues = append(out.Issues, issue.Slug)
		if issue.Signal != "" && issue.Signal != types.SignalRoutine {
			out.Signals = append(out.Signals, issue.Signal)
		}
	}
	return out, nil
}

// ExpansionStats returns per-type and overall (result+comments)/body ratio
// statistics over closed issues. Issues with zero body bytes are excluded
// (spec §8: avoid division by zero).
func (s *Store) ExpansionStats() (overall types.ExpansionStat, byType []types.ExpansionStat, err error) {
	closed, err := s.List(types.IssueClosed)
	if err != nil {
		return types.ExpansionStat{}, nil, err
	}

	ratiosByType := orderedmap.New[string, []float64]()
	var overallRatios []float64
	var overallBytes int64

	for _, issue := range closed {
		bodyBytes, resultBytes, commentsBytes := issueBytes(s.closedIssuePath(issue.Slug))
		if bodyBytes == 0 {
			continue
		}
		ratio := float64(resultBytes+commentsBytes) / float64(bodyBytes)
		overallRatios = append(overallRatios, ratio)
		overallBytes += resultBytes + commentsBytes

		existing, _ := ratiosByType.Get(issue.Type)
		ratiosByType.Set(issue.Type, append(existing, ratio))
	}

	overall = types.ExpansionStat{
		Type: "", Count: len(overallRatios),
		Median: median(overallRatios), P75: percentile(overallRatios, 0.75),
		TotalBytes: overallBytes,
	}

	for pair := ratiosByType.Oldest(); pair != nil; pair = pair.Next() {
		byType = append(byType, types.ExpansionStat{
			Type: pair.Key, Count: len(pair.Value),
			Median: median(pair.Value), P75: percentile(pair.Value, 0.75),
		})
	}
	return overall, byType, nil
}

func median(xs []float64) float64 { return percentile(xs, 0.5) }

func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// RecentClosedGroup is one epoch's slice of the recent_closed walk-back.
type RecentClosedGroup struct {
	Epoch  int
	Issues []*types.Issue
}

// RecentClosed walks closed issues newest-first (by closed_at, ties broken
// by epoch descending) accumulating until cumulative body+result+comments
// bytes reach minBytes, then returns the accumulated issues grouped by
// epoch (spec §4.1).
func (s *Store) RecentClosed(minBytes int64) ([]RecentClosedGroup, error) {
	closed, err := s.List(types.IssueClosed)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(closed, func(i, j int) bool {
		ti, tj := closedAtOf(closed[i]), closedAtOf(closed[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return closed[i].Epoch > closed[j].Epoch
	})

	groups := orderedmap.New[int, []*types.Issue]()
	var accumulated int64
	for _, issue := range closed {
		if accumulated >= minBytes {
			break
		}
		bodyBytes, resultBytes, commentsBytes := issueBytes(s.closedIssuePath(issue.Slug))
		accumulated += bodyBytes + resultBytes + commentsBytes
		existing, _ := groups.Get(issue.Epoch)
		groups.Set(issue.Epoch, append(existing, issue))
	}

	// Present newest epoch first, matching the newest-first walk.
	var epochs []int
	for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
		epochs = append(epochs, pair.Key)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(epochs)))

	out := make([]RecentClosedGroup, 0, len(epochs))
	for _, e := range epochs {
		issues, _ := groups.Get(e)
		out = append(out, RecentClosedGroup{Epoch: e, Issues: issues})
	}
	return out, nil
}
