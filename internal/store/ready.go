package store

import "github.com/fdr/walk/internal/types"

// EpicType is the reserved container type excluded from ready_issues.
const EpicType = "epic"

// ReadyIssues returns open issues eligible for dispatch: not
// blocked_by_driver, with every blocked_by referent already closed, and not
// of the reserved container type. Sorted by (priority_override? 0:1,
// priority, slug) ascending. Tolerates a directory disappearing mid-scan
// (List already does, via os.IsNotExist skip).
func (s *Store) ReadyIssues() ([]*types.Issue, error) {
	open, err := s.List(types.IssueOpen)
	if err != nil {
		return nil, err
	}
	openSlugs := make(map[string]bool, len(open))
	for _, issue := range open {
		openSlugs[issue.Slug] = true
	}
	ready := make([]*types.Issue, 0, len(open))
	for _, issue := range open {
		if issue.Ready(openSlugs, EpicType) {
			ready = append(ready, issue)
		}
	}
	// List already sorted `open` by the ready key; filtering preserves order.
	return ready, nil
}
