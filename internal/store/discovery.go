package store

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/fdr/walk/internal/types"
)

// BuildDiscoveryTree renders the derived_from DAG as a tree: one primary
// parent per child (issue.DerivedFrom[0], the parent slug passed first to
// Create and persisted in issue.md's frontmatter in that order), with
// additional parents recorded separately for back-reference annotation.
// Children are kept in an ordered map during construction so the resulting
// slices are deterministic across calls on the same store state — required
// for the planner prompt's byte-identical-output property (spec §8).
func (s *Store) BuildDiscoveryTree(includeClosed bool) (*types.DiscoveryTree, error) {
	open, err := s.List(types.IssueOpen)
	if err != nil {
		return nil, err
	}
	var all []*types.Issue
	all = append(all, open...)
	if includeClosed {
		closed, err := s.List(types.IssueClosed)
		if err != nil {
			return nil, err
		}
		all = append(all, closed...)
	}

	issues := make(map[string]*types.Issue, len(all))
	for _, issue := range all {
		issues[issue.Slug] = issue
	}

	children := orderedmap.New[string, []string]()
	parentsOf := make(map[string][]string, len(all))
	var roots []string

	for _, issue := range all {
		if len(issue.DerivedFrom) == 0 {
			roots = append(roots, issue.Slug)
			continue
		}
		parentsOf[issue.Slug] = append([]string(nil), issue.DerivedFrom...)
		primary := issue.DerivedFrom[0]
		existing, ok := children.Get(primary)
		if !ok {
			existing = nil
		}
		children.Set(primary, append(existing, issue.Slug))
	}

	childrenMap := make(map[string][]string, children.Len())
	for pair := children.Oldest(); pair != nil; pair = pair.Next() {
		childrenMap[pair.Key] = pair.Value
	}

	return &types.DiscoveryTree{
		Roots:     roots,
		Children:  childrenMap,
		ParentsOf: parentsOf,
		Issues:    issues,
	}, nil
}
