// Package retry implements the purely functional failure-counting and
// blocking policy of spec §4.2: a pure function over one issue's run
// sequence, plus the side-effecting marker creation for should_block.
package retry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

// MaxFailures is the default threshold: should_block fires at n >=
// MaxFailures, should_warn fires at n == MaxFailures-1.
const MaxFailures = 3

// ConsecutiveFailures counts trailing failing runs, stopping at the first
// success (exit_code == 0). Runs with a nil exit code (signalled or
// interrupted) are skipped entirely — neither broken nor counted — so an
// external SIGINT never drives an issue toward blocking.
func ConsecutiveFailures(issue *types.Issue) int {
	n := 0
	for i := len(issue.Runs) - 1; i >= 0; i-- {
		run := issue.Runs[i]
		if run.Interrupted() {
			continue
		}
		if !run.Failed() {
			break
		}
		n++
	}
	return n
}

// ShouldWarn reports whether n is one short of the blocking threshold.
func ShouldWarn(n int, maxFailures int) bool {
	return n == maxFailures-1
}

// ShouldBlock reports whether n has reached the blocking threshold.
func ShouldBlock(n int, maxFailures int) bool {
	return n >= maxFailures
}

// Block creates the blocked_by_driver marker and an explanatory comment
// naming the failing run ids, per spec §4.2. The marker's presence is what
// ReadyIssues checks; deleting it is the documented unblock mechanism.
func Block(s *store.Store, issue *types.Issue, n int) error {
	dir, _, err := s.IssueDir(issue.Slug)
	if err != nil {
		return err
	}
	var failingRuns []string
	counted := 0
	for i := len(issue.Runs) - 1; i >= 0 && counted < n; i-- {
		run := issue.Runs[i]
		if run.Interrupted() {
			continue
		}
		if !run.Failed() {
			break
		}
		failingRuns = append([]string{run.ID}, failingRuns...)
		counted++
	}
	marker := filepath.Join(dir, "blocked_by_driver")
	content := fmt.Sprintf("blocked after %d consecutive failures: %v\n", n, failingRuns)
	if err := os.WriteFile(marker, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing blocked_by_driver marker: %w", err)
	}
	comment := fmt.Sprintf(
		"Blocked by driver after %d consecutive failures (runs: %v).\nDelete %s to unblock.",
		n, failingRuns, marker)
	return s.AddComment(issue.Slug, comment)
}
