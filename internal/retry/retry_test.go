package retry

import (
	"testing"

	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

func exitRun(code int) types.Run {
	c := code
	return types.Run{ExitCode: &c}
}

func interruptedRun() types.Run {
	return types.Run{ExitCode: nil}
}

func TestConsecutiveFailures(t *testing.T) {
	cases := []struct {
		name string
		runs []types.Run
		want int
	}{
		{"no runs", nil, 0},
		{"single success", []types.Run{exitRun(0)}, 0},
		{"single failure", []types.Run{exitRun(1)}, 1},
		{"two trailing failures", []types.Run{exitRun(0), exitRun(1), exitRun(1)}, 2},
		{"success resets count", []types.Run{exitRun(1), exitRun(1), exitRun(0)}, 0},
		{
			"interrupted runs among failures don't break or count",
			[]types.Run{exitRun(1), interruptedRun(), exitRun(1)},
			2,
		},
		{
			"trailing interrupted run is skipped, earlier failure still counts",
			[]types.Run{exitRun(1), interruptedRun()},
			1,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			issue := &types.Issue{Runs: c.runs}
			if got := ConsecutiveFailures(issue); got != c.want {
				t.Errorf("ConsecutiveFailures() = %d, want %d", got, c.want)
			}
		})
	}
}

func TestShouldWarnAndBlock(t *testing.T) {
	if ShouldBlock(2, MaxFailures) {
		t.Error("ShouldBlock(2, 3) = true, want false")
	}
	if !ShouldWarn(2, MaxFailures) {
		t.Error("ShouldWarn(2, 3) = false, want true (one short of blocking)")
	}
	if !ShouldBlock(3, MaxFailures) {
		t.Error("ShouldBlock(3, 3) = false, want true")
	}
	if !ShouldBlock(4, MaxFailures) {
		t.Error("ShouldBlock(4, 3) = false, want true")
	}
}

func TestBlockWritesMarkerAndComment(t *testing.T) {
	dir := t.TempDir()
	if err := store.Init(dir, "Test Walk", ""); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	s, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	issue, err := s.Create("flaky-fix", "Flaky fix", "", "fix", 1, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	issue.Runs = []types.Run{exitRun(1), exitRun(1), exitRun(1)}

	if err := Block(s, issue, 3); err != nil {
		t.Fatalf("Block: %v", err)
	}

	comments, err := s.Comments(issue.Slug)
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if comments == "" {
		t.Error("Block did not leave a comment explaining the block")
	}
}
