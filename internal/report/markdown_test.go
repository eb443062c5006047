package report

import (
	"strings"
	"testing"
	"time"

	"github.com/fdr/walk/internal/types"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Walk: &types.Walk{Title: "Harden the parser", Status: types.WalkOpen},
		Open: []*types.Issue{
			{Slug: "b", Title: "B", Priority: 2},
		},
		Closed: []*types.Issue{
			{Slug: "a", Title: "A", Epoch: 1, Signal: types.SignalRoutine, ClosedAt: ts("2026-07-30T10:00:00Z")},
			{Slug: "c", Title: "C", Epoch: 2, Signal: types.SignalSurprising, ClosedAt: ts("2026-07-30T12:00:00Z")},
		},
		Epochs:           []int{1, 2},
		ExpansionOverall: types.ExpansionStat{Count: 2, Median: 1.1, P75: 1.4},
	}
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(testSnapshot())
	for _, want := range []string{
		"Harden the parser",
		"Closed: 2. Open: 1. Epochs: 2.",
		"## Timeline",
		"[epoch 1] a: A (routine)",
		"[epoch 2] c: C (surprising)",
		"## Open issues",
		"b [priority 2]: B",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n---\n%s", want, out)
		}
	}
	// Timeline must be chronological: a (epoch 1) before c (epoch 2).
	if strings.Index(out, "epoch 1] a") > strings.Index(out, "epoch 2] c") {
		t.Error("timeline is not in chronological order")
	}
}

func TestRenderSummaryEmptyWalk(t *testing.T) {
	out := RenderSummary(&Snapshot{Walk: &types.Walk{Title: "Empty", Status: types.WalkOpen}})
	if !strings.Contains(out, "(no issues closed)") {
		t.Error("empty summary should note no issues closed")
	}
	if !strings.Contains(out, "(none)") {
		t.Error("empty summary should note no open issues")
	}
}

func TestRenderStatus(t *testing.T) {
	out := RenderStatus(testSnapshot())
	for _, want := range []string{
		"Harden the parser",
		"open issues: 1",
		"closed issues: 2",
		"current epoch: 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q\n---\n%s", want, out)
		}
	}
}

func TestRenderHistorySinceFiltersAndOrdersNewestFirst(t *testing.T) {
	since, _ := time.Parse(time.RFC3339, "2026-07-30T11:00:00Z")
	out := RenderHistory(testSnapshot(), since)
	if strings.Contains(out, "| 1 | a |") {
		t.Error("history should exclude closures before the since cutoff")
	}
	if !strings.Contains(out, "c") {
		t.Error("history should include closures after the since cutoff")
	}
}

func TestRenderHistoryZeroSinceShowsAll(t *testing.T) {
	out := RenderHistory(testSnapshot(), time.Time{})
	if !strings.Contains(out, "a") || !strings.Contains(out, "c") {
		t.Error("zero-value since should show all closures")
	}
}

func TestRenderHistoryEmpty(t *testing.T) {
	out := RenderHistory(&Snapshot{}, time.Time{})
	if !strings.Contains(out, "(nothing closed in this window)") {
		t.Error("empty history should say nothing closed")
	}
}

func TestFormatBytes(t *testing.T) {
	if got := FormatBytes(1024); got == "" {
		t.Error("FormatBytes returned empty string")
	}
}
