package planning

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fdr/walk/internal/digest"
	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

func newTestRound(t *testing.T) *Round {
	t.Helper()
	dir := t.TempDir()
	if err := store.Init(dir, "Test Walk", "Investigate."); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	s, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return &Round{Store: s}
}

func writeResultFile(t *testing.T, r *Round, content string) {
	t.Helper()
	path := filepath.Join(r.Store.Dir(), resultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing result file: %v", err)
	}
}

func TestReadResultRecognisedOutcome(t *testing.T) {
	r := newTestRound(t)
	writeResultFile(t, r, "---\noutcome: completed\nreason: all issues resolved\n---\n")

	outcome, reason, err := r.readResult()
	if err != nil {
		t.Fatalf("readResult: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Errorf("outcome = %q, want completed", outcome)
	}
	if reason != "all issues resolved" {
		t.Errorf("reason = %q, want %q", reason, "all issues resolved")
	}

	if _, err := os.Stat(filepath.Join(r.Store.Dir(), resultFileName)); !os.IsNotExist(err) {
		t.Error("result file still present after readResult; want it consumed")
	}
}

func TestReadResultMissingFile(t *testing.T) {
	r := newTestRound(t)
	outcome, reason, err := r.readResult()
	if err != nil {
		t.Fatalf("readResult: %v", err)
	}
	if outcome != "" || reason != "" {
		t.Errorf("readResult on missing file = (%q, %q), want empty", outcome, reason)
	}
}

func TestReadResultUnrecognisedOutcomeFallsBack(t *testing.T) {
	r := newTestRound(t)
	writeResultFile(t, r, "---\noutcome: something_weird\nreason: planner confused\n---\n")

	outcome, reason, err := r.readResult()
	if err != nil {
		t.Fatalf("readResult: %v", err)
	}
	if outcome != "" {
		t.Errorf("outcome = %q, want empty so Run applies the observational fallback", outcome)
	}
	if reason != "planner confused" {
		t.Errorf("reason = %q, want preserved even on unrecognised outcome", reason)
	}
}

func TestReadResultMalformedFrontmatterFallsBack(t *testing.T) {
	r := newTestRound(t)
	writeResultFile(t, r, "---\nnot: [valid, yaml: here\n---\n")

	outcome, _, err := r.readResult()
	if err != nil {
		t.Fatalf("readResult: %v", err)
	}
	if outcome != "" {
		t.Errorf("outcome = %q, want empty on malformed frontmatter", outcome)
	}
}

// TestCondenseRecentClosedNilSummarizerIsNoop confirms that with no
// Summarizer configured, every issue's text passes through unchanged.
func TestCondenseRecentClosedNilSummarizerIsNoop(t *testing.T) {
	r := newTestRound(t)
	groups := []store.RecentClosedGroup{
		{Epoch: 1, Issues: []*types.Issue{
			{Slug: "big-one", Body: strings.Repeat("x", 10_000), CloseReason: "done"},
		}},
	}

	got := r.condenseRecentClosed(context.Background(), groups)
	if got[0].Issues[0].Body != groups[0].Issues[0].Body {
		t.Error("condenseRecentClosed mutated/shrank body with a nil Summarizer")
	}
}

// TestCondenseIssueUnderBudgetIsNoop confirms an issue within its per-issue
// byte share is returned as-is, without consulting the Summarizer at all
// (so this needs no network access to exercise).
func TestCondenseIssueUnderBudgetIsNoop(t *testing.T) {
	r := newTestRound(t)
	r.Summarizer = &digest.Summarizer{} // non-nil sentinel; must not be called
	issue := &types.Issue{Slug: "small", Body: "short body", CloseReason: "done"}

	got := r.condenseIssue(context.Background(), issue, 1_000_000)
	if got != issue {
		t.Error("condenseIssue replaced an issue under its byte budget")
	}
}
