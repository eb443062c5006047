package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fdr/walk/internal/logging"
	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

func newTestRunner(t *testing.T, command string, mode Mode) (*Runner, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	if err := store.Init(dir, "Test Walk", "Goals."); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	s, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return &Runner{
		Store:     s,
		Log:       logging.NewDiscard(),
		Command:   command,
		Mode:      mode,
		WalkTitle: "Test Walk",
		WalkGoals: "Goals.",
	}, s
}

// TestRunIssueWithoutCloseLeavesIssueOpen exercises a successful worker
// invocation that never closes its issue: the runner should record the run
// but leave the issue open for detectClose's caller to decide what's next.
func TestRunIssueWithoutCloseLeavesIssueOpen(t *testing.T) {
	r, s := newTestRunner(t, "true", ModeCapture)
	issue, err := s.Create("do-thing", "Do the thing", "Body.", "task", 1, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	outcome, err := r.RunIssue(context.Background(), issue, false)
	if err != nil {
		t.Fatalf("RunIssue: %v", err)
	}
	if outcome.Closed {
		t.Error("outcome.Closed = true, want false (worker left the issue open)")
	}
	if outcome.ExitCode == nil || *outcome.ExitCode != 0 {
		t.Errorf("ExitCode = %v, want 0", outcome.ExitCode)
	}

	comments, err := s.Comments(issue.Slug)
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if comments == "" {
		t.Error("expected agent-started/run-stats/did-not-close comments, found none")
	}
}

// TestRunIssueDetectsResultFileClose simulates a worker that wrote a
// result file without calling the close command itself.
func TestRunIssueDetectsResultFileClose(t *testing.T) {
	r, s := newTestRunner(t, "true", ModeCapture)
	issue, err := s.Create("write-result", "Write a result", "Body.", "task", 1, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	dir, _, err := s.IssueDir(issue.Slug)
	if err != nil {
		t.Fatalf("IssueDir: %v", err)
	}
	if err := store.WriteRunFile(dir, "result", "Finished successfully."); err != nil {
		t.Fatalf("writing result file: %v", err)
	}

	outcome, err := r.RunIssue(context.Background(), issue, false)
	if err != nil {
		t.Fatalf("RunIssue: %v", err)
	}
	if !outcome.Closed {
		t.Error("outcome.Closed = false, want true (result file present)")
	}

	_, status, err := s.IssueDir(issue.Slug)
	if err != nil {
		t.Fatalf("IssueDir after close: %v", err)
	}
	if status != types.IssueClosed {
		t.Errorf("issue status = %s, want closed", status)
	}
}

// TestRunIssueDetectsCloseMetaWithSignal simulates a worker that wrote the
// richer close.meta YAML document (spec's close protocol option 3) naming a
// non-default signal; the driver must read that signal and reason from the
// YAML frontmatter rather than treating the file as a plain result line.
func TestRunIssueDetectsCloseMetaWithSignal(t *testing.T) {
	r, s := newTestRunner(t, "true", ModeCapture)
	issue, err := s.Create("surprise-finding", "Investigate surprise", "Body.", "task", 1, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	dir, _, err := s.IssueDir(issue.Slug)
	if err != nil {
		t.Fatalf("IssueDir: %v", err)
	}
	closeMeta := "---\nstatus: done\nreason: found something unexpected\nsignal: surprising\n---\n"
	if err := os.WriteFile(filepath.Join(dir, "close.meta"), []byte(closeMeta), 0o644); err != nil {
		t.Fatalf("writing close.meta: %v", err)
	}

	outcome, err := r.RunIssue(context.Background(), issue, false)
	if err != nil {
		t.Fatalf("RunIssue: %v", err)
	}
	if !outcome.Closed {
		t.Fatal("outcome.Closed = false, want true (close.meta present)")
	}

	closed, err := s.Show(issue.Slug)
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if closed.Signal != types.SignalSurprising {
		t.Errorf("Signal = %q, want %q", closed.Signal, types.SignalSurprising)
	}
	if closed.CloseReason != "found something unexpected" {
		t.Errorf("CloseReason = %q, want the YAML reason field, not a raw first line", closed.CloseReason)
	}
}

// TestRunIssueBlocksAfterMaxFailures confirms an issue that already has
// MaxFailures consecutive failing runs recorded gets blocked rather than
// retried.
func TestRunIssueBlocksAfterMaxFailures(t *testing.T) {
	r, s := newTestRunner(t, "true", ModeCapture)
	r.MaxFailures = 1
	issue, err := s.Create("flaky", "Flaky issue", "Body.", "fix", 1, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	failCode := 1
	issue.Runs = []types.Run{{ExitCode: &failCode}}

	outcome, err := r.RunIssue(context.Background(), issue, false)
	if err != nil {
		t.Fatalf("RunIssue: %v", err)
	}
	if outcome != nil {
		t.Errorf("outcome = %+v, want nil (blocked before spawning)", outcome)
	}

	_, status, err := s.IssueDir(issue.Slug)
	if err != nil {
		t.Fatalf("IssueDir: %v", err)
	}
	if status != types.IssueOpen {
		t.Errorf("blocked issue status = %s, want still open", status)
	}
}
