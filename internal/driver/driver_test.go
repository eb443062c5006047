package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fdr/walk/internal/agent"
	"github.com/fdr/walk/internal/config"
	"github.com/fdr/walk/internal/logging"
	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

func newTestDriver(t *testing.T, maxConcurrency int) (*Driver, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	if err := store.Init(dir, "Test Walk", "Goals."); err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	s, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	runner := &agent.Runner{
		Store:   s,
		Log:     logging.NewDiscard(),
		Command: "true",
		Mode:    agent.ModeCapture,
	}
	thresholds := config.DefaultThresholds()
	thresholds.MaxPlanningRounds = 1
	cfg := Config{
		SleepInterval:        time.Millisecond,
		ShutdownDrainTimeout: 2 * time.Second,
		MaxConcurrency:       maxConcurrency,
		PlannerByteBudget:    1000,
	}
	d := New(s, runner, logging.NewDiscard(), cfg, thresholds)
	return d, s
}

// TestRunStallsWithNoWorkAndNoPlannerOutput: the planner command ("true")
// never creates issues or writes a result file, so the observational
// fallback reports no_work_found every round; after MaxPlanningRounds the
// walk should finalize as stalled.
func TestRunStallsWithNoWorkAndNoPlannerOutput(t *testing.T) {
	d, s := newTestDriver(t, 1)
	err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	w, err := s.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if w.Status != types.WalkStalled {
		t.Errorf("walk status = %s, want stalled", w.Status)
	}
}

// TestRunFinalizesWhenPlannerReportsCompleted pre-seeds a planning result
// file reporting "completed" so the sequential loop's first planning round
// finalizes the walk without exhausting MaxPlanningRounds.
func TestRunFinalizesWhenPlannerReportsCompleted(t *testing.T) {
	d, s := newTestDriver(t, 1)
	resultPath := filepath.Join(s.Dir(), "_planning_result.md")
	content := "---\noutcome: completed\nreason: all goals satisfied\n---\n"
	if err := os.WriteFile(resultPath, []byte(content), 0o644); err != nil {
		t.Fatalf("seeding planning result: %v", err)
	}

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	w, err := s.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if w.Status != types.WalkCompleted {
		t.Errorf("walk status = %s, want completed", w.Status)
	}
	if w.FinishReason != "all goals satisfied" {
		t.Errorf("finish reason = %q, want %q", w.FinishReason, "all goals satisfied")
	}
}

// TestRunConcurrentDispatchesReadyIssue confirms the concurrent loop wires
// the backend mutex and actually dispatches a ready issue to the runner:
// the issue should pick up a run comment before the context is cancelled.
func TestRunConcurrentDispatchesReadyIssue(t *testing.T) {
	d, s := newTestDriver(t, 2)
	if _, err := s.Create("do-thing", "Do the thing", "Body.", "task", 1, nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Runner.BackendMu != nil {
		t.Error("BackendMu set before Run; want wiring to happen inside Run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.Runner.BackendMu == nil {
		t.Error("Run did not wire BackendMu for concurrent mode")
	}

	comments, err := s.Comments("do-thing")
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if comments == "" {
		t.Error("expected the worker to have run against the ready issue before shutdown")
	}
}
