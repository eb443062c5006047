// Package driver is the entry loop of spec §4.6: sequential or concurrent
// dispatch of ready issues, adaptive planning, restart/shutdown handling,
// and the PID-file single-driver guard. Grounded on the teacher's
// cmd/bd/daemon_event_loop.go event-loop shape and daemon_server.go's
// parent-liveness convention, generalized from an RPC-serving daemon to an
// issue-working one.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fdr/walk/internal/agent"
	"github.com/fdr/walk/internal/config"
	"github.com/fdr/walk/internal/digest"
	"github.com/fdr/walk/internal/logging"
	"github.com/fdr/walk/internal/planning"
	"github.com/fdr/walk/internal/report"
	"github.com/fdr/walk/internal/store"
	"github.com/fdr/walk/internal/types"
)

// ErrRestartRequested is returned by Run when the _restart_requested
// marker was found; cmd/walk translates this to exit code 42.
var ErrRestartRequested = errors.New("restart requested")

const restartMarkerName = "_restart_requested"

// Config holds the driver's runtime tunables, distinct from the walk's own
// recorded WalkConfig (spec §4.6/§5).
type Config struct {
	SleepInterval        time.Duration
	ShutdownDrainTimeout  time.Duration
	MaxConcurrency        int
	PlannerByteBudget     int64
}

// Driver runs the main loop against one walk.
type Driver struct {
	Store      *store.Store
	Runner     *agent.Runner
	Log        *logging.Logger
	Cfg        Config
	Thresholds config.Thresholds

	// Summarizer condenses oversized recently-closed issues in the planner
	// prompt. Optional: a nil Summarizer (e.g. no API key configured)
	// leaves every issue's raw text in place.
	Summarizer *digest.Summarizer

	threshold *AdaptiveThreshold

	shutdownRequested atomic.Bool
	backendMu         sync.Mutex // serialises store-mutating calls in concurrent mode
}

// New constructs a Driver ready to Run.
func New(s *store.Store, runner *agent.Runner, log *logging.Logger, cfg Config, thresholds config.Thresholds) *Driver {
	return &Driver{
		Store:      s,
		Runner:     runner,
		Log:        log,
		Cfg:        cfg,
		Thresholds: thresholds,
		threshold:  NewAdaptiveThreshold(thresholds),
	}
}

// Run executes the driver until the walk reaches a terminal state, a
// restart is requested, or ctx is cancelled. Startup acquires the PID
// file and installs signal handlers; both are released/stopped on return.
func (d *Driver) Run(ctx context.Context) error {
	if err := AcquirePIDFile(d.Store.Dir()); err != nil {
		return fmt.Errorf("startup refused: %w", err)
	}
	defer ReleasePIDFile(d.Store.Dir())

	stopSignals := d.installSignalHandlers()
	defer stopSignals()

	watcher, err := newFastWake(d.Store.Dir())
	if err != nil {
		d.Log.Warn("fast-wake watcher unavailable, falling back to plain sleep", "error", err)
	} else {
		defer watcher.Close()
	}

	if d.Cfg.MaxConcurrency > 1 {
		d.Runner.BackendMu = &d.backendMu
		return d.runConcurrent(ctx, watcher)
	}
	return d.runSequential(ctx, watcher)
}

func (d *Driver) restartMarkerPath() string {
	return filepath.Join(d.Store.Dir(), restartMarkerName)
}

func (d *Driver) checkRestart() (bool, error) {
	path := d.restartMarkerPath()
	if _, err := os.Stat(path); err != nil {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("removing restart marker: %w", err)
	}
	return true, nil
}

func (d *Driver) finalize(status types.WalkStatus, reason string) error {
	if err := d.Store.Finalize(status, reason); err != nil {
		return err
	}
	snap, err := report.BuildSnapshot(d.Store)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.Store.Dir(), "summary.md"), []byte(report.RenderSummary(snap)), 0o644)
}

// runPlanningRound runs one planning round and applies the adaptive
// threshold update and the dispatch policy of spec §4.5/§4.6. It returns
// the outcome so callers can decide whether to reset a stall counter, and
// a bool reporting whether the walk was finalized (terminal).
func (d *Driver) runPlanningRound(ctx context.Context) (planning.Outcome, bool, error) {
	readyBefore, err := d.Store.ReadyIssues()
	if err != nil {
		return "", false, err
	}

	round := &planning.Round{
		Store:             d.Store,
		Runner:            d.Runner,
		PlannerByteBudget: d.Cfg.PlannerByteBudget,
		PlanningThreshold: d.threshold.Bytes,
		Summarizer:        d.Summarizer,
		Log:               d.Log,
	}
	outcome, reason, err := round.Run(ctx)
	if err != nil {
		return "", false, err
	}

	readyAfter, err := d.Store.ReadyIssues()
	if err != nil {
		return "", false, err
	}
	d.threshold.AfterRound(len(readyBefore), len(readyAfter))

	if outcome == planning.OutcomeCompleted {
		return outcome, true, d.finalize(types.WalkCompleted, reason)
	}
	return outcome, false, nil
}

// sleep waits for the configured interval, a fast-wake watcher event, or
// context cancellation — whichever comes first.
func (d *Driver) sleep(ctx context.Context, w *fastWake) {
	timer := time.NewTimer(d.Cfg.SleepInterval)
	defer timer.Stop()
	var wake <-chan struct{}
	if w != nil {
		wake = w.Events
	}
	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-wake:
	}
}
