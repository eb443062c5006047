package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fdr/walk/internal/planning"
	"github.com/fdr/walk/internal/types"
)

// workerResult is what a spawned worker goroutine reports back on
// completion, for the reaping pass at the top of the next iteration.
type workerResult struct {
	slug string
	err  error
}

// runConcurrent implements the concurrency>1 loop of spec §4.6: a table of
// active workers keyed by slug, reaped each iteration, topped back up to
// d.Cfg.MaxConcurrency from the ready queue (excluding slugs already
// running), with planning only attempted while no worker is active. All
// store-mutating calls the workers make are serialised through
// d.Runner.BackendMu (wired in by Run before this is called).
func (d *Driver) runConcurrent(ctx context.Context, w *fastWake) error {
	active := map[string]bool{}
	results := make(chan workerResult, d.Cfg.MaxConcurrency)
	var wg sync.WaitGroup
	consecutivePlanning := 0

	reap := func(res workerResult) {
		delete(active, res.slug)
		if res.err != nil {
			d.Log.Error("worker run failed", "issue", res.slug, "error", res.err)
		}
	}

	// drainFinished reaps every worker result already sitting in the
	// channel; if block is true and none are ready yet, it waits for one.
	drainFinished := func(block bool) {
		if block {
			reap(<-results)
		}
		for {
			select {
			case res := <-results:
				reap(res)
			default:
				return
			}
		}
	}

	shutdown := func(status types.WalkStatus, reason string) error {
		d.Log.Info("draining active workers before shutdown", "count", len(active))
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(d.Cfg.ShutdownDrainTimeout):
			d.Log.Warn("shutdown drain timed out, finalizing with workers still in flight")
		}
		return d.finalize(status, reason)
	}

	for {
		if restart, err := d.checkRestart(); err != nil {
			return err
		} else if restart {
			return ErrRestartRequested
		}

		drainFinished(false)

		if d.isShutdownRequested() {
			return shutdown(types.WalkStopped, "signal")
		}

		if len(active) == 0 {
			if err := d.maybePlanPreemptively(ctx); err != nil {
				return err
			}
		}

		ready, err := d.Store.ReadyIssues()
		if err != nil {
			return err
		}
		candidates := make([]*types.Issue, 0, len(ready))
		for _, issue := range ready {
			if !active[issue.Slug] {
				candidates = append(candidates, issue)
			}
		}

		if len(candidates) == 0 && len(active) == 0 {
			consecutivePlanning++
			if consecutivePlanning > d.Thresholds.MaxPlanningRounds {
				return d.finalize(types.WalkStalled, fmt.Sprintf(
					"no ready work after %d consecutive planning rounds", consecutivePlanning-1))
			}
			outcome, done, err := d.runPlanningRound(ctx)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			if outcome == planning.OutcomeCreatedIssues {
				consecutivePlanning = 0
			}
			d.sleep(ctx, w)
			continue
		}

		consecutivePlanning = 0
		free := d.Cfg.MaxConcurrency - len(active)
		for i := 0; i < free && i < len(candidates); i++ {
			issue := candidates[i]
			active[issue.Slug] = true
			wg.Add(1)
			go func(issue *types.Issue) {
				defer wg.Done()
				_, err := d.Runner.RunIssue(ctx, issue, false)
				results <- workerResult{slug: issue.Slug, err: err}
			}(issue)
		}

		if len(active) >= d.Cfg.MaxConcurrency || len(candidates) == 0 {
			drainFinished(true)
		} else {
			d.sleep(ctx, w)
		}

		if ctx.Err() != nil {
			return shutdown(types.WalkStopped, "context cancelled")
		}
	}
}
