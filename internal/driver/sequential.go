package driver

import (
	"context"
	"fmt"

	"github.com/fdr/walk/internal/planning"
	"github.com/fdr/walk/internal/types"
)

// runSequential implements the concurrency=1 loop of spec §4.6.
func (d *Driver) runSequential(ctx context.Context, w *fastWake) error {
	consecutivePlanning := 0

	for {
		if restart, err := d.checkRestart(); err != nil {
			return err
		} else if restart {
			return ErrRestartRequested
		}

		if d.isShutdownRequested() {
			return d.finalize(types.WalkStopped, "signal")
		}

		if err := d.maybePlanPreemptively(ctx); err != nil {
			return err
		}

		ready, err := d.Store.ReadyIssues()
		if err != nil {
			return err
		}

		if len(ready) == 0 {
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
		if _, err := d.Runner.RunIssue(ctx, ready[0], false); err != nil {
			d.Log.Error("worker run failed", "issue", ready[0].Slug, "error", err)
		}
		d.sleep(ctx, w)

		if ctx.Err() != nil {
			return d.finalize(types.WalkStopped, "context cancelled")
		}
	}
}

// maybePlanPreemptively runs a planning round ahead of schedule when
// context pressure (spec §4.6 should_plan_now) says so and there is work
// it would be disruptive to interrupt mid-stream.
func (d *Driver) maybePlanPreemptively(ctx context.Context) error {
	newCtx, err := d.Store.NewContextSince(d.threshold.LastPlanningTime)
	if err != nil {
		return err
	}
	if !d.threshold.ShouldPlanNow(newCtx) {
		return nil
	}
	ready, err := d.Store.ReadyIssues()
	if err != nil {
		return err
	}
	if len(ready) == 0 {
		return nil
	}
	_, _, err = d.runPlanningRound(ctx)
	return err
}
