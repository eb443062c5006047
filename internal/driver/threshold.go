package driver

import (
	"time"

	"github.com/fdr/walk/internal/config"
	"github.com/fdr/walk/internal/types"
)

// AdaptiveThreshold tracks the context-pressure planning trigger of spec
// §4.6: a byte threshold that grows when planning was unproductive and
// shrinks when it was productive, clamped to a configured range.
type AdaptiveThreshold struct {
	Bytes            int64
	LastPlanningTime time.Time
	cfg              config.Thresholds
}

// NewAdaptiveThreshold starts at the default planning threshold.
func NewAdaptiveThreshold(cfg config.Thresholds) *AdaptiveThreshold {
	return &AdaptiveThreshold{Bytes: 15000, cfg: cfg}
}

// ShouldPlanNow reports whether accumulated new context since the last
// planning round warrants an immediate planning round: a pivotal signal
// always does; bytes over threshold plus a surprising signal does too.
func (t *AdaptiveThreshold) ShouldPlanNow(ctx *types.NewContext) bool {
	for _, sig := range ctx.Signals {
		if sig == types.SignalPivotal {
			return true
		}
	}
	if ctx.Bytes > t.Bytes {
		for _, sig := range ctx.Signals {
			if sig == types.SignalSurprising {
				return true
			}
		}
	}
	return false
}

// AfterRound adjusts the threshold by comparing the ready-queue size
// before and after a planning round (spec §4.6).
func (t *AdaptiveThreshold) AfterRound(readyBefore, readyAfter int) {
	newIssues := readyAfter - readyBefore
	switch {
	case newIssues <= 1:
		t.Bytes = int64(float64(t.Bytes) * t.cfg.GrowthFactor)
	case newIssues >= 3:
		t.Bytes = int64(float64(t.Bytes) * t.cfg.ShrinkFactor)
	}
	t.clamp()
	t.LastPlanningTime = time.Now().UTC()
}

func (t *AdaptiveThreshold) clamp() {
	min := int64(t.cfg.PlanningThresholdMin)
	max := int64(t.cfg.PlanningThresholdMax)
	if t.Bytes < min {
		t.Bytes = min
	}
	if t.Bytes > max {
		t.Bytes = max
	}
}
