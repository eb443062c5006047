package driver

import (
	"testing"

	"github.com/fdr/walk/internal/config"
	"github.com/fdr/walk/internal/types"
)

func TestShouldPlanNowOnPivotalSignal(t *testing.T) {
	th := NewAdaptiveThreshold(config.DefaultThresholds())
	ctx := &types.NewContext{Bytes: 0, Signals: []types.Signal{types.SignalPivotal}}
	if !th.ShouldPlanNow(ctx) {
		t.Error("ShouldPlanNow with a pivotal signal = false, want true regardless of bytes")
	}
}

func TestShouldPlanNowOnBytesPlusSurprising(t *testing.T) {
	th := NewAdaptiveThreshold(config.DefaultThresholds())
	under := &types.NewContext{Bytes: th.Bytes - 1, Signals: []types.Signal{types.SignalSurprising}}
	if th.ShouldPlanNow(under) {
		t.Error("ShouldPlanNow under threshold with only a surprising signal = true, want false")
	}
	over := &types.NewContext{Bytes: th.Bytes + 1, Signals: []types.Signal{types.SignalSurprising}}
	if !th.ShouldPlanNow(over) {
		t.Error("ShouldPlanNow over threshold with a surprising signal = false, want true")
	}
	overRoutine := &types.NewContext{Bytes: th.Bytes + 1, Signals: []types.Signal{types.SignalRoutine}}
	if th.ShouldPlanNow(overRoutine) {
		t.Error("ShouldPlanNow over threshold with only routine signals = true, want false")
	}
}

func TestAfterRoundGrowsAndShrinks(t *testing.T) {
	cfg := config.DefaultThresholds()
	th := NewAdaptiveThreshold(cfg)
	start := th.Bytes

	th.AfterRound(0, 1) // 1 new issue: unproductive, grows
	if th.Bytes <= start {
		t.Errorf("Bytes after unproductive round = %d, want > %d", th.Bytes, start)
	}

	grown := th.Bytes
	th.AfterRound(0, 3) // 3 new issues: productive, shrinks
	if th.Bytes >= grown {
		t.Errorf("Bytes after productive round = %d, want < %d", th.Bytes, grown)
	}
}

func TestAfterRoundClampsToConfiguredRange(t *testing.T) {
	cfg := config.DefaultThresholds()
	th := NewAdaptiveThreshold(cfg)
	th.Bytes = int64(cfg.PlanningThresholdMax)
	th.AfterRound(0, 0)
	if th.Bytes > int64(cfg.PlanningThresholdMax) {
		t.Errorf("Bytes = %d, want clamped to max %d", th.Bytes, cfg.PlanningThresholdMax)
	}

	th.Bytes = int64(cfg.PlanningThresholdMin)
	th.AfterRound(0, 5)
	if th.Bytes < int64(cfg.PlanningThresholdMin) {
		t.Errorf("Bytes = %d, want clamped to min %d", th.Bytes, cfg.PlanningThresholdMin)
	}
}
