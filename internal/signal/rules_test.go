package signal

import (
	"testing"

	"trendlab/internal/indicator"
	"trendlab/internal/model"
	"trendlab/internal/phase"
)

func candle(low, high, close float64) model.Candle {
	return model.Candle{Symbol: "TESTUSDT", TS: 1700000000000, Open: close, High: high, Low: low, Close: close, Volume: 1}
}

// ────────────────────────────────────────────────────────────
// Trend projection
// ────────────────────────────────────────────────────────────

func TestTrendProjection_Long(t *testing.T) {
	rule := NewTrendProjection(model.Long, 10)
	if rule.ID() != "trend_projection_long" {
		t.Fatalf("id: %s", rule.ID())
	}

	// EMA=100, slope=0.5 → projection=105. Close 98 sits under P5=98.355
	// and below the projection, so the rule fires.
	ctx := RuleContext{
		Candle: candle(97, 99, 98),
		EMA:    indicator.Some(100),
		Slope:  indicator.Some(0.5),
		P5:     indicator.Some(98.355),
	}
	v := rule.Evaluate(ctx)
	if !v.Triggered {
		t.Fatalf("expected trigger, got %+v", v)
	}
	if v.Details["projection"] != 105 {
		t.Errorf("projection detail: got %f", v.Details["projection"])
	}

	// Close above P5: no trigger.
	ctx.Candle = candle(99, 101, 100)
	if rule.Evaluate(ctx).Triggered {
		t.Error("close above P5 must not trigger")
	}

	// Projection below close: no trigger.
	ctx.Candle = candle(97, 99, 98)
	ctx.Slope = indicator.Some(-1)
	if rule.Evaluate(ctx).Triggered {
		t.Error("fading projection must not trigger the long side")
	}

	// Unavailable EMA: silent miss, never an error.
	ctx.EMA = indicator.None()
	if rule.Evaluate(ctx).Triggered {
		t.Error("unavailable EMA must not trigger")
	}
}

func TestTrendProjection_Short(t *testing.T) {
	rule := NewTrendProjection(model.Short, 10)

	// Close 102 over P95=101.645 with the projection already below it.
	ctx := RuleContext{
		Candle: candle(101, 103, 102),
		EMA:    indicator.Some(100),
		Slope:  indicator.Some(-0.5),
		P95:    indicator.Some(101.645),
	}
	v := rule.Evaluate(ctx)
	if !v.Triggered {
		t.Fatalf("expected trigger, got %+v", v)
	}
	if rule.Direction() != model.Short {
		t.Error("direction must be short")
	}
}

// ────────────────────────────────────────────────────────────
// Inertia breakout
// ────────────────────────────────────────────────────────────

func TestInertiaBreakout_Long(t *testing.T) {
	rule := NewInertiaBreakout(model.Long)

	// Falling slope, midpoint overshot below P5. Halfway level is
	// (90+98.355)/2 = 94.1775; the candle straddles it.
	ctx := RuleContext{
		Candle: candle(94, 95, 94.5),
		Slope:  indicator.Some(-1),
		FanMid: indicator.Some(90),
		P5:     indicator.Some(98.355),
	}
	v := rule.Evaluate(ctx)
	if !v.Triggered {
		t.Fatalf("expected trigger, got %+v", v)
	}
	if v.Details["level"] != (90+98.355)/2 {
		t.Errorf("level detail: got %f", v.Details["level"])
	}

	// Rising slope disqualifies the long side.
	ctx.Slope = indicator.Some(1)
	if rule.Evaluate(ctx).Triggered {
		t.Error("rising slope must not trigger the long side")
	}

	// Midpoint above P5: no overshoot to fade.
	ctx.Slope = indicator.Some(-1)
	ctx.FanMid = indicator.Some(99)
	if rule.Evaluate(ctx).Triggered {
		t.Error("midpoint above P5 must not trigger")
	}

	// Candle away from the level: no cross.
	ctx.FanMid = indicator.Some(90)
	ctx.Candle = candle(99, 100, 99.5)
	if rule.Evaluate(ctx).Triggered {
		t.Error("candle off the level must not trigger")
	}
}

func TestInertiaBreakout_Short(t *testing.T) {
	rule := NewInertiaBreakout(model.Short)

	// Rising slope, midpoint overshot above P95=101.645, level at
	// (110+101.645)/2 = 105.8225.
	ctx := RuleContext{
		Candle: candle(105, 106, 105.5),
		Slope:  indicator.Some(1),
		FanMid: indicator.Some(110),
		P95:    indicator.Some(101.645),
	}
	if !rule.Evaluate(ctx).Triggered {
		t.Fatal("expected trigger")
	}
}

// ────────────────────────────────────────────────────────────
// Phase-gated breakout
// ────────────────────────────────────────────────────────────

func TestPhaseBreakout(t *testing.T) {
	rule := NewPhaseBreakout("consolidation_breakout_long", model.Long, phase.Consolidation)

	ctx := RuleContext{
		Candle: candle(97, 99, 98.5),
		Phase:  phase.Consolidation,
		P5:     indicator.Some(98),
	}
	if !rule.Evaluate(ctx).Triggered {
		t.Fatal("expected trigger in the gating phase")
	}

	ctx.Phase = phase.BullStrong
	if rule.Evaluate(ctx).Triggered {
		t.Error("wrong phase must not trigger")
	}

	ctx.Phase = phase.Consolidation
	ctx.P5 = indicator.None()
	if rule.Evaluate(ctx).Triggered {
		t.Error("unavailable band must not trigger")
	}
}

func TestPhaseBreakout_CapitulationReversal(t *testing.T) {
	rule := NewPhaseBreakout("capitulation_reversal_long", model.Long, phase.BearStrong)

	ctx := RuleContext{
		Candle: candle(97, 99, 98.5),
		Phase:  phase.BearStrong,
		P5:     indicator.Some(98),
	}
	if !rule.Evaluate(ctx).Triggered {
		t.Fatal("expected trigger in BearStrong")
	}
	if rule.Direction() != model.Long {
		t.Error("capitulation reversal opens long")
	}
}

// ────────────────────────────────────────────────────────────
// Compound
// ────────────────────────────────────────────────────────────

func TestCompound_Long(t *testing.T) {
	rule := NewCompound(model.Long)

	// Bull phase with a positive slow slope blocks the precondition.
	ctx := RuleContext{
		Candle:    candle(97, 99, 98.5),
		Phase:     phase.BullStrong,
		SlowSlope: indicator.Some(0.5),
		P5:        indicator.Some(98),
	}
	if rule.Evaluate(ctx).Triggered {
		t.Error("bull phase with rising slow slope must not trigger")
	}

	// A negative slow slope re-enables it even mid-bull.
	ctx.SlowSlope = indicator.Some(-0.5)
	if !rule.Evaluate(ctx).Triggered {
		t.Error("negative slow slope should satisfy the precondition")
	}

	// Outside the bull side the phase alone satisfies the precondition.
	ctx.Phase = phase.Consolidation
	ctx.SlowSlope = indicator.Some(0.5)
	if !rule.Evaluate(ctx).Triggered {
		t.Error("non-bull phase should satisfy the precondition")
	}

	// Precondition met but no band cross.
	ctx.Candle = candle(99, 100, 99.5)
	if rule.Evaluate(ctx).Triggered {
		t.Error("no band cross must not trigger")
	}
}

func TestCompound_Short(t *testing.T) {
	rule := NewCompound(model.Short)

	ctx := RuleContext{
		Candle:    candle(101, 103, 102),
		Phase:     phase.BearStrong,
		SlowSlope: indicator.Some(-0.5),
		P95:       indicator.Some(102),
	}
	if rule.Evaluate(ctx).Triggered {
		t.Error("bear phase with falling slow slope must not trigger the short side")
	}

	ctx.SlowSlope = indicator.Some(0.5)
	if !rule.Evaluate(ctx).Triggered {
		t.Error("rising slow slope should satisfy the short precondition")
	}
}
