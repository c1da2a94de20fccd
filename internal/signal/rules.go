package signal

// Built-in trigger rules. Each is registered under a stable strategy id;
// the evaluator enables them by id.

import (
	"trendlab/internal/indicator"
	"trendlab/internal/model"
	"trendlab/internal/phase"
)

// ────────────────────────────────────────────────────────────
// Trend projection
// ────────────────────────────────────────────────────────────

// TrendProjection triggers when price breaches the static threshold on the
// trade side (P5 for long, P95 for short) while a fixed-horizon linear
// projection of the moving average (EMA + slope×horizon) has already
// crossed back in the trade's favor relative to the current close.
type TrendProjection struct {
	id          string
	dir         model.Direction
	HorizonBars int
}

// NewTrendProjection builds the rule for one side with the given projection
// horizon in bars.
func NewTrendProjection(dir model.Direction, horizonBars int) *TrendProjection {
	id := "trend_projection_long"
	if dir == model.Short {
		id = "trend_projection_short"
	}
	return &TrendProjection{id: id, dir: dir, HorizonBars: horizonBars}
}

func (r *TrendProjection) ID() string                 { return r.id }
func (r *TrendProjection) Direction() model.Direction { return r.dir }

func (r *TrendProjection) Evaluate(ctx RuleContext) model.StrategyVerdict {
	ema, okE := ctx.EMA.V, ctx.EMA.Valid
	slope, okS := ctx.Slope.V, ctx.Slope.Valid
	if !okE || !okS {
		return miss(r.id)
	}
	projection := indicator.Project(ema, slope, r.HorizonBars)
	close := ctx.Candle.Close

	if r.dir == model.Long {
		p5, ok := ctx.P5.V, ctx.P5.Valid
		if !ok || close > p5 || projection <= close {
			return miss(r.id)
		}
		return hit(r.id, "close under P5 with projection recovering", map[string]float64{
			"close":      close,
			"p5":         p5,
			"projection": projection,
		})
	}

	p95, ok := ctx.P95.V, ctx.P95.Valid
	if !ok || close < p95 || projection >= close {
		return miss(r.id)
	}
	return hit(r.id, "close over P95 with projection fading", map[string]float64{
		"close":      close,
		"p95":        p95,
		"projection": projection,
	})
}

// ────────────────────────────────────────────────────────────
// Inertia breakout
// ────────────────────────────────────────────────────────────

// InertiaBreakout triggers against the prevailing slope: the slope must
// point opposite to the trade direction, the inertia midpoint must already
// sit beyond the static threshold, and the candle must cross the halfway
// level between the inertia midpoint and that threshold.
type InertiaBreakout struct {
	id  string
	dir model.Direction
}

// NewInertiaBreakout builds the rule for one side.
func NewInertiaBreakout(dir model.Direction) *InertiaBreakout {
	id := "inertia_breakout_long"
	if dir == model.Short {
		id = "inertia_breakout_short"
	}
	return &InertiaBreakout{id: id, dir: dir}
}

func (r *InertiaBreakout) ID() string                 { return r.id }
func (r *InertiaBreakout) Direction() model.Direction { return r.dir }

func (r *InertiaBreakout) Evaluate(ctx RuleContext) model.StrategyVerdict {
	slope, okS := ctx.Slope.V, ctx.Slope.Valid
	mid, okM := ctx.FanMid.V, ctx.FanMid.Valid
	if !okS || !okM {
		return miss(r.id)
	}

	if r.dir == model.Long {
		p5, ok := ctx.P5.V, ctx.P5.Valid
		// Long side fades a falling slope whose projection overshot the
		// lower threshold.
		if !ok || slope >= 0 || mid >= p5 {
			return miss(r.id)
		}
		level := (mid + p5) / 2
		if !crosses(ctx.Candle, level) {
			return miss(r.id)
		}
		return hit(r.id, "crossed inertia level below P5", map[string]float64{
			"level": level,
			"mid":   mid,
			"p5":    p5,
			"slope": slope,
		})
	}

	p95, ok := ctx.P95.V, ctx.P95.Valid
	if !ok || slope <= 0 || mid <= p95 {
		return miss(r.id)
	}
	level := (mid + p95) / 2
	if !crosses(ctx.Candle, level) {
		return miss(r.id)
	}
	return hit(r.id, "crossed inertia level above P95", map[string]float64{
		"level": level,
		"mid":   mid,
		"p95":   p95,
		"slope": slope,
	})
}

// ────────────────────────────────────────────────────────────
// Phase-gated breakout
// ────────────────────────────────────────────────────────────

// PhaseBreakout triggers only while the market sits in a specific phase and
// the candle crosses the static threshold on the trade side.
type PhaseBreakout struct {
	id       string
	dir      model.Direction
	Required phase.Label
}

// NewPhaseBreakout builds a phase-gated rule. The id embeds the gating
// phase so several instances can coexist in the registry.
func NewPhaseBreakout(id string, dir model.Direction, required phase.Label) *PhaseBreakout {
	return &PhaseBreakout{id: id, dir: dir, Required: required}
}

func (r *PhaseBreakout) ID() string                 { return r.id }
func (r *PhaseBreakout) Direction() model.Direction { return r.dir }

func (r *PhaseBreakout) Evaluate(ctx RuleContext) model.StrategyVerdict {
	if ctx.Phase != r.Required {
		return miss(r.id)
	}
	if r.dir == model.Long {
		p5, ok := ctx.P5.V, ctx.P5.Valid
		if !ok || !crosses(ctx.Candle, p5) {
			return miss(r.id)
		}
		return hit(r.id, "crossed P5 in "+string(r.Required), map[string]float64{
			"p5":    p5,
			"close": ctx.Candle.Close,
		})
	}
	p95, ok := ctx.P95.V, ctx.P95.Valid
	if !ok || !crosses(ctx.Candle, p95) {
		return miss(r.id)
	}
	return hit(r.id, "crossed P95 in "+string(r.Required), map[string]float64{
		"p95":   p95,
		"close": ctx.Candle.Close,
	})
}

// ────────────────────────────────────────────────────────────
// Compound
// ────────────────────────────────────────────────────────────

// Compound applies its price-crossing test only after one of its
// preconditions holds: the phase is not on the bull side, OR the secondary
// slower moving average's slope is negative.
type Compound struct {
	id  string
	dir model.Direction
}

// NewCompound builds the compound rule for one side.
func NewCompound(dir model.Direction) *Compound {
	id := "compound_long"
	if dir == model.Short {
		id = "compound_short"
	}
	return &Compound{id: id, dir: dir}
}

func (r *Compound) ID() string                 { return r.id }
func (r *Compound) Direction() model.Direction { return r.dir }

func (r *Compound) Evaluate(ctx RuleContext) model.StrategyVerdict {
	slowOK := ctx.SlowSlope.Valid
	precondition := !ctx.Phase.Bull() || (slowOK && ctx.SlowSlope.V < 0)
	if r.dir == model.Short {
		precondition = !ctx.Phase.Bear() || (slowOK && ctx.SlowSlope.V > 0)
	}
	if !precondition {
		return miss(r.id)
	}

	if r.dir == model.Long {
		p5, ok := ctx.P5.V, ctx.P5.Valid
		if !ok || !crosses(ctx.Candle, p5) {
			return miss(r.id)
		}
		return hit(r.id, "precondition met and crossed P5", map[string]float64{
			"p5":         p5,
			"close":      ctx.Candle.Close,
			"slow_slope": ctx.SlowSlope.V,
		})
	}
	p95, ok := ctx.P95.V, ctx.P95.Valid
	if !ok || !crosses(ctx.Candle, p95) {
		return miss(r.id)
	}
	return hit(r.id, "precondition met and crossed P95", map[string]float64{
		"p95":        p95,
		"close":      ctx.Candle.Close,
		"slow_slope": ctx.SlowSlope.V,
	})
}
