// Package signal evaluates a registry of independent trigger rules against
// each candle and emits trade signals.
//
// Every rule is a pure function of (candle, indicator values at that index,
// phase label): no rule mutates shared state, and evaluation order never
// affects the outcome. A Signal is emitted for a candle when at least one
// enabled rule triggers; the signal carries every rule's verdict for
// traceability.
package signal

import (
	"trendlab/internal/indicator"
	"trendlab/internal/model"
	"trendlab/internal/phase"
)

// RuleContext is the read-only view of one candle that a rule evaluates.
// Indicator entries keep their availability flags; a rule that needs an
// unavailable value simply does not trigger.
type RuleContext struct {
	Candle model.Candle
	Index  int
	Phase  phase.Label

	EMA       indicator.Value
	Slope     indicator.Value
	SlowSlope indicator.Value
	Sigma     indicator.Value
	P95       indicator.Value
	P5        indicator.Value
	FanMid    indicator.Value
	ADX       indicator.Value
}

// Rule is one trigger strategy. Implementations must be stateless: Evaluate
// may be called for any candle in any order.
type Rule interface {
	// ID returns the unique strategy id, e.g. "trend_projection_long".
	ID() string

	// Direction returns the trade side this rule opens.
	Direction() model.Direction

	// Evaluate returns the verdict for one candle. Reason and Details are
	// set only when the rule triggered.
	Evaluate(ctx RuleContext) model.StrategyVerdict
}

// miss is the shared "did not trigger" verdict constructor.
func miss(id string) model.StrategyVerdict {
	return model.StrategyVerdict{StrategyID: id}
}

// hit builds a triggered verdict with a machine-readable reason and the
// numeric evidence that produced it.
func hit(id, reason string, details map[string]float64) model.StrategyVerdict {
	return model.StrategyVerdict{
		StrategyID: id,
		Triggered:  true,
		Reason:     reason,
		Details:    details,
	}
}

// crosses reports whether a price level lies inside the candle's range.
func crosses(c model.Candle, level float64) bool {
	return c.Low <= level && level <= c.High
}
