package signal

import (
	"fmt"

	"trendlab/internal/indicator"
	"trendlab/internal/model"
	"trendlab/internal/phase"
)

// Registry holds the known trigger rules keyed by strategy id.
type Registry struct {
	rules map[string]Rule
	order []string // registration order, for deterministic iteration
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds a rule. Re-registering an id replaces the previous rule.
func (r *Registry) Register(rule Rule) {
	if _, exists := r.rules[rule.ID()]; !exists {
		r.order = append(r.order, rule.ID())
	}
	r.rules[rule.ID()] = rule
}

// Get returns the rule for an id.
func (r *Registry) Get(id string) (Rule, bool) {
	rule, ok := r.rules[id]
	return rule, ok
}

// IDs returns all registered ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DefaultRegistry returns the production rule set: trend projection,
// inertia breakout, phase-gated breakouts and the compound rule, each on
// both sides where the shape allows it.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(NewTrendProjection(model.Long, 10))
	reg.Register(NewTrendProjection(model.Short, 10))
	reg.Register(NewInertiaBreakout(model.Long))
	reg.Register(NewInertiaBreakout(model.Short))
	reg.Register(NewPhaseBreakout("consolidation_breakout_long", model.Long, phase.Consolidation))
	reg.Register(NewPhaseBreakout("capitulation_reversal_long", model.Long, phase.BearStrong))
	reg.Register(NewCompound(model.Long))
	reg.Register(NewCompound(model.Short))
	return reg
}

// Evaluator runs enabled rules over candles and emits signals.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator creates an evaluator over a rule registry.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate runs every enabled rule against every candle and returns the
// emitted signals in ascending candle order.
//
// A signal is emitted for a candle when at least one rule triggers. The
// signal's direction comes from the first triggered rule in registration
// order; all verdicts (triggered or not) are attached.
//
// Fails with ErrInvalidInput on unknown ids or bundle/candle length
// mismatch, and ErrInsufficientData when a requested rule needs a series
// the bundle does not carry.
func (e *Evaluator) Evaluate(candles []model.Candle, bundle *indicator.Bundle, phases []phase.Label, enabledIDs []string) ([]model.Signal, error) {
	if bundle == nil {
		return nil, fmt.Errorf("%w: nil indicator bundle", model.ErrInvalidInput)
	}
	if bundle.Len() != len(candles) || len(phases) != len(candles) {
		return nil, fmt.Errorf("%w: candles=%d bundle=%d phases=%d",
			model.ErrInvalidInput, len(candles), bundle.Len(), len(phases))
	}

	rules, err := e.resolve(bundle, enabledIDs)
	if err != nil {
		return nil, err
	}

	var signals []model.Signal
	for i := range candles {
		ctx := RuleContext{
			Candle:    candles[i],
			Index:     i,
			Phase:     phases[i],
			EMA:       bundle.EMA[i],
			Slope:     bundle.Slope[i],
			SlowSlope: bundle.SlowSlope[i],
			Sigma:     bundle.DevStd[i],
			P95:       bundle.P95[i],
			P5:        bundle.P5[i],
			FanMid:    bundle.FanMid[i],
			ADX:       bundle.DMI.ADX[i],
		}

		verdicts := make([]model.StrategyVerdict, 0, len(rules))
		var dir model.Direction
		triggered := false
		for _, rule := range rules {
			v := rule.Evaluate(ctx)
			verdicts = append(verdicts, v)
			if v.Triggered && !triggered {
				triggered = true
				dir = rule.Direction()
			}
		}
		if !triggered {
			continue
		}
		signals = append(signals, model.Signal{
			Symbol:      candles[i].Symbol,
			TS:          candles[i].TS,
			CandleIndex: i,
			Direction:   dir,
			Price:       candles[i].Close,
			Triggers:    verdicts,
		})
	}
	return signals, nil
}

// resolve maps enabled ids to rules in registration order and verifies the
// bundle carries the series each side needs.
func (e *Evaluator) resolve(bundle *indicator.Bundle, enabledIDs []string) ([]Rule, error) {
	if len(enabledIDs) == 0 {
		enabledIDs = e.registry.IDs()
	}

	enabled := make(map[string]bool, len(enabledIDs))
	for _, id := range enabledIDs {
		if _, ok := e.registry.Get(id); !ok {
			return nil, fmt.Errorf("%w: unknown strategy id %q", model.ErrInvalidInput, id)
		}
		enabled[id] = true
	}

	var rules []Rule
	for _, id := range e.registry.IDs() {
		if !enabled[id] {
			continue
		}
		rule, _ := e.registry.Get(id)
		switch rule.Direction() {
		case model.Short:
			if len(bundle.P95) == 0 {
				return nil, fmt.Errorf("%w: strategy %q needs the upper band series",
					model.ErrInsufficientData, id)
			}
		default:
			if len(bundle.P5) == 0 {
				return nil, fmt.Errorf("%w: strategy %q needs the lower band series",
					model.ErrInsufficientData, id)
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
