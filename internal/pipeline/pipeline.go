// Package pipeline wires the analysis stages into one pass:
// candles → indicators → phases → signals. Both the backtester and the live
// scanner run this exact chain, so their outputs never diverge.
package pipeline

import (
	"trendlab/internal/indicator"
	"trendlab/internal/model"
	"trendlab/internal/phase"
	"trendlab/internal/signal"
)

// Config bundles the per-stage parameters for one run.
type Config struct {
	Indicator  indicator.Config
	Phase      phase.Config
	BarHours   float64  // bar duration used for cycle timing
	Strategies []string // enabled strategy ids; empty = all registered
}

// DefaultConfig returns the production parameters for every stage.
func DefaultConfig() Config {
	return Config{
		Indicator: indicator.DefaultConfig(),
		Phase:     phase.DefaultConfig(),
		BarHours:  4.0,
	}
}

// Result carries everything the chain derives from one candle slice.
type Result struct {
	Candles []model.Candle
	Bundle  *indicator.Bundle
	Phases  []phase.Label
	Cycle   *phase.CycleInfo
	Signals []model.Signal
}

// Runner owns the rule registry so repeated runs reuse the same rules.
type Runner struct {
	cfg       Config
	evaluator *signal.Evaluator
}

// New creates a Runner over the default rule registry.
func New(cfg Config) *Runner {
	return &Runner{
		cfg:       cfg,
		evaluator: signal.NewEvaluator(signal.DefaultRegistry()),
	}
}

// Run executes the full chain over an ordered candle slice.
func (r *Runner) Run(candles []model.Candle) (*Result, error) {
	bundle, err := indicator.Compute(candles, r.cfg.Indicator)
	if err != nil {
		return nil, err
	}

	labels, cycle, err := phase.Classify(
		bundle.Slope,
		model.Timestamps(candles),
		model.Closes(candles),
		r.cfg.BarHours,
		r.cfg.Phase,
	)
	if err != nil {
		return nil, err
	}

	signals, err := r.evaluator.Evaluate(candles, bundle, labels, r.cfg.Strategies)
	if err != nil {
		return nil, err
	}

	return &Result{
		Candles: candles,
		Bundle:  bundle,
		Phases:  labels,
		Cycle:   cycle,
		Signals: signals,
	}, nil
}
