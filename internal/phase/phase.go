// Package phase classifies each candle into a market regime by running a
// finite-state machine over the EMA slope series.
//
// Labels are computed strictly in ascending time order with no lookahead: a
// label for index i never depends on any later candle, and once emitted it
// is never revised.
package phase

// Label is the market regime at one candle.
type Label string

const (
	Consolidation Label = "CONSOLIDATION"
	BullWarning   Label = "BULL_WARNING"
	BullStrong    Label = "BULL_STRONG"
	BearWarning   Label = "BEAR_WARNING"
	BearStrong    Label = "BEAR_STRONG"
)

// Bull reports whether the label is on the bull side.
func (l Label) Bull() bool { return l == BullWarning || l == BullStrong }

// Bear reports whether the label is on the bear side.
func (l Label) Bear() bool { return l == BearWarning || l == BearStrong }

// Config holds the FSM thresholds. Slopes are compared after scaling by
// Scale (display units, ×100 in production).
type Config struct {
	BullWarn   float64
	BullStrong float64
	BearWarn   float64
	BearStrong float64
	CycleEnd   float64
	Scale      float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		BullWarn:   600,
		BullStrong: 1000,
		BearWarn:   -600,
		BearStrong: -1000,
		CycleEnd:   0,
		Scale:      100,
	}
}
