// Package model defines the core data types shared across the analysis
// pipeline: candles, signals, virtual orders, and run statistics.
//
// Candle prices are float64 because indicators are statistical
// approximations. Ledger quantities (order prices, notional, P&L) use
// decimal.Decimal so that repeated arithmetic never accumulates binary
// rounding drift.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Candle represents one OHLCV bar for a single instrument.
// TS is the bar open time in Unix milliseconds. Candles arriving from the
// data layer are ordered ascending by TS with no duplicates; ValidateCandles
// enforces this at the pipeline boundary.
type Candle struct {
	Symbol string  `json:"symbol"`
	TS     int64   `json:"ts"` // Unix milliseconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Time returns the bar open time as a time.Time in UTC.
func (c *Candle) Time() time.Time {
	return time.UnixMilli(c.TS).UTC()
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// ValidateCandles checks ordering invariants on a candle slice:
// strictly ascending timestamps (no duplicates) and sane OHLC ranges.
// Returns ErrInvalidInput (wrapped) on the first violation.
func ValidateCandles(candles []Candle) error {
	for i := range candles {
		c := &candles[i]
		if i > 0 && c.TS <= candles[i-1].TS {
			return fmt.Errorf("%w: candle %d ts=%d not after previous ts=%d",
				ErrInvalidInput, i, c.TS, candles[i-1].TS)
		}
		if c.High < c.Low {
			return fmt.Errorf("%w: candle %d high=%.8f below low=%.8f",
				ErrInvalidInput, i, c.High, c.Low)
		}
	}
	return nil
}

// Closes extracts the close series from a candle slice.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

// Timestamps extracts the TS series from a candle slice.
func Timestamps(candles []Candle) []int64 {
	out := make([]int64, len(candles))
	for i := range candles {
		out[i] = candles[i].TS
	}
	return out
}
