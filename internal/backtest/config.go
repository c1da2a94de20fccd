package backtest

import "github.com/shopspring/decimal"

// Config holds the simulation parameters. Percentages are whole numbers
// (5 = 5%).
type Config struct {
	// Notional is the fixed capital committed per order.
	Notional decimal.Decimal

	// StopLossPct closes a long when low ≤ entry×(1−pct/100), filling at
	// the stop price exactly. Symmetric for shorts.
	StopLossPct decimal.Decimal

	// TakeProfitPct closes a long when high ≥ entry×(1+pct/100), filling at
	// the target price. Symmetric for shorts.
	TakeProfitPct decimal.Decimal

	// MeanReversionExit closes an order when the EMA re-enters a candle's
	// range, filling at the EMA level.
	MeanReversionExit bool

	// PhaseExit marks an order for closure when the phase leaves the
	// favorable side and the fast/slow EMA cross confirms it. The fill
	// happens at the NEXT candle's open, never the marking candle.
	PhaseExit bool
}

// DefaultConfig returns the production simulation parameters.
func DefaultConfig() Config {
	return Config{
		Notional:          decimal.NewFromInt(1000),
		StopLossPct:       decimal.NewFromInt(5),
		TakeProfitPct:     decimal.NewFromInt(10),
		MeanReversionExit: true,
		PhaseExit:         true,
	}
}

var hundred = decimal.NewFromInt(100)

// stopPrice returns the hard stop level for an entry on one side.
func stopPrice(entry, pct decimal.Decimal, short bool) decimal.Decimal {
	frac := pct.Div(hundred)
	if short {
		return entry.Mul(decimal.NewFromInt(1).Add(frac))
	}
	return entry.Mul(decimal.NewFromInt(1).Sub(frac))
}

// targetPrice returns the take-profit level for an entry on one side.
func targetPrice(entry, pct decimal.Decimal, short bool) decimal.Decimal {
	frac := pct.Div(hundred)
	if short {
		return entry.Mul(decimal.NewFromInt(1).Sub(frac))
	}
	return entry.Mul(decimal.NewFromInt(1).Add(frac))
}
