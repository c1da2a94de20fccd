// Package backtest simulates virtual order execution against historical
// candles and aggregates P&L statistics.
//
// All monetary arithmetic uses decimal.Decimal: entry prices, quantities,
// notionals and P&L stay exact across arbitrarily long runs. The simulator
// is deterministic — the same signals, candles and config always produce
// bit-identical orders and statistics.
package backtest

import "github.com/shopspring/decimal"

// Ledger tracks the capital available to one simulation run. Each run owns
// an exclusive instance; it is deliberately not safe for concurrent use
// because runs never share capital.
type Ledger struct {
	initial   decimal.Decimal
	available decimal.Decimal
	reserved  decimal.Decimal
}

// NewLedger creates a ledger funded with the initial capital.
func NewLedger(initialCapital decimal.Decimal) *Ledger {
	return &Ledger{initial: initialCapital, available: initialCapital}
}

// Reserve locks notional for a new position. Returns false without
// mutating the ledger when the funds are not available.
func (l *Ledger) Reserve(notional decimal.Decimal) bool {
	if l.available.LessThan(notional) {
		return false
	}
	l.available = l.available.Sub(notional)
	l.reserved = l.reserved.Add(notional)
	return true
}

// Release returns reserved notional untouched (a cancelled limit order).
func (l *Ledger) Release(notional decimal.Decimal) {
	l.reserved = l.reserved.Sub(notional)
	l.available = l.available.Add(notional)
}

// Settle closes out a reserved position: the notional comes back plus the
// realized P&L (which may be negative).
func (l *Ledger) Settle(notional, pnl decimal.Decimal) {
	l.reserved = l.reserved.Sub(notional)
	l.available = l.available.Add(notional).Add(pnl)
}

// Available returns the spendable capital.
func (l *Ledger) Available() decimal.Decimal { return l.available }

// Initial returns the starting capital.
func (l *Ledger) Initial() decimal.Decimal { return l.initial }
