package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a virtual order.
// Transitions Holding → Closed exactly once; an order is never reopened.
type OrderStatus string

const (
	StatusHolding OrderStatus = "HOLDING"
	StatusClosed  OrderStatus = "CLOSED"
)

// ExitReason records which exit condition closed a virtual order.
type ExitReason string

const (
	ExitStopLoss      ExitReason = "STOP_LOSS"
	ExitTakeProfit    ExitReason = "TAKE_PROFIT"
	ExitMeanReversion ExitReason = "MEAN_REVERSION"
	ExitPhaseChange   ExitReason = "PHASE_CHANGE"
)

// VirtualOrder is a simulated position created by the order simulator.
// It is exclusively owned by the simulation run that created it.
//
// All monetary fields are decimal to keep the ledger exact across long
// sequences of fills; floating P&L against the latest close is also decimal.
type VirtualOrder struct {
	ID              string          `json:"id"`
	Symbol          string          `json:"symbol"`
	EntryTime       time.Time       `json:"entry_time"`
	EntryIndex      int             `json:"entry_index"`
	EntryPrice      decimal.Decimal `json:"entry_price"`
	Quantity        decimal.Decimal `json:"quantity"`
	Notional        decimal.Decimal `json:"notional"`
	EntryStrategyID string          `json:"entry_strategy_id"`
	Direction       Direction       `json:"direction"`
	Status          OrderStatus     `json:"status"`

	// PendingExit marks an order whose phase-state exit condition fired on a
	// candle: the fill is deferred to the NEXT candle's open so the decision
	// never uses information unavailable at decision time.
	PendingExit bool `json:"pending_exit,omitempty"`

	ExitTime    time.Time       `json:"exit_time,omitempty"`
	ExitIndex   int             `json:"exit_index,omitempty"`
	ExitPrice   decimal.Decimal `json:"exit_price,omitempty"`
	ExitReason  ExitReason      `json:"exit_reason,omitempty"`
	RealizedPnL decimal.Decimal `json:"realized_pnl,omitempty"`
	RealizedPct decimal.Decimal `json:"realized_pnl_pct,omitempty"`
	HoldingBars int             `json:"holding_bars,omitempty"`
	FloatingPnL decimal.Decimal `json:"floating_pnl,omitempty"` // open orders only, vs final close
	FloatingPct decimal.Decimal `json:"floating_pnl_pct,omitempty"`
}

// Closed reports whether the order reached its terminal state.
func (o *VirtualOrder) Closed() bool {
	return o.Status == StatusClosed
}

// Win reports whether a closed order realized a positive P&L.
func (o *VirtualOrder) Win() bool {
	return o.Status == StatusClosed && o.RealizedPnL.IsPositive()
}
