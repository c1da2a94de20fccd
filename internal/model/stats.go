package model

import "github.com/shopspring/decimal"

// RunStatistics is the aggregate over all virtual orders of one simulation
// run. It is a pure reduction over the order set — recomputed, never
// maintained incrementally — so re-running the same simulation yields a
// bit-identical record.
type RunStatistics struct {
	TotalOrders  int `json:"total_orders"`
	ClosedOrders int `json:"closed_orders"`
	OpenOrders   int `json:"open_orders"`
	Wins         int `json:"wins"`
	Losses       int `json:"losses"`

	// WinRatePct = closed wins / closed total × 100. Zero (not NaN) for an
	// empty closed set.
	WinRatePct decimal.Decimal `json:"win_rate_pct"`

	TotalRealizedPnL decimal.Decimal `json:"total_realized_pnl"`
	AvgRealizedPct   decimal.Decimal `json:"avg_realized_pnl_pct"`
	TotalFloatingPnL decimal.Decimal `json:"total_floating_pnl"`

	// AvgHoldingBars is the mean of (exit index − entry index) over closed
	// orders.
	AvgHoldingBars decimal.Decimal `json:"avg_holding_bars"`

	// MaxDrawdownPct is the worst peak-to-trough decline of the realized
	// equity curve, as a percentage of the peak. Zero when no order lost.
	MaxDrawdownPct decimal.Decimal `json:"max_drawdown_pct"`

	FinalCapital decimal.Decimal `json:"final_capital"`
}
