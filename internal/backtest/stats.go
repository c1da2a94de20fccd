package backtest

import (
	"sort"

	"github.com/shopspring/decimal"

	"trendlab/internal/model"
)

// Reduce aggregates run statistics from a finished order set. It is a pure
// reduction: calling it twice over the same orders yields a bit-identical
// record, and an empty order set yields well-formed zeros — never NaN.
func Reduce(orders []model.VirtualOrder, ledger *Ledger) model.RunStatistics {
	stats := model.RunStatistics{
		TotalOrders:  len(orders),
		FinalCapital: ledger.Initial(),
	}

	var sumPct, sumBars decimal.Decimal
	for i := range orders {
		o := &orders[i]
		if !o.Closed() {
			stats.OpenOrders++
			stats.TotalFloatingPnL = stats.TotalFloatingPnL.Add(o.FloatingPnL)
			continue
		}
		stats.ClosedOrders++
		if o.Win() {
			stats.Wins++
		} else {
			stats.Losses++
		}
		stats.TotalRealizedPnL = stats.TotalRealizedPnL.Add(o.RealizedPnL)
		sumPct = sumPct.Add(o.RealizedPct)
		sumBars = sumBars.Add(decimal.NewFromInt(int64(o.HoldingBars)))
	}

	if stats.ClosedOrders > 0 {
		closed := decimal.NewFromInt(int64(stats.ClosedOrders))
		stats.WinRatePct = decimal.NewFromInt(int64(stats.Wins)).Div(closed).Mul(hundred)
		stats.AvgRealizedPct = sumPct.Div(closed)
		stats.AvgHoldingBars = sumBars.Div(closed)
	}

	stats.MaxDrawdownPct = maxDrawdown(orders, ledger.Initial())
	stats.FinalCapital = ledger.Initial().Add(stats.TotalRealizedPnL)
	return stats
}

// maxDrawdown walks the realized equity curve in exit order and returns the
// worst peak-to-trough decline as a percentage of the peak.
func maxDrawdown(orders []model.VirtualOrder, initial decimal.Decimal) decimal.Decimal {
	closed := make([]*model.VirtualOrder, 0, len(orders))
	for i := range orders {
		if orders[i].Closed() {
			closed = append(closed, &orders[i])
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ExitIndex < closed[j].ExitIndex
	})

	equity := initial
	peak := initial
	worst := decimal.Zero
	for _, o := range closed {
		equity = equity.Add(o.RealizedPnL)
		if equity.GreaterThan(peak) {
			peak = equity
			continue
		}
		if peak.IsZero() {
			continue
		}
		dd := peak.Sub(equity).Div(peak).Mul(hundred)
		if dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst
}
