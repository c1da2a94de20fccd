package backtest

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trendlab/internal/indicator"
	"trendlab/internal/model"
	"trendlab/internal/phase"
)

// Run simulates one virtual order per signal against the forward candles
// and returns the finished order set with its aggregate statistics.
//
// Exit conditions are evaluated per candle in fixed priority order:
//
//  1. a pending phase exit from the previous candle fills at this open
//  2. hard stop-loss, filled at the stop price
//  3. hard take-profit, filled at the target price
//  4. mean reversion: the EMA re-entering the candle range, filled at the EMA
//  5. phase exit: marked on this candle, filled at the NEXT candle's open
//
// Orders still holding at the end of the range report floating P&L against
// the final close. Run never fails on valid domain data; only structural
// violations (a signal referencing an out-of-range candle index, mismatched
// series lengths) return ErrInvalidInput.
func Run(signals []model.Signal, candles []model.Candle, bundle *indicator.Bundle, phases []phase.Label, initialCapital decimal.Decimal, cfg Config) ([]model.VirtualOrder, model.RunStatistics, error) {
	if bundle != nil && bundle.Len() != len(candles) {
		return nil, model.RunStatistics{}, fmt.Errorf("%w: bundle length %d vs %d candles",
			model.ErrInvalidInput, bundle.Len(), len(candles))
	}
	if len(phases) != 0 && len(phases) != len(candles) {
		return nil, model.RunStatistics{}, fmt.Errorf("%w: phases length %d vs %d candles",
			model.ErrInvalidInput, len(phases), len(candles))
	}

	ledger := NewLedger(initialCapital)
	orders := make([]model.VirtualOrder, 0, len(signals))

	for _, sig := range signals {
		if sig.CandleIndex < 0 || sig.CandleIndex >= len(candles) {
			return nil, model.RunStatistics{}, fmt.Errorf("%w: signal candle index %d out of range [0,%d)",
				model.ErrInvalidInput, sig.CandleIndex, len(candles))
		}
		if !ledger.Reserve(cfg.Notional) {
			log.Printf("[backtest] skipping %s signal at index %d: capital exhausted (available=%s)",
				sig.Direction, sig.CandleIndex, ledger.Available())
			continue
		}

		order := openOrder(sig, cfg)
		resolveExits(&order, candles, bundle, phases, cfg)
		settle(&order, candles, ledger, cfg)
		orders = append(orders, order)
	}

	stats := Reduce(orders, ledger)
	return orders, stats, nil
}

// openOrder creates the virtual position for one signal. The id is derived
// deterministically from the signal so re-running a simulation reproduces
// it bit for bit.
func openOrder(sig model.Signal, cfg Config) model.VirtualOrder {
	entry := decimal.NewFromFloat(sig.Price)
	strategyID := sig.FirstTrigger().StrategyID
	seed := fmt.Sprintf("%s|%d|%s|%s", sig.Symbol, sig.TS, sig.Direction, strategyID)
	return model.VirtualOrder{
		ID:              uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String(),
		Symbol:          sig.Symbol,
		EntryTime:       timeOf(sig.TS),
		EntryIndex:      sig.CandleIndex,
		EntryPrice:      entry,
		Quantity:        cfg.Notional.Div(entry),
		Notional:        cfg.Notional,
		EntryStrategyID: strategyID,
		Direction:       sig.Direction,
		Status:          model.StatusHolding,
	}
}

// resolveExits scans forward candles strictly after the entry candle and
// closes the order on the first candle satisfying an exit condition.
func resolveExits(order *model.VirtualOrder, candles []model.Candle, bundle *indicator.Bundle, phases []phase.Label, cfg Config) {
	short := order.Direction == model.Short
	stop := stopPrice(order.EntryPrice, cfg.StopLossPct, short)
	target := targetPrice(order.EntryPrice, cfg.TakeProfitPct, short)
	stopF := stop.InexactFloat64()
	targetF := target.InexactFloat64()

	for j := order.EntryIndex + 1; j < len(candles); j++ {
		c := &candles[j]

		if order.PendingExit {
			closeOrder(order, j, c.TS, decimal.NewFromFloat(c.Open), model.ExitPhaseChange)
			return
		}

		if (!short && c.Low <= stopF) || (short && c.High >= stopF) {
			closeOrder(order, j, c.TS, stop, model.ExitStopLoss)
			return
		}
		if (!short && c.High >= targetF) || (short && c.Low <= targetF) {
			closeOrder(order, j, c.TS, target, model.ExitTakeProfit)
			return
		}

		if cfg.MeanReversionExit && bundle != nil {
			if ema, ok := bundle.EMA.At(j); ok && c.Low <= ema && ema <= c.High {
				closeOrder(order, j, c.TS, decimal.NewFromFloat(ema), model.ExitMeanReversion)
				return
			}
		}

		if cfg.PhaseExit && len(phases) > 0 && bundle != nil && phaseExitConfirmed(order, j, bundle, phases) {
			// Mark only: the fill must wait for the next candle's open so
			// the decision never uses this candle's own outcome.
			order.PendingExit = true
		}
	}
}

// phaseExitConfirmed reports whether the phase has left the order's
// favorable side and the fast/slow EMA cross agrees.
func phaseExitConfirmed(order *model.VirtualOrder, j int, bundle *indicator.Bundle, phases []phase.Label) bool {
	fast, okF := bundle.EMA.At(j)
	slow, okS := bundle.SlowEMA.At(j)
	if !okF || !okS {
		return false
	}
	if order.Direction == model.Long {
		return phases[j].Bear() && fast < slow
	}
	return phases[j].Bull() && fast > slow
}

// closeOrder transitions Holding → Closed exactly once and fixes the
// realized P&L.
func closeOrder(order *model.VirtualOrder, exitIndex int, exitTS int64, exitPrice decimal.Decimal, reason model.ExitReason) {
	order.Status = model.StatusClosed
	order.PendingExit = false
	order.ExitIndex = exitIndex
	order.ExitTime = timeOf(exitTS)
	order.ExitPrice = exitPrice
	order.ExitReason = reason
	order.HoldingBars = exitIndex - order.EntryIndex

	diff := exitPrice.Sub(order.EntryPrice)
	if order.Direction == model.Short {
		diff = diff.Neg()
	}
	order.RealizedPnL = diff.Mul(order.Quantity)
	order.RealizedPct = diff.Div(order.EntryPrice).Mul(hundred)
}

// timeOf converts a candle timestamp (Unix ms) to UTC time.
func timeOf(tsMillis int64) time.Time {
	return time.UnixMilli(tsMillis).UTC()
}

// settle books the order outcome against the ledger. Open orders report
// floating P&L against the final candle's close and keep their notional
// reserved.
func settle(order *model.VirtualOrder, candles []model.Candle, ledger *Ledger, cfg Config) {
	if order.Closed() {
		ledger.Settle(cfg.Notional, order.RealizedPnL)
		return
	}
	if len(candles) == 0 {
		return
	}
	final := decimal.NewFromFloat(candles[len(candles)-1].Close)
	diff := final.Sub(order.EntryPrice)
	if order.Direction == model.Short {
		diff = diff.Neg()
	}
	order.FloatingPnL = diff.Mul(order.Quantity)
	order.FloatingPct = diff.Div(order.EntryPrice).Mul(hundred)
}
