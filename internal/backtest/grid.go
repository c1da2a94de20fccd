package backtest

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trendlab/internal/indicator"
	"trendlab/internal/model"
)

// limitOrder is an unfilled resting buy placed for exactly one bar.
type limitOrder struct {
	price      decimal.Decimal
	placedAt   int // bar the order was placed on
	strategyID string
}

// RunGrid simulates the dual-limit entry mode: on every bar two limit buy
// orders rest at two moving-average levels (the fast and slow EMA). A limit
// fills on the next candle when its low ≤ the limit price, at the limit
// price. Unfilled limits are cancelled — and their capital released —
// before the next bar's orders are placed.
//
// Filled positions exit through the same stop/target/mean-reversion
// resolution as signal-entered orders.
func RunGrid(candles []model.Candle, bundle *indicator.Bundle, initialCapital decimal.Decimal, cfg Config) ([]model.VirtualOrder, model.RunStatistics, error) {
	if bundle == nil || bundle.Len() != len(candles) {
		return nil, model.RunStatistics{}, fmt.Errorf("%w: grid needs a bundle aligned with candles",
			model.ErrInvalidInput)
	}

	ledger := NewLedger(initialCapital)
	var orders []model.VirtualOrder
	var resting []limitOrder

	for t := 0; t < len(candles); t++ {
		c := &candles[t]

		// Resolve yesterday's resting orders against this candle, then
		// cancel whatever did not fill.
		for _, lo := range resting {
			if c.Low <= lo.price.InexactFloat64() {
				order := fillLimit(lo, c, t, cfg)
				resolveExits(&order, candles, bundle, nil, cfg)
				settle(&order, candles, ledger, cfg)
				orders = append(orders, order)
			} else {
				ledger.Release(cfg.Notional)
			}
		}
		resting = resting[:0]

		// Place this bar's pair of limits at the two EMA levels.
		fast, okF := bundle.EMA.At(t)
		slow, okS := bundle.SlowEMA.At(t)
		if !okF || !okS {
			continue
		}
		for _, lvl := range []struct {
			price float64
			id    string
		}{
			{fast, "grid_fast_ema"},
			{slow, "grid_slow_ema"},
		} {
			if !ledger.Reserve(cfg.Notional) {
				continue
			}
			resting = append(resting, limitOrder{
				price:      decimal.NewFromFloat(lvl.price),
				placedAt:   t,
				strategyID: lvl.id,
			})
		}
	}

	// End of range: cancel any still-resting limits.
	for range resting {
		ledger.Release(cfg.Notional)
	}

	stats := Reduce(orders, ledger)
	return orders, stats, nil
}

// fillLimit converts a resting limit into a holding virtual order filled at
// the limit price on candle t.
func fillLimit(lo limitOrder, c *model.Candle, t int, cfg Config) model.VirtualOrder {
	seed := fmt.Sprintf("%s|%d|%s|%s", c.Symbol, c.TS, lo.strategyID, lo.price)
	return model.VirtualOrder{
		ID:              uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String(),
		Symbol:          c.Symbol,
		EntryTime:       timeOf(c.TS),
		EntryIndex:      t,
		EntryPrice:      lo.price,
		Quantity:        cfg.Notional.Div(lo.price),
		Notional:        cfg.Notional,
		EntryStrategyID: lo.strategyID,
		Direction:       model.Long,
		Status:          model.StatusHolding,
	}
}
