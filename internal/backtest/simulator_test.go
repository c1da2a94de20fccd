package backtest

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"trendlab/internal/indicator"
	"trendlab/internal/model"
	"trendlab/internal/phase"
)

func testConfig() Config {
	return Config{
		Notional:      decimal.NewFromInt(1000),
		StopLossPct:   decimal.NewFromInt(5),
		TakeProfitPct: decimal.NewFromInt(10),
	}
}

func longSignal(idx int, price float64) model.Signal {
	return model.Signal{
		Symbol:      "TESTUSDT",
		TS:          int64(idx) * 14400000,
		CandleIndex: idx,
		Direction:   model.Long,
		Price:       price,
		Triggers:    []model.StrategyVerdict{{StrategyID: "unit_rule", Triggered: true}},
	}
}

func bar(idx int, open, high, low, close float64) model.Candle {
	return model.Candle{
		Symbol: "TESTUSDT",
		TS:     int64(idx) * 14400000,
		Open:   open, High: high, Low: low, Close: close,
		Volume: 1,
	}
}

// emaBundle builds a bundle whose EMA/SlowEMA hold the given per-bar levels;
// NaN entries stay unavailable.
func emaBundle(fast, slow []indicator.Value) *indicator.Bundle {
	return &indicator.Bundle{EMA: fast, SlowEMA: slow}
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: got %s, want %s", label, got, want)
	}
}

// ────────────────────────────────────────────────────────────
// Exit resolution
// ────────────────────────────────────────────────────────────

func TestRun_StopLossFillsAtStopPrice(t *testing.T) {
	// Entry 100, stop 5% → 95. The exit candle trades down to 94, and the
	// fill happens at the stop level, not the low.
	candles := []model.Candle{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 101, 94, 96),
	}
	orders, stats, err := Run([]model.Signal{longSignal(0, 100)}, candles, nil, nil,
		decimal.NewFromInt(10000), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}

	o := orders[0]
	if !o.Closed() || o.ExitReason != model.ExitStopLoss {
		t.Fatalf("expected stop-loss close, got status=%s reason=%s", o.Status, o.ExitReason)
	}
	assertDecimal(t, "exit price", o.ExitPrice, "95")
	assertDecimal(t, "quantity", o.Quantity, "10")
	assertDecimal(t, "realized pnl", o.RealizedPnL, "-50")
	assertDecimal(t, "realized pct", o.RealizedPct, "-5")
	if o.ExitIndex != 1 || o.HoldingBars != 1 {
		t.Errorf("exit index=%d holding=%d", o.ExitIndex, o.HoldingBars)
	}

	assertDecimal(t, "final capital", stats.FinalCapital, "9950")
	if stats.Losses != 1 || stats.Wins != 0 {
		t.Errorf("wins=%d losses=%d", stats.Wins, stats.Losses)
	}
}

func TestRun_StopBeatsTakeProfitOnSameCandle(t *testing.T) {
	// The exit candle spans both levels; the stop wins by priority.
	candles := []model.Candle{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 112, 94, 105),
	}
	orders, _, err := Run([]model.Signal{longSignal(0, 100)}, candles, nil, nil,
		decimal.NewFromInt(10000), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orders[0].ExitReason != model.ExitStopLoss {
		t.Fatalf("priority violated: got %s", orders[0].ExitReason)
	}
}

func TestRun_TakeProfitFillsAtTarget(t *testing.T) {
	candles := []model.Candle{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 111, 96, 108),
	}
	orders, stats, err := Run([]model.Signal{longSignal(0, 100)}, candles, nil, nil,
		decimal.NewFromInt(10000), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := orders[0]
	if o.ExitReason != model.ExitTakeProfit {
		t.Fatalf("expected take-profit, got %s", o.ExitReason)
	}
	assertDecimal(t, "exit price", o.ExitPrice, "110")
	assertDecimal(t, "realized pnl", o.RealizedPnL, "100")
	if !o.Win() {
		t.Error("take-profit must count as a win")
	}
	assertDecimal(t, "win rate", stats.WinRatePct, "100")
}

func TestRun_MeanReversionFillsAtEMA(t *testing.T) {
	// Neither hard level is reached; the EMA re-enters the candle range and
	// closes the order at the EMA level.
	candles := []model.Candle{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 103, 97, 102),
	}
	bundle := emaBundle(
		indicator.Series{indicator.None(), indicator.Some(101)},
		indicator.NewSeries(2),
	)
	cfg := testConfig()
	cfg.MeanReversionExit = true

	orders, _, err := Run([]model.Signal{longSignal(0, 100)}, candles, bundle, nil,
		decimal.NewFromInt(10000), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := orders[0]
	if o.ExitReason != model.ExitMeanReversion {
		t.Fatalf("expected mean reversion, got %s", o.ExitReason)
	}
	assertDecimal(t, "exit price", o.ExitPrice, "101")
	assertDecimal(t, "realized pnl", o.RealizedPnL, "10")
}

func TestRun_PhaseExitFillsAtNextOpen(t *testing.T) {
	// The phase turns bearish with the fast EMA under the slow on bar 1; the
	// order is only marked there and fills at bar 2's open.
	candles := []model.Candle{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 101, 99.5, 100.5),
		bar(2, 102, 103, 101, 101.5),
	}
	bundle := emaBundle(
		indicator.Series{indicator.None(), indicator.Some(98), indicator.Some(98)},
		indicator.Series{indicator.None(), indicator.Some(99), indicator.Some(99)},
	)
	phases := []phase.Label{phase.Consolidation, phase.BearWarning, phase.Consolidation}
	cfg := testConfig()
	cfg.PhaseExit = true

	orders, _, err := Run([]model.Signal{longSignal(0, 100)}, candles, bundle, phases,
		decimal.NewFromInt(10000), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := orders[0]
	if o.ExitReason != model.ExitPhaseChange {
		t.Fatalf("expected phase-change exit, got %s", o.ExitReason)
	}
	if o.ExitIndex != 2 {
		t.Fatalf("fill must land on the bar after the mark, got index %d", o.ExitIndex)
	}
	assertDecimal(t, "exit price", o.ExitPrice, "102")
	assertDecimal(t, "realized pnl", o.RealizedPnL, "20")
	if o.PendingExit {
		t.Error("pending flag must clear on fill")
	}
}

func TestRun_ShortSideIsSymmetric(t *testing.T) {
	// Short entry 100: stop at 105 on the way up, target at 90 below.
	sig := longSignal(0, 100)
	sig.Direction = model.Short
	candles := []model.Candle{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 106, 99, 104),
	}
	orders, _, err := Run([]model.Signal{sig}, candles, nil, nil,
		decimal.NewFromInt(10000), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := orders[0]
	if o.ExitReason != model.ExitStopLoss {
		t.Fatalf("expected short stop, got %s", o.ExitReason)
	}
	assertDecimal(t, "exit price", o.ExitPrice, "105")
	assertDecimal(t, "realized pnl", o.RealizedPnL, "-50")
}

func TestRun_OpenOrderReportsFloatingPnL(t *testing.T) {
	candles := []model.Candle{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 105, 98, 104),
	}
	orders, stats, err := Run([]model.Signal{longSignal(0, 100)}, candles, nil, nil,
		decimal.NewFromInt(10000), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := orders[0]
	if o.Closed() {
		t.Fatalf("no exit level was touched, order must stay open: %s", o.ExitReason)
	}
	assertDecimal(t, "floating pnl", o.FloatingPnL, "40")
	assertDecimal(t, "floating pct", o.FloatingPct, "4")
	if stats.OpenOrders != 1 || stats.ClosedOrders != 0 {
		t.Errorf("open=%d closed=%d", stats.OpenOrders, stats.ClosedOrders)
	}
	assertDecimal(t, "total floating", stats.TotalFloatingPnL, "40")
	// Realized capital is untouched by open positions.
	assertDecimal(t, "final capital", stats.FinalCapital, "10000")
}

// ────────────────────────────────────────────────────────────
// Capital and structure
// ────────────────────────────────────────────────────────────

func TestRun_SkipsSignalsWhenCapitalExhausted(t *testing.T) {
	candles := []model.Candle{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 100.5, 99.5, 100),
	}
	signals := []model.Signal{longSignal(0, 100), longSignal(1, 100)}

	orders, stats, err := Run(signals, candles, nil, nil,
		decimal.NewFromInt(1500), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || stats.TotalOrders != 1 {
		t.Fatalf("second signal must be skipped, got %d orders", len(orders))
	}
}

func TestRun_OutOfRangeSignalIndex(t *testing.T) {
	candles := []model.Candle{bar(0, 100, 100, 100, 100)}
	_, _, err := Run([]model.Signal{longSignal(5, 100)}, candles, nil, nil,
		decimal.NewFromInt(10000), testConfig())
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRun_EmptySignals(t *testing.T) {
	candles := []model.Candle{bar(0, 100, 100, 100, 100)}
	orders, stats, err := Run(nil, candles, nil, nil, decimal.NewFromInt(10000), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 0 || stats.TotalOrders != 0 {
		t.Fatal("no signals must produce no orders")
	}
	assertDecimal(t, "final capital", stats.FinalCapital, "10000")
	assertDecimal(t, "win rate", stats.WinRatePct, "0")
}

func TestRun_Deterministic(t *testing.T) {
	// Same input twice must serialize bit-identically, ids included.
	candles := []model.Candle{
		bar(0, 100, 100, 100, 100),
		bar(1, 100, 111, 96, 108),
		bar(2, 108, 112, 94, 95),
	}
	signals := []model.Signal{longSignal(0, 100), longSignal(1, 108)}

	run := func() []byte {
		orders, stats, err := Run(signals, candles, nil, nil,
			decimal.NewFromInt(10000), testConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		blob, err := json.Marshal(struct {
			Orders []model.VirtualOrder
			Stats  model.RunStatistics
		}{orders, stats})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return blob
	}

	a, b := run(), run()
	if string(a) != string(b) {
		t.Fatal("repeated runs must be bit-identical")
	}
}
