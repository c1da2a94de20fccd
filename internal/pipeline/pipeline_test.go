package pipeline

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"trendlab/internal/model"
	"trendlab/internal/phase"
)

func waveCandles(n int) []model.Candle {
	candles := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		close := 100 + 8*math.Sin(float64(i)/15)
		candles[i] = model.Candle{
			Symbol: "TESTUSDT",
			TS:     int64(i) * 4 * 3600 * 1000,
			Open:   close - 0.3,
			High:   close + 1.5,
			Low:    close - 1.5,
			Close:  close,
			Volume: 500,
		}
	}
	return candles
}

func TestRunner_AlignedOutputs(t *testing.T) {
	candles := waveCandles(250)
	result, err := New(DefaultConfig()).Run(candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Bundle.Len() != 250 {
		t.Errorf("bundle length: %d", result.Bundle.Len())
	}
	if len(result.Phases) != 250 {
		t.Errorf("phases length: %d", len(result.Phases))
	}
	for _, sig := range result.Signals {
		if sig.CandleIndex < 0 || sig.CandleIndex >= 250 {
			t.Fatalf("signal index out of range: %d", sig.CandleIndex)
		}
		if sig.TS != candles[sig.CandleIndex].TS {
			t.Fatalf("signal ts %d does not match its candle", sig.TS)
		}
		if len(sig.TriggeredIDs()) == 0 {
			t.Fatal("every emitted signal must have at least one trigger")
		}
	}
}

func TestRunner_Deterministic(t *testing.T) {
	candles := waveCandles(250)
	runner := New(DefaultConfig())

	marshal := func() []byte {
		result, err := runner.Run(candles)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		blob, err := json.Marshal(struct {
			Phases  []phase.Label
			Signals []model.Signal
		}{result.Phases, result.Signals})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return blob
	}

	if string(marshal()) != string(marshal()) {
		t.Fatal("repeated runs must be identical")
	}
}

func TestRunner_InsufficientData(t *testing.T) {
	_, err := New(DefaultConfig()).Run(waveCandles(50))
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRunner_UnknownStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategies = []string{"does_not_exist"}
	_, err := New(cfg).Run(waveCandles(250))
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
