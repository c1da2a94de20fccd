package indicator

import (
	"errors"
	"testing"

	"trendlab/internal/model"
)

func TestDirectionalIndex_SteadyUptrend(t *testing.T) {
	// Each bar steps up by exactly 1 with zero intrabar range, so per bar
	// +DM=1, −DM=0 and TR=|high−prevClose|=1. Every smoothed ratio is then
	// +DI=100, −DI=0, DX=100 and ADX locks at 100 once seeded.
	prices := []float64{1, 2, 3, 4, 5, 6}
	res, err := DirectionalIndex(prices, prices, prices, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Wilder seed lands at bar 2 (period=2 over bars 1..5).
	assertInvalid(t, "+DI", res.PlusDI, 1)
	for tt := 2; tt < 6; tt++ {
		pdi, ok := res.PlusDI.At(tt)
		if !ok {
			t.Fatalf("+DI[%d]: expected available", tt)
		}
		assertClose(t, "+DI", pdi, 100, 1e-9)

		mdi, _ := res.MinusDI.At(tt)
		assertClose(t, "-DI", mdi, 0, 1e-9)

		dx, ok := res.DX.At(tt)
		if !ok {
			t.Fatalf("DX[%d]: expected available", tt)
		}
		assertClose(t, "DX", dx, 100, 1e-9)
	}

	// ADX needs a second window of valid DX: first value at bar 3.
	assertInvalid(t, "ADX", res.ADX, 2)
	for tt := 3; tt < 6; tt++ {
		adx, ok := res.ADX.At(tt)
		if !ok {
			t.Fatalf("ADX[%d]: expected available", tt)
		}
		assertClose(t, "ADX", adx, 100, 1e-9)
	}
}

func TestDirectionalIndex_ConstantPricesDegrade(t *testing.T) {
	// Flat prices give zero True Range, so every ratio is degenerate. The
	// series stay unavailable end to end but the call itself succeeds.
	prices := []float64{5, 5, 5, 5, 5, 5}
	res, err := DirectionalIndex(prices, prices, prices, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for tt := 0; tt < 6; tt++ {
		assertInvalid(t, "+DI", res.PlusDI, tt)
		assertInvalid(t, "-DI", res.MinusDI, tt)
		assertInvalid(t, "DX", res.DX, tt)
		assertInvalid(t, "ADX", res.ADX, tt)
	}
}

func TestDirectionalIndex_ShortInputIsNotAnError(t *testing.T) {
	prices := []float64{1, 2, 3}
	res, err := DirectionalIndex(prices, prices, prices, 2)
	if err != nil {
		t.Fatalf("short input must degrade, not fail: %v", err)
	}
	if len(res.ADX) != 3 {
		t.Fatalf("series must keep input length, got %d", len(res.ADX))
	}
	for tt := 0; tt < 3; tt++ {
		assertInvalid(t, "ADX", res.ADX, tt)
	}
}

func TestDirectionalIndex_InvalidInput(t *testing.T) {
	_, err := DirectionalIndex([]float64{1, 2}, []float64{1}, []float64{1, 2}, 2)
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("length mismatch: expected ErrInvalidInput, got %v", err)
	}

	p := []float64{1, 2, 3, 4}
	_, err = DirectionalIndex(p, p, p, 0)
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("zero period: expected ErrInvalidInput, got %v", err)
	}
}

func TestWilder_SeedAndRecurrence(t *testing.T) {
	// period=4, vals=[1,2,3,4,8]: seed at idx 3 = 2.5, then
	// S[4] = 2.5 + (8-2.5)/4 = 3.875.
	s := wilder([]float64{1, 2, 3, 4, 8}, 4)

	assertInvalid(t, "wilder", s, 2)
	v, ok := s.At(3)
	if !ok {
		t.Fatal("wilder[3]: expected seed")
	}
	assertClose(t, "wilder seed", v, 2.5, 1e-12)

	v, _ = s.At(4)
	assertClose(t, "wilder step", v, 3.875, 1e-12)
}
