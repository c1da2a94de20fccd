package indicator

import (
	"fmt"
	"math"

	"trendlab/internal/model"
)

// DMIResult bundles the directional-movement series computed by
// DirectionalIndex. All series are aligned 1:1 with the input bars.
type DMIResult struct {
	PlusDI  Series
	MinusDI Series
	DX      Series
	ADX     Series
}

// DirectionalIndex computes +DI, −DI, DX and ADX using Wilder smoothing.
//
// Per bar: +DM is the up-move (high[t]-high[t-1]) and −DM the down-move
// (low[t-1]-low[t]); the larger of the two is kept and the smaller zeroed,
// ties zero both. True Range is max(high-low, |high-prevClose|,
// |low-prevClose|). +DM, −DM and TR are each Wilder-smoothed (seed =
// arithmetic mean of the first `period` values, then
// S[t] = S[t-1] + (x[t]-S[t-1])/period).
//
// DI = 100*smoothed(DM)/smoothed(TR); DX = 100*|+DI−−DI|/(+DI+−DI); ADX is
// the Wilder-smoothed DX. Zero denominators degrade to unavailable entries.
//
// Fewer than 2*period bars returns all-unavailable series with a nil error:
// the caller decides its own degradation policy.
func DirectionalIndex(high, low, close []float64, period int) (DMIResult, error) {
	n := len(high)
	if len(low) != n || len(close) != n {
		return DMIResult{}, fmt.Errorf("%w: high/low/close lengths %d/%d/%d differ",
			model.ErrInvalidInput, len(high), len(low), len(close))
	}
	if period <= 0 {
		return DMIResult{}, fmt.Errorf("%w: period %d must be positive", model.ErrInvalidInput, period)
	}

	res := DMIResult{
		PlusDI:  NewSeries(n),
		MinusDI: NewSeries(n),
		DX:      NewSeries(n),
		ADX:     NewSeries(n),
	}
	if n < 2*period {
		return res, nil
	}

	// Per-bar raw values; index 0 has no previous bar.
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for t := 1; t < n; t++ {
		up := high[t] - high[t-1]
		down := low[t-1] - low[t]
		if up > down && up > 0 {
			plusDM[t] = up
		} else if down > up && down > 0 {
			minusDM[t] = down
		}
		tr[t] = math.Max(high[t]-low[t],
			math.Max(math.Abs(high[t]-close[t-1]), math.Abs(low[t]-close[t-1])))
	}

	sPlus := wilder(plusDM[1:], period)
	sMinus := wilder(minusDM[1:], period)
	sTR := wilder(tr[1:], period)

	dx := make([]float64, n)
	dxValid := make([]bool, n)
	for i := range sPlus {
		t := i + 1 // shift back to bar index
		str, ok := sTR.At(i)
		if !ok || str == 0 {
			continue
		}
		sp, _ := sPlus.At(i)
		sm, _ := sMinus.At(i)
		pdi := 100 * sp / str
		mdi := 100 * sm / str
		res.PlusDI[t] = Some(pdi)
		res.MinusDI[t] = Some(mdi)
		if pdi+mdi == 0 {
			continue
		}
		d := 100 * math.Abs(pdi-mdi) / (pdi + mdi)
		res.DX[t] = Some(d)
		dx[t] = d
		dxValid[t] = true
	}

	// ADX: Wilder-smooth the DX values, seeding at the first window of
	// `period` valid DX entries.
	adxSeedEnd, count, sum := -1, 0, 0.0
	for t := 0; t < n; t++ {
		if !dxValid[t] {
			continue
		}
		sum += dx[t]
		count++
		if count == period {
			adxSeedEnd = t
			break
		}
	}
	if adxSeedEnd >= 0 {
		prev := sum / float64(period)
		res.ADX[adxSeedEnd] = Some(prev)
		for t := adxSeedEnd + 1; t < n; t++ {
			if !dxValid[t] {
				res.ADX[t] = Some(prev) // hold on gaps
				continue
			}
			prev = prev + (dx[t]-prev)/float64(period)
			res.ADX[t] = Some(prev)
		}
	}
	return res, nil
}

// wilder applies Wilder smoothing over raw values: seed = arithmetic mean of
// the first `period` entries placed at index period-1, then
// S[t] = S[t-1] + (x[t]-S[t-1])/period.
func wilder(vals []float64, period int) Series {
	out := NewSeries(len(vals))
	if len(vals) < period {
		return out
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += vals[i]
	}
	prev := sum / float64(period)
	out[period-1] = Some(prev)
	for t := period; t < len(vals); t++ {
		prev = prev + (vals[t]-prev)/float64(period)
		out[t] = Some(prev)
	}
	return out
}
