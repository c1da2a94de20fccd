package indicator

import (
	"fmt"

	"trendlab/internal/model"
)

// MovingAverage computes an exponential moving average over prices.
//
// Smoothing factor k = 2/(period+1). The seed value is the arithmetic mean
// of the first `period` prices, placed at index period-1; earlier indices
// are unavailable. After the seed: MA[t] = k*price[t] + (1-k)*MA[t-1].
//
// Returns ErrInsufficientData when len(prices) < period.
func MovingAverage(prices []float64, period int) (Series, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: period %d must be positive", model.ErrInvalidInput, period)
	}
	if len(prices) < period {
		return nil, fmt.Errorf("%w: moving average needs %d prices, have %d",
			model.ErrInsufficientData, period, len(prices))
	}

	out := NewSeries(len(prices))
	k := 2.0 / float64(period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	prev := sum / float64(period)
	out[period-1] = Some(prev)

	for t := period; t < len(prices); t++ {
		prev = k*prices[t] + (1-k)*prev
		out[t] = Some(prev)
	}
	return out, nil
}

// Slope computes the first difference of a moving average between
// consecutive bars. An entry is available only when the MA is available at
// both t and t-1.
func Slope(ma Series) Series {
	out := NewSeries(len(ma))
	for t := 1; t < len(ma); t++ {
		cur, okCur := ma.At(t)
		prev, okPrev := ma.At(t - 1)
		if okCur && okPrev {
			out[t] = Some(cur - prev)
		}
	}
	return out
}

// Deviation computes the relative distance of price from its moving
// average: (price[t]-MA[t])/MA[t]. Entries where the MA is unavailable or
// zero are unavailable — the zero denominator is a degenerate computation,
// not an error.
func Deviation(prices []float64, ma Series) Series {
	n := len(prices)
	if len(ma) < n {
		n = len(ma)
	}
	out := NewSeries(len(prices))
	for t := 0; t < n; t++ {
		m, ok := ma.At(t)
		if !ok || m == 0 {
			continue
		}
		out[t] = Some((prices[t] - m) / m)
	}
	return out
}

// Project extends a moving average forward by a fixed horizon using its
// latest slope: ma + slope*horizonBars. Used by the trend-projection
// trigger rule.
func Project(ma, slope float64, horizonBars int) float64 {
	return ma + slope*float64(horizonBars)
}
