package indicator

import (
	"fmt"

	"trendlab/internal/model"
)

// Config holds the periods and thresholds of the composite computation.
// All parameters are explicit — no hidden construction-time state.
type Config struct {
	EMAPeriod     int // primary moving average
	SlowEMAPeriod int // secondary slower average used by compound rules
	VarWindow     int // EWMA variance decay window
	DMIPeriod     int // directional movement / ADX period
	FanBasePeriod int // inertia fan base horizon in bars

	// MinCandles gates the full composite result. The slow EMA plus its
	// warm-up dominates; production uses 180.
	MinCandles int

	Fan FanConfig
}

// DefaultConfig returns the production indicator parameters.
func DefaultConfig() Config {
	return Config{
		EMAPeriod:     60,
		SlowEMAPeriod: 120,
		VarWindow:     60,
		DMIPeriod:     14,
		FanBasePeriod: 30,
		MinCandles:    180,
		Fan:           DefaultFanConfig(),
	}
}

// Bundle is the full set of derived series for one candle slice. Every
// series has the same length as the input; prefixes are unavailable until
// each recurrence warms up.
type Bundle struct {
	Config Config

	EMA       Series
	Slope     Series // first difference of EMA
	SlowEMA   Series
	SlowSlope Series
	Deviation Series
	DevMean   Series
	DevStd    Series

	// DevPctile is the normal percentile (0..100) of the current deviation's
	// z-score against the EWMA mean/std. 50 means price sits exactly on its
	// recent average distance from the EMA.
	DevPctile Series

	// Static statistical band around the EMA.
	P95 Series
	P5  Series

	DMI DMIResult

	// Inertia fan per bar.
	FanMid   Series
	FanUpper Series
	FanLower Series
}

// Len returns the series length (== input candle count).
func (b *Bundle) Len() int { return len(b.EMA) }

// Compute derives the full indicator bundle from an ordered candle slice.
// Fails with ErrInsufficientData below cfg.MinCandles and ErrInvalidInput on
// malformed candles; the DMI sub-result degrades to unavailable series on
// short input rather than failing the whole bundle.
func Compute(candles []model.Candle, cfg Config) (*Bundle, error) {
	if len(candles) < cfg.MinCandles {
		return nil, fmt.Errorf("%w: composite needs %d candles, have %d",
			model.ErrInsufficientData, cfg.MinCandles, len(candles))
	}
	if err := model.ValidateCandles(candles); err != nil {
		return nil, err
	}

	n := len(candles)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i := range candles {
		closes[i] = candles[i].Close
		highs[i] = candles[i].High
		lows[i] = candles[i].Low
	}

	ema, err := MovingAverage(closes, cfg.EMAPeriod)
	if err != nil {
		return nil, err
	}
	slowEMA, err := MovingAverage(closes, cfg.SlowEMAPeriod)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Config:    cfg,
		EMA:       ema,
		Slope:     Slope(ema),
		SlowEMA:   slowEMA,
		SlowSlope: Slope(slowEMA),
		Deviation: Deviation(closes, ema),
	}
	b.DevMean, _, b.DevStd = WeightedVariance(b.Deviation, cfg.VarWindow)

	b.DevPctile = NewSeries(n)
	for t := 0; t < n; t++ {
		d, okD := b.Deviation.At(t)
		m, okM := b.DevMean.At(t)
		s, okS := b.DevStd.At(t)
		if !okD || !okM || !okS || s == 0 {
			continue
		}
		b.DevPctile[t] = Some(NormalPercentile((d - m) / s))
	}

	b.DMI, err = DirectionalIndex(highs, lows, closes, cfg.DMIPeriod)
	if err != nil {
		return nil, err
	}

	b.P95 = NewSeries(n)
	b.P5 = NewSeries(n)
	b.FanMid = NewSeries(n)
	b.FanUpper = NewSeries(n)
	b.FanLower = NewSeries(n)
	for t := 0; t < n; t++ {
		emaV, okEMA := b.EMA.At(t)
		sigma, okStd := b.DevStd.At(t)
		if !okEMA || !okStd {
			continue
		}
		p95, p5 := StaticThresholds(emaV, sigma)
		b.P95[t] = Some(p95)
		b.P5[t] = Some(p5)

		slope, okSlope := b.Slope.At(t)
		if !okSlope {
			continue
		}
		// ADX warms up late; treat it as zero trend strength until then,
		// which pins the horizon at the base period.
		adx, _ := b.DMI.ADX.At(t)
		fan := InertiaFan(emaV, slope, sigma, adx, cfg.FanBasePeriod, cfg.Fan)
		b.FanMid[t] = Some(fan.Mid)
		b.FanUpper[t] = Some(fan.Upper)
		b.FanLower[t] = Some(fan.Lower)
	}

	return b, nil
}
