package indicator

import "math"

// zP95 is the one-sided z value for the 95th percentile of a normal
// distribution, shared by the static thresholds and the fan spread.
const zP95 = 1.645

// FanConfig holds the tunable constants of the inertia fan.
type FanConfig struct {
	// FlatSlopeEpsilon scales the flatness cutoff: the fan degenerates to
	// the static band when |slope| < EMA*FlatSlopeEpsilon. Tuned constant
	// carried over from production; override with care.
	FlatSlopeEpsilon float64
}

// DefaultFanConfig returns the production fan constants.
func DefaultFanConfig() FanConfig {
	return FanConfig{FlatSlopeEpsilon: 1e-4}
}

// Fan is a forward-projected price band for one bar: a trend-adjusted
// midpoint with a volatility spread, or the flat static band when the slope
// is negligible.
type Fan struct {
	Mid   float64 `json:"mid"`
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
	Flat  bool    `json:"flat"` // true when the slope was below the flatness cutoff
}

// StaticThresholds returns the flat statistical band around the EMA:
// P95 = EMA*(1+1.645σ), P5 = EMA*(1−1.645σ).
func StaticThresholds(ema, sigma float64) (p95, p5 float64) {
	return ema * (1 + zP95*sigma), ema * (1 - zP95*sigma)
}

// InertiaFan projects the trend forward over a dynamic horizon.
//
// Horizon T = clamp(basePeriod*(1+adx/100), basePeriod, 2*basePeriod): a
// stronger trend (higher ADX) looks further ahead, capped at double the
// base period.
//
// When the slope is flat (|slope| < ema*FlatSlopeEpsilon) the fan
// degenerates to {mid=ema, upper=P95, lower=P5}. Otherwise the midpoint is
// the static threshold in the slope's direction plus slope*T, and the
// spread is 1.645·σ·|mid|·sqrt(T) around that midpoint.
func InertiaFan(ema, slope, sigma, adx float64, basePeriod int, cfg FanConfig) Fan {
	p95, p5 := StaticThresholds(ema, sigma)

	if math.Abs(slope) < math.Abs(ema)*cfg.FlatSlopeEpsilon {
		return Fan{Mid: ema, Upper: p95, Lower: p5, Flat: true}
	}

	t := float64(basePeriod) * (1 + adx/100)
	if t < float64(basePeriod) {
		t = float64(basePeriod)
	}
	if t > 2*float64(basePeriod) {
		t = 2 * float64(basePeriod)
	}

	var mid float64
	if slope > 0 {
		mid = p95 + slope*t
	} else {
		mid = p5 + slope*t
	}
	spread := zP95 * sigma * math.Abs(mid) * math.Sqrt(t)
	return Fan{Mid: mid, Upper: mid + spread, Lower: mid - spread}
}
