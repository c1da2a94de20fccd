package indicator

import "math"

// normalClampZ bounds z-score inputs before CDF conversion so extreme
// outliers cannot blow up the tails.
const normalClampZ = 10.0

// NormalPercentile converts a z-score to its percentile (0..100) under the
// standard normal distribution, using the closed-form CDF via the error
// function. Input is clamped to [-10, 10].
func NormalPercentile(z float64) float64 {
	if z > normalClampZ {
		z = normalClampZ
	}
	if z < -normalClampZ {
		z = -normalClampZ
	}
	cdf := 0.5 * (1 + math.Erf(z/math.Sqrt2))
	return cdf * 100
}
