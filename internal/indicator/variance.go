package indicator

import "math"

// WeightedVariance computes an exponentially-weighted running mean, variance
// and standard deviation of a deviation series, with decay alpha =
// 2/(window+1).
//
// The recurrence seeds at the first available input: mean = that value,
// variance = 0. After the seed:
//
//	mean[t]     = alpha*d[t] + (1-alpha)*mean[t-1]
//	variance[t] = alpha*(d[t]-mean[t])^2 + (1-alpha)*variance[t-1]
//
// The variance term uses the already-updated mean[t], not mean[t-1].
// Where the input at t is unavailable the previous mean/variance carry
// forward unchanged instead of erroring out the series.
func WeightedVariance(dev Series, window int) (mean, variance, std Series) {
	n := len(dev)
	mean = NewSeries(n)
	variance = NewSeries(n)
	std = NewSeries(n)
	if window <= 0 || n == 0 {
		return mean, variance, std
	}

	alpha := 2.0 / float64(window+1)
	seeded := false
	var m, v float64

	for t := 0; t < n; t++ {
		d, ok := dev.At(t)
		if !ok {
			if seeded {
				// Hold previous state on an isolated gap.
				mean[t] = Some(m)
				variance[t] = Some(v)
				std[t] = Some(math.Sqrt(v))
			}
			continue
		}
		if !seeded {
			m, v = d, 0
			seeded = true
		} else {
			m = alpha*d + (1-alpha)*m
			v = alpha*(d-m)*(d-m) + (1-alpha)*v
		}
		mean[t] = Some(m)
		variance[t] = Some(v)
		std[t] = Some(math.Sqrt(v))
	}
	return mean, variance, std
}
