package phase

import (
	"fmt"

	"trendlab/internal/indicator"
	"trendlab/internal/model"
)

// CycleInfo summarizes the currently open phase run: the trailing maximal
// block of same-side (bull or bear) labels. It is recomputed on demand from
// the label sequence, never maintained incrementally. Nil when the latest
// label is Consolidation.
type CycleInfo struct {
	Label         Label   `json:"label"` // label at the end of the run
	StartIndex    int     `json:"start_index"`
	Bars          int     `json:"bars"`
	DurationHours float64 `json:"duration_hours"`
	ExtremeSlope  float64 `json:"extreme_slope"` // scaled; max for bull runs, min for bear
	ExtremePrice  float64 `json:"extreme_price"` // high-water close for bull, low-water for bear
}

// fsm is the per-step transition state. The held state survives invalid
// slope inputs; only the emitted label degrades to Consolidation.
type fsm struct {
	cfg       Config
	state     Label
	prevSlope float64
	hasPrev   bool
	runMax    float64
	runMin    float64
}

func newFSM(cfg Config) *fsm {
	return &fsm{cfg: cfg, state: Consolidation}
}

// step consumes one scaled slope value and returns the label for this bar.
// valid=false emits Consolidation without mutating any held state.
func (f *fsm) step(slope float64, valid bool) Label {
	if !valid {
		return Consolidation
	}

	increasing := f.hasPrev && slope > f.prevSlope
	decreasing := f.hasPrev && slope < f.prevSlope
	f.prevSlope = slope
	f.hasPrev = true

	switch f.state {
	case Consolidation:
		if slope > f.cfg.BullWarn && increasing {
			f.state = BullWarning
			f.runMax = slope
		} else if slope < f.cfg.BearWarn && decreasing {
			f.state = BearWarning
			f.runMin = slope
		}

	case BullWarning:
		if slope > f.runMax {
			f.runMax = slope
		}
		if slope > f.cfg.BullStrong {
			f.state = BullStrong
		} else if slope <= f.cfg.CycleEnd {
			f.state = Consolidation
		}

	case BullStrong:
		if slope > f.runMax {
			f.runMax = slope
		}
		if slope <= f.cfg.CycleEnd {
			f.state = Consolidation
		}

	case BearWarning:
		if slope < f.runMin {
			f.runMin = slope
		}
		if slope < f.cfg.BearStrong {
			f.state = BearStrong
		} else if slope >= f.cfg.CycleEnd {
			f.state = Consolidation
		}

	case BearStrong:
		if slope < f.runMin {
			f.runMin = slope
		}
		if slope >= f.cfg.CycleEnd {
			f.state = Consolidation
		}
	}

	return f.state
}

// Classify runs the FSM over a full slope series and returns one label per
// bar plus the open-cycle summary. timestamps and prices must align 1:1
// with slopes; barHours is the bar duration used for cycle timing.
//
// Fails only with ErrInvalidInput on a length mismatch — never partially.
func Classify(slopes indicator.Series, timestamps []int64, prices []float64, barHours float64, cfg Config) ([]Label, *CycleInfo, error) {
	n := len(slopes)
	if len(timestamps) != n || len(prices) != n {
		return nil, nil, fmt.Errorf("%w: slopes/timestamps/prices lengths %d/%d/%d differ",
			model.ErrInvalidInput, n, len(timestamps), len(prices))
	}

	labels := make([]Label, n)
	f := newFSM(cfg)
	for t := 0; t < n; t++ {
		v, ok := slopes.At(t)
		labels[t] = f.step(v*cfg.Scale, ok)
	}

	return labels, openCycle(labels, slopes, prices, barHours, cfg), nil
}

// openCycle derives CycleInfo for the trailing same-side run, or nil when
// the latest label is Consolidation (or there are no labels).
func openCycle(labels []Label, slopes indicator.Series, prices []float64, barHours float64, cfg Config) *CycleInfo {
	n := len(labels)
	if n == 0 || labels[n-1] == Consolidation {
		return nil
	}

	last := labels[n-1]
	bull := last.Bull()
	start := n - 1
	for start > 0 {
		prev := labels[start-1]
		if (bull && prev.Bull()) || (!bull && prev.Bear()) {
			start--
			continue
		}
		break
	}

	info := &CycleInfo{
		Label:         last,
		StartIndex:    start,
		Bars:          n - start,
		DurationHours: float64(n-start) * barHours,
		ExtremePrice:  prices[start],
	}
	seeded := false
	for t := start; t < n; t++ {
		if v, ok := slopes.At(t); ok {
			scaled := v * cfg.Scale
			if !seeded {
				info.ExtremeSlope = scaled
				seeded = true
			} else if (bull && scaled > info.ExtremeSlope) || (!bull && scaled < info.ExtremeSlope) {
				info.ExtremeSlope = scaled
			}
		}
		if (bull && prices[t] > info.ExtremePrice) || (!bull && prices[t] < info.ExtremePrice) {
			info.ExtremePrice = prices[t]
		}
	}
	return info
}
