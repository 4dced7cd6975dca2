/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: schedule.go
Description: Acceptance tolerance schedules for the Akira ABC-SMC sampler.
Provides the fixed precomputed decreasing sequences (exponential, linear,
logarithmic, constant) and the adaptive quantile-based schedule that derives
each threshold from the previous iteration's accepted distances.
*/

package tolerance

import (
	"math"
	"sort"

	"github.com/kleascm/akira-abc/pkg/interfaces"
	"gonum.org/v1/gonum/stat"
)

// Fraction by which the adaptive schedule is forced downward when the
// accepted-distance quantile fails to strictly decrease the tolerance.
const minDecrement = 0.01

// Schedule yields the acceptance threshold for each iteration.
type Schedule interface {
	// Tolerance returns the threshold for iteration t. For the adaptive
	// schedule, Observe must have been called for all earlier iterations.
	Tolerance(t int) float64
	// Observe records the accepted distances of iteration t.
	Observe(t int, distances []float64)
	// Resume re-seeds the schedule state after a checkpoint restart, so that
	// Tolerance(t+1) continues from the restored run.
	Resume(t int, tol float64)
	// Floor returns the configured lower bound; sampling stops once a
	// threshold reaches it.
	Floor() float64
}

// ForConfig builds the schedule selected by the configuration: adaptive mode
// takes precedence over the fixed shape when enabled.
func ForConfig(cfg *interfaces.SamplerConfig) (Schedule, error) {
	if cfg.AdaptiveTol {
		return NewAdaptive(cfg.ToleranceMax, cfg.ToleranceMin, cfg.Threshold)
	}
	return NewFixed(cfg.ToleranceMax, cfg.ToleranceMin, cfg.IterationBudget, cfg.TolType)
}

// Fixed is a precomputed decreasing threshold sequence of length equal to the
// iteration budget.
type Fixed struct {
	seq   []float64
	floor float64
}

// NewFixed precomputes the full sequence from max down to min over budget
// iterations, with the given shape.
func NewFixed(max, min float64, budget int, shape string) (*Fixed, error) {
	if max < min {
		return nil, &interfaces.ConfigurationError{Field: "tolerance", Reason: "max must not be below min"}
	}
	if budget < 1 {
		return nil, &interfaces.ConfigurationError{Field: "iteration_budget", Reason: "must be at least 1"}
	}
	seq := make([]float64, budget)
	if budget == 1 {
		seq[0] = max
	} else {
		last := float64(budget - 1)
		for t := range seq {
			frac := float64(t) / last
			switch shape {
			case interfaces.TolTypeExp:
				seq[t] = max * math.Pow(min/max, frac)
			case interfaces.TolTypeLin:
				seq[t] = max - (max-min)*frac
			case interfaces.TolTypeLog:
				seq[t] = max - (max-min)*math.Log1p(float64(t))/math.Log(float64(budget))
			case interfaces.TolTypeConst:
				seq[t] = max
			default:
				return nil, &interfaces.ConfigurationError{Field: "tol_type", Reason: "unknown schedule shape " + shape}
			}
		}
	}
	return &Fixed{seq: seq, floor: min}, nil
}

// Tolerance returns the precomputed threshold for iteration t.
func (f *Fixed) Tolerance(t int) float64 {
	if t >= len(f.seq) {
		t = len(f.seq) - 1
	}
	tol := f.seq[t]
	if tol < f.floor {
		return f.floor
	}
	return tol
}

// Observe is a no-op: the fixed sequence is set a priori.
func (f *Fixed) Observe(int, []float64) {}

// Resume is a no-op: Tolerance is analytic in t.
func (f *Fixed) Resume(int, float64) {}

// Floor returns the configured threshold floor.
func (f *Fixed) Floor() float64 { return f.floor }

// Sequence returns a copy of the full precomputed sequence.
func (f *Fixed) Sequence() []float64 {
	out := make([]float64, len(f.seq))
	copy(out, f.seq)
	return out
}

// Adaptive derives threshold t+1 from the q-th percentile of the accepted
// distances at iteration t, clipped to never increase and never fall below
// the floor. Reacts to the empirical distance distribution instead of a
// schedule fixed a priori.
type Adaptive struct {
	percentile float64
	floor      float64
	tols       []float64 // tols[t] is the threshold for iteration t
}

// NewAdaptive creates an adaptive schedule starting at max with the given
// percentile (0-100 exclusive) and floor.
func NewAdaptive(max, floor, percentile float64) (*Adaptive, error) {
	if percentile <= 0 || percentile >= 100 {
		return nil, &interfaces.ConfigurationError{Field: "threshold", Reason: "percentile must be inside (0, 100)"}
	}
	if max < floor {
		return nil, &interfaces.ConfigurationError{Field: "tolerance", Reason: "max must not be below min"}
	}
	return &Adaptive{percentile: percentile, floor: floor, tols: []float64{max}}, nil
}

// Tolerance returns the threshold for iteration t. Beyond the observed range
// it returns the latest threshold.
func (a *Adaptive) Tolerance(t int) float64 {
	if t >= len(a.tols) {
		t = len(a.tols) - 1
	}
	return a.tols[t]
}

// Observe computes the threshold for iteration t+1 from iteration t's
// accepted distances. A flat acceptance distribution is clamped to a minimum
// decrement to guarantee forward progress.
func (a *Adaptive) Observe(t int, distances []float64) {
	if t != len(a.tols)-1 || len(distances) == 0 {
		return
	}
	prev := a.tols[t]

	sorted := make([]float64, len(distances))
	copy(sorted, distances)
	sort.Float64s(sorted)
	next := stat.Quantile(a.percentile/100, stat.Empirical, sorted, nil)

	if next >= prev {
		next = prev * (1 - minDecrement)
	}
	if next < a.floor {
		next = a.floor
	}
	a.tols = append(a.tols, next)
}

// Resume re-seeds the schedule so Tolerance(t) returns tol and Observe(t, ...)
// continues the sequence from there.
func (a *Adaptive) Resume(t int, tol float64) {
	tols := make([]float64, t+1)
	for i := range tols {
		tols[i] = tol
	}
	a.tols = tols
}

// Floor returns the configured threshold floor.
func (a *Adaptive) Floor() float64 { return a.floor }
