/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: population.go
Description: Particle population state for the Akira ABC-SMC sampler. Holds the
parameter vectors, importance weights and distances for one iteration, plus the
weight bookkeeping used by the controller: normalization, weighted moments,
effective sample size and inverse-CDF resampling.
*/

package population

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Particle is one candidate parameter vector with its importance weight and
// the distance under which it was accepted.
type Particle struct {
	Params   []float64 `json:"params"`   // Ordered parameter vector
	Weight   float64   `json:"weight"`   // Non-negative importance weight
	Distance float64   `json:"distance"` // Distance at acceptance, finite
}

// Clone returns a deep copy of the particle.
func (p Particle) Clone() Particle {
	params := make([]float64, len(p.Params))
	copy(params, p.Params)
	return Particle{Params: params, Weight: p.Weight, Distance: p.Distance}
}

// Population is the full particle state of one iteration. It is owned
// exclusively by the controller; estimators and kernels receive it read-only
// and return new values instead of mutating it.
type Population struct {
	Particles   []Particle `json:"particles"`
	Iteration   int        `json:"iteration"`    // Iteration index this population belongs to
	Tolerance   float64    `json:"tolerance"`    // Threshold the particles were accepted under
	AcceptRatio float64    `json:"accept_ratio"` // Accepted / drawn for this iteration
}

// Len returns the number of particles.
func (p *Population) Len() int { return len(p.Particles) }

// Dim returns the parameter dimensionality.
func (p *Population) Dim() int {
	if len(p.Particles) == 0 {
		return 0
	}
	return len(p.Particles[0].Params)
}

// Weights returns the weight vector in particle order.
func (p *Population) Weights() []float64 {
	ws := make([]float64, len(p.Particles))
	for i, pt := range p.Particles {
		ws[i] = pt.Weight
	}
	return ws
}

// Distances returns the distance vector in particle order.
func (p *Population) Distances() []float64 {
	ds := make([]float64, len(p.Particles))
	for i, pt := range p.Particles {
		ds[i] = pt.Distance
	}
	return ds
}

// Matrix returns the particles as an n-by-dim dense matrix, one particle per
// row, for use with gonum's weighted statistics.
func (p *Population) Matrix() *mat.Dense {
	n, d := p.Len(), p.Dim()
	m := mat.NewDense(n, d, nil)
	for i, pt := range p.Particles {
		m.SetRow(i, pt.Params)
	}
	return m
}

// NormalizeWeights rescales the weights to sum to 1. Fails if the weight mass
// is zero, negative or non-finite, since resampling would be undefined.
func (p *Population) NormalizeWeights() error {
	sum := 0.0
	for _, pt := range p.Particles {
		sum += pt.Weight
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return fmt.Errorf("degenerate weight mass %v", sum)
	}
	for i := range p.Particles {
		p.Particles[i].Weight /= sum
	}
	return nil
}

// WeightedMeans returns the importance-weighted mean of each parameter.
// Weights are assumed normalized.
func (p *Population) WeightedMeans() []float64 {
	ws := p.Weights()
	means := make([]float64, p.Dim())
	col := make([]float64, p.Len())
	for j := range means {
		for i, pt := range p.Particles {
			col[i] = pt.Params[j]
		}
		means[j] = stat.Mean(col, ws)
	}
	return means
}

// WeightedVariances returns the importance-weighted variance of each
// parameter.
func (p *Population) WeightedVariances() []float64 {
	ws := p.Weights()
	vars := make([]float64, p.Dim())
	col := make([]float64, p.Len())
	for j := range vars {
		for i, pt := range p.Particles {
			col[i] = pt.Params[j]
		}
		vars[j] = stat.Variance(col, ws)
	}
	return vars
}

// ESS returns the effective sample size of the normalized weights,
// 1 / sum(w_i^2). A population collapsing onto few particles has a small ESS.
func (p *Population) ESS() float64 {
	ss := 0.0
	for _, pt := range p.Particles {
		ss += pt.Weight * pt.Weight
	}
	if ss == 0 {
		return 0
	}
	return 1 / ss
}

// EffectiveCount returns the number of particles carrying non-negligible
// weight. Covariance estimation needs at least two.
func (p *Population) EffectiveCount() int {
	n := 0
	for _, pt := range p.Particles {
		if pt.Weight > 1e-12 {
			n++
		}
	}
	return n
}

// SampleIndex maps u in [0, 1) to a particle index by walking the cumulative
// weight distribution. Weights must be normalized.
func (p *Population) SampleIndex(u float64) int {
	cum := 0.0
	for i, pt := range p.Particles {
		cum += pt.Weight
		if u < cum {
			return i
		}
	}
	return len(p.Particles) - 1
}

// Clone returns a deep copy of the population.
func (p *Population) Clone() *Population {
	out := &Population{
		Particles:   make([]Particle, len(p.Particles)),
		Iteration:   p.Iteration,
		Tolerance:   p.Tolerance,
		AcceptRatio: p.AcceptRatio,
	}
	for i, pt := range p.Particles {
		out.Particles[i] = pt.Clone()
	}
	return out
}

// Equal reports structural equality of two populations: same metadata and
// exactly equal parameter vectors, weights and distances.
func (p *Population) Equal(o *Population) bool {
	if o == nil || p.Len() != o.Len() || p.Iteration != o.Iteration ||
		p.Tolerance != o.Tolerance || p.AcceptRatio != o.AcceptRatio {
		return false
	}
	for i, pt := range p.Particles {
		opt := o.Particles[i]
		if pt.Weight != opt.Weight || pt.Distance != opt.Distance {
			return false
		}
		if !floats.Equal(pt.Params, opt.Params) {
			return false
		}
	}
	return true
}
