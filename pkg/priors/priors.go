/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: priors.go
Description: Prior distributions for the Akira ABC-SMC sampler. Wraps gonum
distuv distributions behind a small Prior interface and bundles one prior per
inferred parameter into an immutable ParameterSet with joint draw, joint
density, and support checking.
*/

package priors

import (
	"math"

	"github.com/kleascm/akira-abc/pkg/interfaces"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Prior is a single-parameter prior distribution.
type Prior interface {
	// Rand draws one sample.
	Rand() float64
	// Prob evaluates the density at x.
	Prob(x float64) float64
	// LogProb evaluates the log density at x.
	LogProb(x float64) float64
	// In reports whether x lies inside the support.
	In(x float64) bool
	// Bounds returns the support bounds (may be infinite).
	Bounds() (lo, hi float64)
}

// Normal is an unbounded Gaussian prior.
type Normal struct {
	dist distuv.Normal
}

// NewNormal creates a Normal prior with the given mean and standard deviation.
func NewNormal(mean, sigma float64, src rand.Source) *Normal {
	return &Normal{dist: distuv.Normal{Mu: mean, Sigma: sigma, Src: src}}
}

func (n *Normal) Rand() float64              { return n.dist.Rand() }
func (n *Normal) Prob(x float64) float64     { return n.dist.Prob(x) }
func (n *Normal) LogProb(x float64) float64  { return n.dist.LogProb(x) }
func (n *Normal) In(x float64) bool          { return !math.IsNaN(x) && !math.IsInf(x, 0) }
func (n *Normal) Bounds() (float64, float64) { return math.Inf(-1), math.Inf(1) }

// Uniform is a box-bounded flat prior on [min, max).
type Uniform struct {
	dist distuv.Uniform
}

// NewUniform creates a Uniform prior on [min, max).
func NewUniform(min, max float64, src rand.Source) *Uniform {
	return &Uniform{dist: distuv.Uniform{Min: min, Max: max, Src: src}}
}

func (u *Uniform) Rand() float64              { return u.dist.Rand() }
func (u *Uniform) Prob(x float64) float64     { return u.dist.Prob(x) }
func (u *Uniform) LogProb(x float64) float64  { return u.dist.LogProb(x) }
func (u *Uniform) In(x float64) bool          { return x >= u.dist.Min && x < u.dist.Max }
func (u *Uniform) Bounds() (float64, float64) { return u.dist.Min, u.dist.Max }

// Gamma is a positive-support gamma prior with shape alpha and rate beta.
type Gamma struct {
	dist distuv.Gamma
}

// NewGamma creates a Gamma prior with shape alpha and rate beta.
func NewGamma(alpha, beta float64, src rand.Source) *Gamma {
	return &Gamma{dist: distuv.Gamma{Alpha: alpha, Beta: beta, Src: src}}
}

func (g *Gamma) Rand() float64              { return g.dist.Rand() }
func (g *Gamma) Prob(x float64) float64     { return g.dist.Prob(x) }
func (g *Gamma) LogProb(x float64) float64  { return g.dist.LogProb(x) }
func (g *Gamma) In(x float64) bool          { return x > 0 }
func (g *Gamma) Bounds() (float64, float64) { return 0, math.Inf(1) }

// ParameterSet holds one prior per inferred parameter, in parameter order.
// Constructed once at configuration time and read-only thereafter.
type ParameterSet struct {
	priors []Prior
}

// NewParameterSet bundles the given priors into a ParameterSet. The order of
// the priors fixes the parameter order for the whole run.
func NewParameterSet(ps ...Prior) (*ParameterSet, error) {
	if len(ps) == 0 {
		return nil, &interfaces.ConfigurationError{Field: "priors", Reason: "at least one prior is required"}
	}
	priors := make([]Prior, len(ps))
	copy(priors, ps)
	return &ParameterSet{priors: priors}, nil
}

// Len returns the number of inferred parameters.
func (s *ParameterSet) Len() int { return len(s.priors) }

// At returns the prior for parameter i.
func (s *ParameterSet) At(i int) Prior { return s.priors[i] }

// Draw samples one full parameter vector into dst. If dst is nil a new slice
// is allocated.
func (s *ParameterSet) Draw(dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(s.priors))
	}
	for i, p := range s.priors {
		dst[i] = p.Rand()
	}
	return dst
}

// Prob evaluates the joint prior density (product over parameters).
func (s *ParameterSet) Prob(params []float64) float64 {
	prob := 1.0
	for i, p := range s.priors {
		prob *= p.Prob(params[i])
	}
	return prob
}

// LogProb evaluates the joint prior log density.
func (s *ParameterSet) LogProb(params []float64) float64 {
	lp := 0.0
	for i, p := range s.priors {
		lp += p.LogProb(params[i])
	}
	return lp
}

// In reports whether every component of params lies inside its prior support.
func (s *ParameterSet) In(params []float64) bool {
	if len(params) != len(s.priors) {
		return false
	}
	for i, p := range s.priors {
		if !p.In(params[i]) {
			return false
		}
	}
	return true
}
