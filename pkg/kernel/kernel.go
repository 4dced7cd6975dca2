/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: kernel.go
Description: Perturbation kernels for the Akira ABC-SMC sampler. Moves an
accepted particle to a nearby candidate, either component-wise (independent
1-D normals on the covariance diagonal) or with a full multivariate normal.
Out-of-support proposals are redrawn up to a bounded retry budget; the
transition density feeds the importance-weight update.
*/

package kernel

import (
	"fmt"
	"math"

	"github.com/kleascm/akira-abc/pkg/interfaces"
	"github.com/kleascm/akira-abc/pkg/population"
	"github.com/kleascm/akira-abc/pkg/priors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// Floor applied to degenerate diagonal variances so a collapsed dimension
// still moves.
const minVariance = 1e-12

// Kernel proposes perturbed parameter vectors and evaluates its own
// transition density for weight bookkeeping.
type Kernel interface {
	// Perturb draws a new in-support parameter vector centered at p.
	Perturb(p population.Particle, cov *mat.SymDense) (population.Particle, error)
	// LogDensity evaluates log K(to | from) under cov.
	LogDensity(from, to []float64, cov *mat.SymDense) float64
	Name() string
}

// ForMode selects a kernel by its configured mode name.
func ForMode(mode string, ps *priors.ParameterSet, src rand.Source, maxRetries int) (Kernel, error) {
	switch mode {
	case interfaces.KernelComponent:
		return NewComponentWise(ps, src, maxRetries), nil
	case interfaces.KernelMultivariate:
		return NewMultivariate(ps, src, maxRetries), nil
	default:
		return nil, &interfaces.ConfigurationError{Field: "pert_kernel", Reason: "unknown kernel " + mode}
	}
}

// ComponentWise perturbs each parameter independently from a 1-D normal
// centered at the particle's value with variance taken from the covariance
// diagonal.
type ComponentWise struct {
	priors     *priors.ParameterSet
	src        rand.Source
	maxRetries int
}

// NewComponentWise creates a component-wise kernel. maxRetries bounds the
// resample-until-in-support loop.
func NewComponentWise(ps *priors.ParameterSet, src rand.Source, maxRetries int) *ComponentWise {
	return &ComponentWise{priors: ps, src: src, maxRetries: maxRetries}
}

// Perturb draws each component from N(p.Params[i], cov[i][i]) and redraws the
// whole vector while it falls outside any prior's support.
func (k *ComponentWise) Perturb(p population.Particle, cov *mat.SymDense) (population.Particle, error) {
	proposal := make([]float64, len(p.Params))
	for try := 0; try < k.maxRetries; try++ {
		for i := range proposal {
			sigma := math.Sqrt(diagVariance(cov, i))
			n := distuv.Normal{Mu: p.Params[i], Sigma: sigma, Src: k.src}
			proposal[i] = n.Rand()
		}
		if k.priors.In(proposal) {
			out := make([]float64, len(proposal))
			copy(out, proposal)
			return population.Particle{Params: out}, nil
		}
	}
	return population.Particle{}, &interfaces.ProposalExhaustedError{Draws: k.maxRetries}
}

// LogDensity is the sum of the per-component 1-D normal log densities.
func (k *ComponentWise) LogDensity(from, to []float64, cov *mat.SymDense) float64 {
	lp := 0.0
	for i := range from {
		sigma := math.Sqrt(diagVariance(cov, i))
		n := distuv.Normal{Mu: from[i], Sigma: sigma}
		lp += n.LogProb(to[i])
	}
	return lp
}

// Name returns the configured mode name for this kernel.
func (k *ComponentWise) Name() string { return interfaces.KernelComponent }

// Multivariate perturbs the full parameter vector with one draw from a
// multivariate normal centered at the particle.
type Multivariate struct {
	priors     *priors.ParameterSet
	src        rand.Source
	maxRetries int
}

// NewMultivariate creates a multivariate-normal kernel. maxRetries bounds the
// resample-until-in-support loop.
func NewMultivariate(ps *priors.ParameterSet, src rand.Source, maxRetries int) *Multivariate {
	return &Multivariate{priors: ps, src: src, maxRetries: maxRetries}
}

// Perturb draws from N(p.Params, cov) and redraws while the proposal falls
// outside any prior's support.
func (m *Multivariate) Perturb(p population.Particle, cov *mat.SymDense) (population.Particle, error) {
	normal, ok := distmv.NewNormal(p.Params, regularized(cov), m.src)
	if !ok {
		return population.Particle{}, fmt.Errorf("perturbation covariance is not positive definite")
	}
	for try := 0; try < m.maxRetries; try++ {
		proposal := normal.Rand(nil)
		if m.priors.In(proposal) {
			return population.Particle{Params: proposal}, nil
		}
	}
	return population.Particle{}, &interfaces.ProposalExhaustedError{Draws: m.maxRetries}
}

// LogDensity evaluates the multivariate normal log density of to centered at
// from. Returns -Inf if the covariance cannot be factorized.
func (m *Multivariate) LogDensity(from, to []float64, cov *mat.SymDense) float64 {
	normal, ok := distmv.NewNormal(from, regularized(cov), nil)
	if !ok {
		return math.Inf(-1)
	}
	return normal.LogProb(to)
}

// Name returns the configured mode name for this kernel.
func (m *Multivariate) Name() string { return interfaces.KernelMultivariate }

// diagVariance reads a diagonal covariance entry with the degeneracy floor
// applied.
func diagVariance(cov *mat.SymDense, i int) float64 {
	v := cov.At(i, i)
	if v < minVariance {
		return minVariance
	}
	return v
}

// regularized returns cov with the degeneracy floor applied to its diagonal,
// leaving the caller's matrix untouched.
func regularized(cov *mat.SymDense) *mat.SymDense {
	n := cov.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(cov)
	for i := 0; i < n; i++ {
		if out.At(i, i) < minVariance {
			out.SetSym(i, i, minVariance)
		}
	}
	return out
}
