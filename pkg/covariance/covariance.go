/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: covariance.go
Description: Perturbation covariance estimation strategies for the Akira
ABC-SMC sampler. Implements the five interchangeable estimators (weighted,
Filippi-scaled, Turner-Van Zandt, Ledoit-Wolf shrinkage, k-nearest-neighbour)
behind a single Estimate contract, selected through an explicit factory.
*/

package covariance

import (
	"math"
	"sort"

	"github.com/kleascm/akira-abc/pkg/interfaces"
	"github.com/kleascm/akira-abc/pkg/population"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Estimator computes a perturbation covariance from a weighted particle
// population. Global estimators ignore index; local estimators (k-NN) require
// the index of the particle being perturbed.
type Estimator interface {
	Estimate(pop *population.Population, index int) (*mat.SymDense, error)
	// Local reports whether Estimate must be called per particle.
	Local() bool
	Name() string
	Description() string
}

// ForMethod selects an estimator by its configured method name. kNear is only
// consulted for the k-NN method.
func ForMethod(method string, kNear int) (Estimator, error) {
	switch method {
	case interfaces.MethodWeighted:
		return &WeightedEstimator{}, nil
	case interfaces.MethodFilippi:
		return &FilippiEstimator{}, nil
	case interfaces.MethodTVZ:
		return &TVZEstimator{}, nil
	case interfaces.MethodLedoitWolf:
		return &LedoitWolfEstimator{}, nil
	case interfaces.MethodKNN:
		if kNear <= 1 {
			return nil, &interfaces.ConfigurationError{Field: "k_near", Reason: "must be greater than 1"}
		}
		return &KNNEstimator{KNear: kNear}, nil
	default:
		return nil, &interfaces.ConfigurationError{Field: "variance_method", Reason: "unknown method " + method}
	}
}

// weightedCovariance computes the importance-weighted sample covariance of the
// whole population, failing on degenerate weight distributions.
func weightedCovariance(pop *population.Population) (*mat.SymDense, error) {
	if pop.EffectiveCount() < 2 {
		return nil, &interfaces.ConfigurationError{
			Field:  "population",
			Reason: "fewer than 2 effectively-weighted particles, covariance is degenerate",
		}
	}
	// stat.CovarianceMatrix treats weights as frequency counts and divides by
	// sum(weights)-1, so the normalized importance weights must be rescaled to
	// sum to the particle count before the call.
	ws := pop.Weights()
	n := float64(pop.Len())
	for i := range ws {
		ws[i] *= n
	}
	cov := mat.NewSymDense(pop.Dim(), nil)
	stat.CovarianceMatrix(cov, pop.Matrix(), ws)
	return cov, nil
}

// WeightedEstimator is the importance-weighted sample covariance over the
// whole population.
type WeightedEstimator struct{}

// Estimate returns the weighted sample covariance matrix.
func (e *WeightedEstimator) Estimate(pop *population.Population, _ int) (*mat.SymDense, error) {
	return weightedCovariance(pop)
}

func (e *WeightedEstimator) Local() bool { return false }

// Name returns the configured method name for this estimator.
func (e *WeightedEstimator) Name() string { return interfaces.MethodWeighted }

// Description returns a description of this estimator.
func (e *WeightedEstimator) Description() string {
	return "Importance-weighted sample covariance over the whole population"
}

// FilippiEstimator scales the weighted covariance by a factor derived from the
// population's acceptance rate: 2 - r, widening the kernel toward the
// twice-covariance optimum as acceptance drops and relaxing back to the plain
// weighted covariance when nearly every proposal is accepted.
type FilippiEstimator struct{}

// Estimate returns the acceptance-rate-scaled weighted covariance.
func (e *FilippiEstimator) Estimate(pop *population.Population, _ int) (*mat.SymDense, error) {
	cov, err := weightedCovariance(pop)
	if err != nil {
		return nil, err
	}
	r := pop.AcceptRatio
	if r < 0 || math.IsNaN(r) {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	scaleSym(cov, 2-r)
	return cov, nil
}

func (e *FilippiEstimator) Local() bool { return false }

// Name returns the configured method name for this estimator.
func (e *FilippiEstimator) Name() string { return interfaces.MethodFilippi }

// Description returns a description of this estimator.
func (e *FilippiEstimator) Description() string {
	return "Weighted covariance adaptively scaled by the iteration acceptance rate"
}

// TVZEstimator is the Turner-Van Zandt KDE kernel: twice the weighted sample
// covariance, giving heavier-weighted particles proportionally more influence
// on the proposal spread.
type TVZEstimator struct{}

// Estimate returns twice the weighted sample covariance matrix.
func (e *TVZEstimator) Estimate(pop *population.Population, _ int) (*mat.SymDense, error) {
	cov, err := weightedCovariance(pop)
	if err != nil {
		return nil, err
	}
	scaleSym(cov, 2)
	return cov, nil
}

func (e *TVZEstimator) Local() bool { return false }

// Name returns the configured method name for this estimator.
func (e *TVZEstimator) Name() string { return interfaces.MethodTVZ }

// Description returns a description of this estimator.
func (e *TVZEstimator) Description() string {
	return "Turner-Van Zandt KDE kernel, twice the weighted sample covariance"
}

// LedoitWolfEstimator shrinks the weighted sample covariance toward the
// scaled-identity target mu*I to reduce estimation variance when the particle
// count is small relative to the parameter dimensionality.
type LedoitWolfEstimator struct{}

// Estimate returns the shrunk covariance (1-delta)*S + delta*mu*I, with the
// shrinkage intensity delta estimated from the weighted dispersion of the
// per-particle outer products around S.
func (e *LedoitWolfEstimator) Estimate(pop *population.Population, _ int) (*mat.SymDense, error) {
	sample, err := weightedCovariance(pop)
	if err != nil {
		return nil, err
	}
	d := pop.Dim()

	// Scaled-identity target mu*I with mu = trace(S)/d.
	mu := 0.0
	for i := 0; i < d; i++ {
		mu += sample.At(i, i)
	}
	mu /= float64(d)

	// Squared distance between S and the target.
	d2 := 0.0
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			diff := sample.At(i, j)
			if i == j {
				diff -= mu
			}
			d2 += diff * diff
		}
	}
	if d2 == 0 {
		return sample, nil
	}

	// Weighted dispersion of the centered outer products around S.
	ws := pop.Weights()
	means := pop.WeightedMeans()
	b2 := 0.0
	centered := make([]float64, d)
	for k, pt := range pop.Particles {
		for i := 0; i < d; i++ {
			centered[i] = pt.Params[i] - means[i]
		}
		dev := 0.0
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				diff := centered[i]*centered[j] - sample.At(i, j)
				dev += diff * diff
			}
		}
		b2 += ws[k] * ws[k] * dev
	}

	delta := b2 / d2
	if delta > 1 {
		delta = 1
	}
	shrunk := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			v := (1 - delta) * sample.At(i, j)
			if i == j {
				v += delta * mu
			}
			shrunk.SetSym(i, j, v)
		}
	}
	return shrunk, nil
}

func (e *LedoitWolfEstimator) Local() bool { return false }

// Name returns the configured method name for this estimator.
func (e *LedoitWolfEstimator) Name() string { return interfaces.MethodLedoitWolf }

// Description returns a description of this estimator.
func (e *LedoitWolfEstimator) Description() string {
	return "Ledoit-Wolf shrinkage of the weighted covariance toward a diagonal target"
}

// KNNEstimator computes a covariance local to a single particle from its
// KNear nearest neighbours (Euclidean, in parameter space). The neighbourhood
// includes the particle itself. The only local estimator: the perturbation
// kernel must request it per particle.
type KNNEstimator struct {
	KNear int // Neighbourhood size, 1 < KNear < particle count
}

// Estimate returns the local covariance of the KNear particles nearest to
// pop.Particles[index].
func (e *KNNEstimator) Estimate(pop *population.Population, index int) (*mat.SymDense, error) {
	if e.KNear <= 1 || e.KNear >= pop.Len() {
		return nil, &interfaces.ConfigurationError{Field: "k_near", Reason: "must satisfy 1 < k_near < particle_count"}
	}
	if index < 0 || index >= pop.Len() {
		return nil, &interfaces.ConfigurationError{Field: "particle_index", Reason: "k-NN estimation requires a particle index"}
	}

	target := pop.Particles[index].Params
	type neighbour struct {
		idx  int
		dist float64
	}
	ns := make([]neighbour, pop.Len())
	for i, pt := range pop.Particles {
		d2 := 0.0
		for j, v := range pt.Params {
			diff := v - target[j]
			d2 += diff * diff
		}
		ns[i] = neighbour{idx: i, dist: d2}
	}
	sort.Slice(ns, func(a, b int) bool { return ns[a].dist < ns[b].dist })

	dim := pop.Dim()
	local := mat.NewDense(e.KNear, dim, nil)
	for i := 0; i < e.KNear; i++ {
		local.SetRow(i, pop.Particles[ns[i].idx].Params)
	}
	cov := mat.NewSymDense(dim, nil)
	stat.CovarianceMatrix(cov, local, nil)
	return cov, nil
}

func (e *KNNEstimator) Local() bool { return true }

// Name returns the configured method name for this estimator.
func (e *KNNEstimator) Name() string { return interfaces.MethodKNN }

// Description returns a description of this estimator.
func (e *KNNEstimator) Description() string {
	return "Local covariance of a particle's k nearest neighbours in parameter space"
}

// scaleSym scales every entry of a symmetric matrix in place.
func scaleSym(m *mat.SymDense, s float64) {
	n := m.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			m.SetSym(i, j, s*m.At(i, j))
		}
	}
}
