/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: covariance_test.go
Description: Tests for the covariance estimation strategies: weighted, Filippi
scaling, Turner-Van Zandt, Ledoit-Wolf shrinkage and local k-NN, plus the
factory and its configuration-error paths.
*/

package covariance

import (
	"math"
	"testing"

	"github.com/kleascm/akira-abc/pkg/interfaces"
	"github.com/kleascm/akira-abc/pkg/population"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPop() *population.Population {
	return &population.Population{
		Particles: []population.Particle{
			{Params: []float64{0.0, 1.0}, Weight: 0.25},
			{Params: []float64{0.5, 0.2}, Weight: 0.25},
			{Params: []float64{1.0, 0.8}, Weight: 0.25},
			{Params: []float64{1.5, 0.4}, Weight: 0.25},
		},
		AcceptRatio: 0.5,
	}
}

// TestForMethod tests the estimator factory over all method names.
func TestForMethod(t *testing.T) {
	for _, method := range []string{
		interfaces.MethodWeighted, interfaces.MethodFilippi, interfaces.MethodTVZ,
		interfaces.MethodLedoitWolf,
	} {
		est, err := ForMethod(method, 0)
		require.NoError(t, err, method)
		assert.Equal(t, method, est.Name())
		assert.False(t, est.Local())
	}

	knn, err := ForMethod(interfaces.MethodKNN, 3)
	require.NoError(t, err)
	assert.True(t, knn.Local())

	_, err = ForMethod("oracle", 0)
	var confErr *interfaces.ConfigurationError
	require.ErrorAs(t, err, &confErr)

	_, err = ForMethod(interfaces.MethodKNN, 1)
	require.ErrorAs(t, err, &confErr)
}

// TestWeightedEstimator tests the weighted sample covariance against a
// hand-computed value.
func TestWeightedEstimator(t *testing.T) {
	pop := testPop()
	cov, err := (&WeightedEstimator{}).Estimate(pop, -1)
	require.NoError(t, err)

	// Unbiased weighted variance of {0, 0.5, 1, 1.5} with equal weights.
	assert.InDelta(t, 0.4166666667, cov.At(0, 0), 1e-9)
	assert.Equal(t, cov.At(0, 1), cov.At(1, 0))
}

// TestWeightedEstimatorNormalizedWeights tests the estimator directly on
// run-style weights that sum to 1: the result must stay finite and match the
// hand-computed frequency-rescaled covariance.
func TestWeightedEstimatorNormalizedWeights(t *testing.T) {
	pop := &population.Population{Particles: []population.Particle{
		{Params: []float64{1}, Weight: 0.5},
		{Params: []float64{2}, Weight: 0.25},
		{Params: []float64{3}, Weight: 0.25},
	}}
	cov, err := (&WeightedEstimator{}).Estimate(pop, -1)
	require.NoError(t, err)

	// Weighted mean 1.75; rescaled weights {1.5, 0.75, 0.75} give
	// (1.5*0.5625 + 0.75*0.0625 + 0.75*1.5625) / 2.
	require.False(t, math.IsInf(cov.At(0, 0), 0))
	assert.InDelta(t, 1.03125, cov.At(0, 0), 1e-12)
}

// TestWeightedEstimatorDegenerate tests the fewer-than-2-effective-particles
// error.
func TestWeightedEstimatorDegenerate(t *testing.T) {
	pop := &population.Population{Particles: []population.Particle{
		{Params: []float64{0, 0}, Weight: 1},
		{Params: []float64{1, 1}, Weight: 0},
	}}
	_, err := (&WeightedEstimator{}).Estimate(pop, -1)
	var confErr *interfaces.ConfigurationError
	require.ErrorAs(t, err, &confErr)
}

// TestFilippiScaling tests the acceptance-rate scale factor 2 - r.
func TestFilippiScaling(t *testing.T) {
	pop := testPop()
	base, err := (&WeightedEstimator{}).Estimate(pop, -1)
	require.NoError(t, err)
	scaled, err := (&FilippiEstimator{}).Estimate(pop, -1)
	require.NoError(t, err)

	factor := 2 - pop.AcceptRatio
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, factor*base.At(i, j), scaled.At(i, j), 1e-12)
		}
	}
}

// TestTVZScaling tests the twice-weighted-covariance kernel.
func TestTVZScaling(t *testing.T) {
	pop := testPop()
	base, err := (&WeightedEstimator{}).Estimate(pop, -1)
	require.NoError(t, err)
	tvz, err := (&TVZEstimator{}).Estimate(pop, -1)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, 2*base.At(i, j), tvz.At(i, j), 1e-12)
		}
	}
}

// TestLedoitWolfShrinkage tests that shrinkage moves the covariance toward
// the scaled-identity target without overshooting it.
func TestLedoitWolfShrinkage(t *testing.T) {
	pop := testPop()
	sample, err := (&WeightedEstimator{}).Estimate(pop, -1)
	require.NoError(t, err)
	shrunk, err := (&LedoitWolfEstimator{}).Estimate(pop, -1)
	require.NoError(t, err)

	mu := (sample.At(0, 0) + sample.At(1, 1)) / 2
	// Off-diagonals shrink toward zero, diagonals toward mu.
	assert.LessOrEqual(t, absf(shrunk.At(0, 1)), absf(sample.At(0, 1))+1e-15)
	for i := 0; i < 2; i++ {
		lo, hi := sample.At(i, i), mu
		if lo > hi {
			lo, hi = hi, lo
		}
		assert.GreaterOrEqual(t, shrunk.At(i, i), lo-1e-12)
		assert.LessOrEqual(t, shrunk.At(i, i), hi+1e-12)
	}
}

// TestKNNEstimator tests the local neighbourhood covariance of two clearly
// separated clusters.
func TestKNNEstimator(t *testing.T) {
	pop := &population.Population{Particles: []population.Particle{
		{Params: []float64{0.0, 0.0}, Weight: 0.25},
		{Params: []float64{0.1, 0.0}, Weight: 0.25},
		{Params: []float64{5.0, 5.0}, Weight: 0.25},
		{Params: []float64{5.1, 5.0}, Weight: 0.25},
	}}
	est := &KNNEstimator{KNear: 2}

	// Neighbourhood of particle 0 is {(0,0), (0.1,0)}.
	cov, err := est.Estimate(pop, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.005, cov.At(0, 0), 1e-12)
	assert.InDelta(t, 0.0, cov.At(1, 1), 1e-12)
}

// TestKNNEstimatorErrors tests the k_near range and index requirements.
func TestKNNEstimatorErrors(t *testing.T) {
	pop := testPop()
	var confErr *interfaces.ConfigurationError

	_, err := (&KNNEstimator{KNear: 4}).Estimate(pop, 0)
	require.ErrorAs(t, err, &confErr)

	_, err = (&KNNEstimator{KNear: 1}).Estimate(pop, 0)
	require.ErrorAs(t, err, &confErr)

	_, err = (&KNNEstimator{KNear: 2}).Estimate(pop, -1)
	require.ErrorAs(t, err, &confErr)
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
