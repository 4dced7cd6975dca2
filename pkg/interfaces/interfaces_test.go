/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces_test.go
Description: Tests for the sampler configuration surface and the model
evaluator contract, covering validation of every rejected option combination.
*/

package interfaces

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *SamplerConfig {
	cfg := DefaultConfig()
	cfg.ParticleCount = 100
	cfg.IterationBudget = 20
	cfg.ToleranceMax = 0.5
	cfg.ToleranceMin = 0.002
	return cfg
}

// TestConfigValidateAccepts tests that a fully populated default config passes.
func TestConfigValidateAccepts(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

// TestConfigValidateRejects tests every invalid option combination.
func TestConfigValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SamplerConfig)
		field  string
	}{
		{"tiny population", func(c *SamplerConfig) { c.ParticleCount = 1 }, "particle_count"},
		{"no budget", func(c *SamplerConfig) { c.IterationBudget = 0 }, "iteration_budget"},
		{"inverted tolerance", func(c *SamplerConfig) { c.ToleranceMax = 0.001 }, "tolerance"},
		{"zero tolerance", func(c *SamplerConfig) { c.ToleranceMax = 0 }, "tolerance"},
		{"zero floor", func(c *SamplerConfig) { c.ToleranceMin = 0 }, "tolerance"},
		{"unknown schedule", func(c *SamplerConfig) { c.TolType = "cubic" }, "tol_type"},
		{"bad percentile", func(c *SamplerConfig) { c.AdaptiveTol = true; c.Threshold = 100 }, "threshold"},
		{"unknown kernel", func(c *SamplerConfig) { c.PertKernel = "cauchy" }, "pert_kernel"},
		{"unknown method", func(c *SamplerConfig) { c.VarianceMethod = "oracle" }, "variance_method"},
		{"knn without k", func(c *SamplerConfig) { c.VarianceMethod = MethodKNN }, "k_near"},
		{"knn k too large", func(c *SamplerConfig) { c.VarianceMethod = MethodKNN; c.KNear = 100 }, "k_near"},
		{"no retries", func(c *SamplerConfig) { c.MaxRetries = 0 }, "max_retries"},
		{"restart without path", func(c *SamplerConfig) { c.FromRestart = true }, "from_restart"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var confErr *ConfigurationError
			require.ErrorAs(t, err, &confErr)
			assert.Equal(t, tc.field, confErr.Field)
		})
	}
}

type errSimulator struct{}

func (errSimulator) Simulate([]float64) ([]float64, error) {
	return nil, fmt.Errorf("simulator exploded")
}

type constSimulator struct{ out []float64 }

func (s constSimulator) Simulate([]float64) ([]float64, error) { return s.out, nil }

// TestModelEvaluator tests the simulation + distance fold.
func TestModelEvaluator(t *testing.T) {
	dist := func(obs, sim []float64) float64 { return math.Abs(obs[0] - sim[0]) }

	eval := &ModelEvaluator{Model: constSimulator{out: []float64{1.5}}, Observed: []float64{1.0}, Dist: dist}
	d, err := eval.Distance([]float64{0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d, 1e-15)

	failing := &ModelEvaluator{Model: errSimulator{}, Observed: []float64{1.0}, Dist: dist}
	d, err = failing.Distance([]float64{0})
	require.Error(t, err)
	assert.True(t, math.IsInf(d, 1))
}
