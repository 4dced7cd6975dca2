/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces.go
Description: Shared interfaces and configuration for the Akira ABC-SMC sampler.
Defines the user-facing simulation and distance contracts, the full sampler
configuration surface, and the option constants used across all packages.
*/

package interfaces

import (
	"fmt"
	"math"
)

// Simulator generates a synthetic dataset from a parameter vector.
// Implementations are user-supplied and may be arbitrarily expensive or
// non-deterministic; the sampler never inspects their internals.
type Simulator interface {
	Simulate(params []float64) ([]float64, error)
}

// DistanceFunc compares an observed dataset against a simulated one and
// returns a non-negative scalar distance.
type DistanceFunc func(observed, simulated []float64) float64

// DistanceEvaluator folds simulation and distance comparison into a single
// pure mapping from a parameter vector to a scalar distance. This is the only
// contract the sampler core depends on for model evaluation.
type DistanceEvaluator interface {
	Distance(params []float64) (float64, error)
}

// ModelEvaluator is the standard DistanceEvaluator: it runs a Simulator on
// the parameters and scores the result against a fixed observed dataset.
type ModelEvaluator struct {
	Model    Simulator
	Observed []float64
	Dist     DistanceFunc
}

// Distance simulates under params and returns Dist(observed, simulated).
func (m *ModelEvaluator) Distance(params []float64) (float64, error) {
	simulated, err := m.Model.Simulate(params)
	if err != nil {
		return math.Inf(1), fmt.Errorf("simulation failed: %w", err)
	}
	return m.Dist(m.Observed, simulated), nil
}

// Tolerance schedule shapes for the fixed (precomputed) schedule.
const (
	TolTypeExp   = "exp"
	TolTypeLin   = "lin"
	TolTypeLog   = "log"
	TolTypeConst = "const"
)

// Perturbation kernel modes.
const (
	KernelComponent    = "component"
	KernelMultivariate = "multivariate"
)

// Covariance estimation methods.
const (
	MethodWeighted   = "weighted"
	MethodFilippi    = "filippi"
	MethodTVZ        = "tvz"
	MethodLedoitWolf = "ledoit-wolf"
	MethodKNN        = "knn"
)

// SamplerConfig contains all configuration parameters for a sampling run.
// Supports both command-line flags and configuration files.
type SamplerConfig struct {
	// Population configuration
	ParticleCount   int `json:"particle_count"`   // Particles per iteration (fixed for the run)
	IterationBudget int `json:"iteration_budget"` // Maximum number of iterations

	// Tolerance schedule configuration
	ToleranceMax float64 `json:"tolerance_max"` // First acceptance threshold
	ToleranceMin float64 `json:"tolerance_min"` // Threshold floor; sampling stops once reached
	TolType      string  `json:"tol_type"`      // Fixed schedule shape: exp, lin, log, const
	AdaptiveTol  bool    `json:"adapt_t"`       // Quantile-based schedule, overrides TolType
	Threshold    float64 `json:"threshold"`     // Percentile (0-100) for the adaptive schedule

	// Proposal configuration
	PertKernel     string `json:"pert_kernel"`     // component or multivariate
	VarianceMethod string `json:"variance_method"` // weighted, filippi, tvz, ledoit-wolf, knn
	KNear          int    `json:"k_near"`          // Neighbour count, required for knn
	MaxRetries     int    `json:"max_retries"`     // In-support redraw cap per proposal
	DrawCapFactor  int    `json:"draw_cap_factor"` // Draw cap per round = factor * ParticleCount

	// Execution configuration
	NumProc int    `json:"num_proc"` // Worker count for parallel dispatch (<=1 serial)
	Seed    uint64 `json:"seed"`     // RNG seed; 0 means time-derived

	// Persistence configuration
	RestartPath string `json:"restart"`      // Checkpoint file path ("" disables)
	FromRestart bool   `json:"from_restart"` // Resume from the checkpoint at RestartPath
	HistoryPath string `json:"history_db"`   // Sqlite run-history path ("" disables)
	OutFile     string `json:"outfile"`      // Per-iteration diagnostics file ("" disables)

	// Logging configuration
	Verbose  int    `json:"verbose"`   // 0 silent, 1 per-iteration progress lines
	LogLevel string `json:"log_level"` // logrus level name
	JSONLogs bool   `json:"json_logs"` // JSON log format
}

// DefaultConfig returns a SamplerConfig populated with the documented
// defaults. Callers must still set ParticleCount, IterationBudget and the
// tolerance bounds.
func DefaultConfig() *SamplerConfig {
	return &SamplerConfig{
		TolType:        TolTypeExp,
		Threshold:      75,
		PertKernel:     KernelComponent,
		VarianceMethod: MethodWeighted,
		MaxRetries:     100,
		DrawCapFactor:  100,
		NumProc:        1,
		Verbose:        1,
		LogLevel:       "info",
	}
}

// Validate checks the SamplerConfig for invalid or inconsistent values.
// Returns a ConfigurationError describing the first problem found, or nil.
func (c *SamplerConfig) Validate() error {
	if c.ParticleCount < 2 {
		return &ConfigurationError{Field: "particle_count", Reason: "must be at least 2"}
	}
	if c.IterationBudget < 1 {
		return &ConfigurationError{Field: "iteration_budget", Reason: "must be at least 1"}
	}
	if c.ToleranceMax <= 0 || c.ToleranceMin <= 0 {
		return &ConfigurationError{Field: "tolerance", Reason: "bounds must be positive"}
	}
	if c.ToleranceMax < c.ToleranceMin {
		return &ConfigurationError{Field: "tolerance", Reason: "max must not be below min"}
	}
	switch c.TolType {
	case TolTypeExp, TolTypeLin, TolTypeLog, TolTypeConst:
	default:
		return &ConfigurationError{Field: "tol_type", Reason: fmt.Sprintf("unknown schedule shape %q", c.TolType)}
	}
	if c.AdaptiveTol && (c.Threshold <= 0 || c.Threshold >= 100) {
		return &ConfigurationError{Field: "threshold", Reason: "percentile must be inside (0, 100)"}
	}
	switch c.PertKernel {
	case KernelComponent, KernelMultivariate:
	default:
		return &ConfigurationError{Field: "pert_kernel", Reason: fmt.Sprintf("unknown kernel %q", c.PertKernel)}
	}
	switch c.VarianceMethod {
	case MethodWeighted, MethodFilippi, MethodTVZ, MethodLedoitWolf:
	case MethodKNN:
		if c.KNear <= 1 || c.KNear >= c.ParticleCount {
			return &ConfigurationError{Field: "k_near", Reason: "must satisfy 1 < k_near < particle_count"}
		}
	default:
		return &ConfigurationError{Field: "variance_method", Reason: fmt.Sprintf("unknown method %q", c.VarianceMethod)}
	}
	if c.MaxRetries < 1 {
		return &ConfigurationError{Field: "max_retries", Reason: "must be at least 1"}
	}
	if c.DrawCapFactor < 1 {
		return &ConfigurationError{Field: "draw_cap_factor", Reason: "must be at least 1"}
	}
	if c.FromRestart && c.RestartPath == "" {
		return &ConfigurationError{Field: "from_restart", Reason: "requires a restart checkpoint path"}
	}
	return nil
}
