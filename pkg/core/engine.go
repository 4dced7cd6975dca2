/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Main ABC-SMC engine for the Akira sampler. Orchestrates the
sequential iteration loop: tolerance selection, parallel rejection sampling of
proposals, importance reweighting, per-iteration diagnostics, and checkpoint
persistence. Iteration 0 draws from the priors; later iterations resample the
previous population by weight and perturb through the configured kernel.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/akira-abc/pkg/checkpoint"
	"github.com/kleascm/akira-abc/pkg/covariance"
	"github.com/kleascm/akira-abc/pkg/dispatch"
	"github.com/kleascm/akira-abc/pkg/history"
	"github.com/kleascm/akira-abc/pkg/interfaces"
	"github.com/kleascm/akira-abc/pkg/kernel"
	"github.com/kleascm/akira-abc/pkg/logging"
	"github.com/kleascm/akira-abc/pkg/population"
	"github.com/kleascm/akira-abc/pkg/priors"
	"github.com/kleascm/akira-abc/pkg/tolerance"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Engine runs one ABC-SMC sampling run. All run state lives on the instance,
// so multiple engines can run concurrently or sequentially without
// interference.
type Engine struct {
	config *interfaces.SamplerConfig
	logger *logrus.Logger
	runID  string

	// Core components
	priors     *priors.ParameterSet
	eval       interfaces.DistanceEvaluator
	kern       kernel.Kernel
	estimator  covariance.Estimator
	schedule   tolerance.Schedule
	dispatcher dispatch.Dispatcher

	// Persistence
	checkpoints *checkpoint.FileStore
	hist        *history.Store

	// Run state. pop is owned exclusively by the engine and replaced
	// wholesale at the end of each iteration, never mutated by workers.
	src       rand.Source
	rng       *rand.Rand
	pop       *population.Population
	startIter int
}

// NewEngine creates an engine from a validated configuration, a prior set and
// the user's distance evaluator. All strategy components (schedule, estimator,
// kernel, dispatcher) are built from the configuration; configuration errors
// surface here, before any sampling work begins.
func NewEngine(cfg *interfaces.SamplerConfig, ps *priors.ParameterSet, eval interfaces.DistanceEvaluator) (*Engine, error) {
	if cfg == nil {
		return nil, &interfaces.ConfigurationError{Field: "config", Reason: "must not be nil"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, &interfaces.ConfigurationError{Field: "priors", Reason: "must not be nil"}
	}
	if eval == nil {
		return nil, &interfaces.ConfigurationError{Field: "evaluator", Reason: "must not be nil"}
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, JSONLogs: cfg.JSONLogs})
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)

	schedule, err := tolerance.ForConfig(cfg)
	if err != nil {
		return nil, err
	}
	estimator, err := covariance.ForMethod(cfg.VarianceMethod, cfg.KNear)
	if err != nil {
		return nil, err
	}
	kern, err := kernel.ForMode(cfg.PertKernel, ps, src, cfg.MaxRetries)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:     cfg,
		logger:     logger,
		runID:      uuid.New().String(),
		priors:     ps,
		eval:       eval,
		kern:       kern,
		estimator:  estimator,
		schedule:   schedule,
		dispatcher: dispatch.ForWorkers(cfg.NumProc, logger),
		src:        src,
		rng:        rand.New(src),
	}

	if cfg.RestartPath != "" {
		e.checkpoints = checkpoint.NewFileStore(cfg.RestartPath)
	}
	if cfg.HistoryPath != "" {
		hist, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return nil, err
		}
		e.hist = hist
	}
	return e, nil
}

// SetLogger replaces the engine logger. Must be called before Run.
func (e *Engine) SetLogger(logger *logrus.Logger) {
	e.logger = logger
	e.dispatcher = dispatch.ForWorkers(e.config.NumProc, logger)
}

// SetDispatcher replaces the parallel dispatch backend. Must be called before
// Run; the iteration loop never depends on which backend is plugged in.
func (e *Engine) SetDispatcher(d dispatch.Dispatcher) {
	e.dispatcher = d
}

// RunID returns the unique identifier of this run.
func (e *Engine) RunID() string { return e.runID }

// Population returns the most recently finalized population.
func (e *Engine) Population() *population.Population { return e.pop }

// StartIteration returns the iteration index the run started (or resumed) at.
func (e *Engine) StartIteration() int { return e.startIter }

// Close releases persistent resources held by the engine.
func (e *Engine) Close() error {
	if e.hist != nil {
		return e.hist.Close()
	}
	return nil
}

// Run executes the sampling loop until the iteration budget is exhausted or
// the tolerance floor is reached, whichever comes first, and returns the
// final weighted population.
func (e *Engine) Run(ctx context.Context) (*population.Population, error) {
	if err := e.maybeRestart(); err != nil {
		return nil, err
	}

	var diag *diagWriter
	if e.config.OutFile != "" {
		var err error
		diag, err = newDiagWriter(e.config.OutFile, e.config.FromRestart)
		if err != nil {
			return nil, err
		}
		defer diag.Close()
	}

	if e.hist != nil {
		if err := e.hist.RecordRun(e.runID, e.config.ParticleCount, e.config.IterationBudget); err != nil {
			return nil, err
		}
	}

	e.logger.WithFields(logrus.Fields{
		"run_id":     e.runID,
		"particles":  e.config.ParticleCount,
		"iterations": e.config.IterationBudget,
		"kernel":     e.kern.Name(),
		"covariance": e.estimator.Name(),
		"dispatcher": e.dispatcher.Name(),
	}).Info("Starting ABC-SMC run")

	for t := e.startIter; t < e.config.IterationBudget; t++ {
		if err := ctx.Err(); err != nil {
			return e.pop, err
		}

		tol := e.schedule.Tolerance(t)
		if tol < e.schedule.Floor() {
			tol = e.schedule.Floor()
		}

		pop, err := e.iterate(ctx, t, tol)
		if err != nil {
			return e.pop, err
		}
		e.pop = pop

		means := pop.WeightedMeans()
		ess := pop.ESS()
		e.emitProgress(t, tol, means, pop.AcceptRatio, ess)
		if diag != nil {
			if err := diag.WriteIteration(t, tol, means, pop.AcceptRatio); err != nil {
				return e.pop, err
			}
		}
		if e.hist != nil {
			if err := e.hist.RecordIteration(e.runID, pop, means, ess); err != nil {
				return e.pop, err
			}
		}
		if e.checkpoints != nil {
			rec := &checkpoint.Record{RunID: e.runID, Iteration: t, Tolerance: tol, Population: pop}
			if err := e.checkpoints.Save(rec); err != nil {
				return e.pop, err
			}
		}

		e.schedule.Observe(t, pop.Distances())

		if tol <= e.schedule.Floor() {
			e.logger.WithField("iteration", t).Info("Tolerance floor reached, stopping")
			break
		}
	}
	return e.pop, nil
}

// maybeRestart loads the most recent checkpoint when resuming and positions
// the loop at the next iteration; earlier iterations are never recomputed.
func (e *Engine) maybeRestart() error {
	if !e.config.FromRestart {
		return nil
	}
	rec, err := e.checkpoints.Load()
	if err != nil {
		return err
	}
	if rec == nil {
		return &interfaces.CheckpointError{Path: e.checkpoints.Path(), Cause: fmt.Errorf("no checkpoint to resume from")}
	}
	e.pop = rec.Population
	e.runID = rec.RunID
	e.startIter = rec.Iteration + 1
	e.schedule.Resume(rec.Iteration, rec.Tolerance)
	// Replay the restored distances so the adaptive schedule derives the
	// threshold for the first resumed iteration instead of freezing at the
	// checkpointed tolerance.
	e.schedule.Observe(rec.Iteration, rec.Population.Distances())
	e.logger.WithFields(logrus.Fields{
		"run_id":    e.runID,
		"iteration": rec.Iteration,
		"tolerance": rec.Tolerance,
	}).Info("Resuming from checkpoint")
	return nil
}

// iterate produces one fully accepted, weighted population under tol.
// Proposal generation and all random draws are sequential; only the expensive
// model evaluations fan out through the dispatcher, so accepted-population
// statistics do not depend on the worker count.
func (e *Engine) iterate(ctx context.Context, t int, tol float64) (*population.Population, error) {
	n := e.config.ParticleCount
	drawCap := e.config.DrawCapFactor * n

	var covs []*mat.SymDense
	if t > 0 && e.pop != nil {
		var err error
		covs, err = e.covariances()
		if err != nil {
			return nil, err
		}
	}

	accepted := make([]population.Particle, 0, n)
	draws := 0
	for len(accepted) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := n - len(accepted)
		if draws+batch > drawCap {
			batch = drawCap - draws
		}
		if batch <= 0 {
			return nil, &interfaces.ProposalExhaustedError{Iteration: t, Draws: draws}
		}

		proposals, err := e.propose(batch, covs)
		if err != nil {
			var exhausted *interfaces.ProposalExhaustedError
			if errors.As(err, &exhausted) {
				exhausted.Iteration = t
			}
			return nil, err
		}
		draws += len(proposals)

		// Join point: block until the whole batch has returned. Surplus
		// acceptances beyond the quota are discarded, matching the
		// no-cancellation model.
		results := e.dispatcher.EvaluateBatch(ctx, proposals, e.eval)
		for _, res := range results {
			if len(accepted) >= n {
				break
			}
			if res.Distance <= tol && !math.IsInf(res.Distance, 0) {
				accepted = append(accepted, population.Particle{Params: res.Params, Distance: res.Distance})
			}
		}
	}

	pop := &population.Population{
		Particles:   accepted,
		Iteration:   t,
		Tolerance:   tol,
		AcceptRatio: float64(n) / float64(draws),
	}
	if covs == nil {
		for i := range pop.Particles {
			pop.Particles[i].Weight = 1 / float64(n)
		}
	} else {
		e.reweight(pop, covs)
	}
	if err := pop.NormalizeWeights(); err != nil {
		return nil, fmt.Errorf("iteration %d: %w", t, err)
	}
	return pop, nil
}

// covariances computes the perturbation covariance state for the current
// population: one global matrix, or one matrix per particle for the local
// k-NN estimator.
func (e *Engine) covariances() ([]*mat.SymDense, error) {
	if !e.estimator.Local() {
		cov, err := e.estimator.Estimate(e.pop, -1)
		if err != nil {
			return nil, err
		}
		return []*mat.SymDense{cov}, nil
	}
	covs := make([]*mat.SymDense, e.pop.Len())
	for j := range covs {
		cov, err := e.estimator.Estimate(e.pop, j)
		if err != nil {
			return nil, err
		}
		covs[j] = cov
	}
	return covs, nil
}

// propose generates one batch of proposals: prior draws at iteration 0,
// weighted resampling plus kernel perturbation afterwards.
func (e *Engine) propose(batch int, covs []*mat.SymDense) ([][]float64, error) {
	proposals := make([][]float64, 0, batch)
	for len(proposals) < batch {
		if covs == nil {
			proposals = append(proposals, e.priors.Draw(nil))
			continue
		}
		j := e.pop.SampleIndex(e.rng.Float64())
		cand, err := e.kern.Perturb(e.pop.Particles[j], covFor(covs, j))
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, cand.Params)
	}
	return proposals, nil
}

// reweight assigns the PMC importance weights: w_i proportional to the prior
// density of particle i divided by the kernel-smoothed density of the
// previous population at particle i.
func (e *Engine) reweight(pop *population.Population, covs []*mat.SymDense) {
	for i := range pop.Particles {
		params := pop.Particles[i].Params
		prior := e.priors.Prob(params)
		if prior <= 0 {
			pop.Particles[i].Weight = 0
			continue
		}
		denom := 0.0
		for j, prev := range e.pop.Particles {
			denom += prev.Weight * math.Exp(e.kern.LogDensity(prev.Params, params, covFor(covs, j)))
		}
		if denom <= 0 {
			pop.Particles[i].Weight = 0
			continue
		}
		pop.Particles[i].Weight = prior / denom
	}
}

// covFor maps a previous-population particle index to its covariance: the
// single global matrix, or the particle's own local one.
func covFor(covs []*mat.SymDense, j int) *mat.SymDense {
	if len(covs) == 1 {
		return covs[0]
	}
	return covs[j]
}

// emitProgress logs the contractual per-iteration diagnostics: step index,
// tolerance and weighted parameter means, plus acceptance ratio and ESS.
func (e *Engine) emitProgress(t int, tol float64, means []float64, ratio, ess float64) {
	entry := e.logger.WithFields(logrus.Fields{
		"step":         t,
		"tolerance":    tol,
		"means":        means,
		"accept_ratio": ratio,
		"ess":          ess,
	})
	if e.config.Verbose >= 1 {
		entry.Info("Iteration complete")
	} else {
		entry.Debug("Iteration complete")
	}
}
