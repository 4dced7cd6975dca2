/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dispatch.go
Description: Parallel proposal evaluation for the Akira ABC-SMC sampler.
Applies the user's distance evaluator across a batch of proposals, serially or
on a bounded goroutine pool. Individual evaluation failures (errors or panics
inside the user function) are recovered as infinite-distance rejections so a
single bad proposal never aborts the batch.
*/

package dispatch

import (
	"context"
	"fmt"
	"math"

	"github.com/kleascm/akira-abc/pkg/interfaces"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

// Result is one evaluated proposal. Results are returned in proposal order,
// but the sampler's weighting and resampling are order-independent over the
// batch.
type Result struct {
	Index    int       // Position in the dispatched batch
	Params   []float64 // The proposal that was evaluated
	Distance float64   // Evaluated distance, +Inf on failure
	Err      error     // EvaluationError when recovered, nil otherwise
}

// Dispatcher applies a DistanceEvaluator across a batch of proposals.
type Dispatcher interface {
	EvaluateBatch(ctx context.Context, proposals [][]float64, eval interfaces.DistanceEvaluator) []Result
	Name() string
}

// ForWorkers selects a dispatcher: serial for workers <= 1, a goroutine pool
// otherwise.
func ForWorkers(workers int, logger *logrus.Logger) Dispatcher {
	if workers <= 1 {
		return &Serial{logger: logger}
	}
	return &Pool{workers: workers, logger: logger}
}

// evalOne runs a single evaluation with panic recovery. A panic or error in
// the user function degrades to an infinite distance.
func evalOne(ctx context.Context, params []float64, eval interfaces.DistanceEvaluator, logger *logrus.Logger) (dist float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &interfaces.EvaluationError{Cause: fmt.Errorf("panic: %v", r)}
			dist = math.Inf(1)
			if logger != nil {
				logger.Warnf("Evaluation panicked, proposal rejected: %v", r)
			}
		}
	}()

	if ctx.Err() != nil {
		return math.Inf(1), &interfaces.EvaluationError{Cause: ctx.Err()}
	}
	d, evalErr := eval.Distance(params)
	if evalErr != nil {
		if logger != nil {
			logger.Warnf("Evaluation failed, proposal rejected: %v", evalErr)
		}
		return math.Inf(1), &interfaces.EvaluationError{Cause: evalErr}
	}
	if math.IsNaN(d) {
		if logger != nil {
			logger.Warn("Evaluation returned NaN distance, proposal rejected")
		}
		return math.Inf(1), &interfaces.EvaluationError{Cause: fmt.Errorf("distance is NaN")}
	}
	return d, nil
}

// Serial evaluates proposals one at a time on the calling goroutine.
type Serial struct {
	logger *logrus.Logger
}

// NewSerial creates a serial dispatcher.
func NewSerial(logger *logrus.Logger) *Serial { return &Serial{logger: logger} }

// EvaluateBatch evaluates every proposal in order.
func (s *Serial) EvaluateBatch(ctx context.Context, proposals [][]float64, eval interfaces.DistanceEvaluator) []Result {
	results := make([]Result, len(proposals))
	for i, params := range proposals {
		d, err := evalOne(ctx, params, eval, s.logger)
		results[i] = Result{Index: i, Params: params, Distance: d, Err: err}
	}
	return results
}

// Name returns the dispatcher name.
func (s *Serial) Name() string { return "serial" }

// Pool fans evaluations out across a bounded goroutine pool. Workers share no
// mutable state: each writes only its own result slot.
type Pool struct {
	workers int
	logger  *logrus.Logger
}

// NewPool creates a pool dispatcher with the given worker count.
func NewPool(workers int, logger *logrus.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, logger: logger}
}

// EvaluateBatch evaluates all proposals concurrently and blocks until the
// whole batch has returned.
func (p *Pool) EvaluateBatch(ctx context.Context, proposals [][]float64, eval interfaces.DistanceEvaluator) []Result {
	results := make([]Result, len(proposals))
	g := pool.New().WithMaxGoroutines(p.workers)
	for i, params := range proposals {
		i, params := i, params
		g.Go(func() {
			d, err := evalOne(ctx, params, eval, p.logger)
			results[i] = Result{Index: i, Params: params, Distance: d, Err: err}
		})
	}
	g.Wait()
	return results
}

// Name returns the dispatcher name.
func (p *Pool) Name() string { return "pool" }
