/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dispatch_test.go
Description: Tests for the parallel dispatchers: serial/pool equivalence,
worker-count independence, and recovery of per-proposal errors and panics as
infinite-distance rejections.
*/

package dispatch

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/kleascm/akira-abc/pkg/interfaces"
	"github.com/kleascm/akira-abc/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type evalFunc func(params []float64) (float64, error)

func (f evalFunc) Distance(params []float64) (float64, error) { return f(params) }

var sumEval = evalFunc(func(params []float64) (float64, error) {
	s := 0.0
	for _, v := range params {
		s += v
	}
	return s, nil
})

func proposals(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{float64(i), 0.5}
	}
	return out
}

// TestSerialEvaluateBatch tests ordered serial evaluation.
func TestSerialEvaluateBatch(t *testing.T) {
	d := NewSerial(logging.Silent())
	results := d.EvaluateBatch(context.Background(), proposals(5), sumEval)
	require.Len(t, results, 5)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.InDelta(t, float64(i)+0.5, res.Distance, 1e-15)
		assert.NoError(t, res.Err)
	}
}

// TestPoolMatchesSerial tests that worker count never changes the results of
// a deterministic evaluator.
func TestPoolMatchesSerial(t *testing.T) {
	ctx := context.Background()
	want := NewSerial(logging.Silent()).EvaluateBatch(ctx, proposals(32), sumEval)

	for _, workers := range []int{1, 2, 8} {
		d := NewPool(workers, logging.Silent())
		got := d.EvaluateBatch(ctx, proposals(32), sumEval)
		require.Len(t, got, len(want), "workers=%d", workers)
		for i := range want {
			assert.Equal(t, want[i].Index, got[i].Index)
			assert.Equal(t, want[i].Distance, got[i].Distance)
		}
	}
}

// TestEvaluationErrorRecovered tests that a failing user function rejects
// only its own proposal.
func TestEvaluationErrorRecovered(t *testing.T) {
	failing := evalFunc(func(params []float64) (float64, error) {
		if params[0] == 2 {
			return 0, fmt.Errorf("simulation diverged")
		}
		return params[0], nil
	})

	results := NewPool(4, logging.Silent()).EvaluateBatch(context.Background(), proposals(5), failing)
	require.Len(t, results, 5)
	for i, res := range results {
		if i == 2 {
			assert.True(t, math.IsInf(res.Distance, 1))
			var evalErr *interfaces.EvaluationError
			require.ErrorAs(t, res.Err, &evalErr)
		} else {
			assert.NoError(t, res.Err)
		}
	}
}

// TestPanicRecovered tests that a panicking user function degrades to an
// infinite-distance rejection instead of aborting the batch.
func TestPanicRecovered(t *testing.T) {
	panicking := evalFunc(func(params []float64) (float64, error) {
		if params[0] == 1 {
			panic("index out of range in user model")
		}
		return params[0], nil
	})

	results := NewSerial(logging.Silent()).EvaluateBatch(context.Background(), proposals(3), panicking)
	require.Len(t, results, 3)
	assert.True(t, math.IsInf(results[1].Distance, 1))
	require.Error(t, results[1].Err)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[2].Err)
}

// TestNaNDistanceRejected tests that NaN distances are rejected.
func TestNaNDistanceRejected(t *testing.T) {
	nanEval := evalFunc(func([]float64) (float64, error) { return math.NaN(), nil })
	results := NewSerial(logging.Silent()).EvaluateBatch(context.Background(), proposals(1), nanEval)
	assert.True(t, math.IsInf(results[0].Distance, 1))
	require.Error(t, results[0].Err)
}

// TestForWorkers tests backend selection by worker count.
func TestForWorkers(t *testing.T) {
	assert.Equal(t, "serial", ForWorkers(0, nil).Name())
	assert.Equal(t, "serial", ForWorkers(1, nil).Name())
	assert.Equal(t, "pool", ForWorkers(4, nil).Name())
}
