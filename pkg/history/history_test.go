/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: history_test.go
Description: Tests for the sqlite run-history store using an in-memory
database: schema creation, run registration and per-iteration recording.
*/

package history

import (
	"testing"

	"github.com/kleascm/akira-abc/pkg/population"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecordIteration tests recording a run and one full iteration.
func TestRecordIteration(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.RecordRun("run-1", 100, 20))

	pop := &population.Population{
		Particles: []population.Particle{
			{Params: []float64{0.03, 0.5}, Weight: 0.5, Distance: 0.1},
			{Params: []float64{0.04, 0.6}, Weight: 0.5, Distance: 0.2},
		},
		Iteration:   0,
		Tolerance:   0.5,
		AcceptRatio: 0.8,
	}
	require.NoError(t, store.RecordIteration("run-1", pop, []float64{0.035, 0.55}, 2.0))

	n, err := store.IterationCount("run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.IterationCount("other")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// TestMultipleIterations tests accumulation across iterations.
func TestMultipleIterations(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.RecordRun("run-2", 10, 3))
	pop := &population.Population{
		Particles: []population.Particle{{Params: []float64{1}, Weight: 1, Distance: 0}},
	}
	for iter := 0; iter < 3; iter++ {
		pop.Iteration = iter
		require.NoError(t, store.RecordIteration("run-2", pop, []float64{1}, 1))
	}

	n, err := store.IterationCount("run-2")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
