/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: schedule_test.go
Description: Tests for the tolerance schedules: fixed sequence shapes, length
and monotonicity, adaptive quantile updates, the minimum-decrement clamp, and
floor behaviour.
*/

package tolerance

import (
	"testing"

	"github.com/kleascm/akira-abc/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFixedShapes tests that every fixed shape yields a non-increasing
// sequence of length equal to the budget, anchored at max.
func TestFixedShapes(t *testing.T) {
	for _, shape := range []string{
		interfaces.TolTypeExp, interfaces.TolTypeLin, interfaces.TolTypeLog, interfaces.TolTypeConst,
	} {
		f, err := NewFixed(0.5, 0.002, 20, shape)
		require.NoError(t, err, shape)
		seq := f.Sequence()
		require.Len(t, seq, 20, shape)
		assert.InDelta(t, 0.5, seq[0], 1e-12, shape)
		for i := 1; i < len(seq); i++ {
			assert.LessOrEqual(t, seq[i], seq[i-1], "%s not non-increasing at %d", shape, i)
		}
	}
}

// TestFixedEndpoints tests the analytic endpoints of the exp and lin shapes.
func TestFixedEndpoints(t *testing.T) {
	exp, err := NewFixed(0.5, 0.002, 20, interfaces.TolTypeExp)
	require.NoError(t, err)
	assert.InDelta(t, 0.002, exp.Sequence()[19], 1e-12)

	lin, err := NewFixed(0.5, 0.002, 20, interfaces.TolTypeLin)
	require.NoError(t, err)
	assert.InDelta(t, 0.002, lin.Sequence()[19], 1e-12)

	cst, err := NewFixed(0.5, 0.002, 20, interfaces.TolTypeConst)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, cst.Sequence()[19], 1e-12)
}

// TestFixedErrors tests invalid fixed-schedule configurations.
func TestFixedErrors(t *testing.T) {
	var confErr *interfaces.ConfigurationError
	_, err := NewFixed(0.001, 0.5, 20, interfaces.TolTypeExp)
	require.ErrorAs(t, err, &confErr)
	_, err = NewFixed(0.5, 0.002, 20, "cubic")
	require.ErrorAs(t, err, &confErr)
	_, err = NewFixed(0.5, 0.002, 0, interfaces.TolTypeExp)
	require.ErrorAs(t, err, &confErr)
}

// TestAdaptiveDecreases tests that the adaptive schedule never produces an
// increasing tolerance.
func TestAdaptiveDecreases(t *testing.T) {
	a, err := NewAdaptive(0.5, 0.002, 75)
	require.NoError(t, err)
	assert.Equal(t, 0.5, a.Tolerance(0))

	a.Observe(0, []float64{0.1, 0.2, 0.3, 0.4})
	next := a.Tolerance(1)
	assert.Less(t, next, 0.5)
	assert.GreaterOrEqual(t, next, 0.002)

	// The 75th percentile of these distances sits below the previous
	// tolerance; the sequence keeps shrinking.
	a.Observe(1, []float64{0.05, 0.1, 0.15, 0.2})
	assert.Less(t, a.Tolerance(2), next)
}

// TestAdaptiveMinimumDecrement tests the forced decrement when the accepted
// distances are flat at the previous tolerance.
func TestAdaptiveMinimumDecrement(t *testing.T) {
	a, err := NewAdaptive(0.5, 0.002, 75)
	require.NoError(t, err)

	a.Observe(0, []float64{0.5, 0.5, 0.5, 0.5})
	assert.InDelta(t, 0.5*0.99, a.Tolerance(1), 1e-12)
}

// TestAdaptiveFloor tests that the floor clips the quantile.
func TestAdaptiveFloor(t *testing.T) {
	a, err := NewAdaptive(0.5, 0.01, 75)
	require.NoError(t, err)

	a.Observe(0, []float64{1e-6, 2e-6, 3e-6, 4e-6})
	assert.Equal(t, 0.01, a.Tolerance(1))
}

// TestAdaptiveResume tests that a resumed schedule continues from the
// restored tolerance and keeps advancing through the following iterations,
// replaying the engine's exact restart sequence: Resume with the checkpointed
// state, Observe the restored distances, then Observe each completed
// iteration.
func TestAdaptiveResume(t *testing.T) {
	a, err := NewAdaptive(0.5, 0.002, 75)
	require.NoError(t, err)

	a.Resume(5, 0.03)
	assert.Equal(t, 0.03, a.Tolerance(5))
	a.Observe(5, []float64{0.01, 0.02, 0.025, 0.029})
	tol6 := a.Tolerance(6)
	assert.Less(t, tol6, 0.03)

	// The first post-resume iteration must feed the schedule too; a frozen
	// schedule here would return tol6 forever.
	a.Observe(6, []float64{0.005, 0.01, 0.015, 0.02})
	assert.Less(t, a.Tolerance(7), tol6)
}

// TestAdaptivePercentileRange tests percentile validation.
func TestAdaptivePercentileRange(t *testing.T) {
	var confErr *interfaces.ConfigurationError
	_, err := NewAdaptive(0.5, 0.002, 0)
	require.ErrorAs(t, err, &confErr)
	_, err = NewAdaptive(0.5, 0.002, 100)
	require.ErrorAs(t, err, &confErr)
}
