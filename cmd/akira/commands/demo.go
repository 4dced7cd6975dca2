/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: demo.go
Description: Built-in demo model for the Akira run command. A deterministic
two-parameter linear model on a fixed grid, with a root-mean-square distance
metric. Exists only so the CLI can demonstrate a full sampling run; real users
inject their own Simulator and DistanceFunc through the library.
*/

package commands

import (
	"fmt"
	"math"
)

// LinearModel simulates y = intercept + slope*x on a fixed grid over [0, 1].
type LinearModel struct {
	grid []float64
}

// NewLinearModel creates a linear model with n grid points.
func NewLinearModel(n int) *LinearModel {
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = float64(i) / float64(n-1)
	}
	return &LinearModel{grid: grid}
}

// Simulate evaluates the line described by params = (intercept, slope) on the
// grid.
func (m *LinearModel) Simulate(params []float64) ([]float64, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("linear model expects 2 parameters, got %d", len(params))
	}
	out := make([]float64, len(m.grid))
	for i, x := range m.grid {
		out[i] = params[0] + params[1]*x
	}
	return out, nil
}

// RMSE is the root-mean-square distance between two datasets.
func RMSE(observed, simulated []float64) float64 {
	sum := 0.0
	for i := range observed {
		diff := observed[i] - simulated[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(observed)))
}
