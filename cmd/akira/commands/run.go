/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: run.go
Description: Run command for the Akira ABC-SMC sampler. Builds a mock linear
dataset, wires the configured engine against the built-in demo model, runs the
sampling loop to completion and prints the posterior summary.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kleascm/akira-abc/pkg/core"
	"github.com/kleascm/akira-abc/pkg/interfaces"
	"github.com/kleascm/akira-abc/pkg/priors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

// RunDemo executes a full sampling run against the built-in linear model.
func RunDemo(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := buildSamplerConfig()

	trueIntercept, err := cmd.Flags().GetFloat64("true-intercept")
	if err != nil {
		return err
	}
	trueSlope, err := cmd.Flags().GetFloat64("true-slope")
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	src := rand.NewSource(seed)

	// Priors over (intercept, slope); the demo mirrors a 2-parameter linear
	// regression recovered from mock data.
	ps, err := priors.NewParameterSet(
		priors.NewNormal(trueIntercept, 0.1, src),
		priors.NewUniform(0.1, 0.9, src),
	)
	if err != nil {
		return err
	}

	model := NewLinearModel(64)
	observed, err := model.Simulate([]float64{trueIntercept, trueSlope})
	if err != nil {
		return err
	}
	eval := &interfaces.ModelEvaluator{Model: model, Observed: observed, Dist: RMSE}

	engine, err := core.NewEngine(cfg, ps, eval)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived shutdown signal, stopping sampler...")
		cancel()
	}()

	pop, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("sampling failed: %w", err)
	}

	means := pop.WeightedMeans()
	vars := pop.WeightedVariances()
	fmt.Printf("Run %s finished at iteration %d (tolerance %.6g)\n", engine.RunID(), pop.Iteration, pop.Tolerance)
	for i, m := range means {
		fmt.Printf("  parameter %d: mean %.6g, variance %.6g\n", i, m, vars[i])
	}
	return nil
}
