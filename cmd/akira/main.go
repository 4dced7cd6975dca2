/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line interface for the Akira ABC-SMC sampler. Exposes the
full sampler configuration surface as flags and configuration-file keys and
wires them into the engine through viper.
*/

package main

import (
	"fmt"
	"os"

	"github.com/kleascm/akira-abc/cmd/akira/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "akira",
		Short: "Akira - likelihood-free Bayesian inference with ABC-SMC",
		Long: `Akira is an Approximate Bayesian Computation Sequential Monte Carlo sampler.
Given an observed dataset, a forward-simulation model and a distance metric, it
estimates the posterior distribution over model parameters without evaluating a
likelihood, by iteratively tightening an acceptance tolerance over a weighted,
perturbed particle population.

Models are Go code: import the library packages and inject your own Simulator
and DistanceFunc. The run command samples the built-in linear demo model.`,
		Version: "1.0.0",
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Configuration file path")
	flags.Int("particle-count", 100, "Particles per iteration")
	flags.Int("iteration-budget", 20, "Maximum number of iterations")
	flags.Float64("tolerance-max", 0.5, "First acceptance threshold")
	flags.Float64("tolerance-min", 0.002, "Threshold floor")
	flags.String("tol-type", "exp", "Fixed schedule shape (exp, lin, log, const)")
	flags.Bool("adapt-t", false, "Adaptive quantile schedule, overrides tol-type")
	flags.Float64("threshold", 75, "Percentile for the adaptive schedule")
	flags.String("pert-kernel", "component", "Perturbation kernel (component, multivariate)")
	flags.String("variance-method", "weighted", "Covariance method (weighted, filippi, tvz, ledoit-wolf, knn)")
	flags.Int("k-near", 0, "Neighbour count for the knn covariance method")
	flags.Int("num-proc", 1, "Parallel evaluation worker count")
	flags.Uint64("seed", 0, "RNG seed (0 = time-derived)")
	flags.String("restart", "", "Checkpoint file path")
	flags.Bool("from-restart", false, "Resume from the checkpoint at --restart")
	flags.String("outfile", "", "Per-iteration diagnostics output path")
	flags.String("history-db", "", "Sqlite run-history database path")
	flags.Int("verbose", 1, "0 = silent, 1 = per-iteration progress lines")
	flags.String("log-level", "info", "Logging level (debug, info, warn, error)")
	flags.Bool("json-logs", false, "Use JSON log format")

	keys := []string{
		"config", "particle-count", "iteration-budget", "tolerance-max",
		"tolerance-min", "tol-type", "adapt-t", "threshold", "pert-kernel",
		"variance-method", "k-near", "num-proc", "seed", "restart",
		"from-restart", "outfile", "history-db", "verbose", "log-level",
		"json-logs",
	}
	for _, key := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(key)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sampler on the built-in linear demo model",
		RunE:  commands.RunDemo,
	}
	runCmd.Flags().Float64("true-intercept", 0.03, "Data-generating intercept for the demo dataset")
	runCmd.Flags().Float64("true-slope", 0.5, "Data-generating slope for the demo dataset")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
