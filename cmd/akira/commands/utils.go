/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the Akira commands. Provides configuration
loading from files and environment and the mapping from viper keys to the
engine's SamplerConfig.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/akira-abc/pkg/interfaces"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from files and environment.
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("AKIRA")
	viper.AutomaticEnv()

	return nil
}

// buildSamplerConfig maps the bound viper keys onto a SamplerConfig.
func buildSamplerConfig() *interfaces.SamplerConfig {
	cfg := interfaces.DefaultConfig()
	cfg.ParticleCount = viper.GetInt("particle-count")
	cfg.IterationBudget = viper.GetInt("iteration-budget")
	cfg.ToleranceMax = viper.GetFloat64("tolerance-max")
	cfg.ToleranceMin = viper.GetFloat64("tolerance-min")
	cfg.TolType = viper.GetString("tol-type")
	cfg.AdaptiveTol = viper.GetBool("adapt-t")
	cfg.Threshold = viper.GetFloat64("threshold")
	cfg.PertKernel = viper.GetString("pert-kernel")
	cfg.VarianceMethod = viper.GetString("variance-method")
	cfg.KNear = viper.GetInt("k-near")
	cfg.NumProc = viper.GetInt("num-proc")
	cfg.Seed = viper.GetUint64("seed")
	cfg.RestartPath = viper.GetString("restart")
	cfg.FromRestart = viper.GetBool("from-restart")
	cfg.OutFile = viper.GetString("outfile")
	cfg.HistoryPath = viper.GetString("history-db")
	cfg.Verbose = viper.GetInt("verbose")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.JSONLogs = viper.GetBool("json-logs")
	return cfg
}
