// Package config defines environment configuration structs and loaders.
package config

import (
	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	SelectorEnvConfig
	ExperimentEnvConfig
}

func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SelectorEnvConfig holds the selector runtime defaults shared by every run.
type SelectorEnvConfig struct {
	LearnParallelism int    `env:"ENSEMBLE_LEARN_PARALLELISM" envDefault:"1"`
	EvalParallelism  int    `env:"ENSEMBLE_EVAL_PARALLELISM" envDefault:"1"`
	ResultsDir       string `env:"ENSEMBLE_RESULTS_DIR"`
	KeepResults      bool   `env:"ENSEMBLE_KEEP_RESULTS" envDefault:"false"`
}

// ExperimentEnvConfig configures experiment runs and reporting.
type ExperimentEnvConfig struct {
	ReportDir   string `env:"ENSEMBLE_REPORT_DIR"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
}
