package app

import "errors"

// Config holds all the necessary configuration for an App instance to
// run.
type Config struct {
	RecipePath string // .bb files, searched recursively
	ConfPath   string // base configuration .conf file

	LogFormat   string
	LogLevel    string
	WorkerCount int

	// ProbeSources enables probing each recipe's s3:// source URI for
	// existence after parsing.
	ProbeSources bool
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.RecipePath == "" {
		return nil, errors.New("RecipePath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 1 {
		return nil, errors.New("WorkerCount must be at least 1")
	}

	return &cfg, nil
}
