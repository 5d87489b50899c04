package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProfilePath string // HCL job profile
	EnvFile     string // optional dotenv file merged under the real environment

	LogFormat string
	LogLevel  string
	DryRun    bool
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProfilePath == "" {
		return nil, errors.New("ProfilePath is a required configuration field and cannot be empty")
	}

	return &cfg, nil
}
