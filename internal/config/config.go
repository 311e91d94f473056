// Package config defines the planner configuration model and its loading.
//
// Configuration is assembled with a strict precedence chain: built-in
// defaults < config file < MNEMOS_* environment < CLI flag overrides.
package config

import (
	"errors"
	"fmt"
)

// WhitelistedVars lists every variable name that may appear in a config
// file or the environment. Anything else is ignored during loading.
var WhitelistedVars = [9]string{
	"MNEMOS_ADDR",
	"MNEMOS_STORE",
	"MNEMOS_DB_PATH",
	"MNEMOS_EPSILON",
	"MNEMOS_GAMMA",
	"MNEMOS_LEARNING_RATE",
	"MNEMOS_SEED",
	"MNEMOS_VERBOSE",
	"MNEMOS_HISTORY_LIMIT",
}

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	// HTTP listen address for serve.
	Addr string

	// Plan history backend: "memory" or "sqlite".
	StoreKind string
	DBPath    string

	// Learner hyperparameters.
	Epsilon      float64
	Gamma        float64
	LearningRate float64

	// Seed for weight init, exploration and environment draws. Zero seeds
	// from the clock.
	Seed int64

	Verbose bool

	// Default number of records returned by history listings.
	HistoryLimit int
}

func NewDefaultConfig() *Config {
	return &Config{
		Addr:         ":8000",
		StoreKind:    "memory",
		DBPath:       "mnemos.db",
		Epsilon:      0.2,
		Gamma:        0.95,
		LearningRate: 0.001,
		Seed:         0,
		Verbose:      false,
		HistoryLimit: 20,
	}
}

func (c *Config) Validate() error {
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("%w: epsilon must be in [0,1], got %g", ErrInvalid, c.Epsilon)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("%w: gamma must be in [0,1], got %g", ErrInvalid, c.Gamma)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate must be positive, got %g", ErrInvalid, c.LearningRate)
	}
	switch c.StoreKind {
	case "memory":
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("%w: sqlite store requires a db path", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.StoreKind)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: history limit must not be negative, got %d", ErrInvalid, c.HistoryLimit)
	}
	return nil
}
