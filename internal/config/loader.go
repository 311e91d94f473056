package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var whitelistSet map[string]bool

func init() {
	whitelistSet = make(map[string]bool, len(WhitelistedVars))
	for _, v := range WhitelistedVars {
		whitelistSet[v] = true
	}
}

// LoadFile parses a KEY=VALUE config file. Keys outside WhitelistedVars are
// dropped.
func LoadFile(path string) (map[string]string, error) {
	raw, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return filterWhitelisted(raw), nil
}

// LoadEnv collects whitelisted variables present in the process environment.
func LoadEnv() map[string]string {
	out := make(map[string]string)
	for _, key := range WhitelistedVars {
		if v, ok := os.LookupEnv(key); ok {
			out[key] = v
		}
	}
	return out
}

// Load assembles a Config from defaults, the optional file at path, the
// environment and finally overrides, then validates it. A non-empty path
// must exist.
func Load(path string, overrides map[string]string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		m, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := ApplyMap(cfg, m); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := ApplyMap(cfg, LoadEnv()); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := ApplyMap(cfg, filterWhitelisted(overrides)); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyMap sets fields on cfg from whitelisted key-value pairs. Unknown keys
// are ignored. A value that fails to parse is an error.
func ApplyMap(cfg *Config, m map[string]string) error {
	for key, value := range m {
		value = strings.TrimSpace(value)
		var err error
		switch key {
		case "MNEMOS_ADDR":
			cfg.Addr = value
		case "MNEMOS_STORE":
			cfg.StoreKind = strings.ToLower(value)
		case "MNEMOS_DB_PATH":
			cfg.DBPath = value
		case "MNEMOS_EPSILON":
			cfg.Epsilon, err = strconv.ParseFloat(value, 64)
		case "MNEMOS_GAMMA":
			cfg.Gamma, err = strconv.ParseFloat(value, 64)
		case "MNEMOS_LEARNING_RATE":
			cfg.LearningRate, err = strconv.ParseFloat(value, 64)
		case "MNEMOS_SEED":
			cfg.Seed, err = strconv.ParseInt(value, 10, 64)
		case "MNEMOS_VERBOSE":
			cfg.Verbose, err = strconv.ParseBool(value)
		case "MNEMOS_HISTORY_LIMIT":
			cfg.HistoryLimit, err = strconv.Atoi(value)
		}
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, key, value)
		}
	}
	return nil
}

func filterWhitelisted(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if whitelistSet[k] {
			out[k] = v
		}
	}
	return out
}
