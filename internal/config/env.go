package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables recognized by Load.
const (
	EnvDriver        = "TASKLIST_DRIVER"
	EnvDB            = "TASKLIST_DB"
	EnvDSN           = "TASKLIST_DSN"
	EnvLogLevel      = "TASKLIST_LOG_LEVEL"
	EnvLogFormat     = "TASKLIST_LOG_FORMAT"
	EnvLogTimestamps = "TASKLIST_LOG_TIMESTAMPS"
	EnvLogCaller     = "TASKLIST_LOG_CALLER"
)

// loadFromEnv overrides config from environment variables and updates source tracking.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	setString := func(env, field string, target *string) {
		if v := os.Getenv(env); v != "" {
			*target = v
			sources[field] = SourceEnv
		}
	}
	setBool := func(env, field string, target *bool) error {
		v := os.Getenv(env)
		if v == "" {
			return nil
		}
		b, err := boolFromString(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		*target = b
		sources[field] = SourceEnv
		return nil
	}

	setString(EnvDriver, "store_driver", &cfg.StoreDriver)
	setString(EnvDB, "store_path", &cfg.StorePath)
	setString(EnvDSN, "store_dsn", &cfg.StoreDSN)
	setString(EnvLogLevel, "log_level", &cfg.LogLevel)
	setString(EnvLogFormat, "log_format", &cfg.LogFormat)
	if err := setBool(EnvLogTimestamps, "log_timestamps", &cfg.LogTimestamps); err != nil {
		return err
	}
	return setBool(EnvLogCaller, "log_caller", &cfg.LogCaller)
}

// boolFromString accepts the usual spellings of a boolean switch.
func boolFromString(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", v)
	}
	return b, nil
}
