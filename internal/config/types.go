package config

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, lowest priority first.
	Files []string
}

// Default values.
const (
	DefaultStoreDriver = "sqlite"
	DefaultSQLitePath  = "todo.db"
	DefaultJSONPath    = "todo.json"
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
)

// Config holds the full configuration for tasklist.
type Config struct {
	// Store
	StoreDriver string `toml:"store_driver"` // sqlite, json, mysql or postgres
	StorePath   string `toml:"store_path"`   // file for sqlite and json
	StoreDSN    string `toml:"store_dsn"`    // connection string for mysql and postgres

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Working directory (computed)
	WorkDir string `toml:"-"`
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"store_driver",
		"store_path",
		"store_dsn",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}

// Fields returns the configurable field names in display order.
func Fields() []string {
	return configFields()
}

// Value returns the display value of a field by its TOML name.
func (c *Config) Value(field string) string {
	switch field {
	case "store_driver":
		return c.StoreDriver
	case "store_path":
		return c.StorePath
	case "store_dsn":
		return redactDSN(c.StoreDSN)
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	case "log_timestamps":
		return boolString(c.LogTimestamps)
	case "log_caller":
		return boolString(c.LogCaller)
	default:
		return ""
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
