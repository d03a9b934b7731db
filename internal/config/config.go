package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the only config schema version this build understands
const CurrentVersion = 1

// DirName is the per-project directory holding flowbridge's own config
const DirName = ".flowbridge"

// Config represents the complete flowbridge configuration
type Config struct {
	Version int           `json:"version" mapstructure:"version"`
	Flow    FlowConfig    `json:"flow" mapstructure:"flow"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Source is the config file that was read, empty when defaults were used
	Source string `json:"-" mapstructure:"-"`
}

// FlowConfig controls how the Flow worker is located, invoked and supervised
type FlowConfig struct {
	// Binary is an explicit path to the flow executable; empty means $PATH lookup
	Binary          string            `json:"binary" mapstructure:"binary"`
	ConfigFileName  string            `json:"configFileName" mapstructure:"configFileName"`
	MaxAttempts     int               `json:"maxAttempts" mapstructure:"maxAttempts"`
	RetryDelayMs    int               `json:"retryDelayMs" mapstructure:"retryDelayMs"`
	NoAutoStartFlag string            `json:"noAutoStartFlag" mapstructure:"noAutoStartFlag"`
	NoServerPattern string            `json:"noServerPattern" mapstructure:"noServerPattern"`
	ServerArgs      []string          `json:"serverArgs" mapstructure:"serverArgs"`
	Env             map[string]string `json:"env" mapstructure:"env"`
	CrashSignatures []CrashSignature  `json:"crashSignatures" mapstructure:"crashSignatures"`
	DedupeSpawns    bool              `json:"dedupeSpawns" mapstructure:"dedupeSpawns"`
	Sentinel        string            `json:"sentinel" mapstructure:"sentinel"`
}

// CrashSignature describes a worker exit that counts as a crash.
// ExitCode -1 means "no exit code"; Signal "" means "no signal".
type CrashSignature struct {
	ExitCode int    `json:"exitCode" mapstructure:"exitCode"`
	Signal   string `json:"signal" mapstructure:"signal"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	MaxSizeMB  int    `json:"maxSizeMB" mapstructure:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Flow: FlowConfig{
			ConfigFileName:  ".flowconfig",
			MaxAttempts:     5,
			RetryDelayMs:    0,
			NoAutoStartFlag: "--no-auto-start",
			NoServerPattern: "There is no [Ff]low server running",
			ServerArgs:      []string{"server"},
			Env:             map[string]string{},
			CrashSignatures: []CrashSignature{
				{ExitCode: 2, Signal: ""},
			},
			DedupeSpawns: true,
			Sentinel:     "AUTO332",
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// setDefaults mirrors DefaultConfig into viper so env overrides see every key
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("flow.binary", d.Flow.Binary)
	v.SetDefault("flow.configFileName", d.Flow.ConfigFileName)
	v.SetDefault("flow.maxAttempts", d.Flow.MaxAttempts)
	v.SetDefault("flow.retryDelayMs", d.Flow.RetryDelayMs)
	v.SetDefault("flow.noAutoStartFlag", d.Flow.NoAutoStartFlag)
	v.SetDefault("flow.noServerPattern", d.Flow.NoServerPattern)
	v.SetDefault("flow.serverArgs", d.Flow.ServerArgs)
	v.SetDefault("flow.env", d.Flow.Env)
	v.SetDefault("flow.crashSignatures", []map[string]interface{}{
		{"exitCode": 2, "signal": ""},
	})
	v.SetDefault("flow.dedupeSpawns", d.Flow.DedupeSpawns)
	v.SetDefault("flow.sentinel", d.Flow.Sentinel)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSizeMB", d.Logging.MaxSizeMB)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
	v.SetDefault("logging.compress", d.Logging.Compress)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// FLOWBRIDGE_FLOW_MAXATTEMPTS=3 overrides flow.maxAttempts
	v.SetEnvPrefix("FLOWBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from <dir>/.flowbridge/config.json.
// A missing file yields the defaults (plus any env overrides).
func LoadConfig(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dir, DirName))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return decode(v)
}

// LoadConfigFile loads configuration from an explicit file path
func LoadConfigFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Source = v.ConfigFileUsed()
	if cfg.Flow.Env == nil {
		cfg.Flow.Env = map[string]string{}
	}
	return &cfg, nil
}

// Save writes the configuration to <dir>/.flowbridge/config.json
func (c *Config) Save(dir string) error {
	configDir := filepath.Join(dir, DirName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Flow.ConfigFileName == "" {
		return &ConfigError{Field: "flow.configFileName", Message: "must not be empty"}
	}
	if c.Flow.MaxAttempts < 1 {
		return &ConfigError{Field: "flow.maxAttempts", Message: "must be at least 1"}
	}
	if c.Flow.RetryDelayMs < 0 {
		return &ConfigError{Field: "flow.retryDelayMs", Message: "must not be negative"}
	}
	if c.Flow.NoServerPattern == "" {
		return &ConfigError{Field: "flow.noServerPattern", Message: "must not be empty"}
	}
	if _, err := regexp.Compile(c.Flow.NoServerPattern); err != nil {
		return &ConfigError{Field: "flow.noServerPattern", Message: err.Error()}
	}
	if len(c.Flow.ServerArgs) == 0 {
		return &ConfigError{Field: "flow.serverArgs", Message: "must name the server subcommand"}
	}
	for i, sig := range c.Flow.CrashSignatures {
		if sig.ExitCode < -1 {
			return &ConfigError{Field: fmt.Sprintf("flow.crashSignatures[%d].exitCode", i), Message: "must be -1 or a valid exit code"}
		}
		if sig.ExitCode == -1 && sig.Signal == "" {
			return &ConfigError{Field: fmt.Sprintf("flow.crashSignatures[%d]", i), Message: "needs an exit code or a signal"}
		}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error", "silent", "off":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
