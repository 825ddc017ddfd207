// Package config loads gene-ledger settings from file, environment and defaults.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rcliao/gene-ledger/internal/evolution"
)

// Config is passed explicitly to the store at construction.
type Config struct {
	StorePath          string        `json:"storePath" mapstructure:"storePath"`
	MutationThreshold  float64       `json:"mutationThreshold" mapstructure:"mutationThreshold"`
	RefactorThreshold  float64       `json:"refactorThreshold" mapstructure:"refactorThreshold"`
	StrictStarComments bool          `json:"strictStarComments" mapstructure:"strictStarComments"`
	Workers            int           `json:"workers" mapstructure:"workers"`
	Logging            LoggingConfig `json:"logging" mapstructure:"logging"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// DefaultStorePath returns $GENE_LEDGER_DB or ~/.gene-ledger/genes.db.
func DefaultStorePath() string {
	if env := os.Getenv("GENE_LEDGER_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gene-ledger", "genes.db")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		StorePath:          DefaultStorePath(),
		MutationThreshold:  evolution.DefaultMutationThreshold,
		RefactorThreshold:  evolution.DefaultRefactorThreshold,
		StrictStarComments: false,
		Workers:            4,
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads configuration from path (json, yaml or toml by extension).
// An empty path looks for config.* in ~/.gene-ledger and falls back to
// defaults when none exists. GENE_LEDGER_* environment variables override
// file values.
func Load(path string) (*Config, error) {
	def := DefaultConfig()
	v := viper.New()

	v.SetDefault("storePath", def.StorePath)
	v.SetDefault("mutationThreshold", def.MutationThreshold)
	v.SetDefault("refactorThreshold", def.RefactorThreshold)
	v.SetDefault("strictStarComments", def.StrictStarComments)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)

	v.SetEnvPrefix("GENE_LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, _ := os.UserHomeDir()
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(home, ".gene-ledger"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.StorePath == "" {
		return &ConfigError{Field: "storePath", Message: "must not be empty"}
	}
	if c.MutationThreshold < 0 || c.MutationThreshold > 1 {
		return &ConfigError{Field: "mutationThreshold", Message: "must be within [0,1]"}
	}
	if c.RefactorThreshold < 0 || c.RefactorThreshold > 1 {
		return &ConfigError{Field: "refactorThreshold", Message: "must be within [0,1]"}
	}
	if c.RefactorThreshold > c.MutationThreshold {
		return &ConfigError{Field: "refactorThreshold", Message: "must not exceed mutationThreshold"}
	}
	if c.Workers < 1 {
		return &ConfigError{Field: "workers", Message: "must be at least 1"}
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
