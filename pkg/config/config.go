// Package config loads the server configuration from a YAML file with
// flag-friendly defaults.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the process configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port int `yaml:"port" validate:"required,min=1,max=65535"`
	// DataDir is the embedded database directory.
	DataDir string `yaml:"data_dir" validate:"required"`
	// ImportDir holds the JSON import files. When ModelDir is set, the
	// conventions importer writes the files here before loading them.
	ImportDir string `yaml:"import_dir"`
	// ModelDir optionally points at a semantic-conventions model tree to
	// parse and import at startup.
	ModelDir string `yaml:"model_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" validate:"omitempty,min=1"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Port:                   8080,
		DataDir:                "./data/semconv",
		ImportDir:              "./data/import",
		LogLevel:               "info",
		ShutdownTimeoutSeconds: 30,
	}
}

// Load reads and validates a YAML configuration file. Fields absent from
// the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration against its declared constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
