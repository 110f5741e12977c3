// Package config loads store settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-kv/pkg/logging"
	"github.com/dd0wney/cluso-kv/pkg/lsm"
)

// validate is a singleton validator instance
var validate = validator.New()

// Config holds every tunable of a store
type Config struct {
	DataDir          string `yaml:"data_dir" validate:"required"`
	MemTableSize     int    `yaml:"memtable_size" validate:"min=16384"` // Table size budget in bytes
	Level0TableLimit int    `yaml:"level0_table_limit" validate:"min=1,max=64"`
	MaxLevels        int    `yaml:"max_levels" validate:"min=2,max=16"`
	CacheEntries     int    `yaml:"cache_entries" validate:"min=0"`
	LogLevel         string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// Default returns the configuration matching lsm.DefaultLSMOptions
func Default(dataDir string) Config {
	opts := lsm.DefaultLSMOptions(dataDir)
	return Config{
		DataDir:          opts.DataDir,
		MemTableSize:     opts.TableSizeBudget,
		Level0TableLimit: opts.Level0TableLimit,
		MaxLevels:        opts.MaxLevels,
		CacheEntries:     opts.CacheEntries,
		LogLevel:         "info",
	}
}

// Load reads a YAML file. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (Config, error) {
	cfg := Default("")
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags and reports the first violation
func (c Config) Validate() error {
	return formatValidationError(validate.Struct(c))
}

// LSMOptions converts the configuration for lsm.NewLSMStorage
func (c Config) LSMOptions(logger logging.Logger) lsm.LSMOptions {
	return lsm.LSMOptions{
		DataDir:          c.DataDir,
		TableSizeBudget:  c.MemTableSize,
		Level0TableLimit: c.Level0TableLimit,
		MaxLevels:        c.MaxLevels,
		CacheEntries:     c.CacheEntries,
		Logger:           logger,
	}
}

// NewLogger builds a JSON logger at the configured level
func (c Config) NewLogger(w io.Writer) logging.Logger {
	return logging.NewJSONLogger(w, logging.ParseLevel(c.LogLevel))
}

// WriteFile saves the configuration as YAML
func (c Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
