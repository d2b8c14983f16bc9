// Package config provides unified configuration loading for cmr.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/cmr/internal/cmr"
	"github.com/nvandessel/cmr/internal/pathutil"
)

// ErrInvalidConfig is returned by Validate for any rejected setting.
var ErrInvalidConfig = errors.New("invalid config")

// Config contains all cmr configuration settings.
type Config struct {
	// Model selects the memory realization: "classic" or "instance".
	Model string `json:"model" yaml:"model" validate:"oneof=classic instance"`

	// Parameters holds the named model parameters. Values are numbers;
	// learn_first also accepts a boolean.
	Parameters map[string]any `json:"parameters" yaml:"parameters"`

	// Simulation contains settings for the trial runner.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Output contains settings for persisted results.
	Output OutputConfig `json:"output" yaml:"output"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig configures the study list and trial count.
type SimulationConfig struct {
	ItemCount int `json:"item_count" yaml:"item_count" validate:"gt=0"`

	// Order lists the item shown at each study position. Empty presents
	// every item once in index order.
	Order []int `json:"order,omitempty" yaml:"order,omitempty"`

	Trials     int    `json:"trials" yaml:"trials" validate:"gte=0"`
	Seed       uint64 `json:"seed" yaml:"seed"`
	MaxRecalls int    `json:"max_recalls,omitempty" yaml:"max_recalls,omitempty" validate:"gte=0"`
}

// OutputConfig configures where runs are written.
type OutputConfig struct {
	// Dir receives decisions.jsonl when logging at debug or trace.
	Dir string `json:"dir" yaml:"dir"`

	// DBPath is the SQLite trial database. Empty disables persistence.
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoggingConfig configures cmr's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to <output.dir>/decisions.jsonl.
	// "trace" additionally logs every recall step.
	Level string `json:"level" yaml:"level" validate:"omitempty,oneof=info debug trace"`

	// Format is "text" (default) or "json".
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// DefaultParameters is the reference parameter set for both models.
func DefaultParameters() map[string]any {
	return map[string]any{
		"encoding_drift_rate":     0.8,
		"start_drift_rate":        0.8,
		"recall_drift_rate":       0.8,
		"delay_drift_rate":        0.8,
		"shared_support":          0.1,
		"item_support":            1.5,
		"learning_rate":           0.5,
		"primacy_scale":           2.0,
		"primacy_decay":           1.0,
		"stop_probability_scale":  0.05,
		"stop_probability_growth": 0.1,
		"choice_sensitivity":      2.0,
		"context_sensitivity":     1.0,
		"feature_sensitivity":     1.0,
		"learn_first":             false,
	}
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Model:      string(cmr.KindClassic),
		Parameters: DefaultParameters(),
		Simulation: SimulationConfig{
			ItemCount: 16,
			Trials:    100,
			Seed:      cmr.DefaultSeed,
		},
		Output: OutputConfig{
			Dir: ".cmr",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns ~/.cmr/config.yaml, or "" when the home directory is unknown.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".cmr", "config.yaml")
}

// Load loads configuration from path and environment variables.
// Order: defaults -> path (or ~/.cmr/config.yaml when path is empty and
// the file exists) -> environment variables
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		if p := DefaultPath(); p != "" {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			}
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Parameter keys
// the file leaves out keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	defaults := config.Parameters
	config.Parameters = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if config.Parameters == nil {
		config.Parameters = make(map[string]any, len(defaults))
	}
	for k, v := range defaults {
		if _, ok := config.Parameters[k]; !ok {
			config.Parameters[k] = v
		}
	}

	if err := resolveOutputPaths(config); err != nil {
		return nil, err
	}
	return config, nil
}

// resolveOutputPaths expands ${VAR} and ~ in the output paths.
func resolveOutputPaths(config *Config) error {
	dir, err := pathutil.CleanOutputPath(expandEnvVars(config.Output.Dir))
	if err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	db, err := pathutil.CleanOutputPath(expandEnvVars(config.Output.DBPath))
	if err != nil {
		return fmt.Errorf("output.db_path: %w", err)
	}
	config.Output.Dir = dir
	config.Output.DBPath = db
	return nil
}

var configValidate = validator.New()

// Validate checks that the configuration is valid, including the model
// parameters it names.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i, item := range c.Simulation.Order {
		if item < 0 || item >= c.Simulation.ItemCount {
			return fmt.Errorf("%w: simulation.order[%d] = %d, item count %d", ErrInvalidConfig, i, item, c.Simulation.ItemCount)
		}
	}
	if _, err := c.ModelParameters(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Kind returns the configured model kind.
func (c *Config) Kind() (cmr.Kind, error) {
	return cmr.ParseKind(c.Model)
}

// PresentationCount is the length of the study list.
func (c *Config) PresentationCount() int {
	if len(c.Simulation.Order) > 0 {
		return len(c.Simulation.Order)
	}
	return c.Simulation.ItemCount
}

// ModelParameters converts the parameter map for the configured model.
func (c *Config) ModelParameters() (cmr.Parameters, error) {
	kind, err := c.Kind()
	if err != nil {
		return cmr.Parameters{}, err
	}

	values := make(map[string]float64, len(c.Parameters))
	keys := make([]string, 0, len(c.Parameters))
	for k := range c.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f, err := toFloat(c.Parameters[k])
		if err != nil {
			return cmr.Parameters{}, fmt.Errorf("parameter %s: %w", k, err)
		}
		values[k] = f
	}

	params, err := cmr.ParametersFromMap(kind, values)
	if err != nil {
		return cmr.Parameters{}, err
	}
	if err := params.Validate(); err != nil {
		return cmr.Parameters{}, err
	}
	return params, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return toFloat(b)
		}
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) error {
	if v := os.Getenv("CMR_MODEL"); v != "" {
		config.Model = v
	}

	if v := os.Getenv("CMR_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CMR_SEED: %w", err)
		}
		config.Simulation.Seed = seed
	}

	if v := os.Getenv("CMR_TRIALS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CMR_TRIALS: %w", err)
		}
		config.Simulation.Trials = n
	}

	if v := os.Getenv("CMR_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("CMR_DB_PATH"); v != "" {
		config.Output.DBPath = v
	}
	return resolveOutputPaths(config)
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
