// Package config provides unified configuration loading for dynpop.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/constants"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/simulation"
	"gopkg.in/yaml.v3"
)

// DynpopConfig contains all dynpop configuration settings.
type DynpopConfig struct {
	// Simulation holds the default run parameters. Command-line flags
	// override them per run.
	Simulation simulation.Config `json:"simulation" yaml:"simulation"`

	// Output controls where run artifacts are written.
	Output OutputConfig `json:"output" yaml:"output"`

	// Logging contains settings for operational logging and round traces.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// OutputConfig configures run artifacts. Empty paths disable the artifact.
// Paths support ${VAR} syntax for env vars.
type OutputConfig struct {
	// Record is the sqlite database runs are recorded into.
	Record string `json:"record,omitempty" yaml:"record,omitempty"`

	// Export is the file every round is exported to.
	Export string `json:"export,omitempty" yaml:"export,omitempty"`

	// Format is the export format: "arrow" (default) or "jsonl".
	Format string `json:"format" yaml:"format"`

	// DOT is the file the final state is rendered to in Graphviz DOT.
	DOT string `json:"dot,omitempty" yaml:"dot,omitempty"`

	// MetricsOut is the Prometheus textfile written after each run.
	MetricsOut string `json:"metrics_out,omitempty" yaml:"metrics_out,omitempty"`
}

// LoggingConfig configures dynpop's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables round tracing to <TraceDir>/rounds.jsonl.
	// "trace" additionally includes every node transition.
	Level string `json:"level" yaml:"level"`

	// TraceDir is where rounds.jsonl is written. Defaults to ~/.dynpop.
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// Default returns a DynpopConfig with sensible defaults.
func Default() *DynpopConfig {
	return &DynpopConfig{
		Simulation: simulation.DefaultConfig(),
		Output: OutputConfig{
			Format: constants.DefaultExportFormat,
		},
		Logging: LoggingConfig{
			Level: constants.DefaultLogLevel,
		},
	}
}

// Dir returns ~/.dynpop, or "" when the home directory is unknown.
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, constants.ConfigDirName)
}

// DefaultPath returns ~/.dynpop/config.yaml, or "" when the home
// directory is unknown.
func DefaultPath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, constants.ConfigFileName)
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.dynpop/config.yaml -> environment variables
func Load() (*DynpopConfig, error) {
	return LoadWithFile("")
}

// LoadWithFile is Load with an explicit config file. An empty path falls
// back to ~/.dynpop/config.yaml when that file exists.
func LoadWithFile(path string) (*DynpopConfig, error) {
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

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*DynpopConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in output paths
	config.Output.Record = expandEnvVars(config.Output.Record)
	config.Output.Export = expandEnvVars(config.Output.Export)
	config.Output.DOT = expandEnvVars(config.Output.DOT)
	config.Output.MetricsOut = expandEnvVars(config.Output.MetricsOut)
	config.Logging.TraceDir = expandEnvVars(config.Logging.TraceDir)

	return config, nil
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *DynpopConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid. Initiators are not
// checked here because they depend on the graph.
func (c *DynpopConfig) Validate() error {
	if err := c.Simulation.ValidateParams(); err != nil {
		return err
	}

	validFormats := map[string]bool{"": true, "arrow": true, "jsonl": true}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid export format: %s (valid: arrow, jsonl)", c.Output.Format)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// TraceDir returns the configured trace directory or ~/.dynpop.
func (c *DynpopConfig) TraceDir() string {
	if c.Logging.TraceDir != "" {
		return c.Logging.TraceDir
	}
	return Dir()
}

// Keys lists every key accepted by Get and Set, in display order.
var Keys = []string{
	"simulation.action",
	"simulation.threshold",
	"simulation.probability_of_infection",
	"simulation.lifespan",
	"simulation.shelter",
	"simulation.vaccination",
	"simulation.max_rounds",
	"simulation.seed",
	"output.record",
	"output.export",
	"output.format",
	"output.dot",
	"output.metrics_out",
	"logging.level",
	"logging.trace_dir",
}

// Get retrieves a configuration value by dot-notation key.
func (c *DynpopConfig) Get(key string) (any, bool) {
	switch key {
	case "simulation.action":
		return string(c.Simulation.Model), true
	case "simulation.threshold":
		return c.Simulation.Threshold, true
	case "simulation.probability_of_infection":
		return c.Simulation.Probability, true
	case "simulation.lifespan":
		return c.Simulation.Lifespan, true
	case "simulation.shelter":
		return c.Simulation.Shelter, true
	case "simulation.vaccination":
		return c.Simulation.Vaccination, true
	case "simulation.max_rounds":
		return c.Simulation.MaxRounds, true
	case "simulation.seed":
		if c.Simulation.Seed == nil {
			return "", true
		}
		return *c.Simulation.Seed, true
	case "output.record":
		return c.Output.Record, true
	case "output.export":
		return c.Output.Export, true
	case "output.format":
		return c.Output.Format, true
	case "output.dot":
		return c.Output.DOT, true
	case "output.metrics_out":
		return c.Output.MetricsOut, true
	case "logging.level":
		return c.Logging.Level, true
	case "logging.trace_dir":
		return c.Logging.TraceDir, true
	default:
		return nil, false
	}
}

// Set sets a configuration value by dot-notation key. The result is not
// validated; call Validate before saving.
func (c *DynpopConfig) Set(key, value string) error {
	switch key {
	case "simulation.action":
		m, err := models.ParseModel(value)
		if err != nil {
			return err
		}
		c.Simulation.Model = m
	case "simulation.threshold":
		return setFloat(&c.Simulation.Threshold, key, value)
	case "simulation.probability_of_infection":
		return setFloat(&c.Simulation.Probability, key, value)
	case "simulation.lifespan":
		return setInt(&c.Simulation.Lifespan, key, value)
	case "simulation.shelter":
		return setFloat(&c.Simulation.Shelter, key, value)
	case "simulation.vaccination":
		return setFloat(&c.Simulation.Vaccination, key, value)
	case "simulation.max_rounds":
		return setInt(&c.Simulation.MaxRounds, key, value)
	case "simulation.seed":
		if value == "" {
			c.Simulation.Seed = nil
			return nil
		}
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		c.Simulation.Seed = &n
	case "output.record":
		c.Output.Record = value
	case "output.export":
		c.Output.Export = value
	case "output.format":
		c.Output.Format = value
	case "output.dot":
		c.Output.DOT = value
	case "output.metrics_out":
		c.Output.MetricsOut = value
	case "logging.level":
		c.Logging.Level = value
	case "logging.trace_dir":
		c.Logging.TraceDir = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func setFloat(dst *float64, key, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = n
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Malformed numbers are ignored.
func applyEnvOverrides(config *DynpopConfig) {
	if v := os.Getenv("DYNPOP_ACTION"); v != "" {
		if m, err := models.ParseModel(v); err == nil {
			config.Simulation.Model = m
		}
	}

	floats := map[string]*float64{
		"DYNPOP_THRESHOLD":                &config.Simulation.Threshold,
		"DYNPOP_PROBABILITY_OF_INFECTION": &config.Simulation.Probability,
		"DYNPOP_SHELTER":                  &config.Simulation.Shelter,
		"DYNPOP_VACCINATION":              &config.Simulation.Vaccination,
	}
	for name, dst := range floats {
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	if v := os.Getenv("DYNPOP_LIFESPAN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Lifespan = n
		}
	}

	if v := os.Getenv("DYNPOP_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.MaxRounds = n
		}
	}

	if v := os.Getenv("DYNPOP_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = &n
		}
	}

	if v := os.Getenv("DYNPOP_RECORD"); v != "" {
		config.Output.Record = v
	}

	if v := os.Getenv("DYNPOP_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
