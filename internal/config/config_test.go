package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/simulation"
)

func TestDefault(t *testing.T) {
	config := Default()

	// Simulation defaults
	if config.Simulation.Model != models.ModelCascade {
		t.Errorf("expected Model 'cascade', got '%s'", config.Simulation.Model)
	}
	if config.Simulation.Threshold != 0.5 {
		t.Errorf("expected Threshold 0.5, got %f", config.Simulation.Threshold)
	}
	if config.Simulation.Probability != 0.1 {
		t.Errorf("expected Probability 0.1, got %f", config.Simulation.Probability)
	}
	if config.Simulation.Lifespan != 10 {
		t.Errorf("expected Lifespan 10, got %d", config.Simulation.Lifespan)
	}
	if config.Simulation.Seed != nil {
		t.Errorf("expected no seed, got %d", *config.Simulation.Seed)
	}

	// Output defaults
	if config.Output.Format != "arrow" {
		t.Errorf("expected Format 'arrow', got '%s'", config.Output.Format)
	}
	if config.Output.Record != "" {
		t.Errorf("expected no Record path, got '%s'", config.Output.Record)
	}

	// Logging defaults
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
simulation:
  action: covid
  probability_of_infection: 0.25
  lifespan: 4
  shelter: 0.1
  seed: 42

output:
  record: runs.db
  format: jsonl
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Simulation.Model != models.ModelEpidemic {
		t.Errorf("expected Model 'covid', got '%s'", config.Simulation.Model)
	}
	if config.Simulation.Probability != 0.25 {
		t.Errorf("expected Probability 0.25, got %f", config.Simulation.Probability)
	}
	if config.Simulation.Lifespan != 4 {
		t.Errorf("expected Lifespan 4, got %d", config.Simulation.Lifespan)
	}
	if config.Simulation.Seed == nil || *config.Simulation.Seed != 42 {
		t.Errorf("expected Seed 42, got %v", config.Simulation.Seed)
	}
	// Unset keys keep their defaults.
	if config.Simulation.Threshold != 0.5 {
		t.Errorf("expected Threshold 0.5, got %f", config.Simulation.Threshold)
	}
	if config.Output.Record != "runs.db" {
		t.Errorf("expected Record 'runs.db', got '%s'", config.Output.Record)
	}
	if config.Output.Format != "jsonl" {
		t.Errorf("expected Format 'jsonl', got '%s'", config.Output.Format)
	}
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
output:
  record: ${DYNPOP_TEST_DIR}/runs.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("DYNPOP_TEST_DIR", "/data/sims")

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Output.Record != "/data/sims/runs.db" {
		t.Errorf("expected Record '/data/sims/runs.db', got '%s'", config.Output.Record)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DYNPOP_ACTION", "covid")
	t.Setenv("DYNPOP_THRESHOLD", "0.3")
	t.Setenv("DYNPOP_PROBABILITY_OF_INFECTION", "0.7")
	t.Setenv("DYNPOP_LIFESPAN", "3")
	t.Setenv("DYNPOP_SHELTER", "0.2")
	t.Setenv("DYNPOP_VACCINATION", "0.15")
	t.Setenv("DYNPOP_SEED", "1234")
	t.Setenv("DYNPOP_MAX_ROUNDS", "50")
	t.Setenv("DYNPOP_RECORD", "/tmp/runs.db")

	config := Default()
	applyEnvOverrides(config)

	sim := config.Simulation
	if sim.Model != models.ModelEpidemic {
		t.Errorf("expected Model 'covid', got '%s'", sim.Model)
	}
	if sim.Threshold != 0.3 || sim.Probability != 0.7 {
		t.Errorf("expected threshold 0.3 and probability 0.7, got %f and %f", sim.Threshold, sim.Probability)
	}
	if sim.Lifespan != 3 || sim.MaxRounds != 50 {
		t.Errorf("expected lifespan 3 and max rounds 50, got %d and %d", sim.Lifespan, sim.MaxRounds)
	}
	if sim.Shelter != 0.2 || sim.Vaccination != 0.15 {
		t.Errorf("expected shelter 0.2 and vaccination 0.15, got %f and %f", sim.Shelter, sim.Vaccination)
	}
	if sim.Seed == nil || *sim.Seed != 1234 {
		t.Errorf("expected Seed 1234, got %v", sim.Seed)
	}
	if config.Output.Record != "/tmp/runs.db" {
		t.Errorf("expected Record '/tmp/runs.db', got '%s'", config.Output.Record)
	}
}

func TestEnvOverrides_MalformedIgnored(t *testing.T) {
	t.Setenv("DYNPOP_ACTION", "sir")
	t.Setenv("DYNPOP_LIFESPAN", "ten")
	t.Setenv("DYNPOP_THRESHOLD", "half")

	config := Default()
	applyEnvOverrides(config)

	if config.Simulation.Model != models.ModelCascade {
		t.Errorf("expected Model unchanged, got '%s'", config.Simulation.Model)
	}
	if config.Simulation.Lifespan != 10 {
		t.Errorf("expected Lifespan unchanged, got %d", config.Simulation.Lifespan)
	}
	if config.Simulation.Threshold != 0.5 {
		t.Errorf("expected Threshold unchanged, got %f", config.Simulation.Threshold)
	}
}

func TestEnvOverrides_LogLevel(t *testing.T) {
	t.Setenv("DYNPOP_LOG_LEVEL", "debug")

	config := Default()
	applyEnvOverrides(config)

	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
}

func TestLoadWithFile_ExplicitPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DYNPOP_LIFESPAN", "6")

	configPath := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(configPath, []byte("simulation:\n  lifespan: 2\n  threshold: 0.9\n"), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile failed: %v", err)
	}
	if config.Simulation.Threshold != 0.9 {
		t.Errorf("expected Threshold 0.9 from file, got %f", config.Simulation.Threshold)
	}
	// Environment wins over the file.
	if config.Simulation.Lifespan != 6 {
		t.Errorf("expected Lifespan 6 from env, got %d", config.Simulation.Lifespan)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Simulation.Threshold != 0.5 {
		t.Errorf("expected default Threshold, got %f", config.Simulation.Threshold)
	}
}

func TestValidate_Valid(t *testing.T) {
	config := Default()
	if err := config.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidSimulation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DynpopConfig)
		wantErr error
	}{
		{"threshold", func(c *DynpopConfig) { c.Simulation.Threshold = 1.1 }, simulation.ErrInvalidParameter},
		{"lifespan", func(c *DynpopConfig) { c.Simulation.Lifespan = -2 }, simulation.ErrInvalidParameter},
		{"shelter", func(c *DynpopConfig) { c.Simulation.Shelter = 2 }, simulation.ErrInvalidProportions},
		{"sum", func(c *DynpopConfig) { c.Simulation.Shelter, c.Simulation.Vaccination = 0.7, 0.7 }, simulation.ErrInvalidProportions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			if err := config.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_InvalidFormat(t *testing.T) {
	config := Default()
	config.Output.Format = "parquet"
	err := config.Validate()
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), "invalid export format") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	config := Default()
	config.Logging.Level = "verbose"
	err := config.Validate()
	if err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestValidate_ValidLogLevels(t *testing.T) {
	for _, level := range []string{"info", "debug", "trace", ""} {
		config := Default()
		config.Logging.Level = level
		if err := config.Validate(); err != nil {
			t.Errorf("expected valid level %q, got error: %v", level, err)
		}
	}
}

func TestGetSet(t *testing.T) {
	config := Default()

	tests := []struct {
		key   string
		value string
		want  any
	}{
		{"simulation.action", "covid", "covid"},
		{"simulation.threshold", "0.75", 0.75},
		{"simulation.probability_of_infection", "0.2", 0.2},
		{"simulation.lifespan", "7", 7},
		{"simulation.max_rounds", "30", 30},
		{"simulation.seed", "99", uint64(99)},
		{"simulation.seed", "", ""},
		{"output.format", "jsonl", "jsonl"},
		{"output.metrics_out", "m.prom", "m.prom"},
		{"logging.level", "trace", "trace"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			if err := config.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%s, %s): %v", tt.key, tt.value, err)
			}
			got, ok := config.Get(tt.key)
			if !ok {
				t.Fatalf("Get(%s) not found", tt.key)
			}
			if got != tt.want {
				t.Errorf("Get(%s) = %v (%T), want %v (%T)", tt.key, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestSet_Errors(t *testing.T) {
	config := Default()
	if err := config.Set("simulation.threshold", "high"); err == nil {
		t.Error("expected error for non-numeric threshold")
	}
	if err := config.Set("simulation.action", "sir"); err == nil {
		t.Error("expected error for unknown model")
	}
	if err := config.Set("llm.provider", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestKeysAreGettable(t *testing.T) {
	config := Default()
	for _, key := range Keys {
		if _, ok := config.Get(key); !ok {
			t.Errorf("Keys lists %s but Get does not know it", key)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := Default()
	if err := config.Set("simulation.action", "covid"); err != nil {
		t.Fatal(err)
	}
	if err := config.Set("simulation.seed", "5"); err != nil {
		t.Fatal(err)
	}
	if err := config.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Simulation.Model != models.ModelEpidemic {
		t.Errorf("expected Model 'covid', got '%s'", loaded.Simulation.Model)
	}
	if loaded.Simulation.Seed == nil || *loaded.Simulation.Seed != 5 {
		t.Errorf("expected Seed 5, got %v", loaded.Simulation.Seed)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("simulation: [not: valid"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
