// Package constants provides named constants used throughout the dynpop codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Simulation defaults. These match the command-line defaults of the tool
// dynpop replaces, so existing invocations behave the same.
const (
	// DefaultThreshold is the adopted-neighbor fraction needed to adopt.
	DefaultThreshold = 0.5

	// DefaultInfectionProbability is the per-contact transmission probability.
	DefaultInfectionProbability = 0.1

	// DefaultLifespan is the number of rounds a node stays infected.
	DefaultLifespan = 10

	// DefaultShelter is the fraction of nodes sheltered before round 0.
	DefaultShelter = 0.0

	// DefaultVaccination is the fraction of nodes vaccinated before round 0.
	DefaultVaccination = 0.0

	// DefaultMaxRounds of 0 means the cap is derived from the graph size.
	DefaultMaxRounds = 0
)

// Output and file locations
const (
	// ConfigDirName is the per-user directory holding config and traces.
	ConfigDirName = ".dynpop"

	// ConfigFileName is the YAML config file inside ConfigDirName.
	ConfigFileName = "config.yaml"

	// DefaultExportFormat is used when --export is given without --format.
	DefaultExportFormat = "arrow"

	// DefaultLogLevel is the stderr log level.
	DefaultLogLevel = "info"
)

// Display constants
const (
	// PlotWidth is the maximum bar length in the new-cases chart.
	PlotWidth = 50

	// ViewerPageSize is the number of nodes shown per page in the round viewer.
	ViewerPageSize = 20
)

// Storage constants
const (
	// MaxRunsListed is the default limit for `dynpop runs list`.
	MaxRunsListed = 20
)
