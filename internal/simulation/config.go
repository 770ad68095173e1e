package simulation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/constants"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// validate is a singleton validator instance
var validate = validator.New()

// Config holds the parameters of a single run. Treat it as immutable once
// passed to New.
type Config struct {
	Model       models.Model `yaml:"action" json:"action" validate:"required,oneof=cascade covid"`
	Initiators  []string     `yaml:"initiators,omitempty" json:"initiators,omitempty"`
	Threshold   float64      `yaml:"threshold" json:"threshold" validate:"gte=0,lte=1"`
	Probability float64      `yaml:"probability_of_infection" json:"probability_of_infection" validate:"gte=0,lte=1"`
	Lifespan    int          `yaml:"lifespan" json:"lifespan" validate:"gt=0"`
	Shelter     float64      `yaml:"shelter" json:"shelter" validate:"gte=0,lte=1"`
	Vaccination float64      `yaml:"vaccination" json:"vaccination" validate:"gte=0,lte=1"`

	// MaxRounds caps the number of steps. 0 derives the cap from the graph.
	MaxRounds int `yaml:"max_rounds" json:"max_rounds" validate:"gte=0"`

	// Seed makes a run reproducible. Nil picks a fresh seed per run.
	Seed *uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// Display flags. They never influence the simulation itself.
	Interactive bool `yaml:"interactive" json:"interactive"`
	Plot        bool `yaml:"plot" json:"plot"`
}

// DefaultConfig returns a cascade configuration with the stock parameters
// and no initiators.
func DefaultConfig() Config {
	return Config{
		Model:       models.ModelCascade,
		Threshold:   constants.DefaultThreshold,
		Probability: constants.DefaultInfectionProbability,
		Lifespan:    constants.DefaultLifespan,
		Shelter:     constants.DefaultShelter,
		Vaccination: constants.DefaultVaccination,
		MaxRounds:   constants.DefaultMaxRounds,
	}
}

// ValidateParams checks everything that does not depend on the graph.
func (c Config) ValidateParams() error {
	if err := validate.Struct(c); err != nil {
		return classify(err)
	}
	if c.Shelter+c.Vaccination > 1 {
		return fmt.Errorf("%w: shelter %.3g + vaccination %.3g exceeds 1", ErrInvalidProportions, c.Shelter, c.Vaccination)
	}
	return nil
}

// Validate checks the configuration against g. It fails on the first
// problem found and wraps one of the package sentinels.
func (c Config) Validate(g graph.Graph) error {
	if err := c.ValidateParams(); err != nil {
		return err
	}
	if len(c.Initiators) == 0 {
		return fmt.Errorf("%w: no initiators given", ErrInvalidInitiator)
	}
	for _, id := range c.Initiators {
		if !g.HasNode(id) {
			return fmt.Errorf("%w: node %q is not in the graph", ErrInvalidInitiator, id)
		}
	}
	return nil
}

// classify maps validator field errors onto the package sentinels.
func classify(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	fe := verrs[0]
	sentinel := ErrInvalidParameter
	switch fe.Field() {
	case "Shelter", "Vaccination":
		sentinel = ErrInvalidProportions
	}
	return fmt.Errorf("%w: %s", sentinel, describe(fe))
}

func describe(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s %q must be one of [%s]", name, fe.Value(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s %v must be >= %s", name, fe.Value(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s %v must be <= %s", name, fe.Value(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s %v must be > %s", name, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}

// CapFor returns the effective round cap for a graph with n nodes.
func (c Config) CapFor(n int) int {
	if c.MaxRounds > 0 {
		return c.MaxRounds
	}
	if c.Model == models.ModelEpidemic {
		return n*c.Lifespan + 1
	}
	return n
}
