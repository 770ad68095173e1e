package models

import (
	"fmt"
	"strings"
)

// Model selects which spreading process drives a simulation.
type Model string

const (
	ModelCascade  Model = "cascade" // Threshold adoption
	ModelEpidemic Model = "covid"   // Probabilistic infection with recovery
)

// ParseModel maps a CLI or config value onto a Model.
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cascade":
		return ModelCascade, nil
	case "covid", "epidemic":
		return ModelEpidemic, nil
	default:
		return "", fmt.Errorf("unknown model %q (valid: cascade, covid)", s)
	}
}

// Status is the tag of a node's state.
type Status uint8

const (
	// Susceptible is the default state of every node.
	Susceptible Status = iota
	// Adopted marks a node that took up the cascading behavior. Never reverts.
	Adopted
	// Sheltered nodes are immune for the whole run. Assigned before round 0.
	Sheltered
	// Vaccinated nodes are immune for the whole run. Assigned before round 0.
	Vaccinated
	// Infected nodes carry a positive DaysRemaining counter.
	Infected
	// Recovered is terminal.
	Recovered
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{Susceptible, Adopted, Sheltered, Vaccinated, Infected, Recovered}

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case Susceptible:
		return "susceptible"
	case Adopted:
		return "adopted"
	case Sheltered:
		return "sheltered"
	case Vaccinated:
		return "vaccinated"
	case Infected:
		return "infected"
	case Recovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// Code returns the single-letter code used in compact displays.
// S/I/R/V follow the original tool's legend.
func (s Status) Code() string {
	switch s {
	case Susceptible:
		return "S"
	case Adopted:
		return "A"
	case Sheltered:
		return "H"
	case Vaccinated:
		return "V"
	case Infected:
		return "I"
	case Recovered:
		return "R"
	default:
		return "?"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Immune reports whether a node in this status can never change again.
func (s Status) Immune() bool {
	return s == Sheltered || s == Vaccinated || s == Recovered
}

// NodeState is the per-node record. DaysRemaining is only meaningful for
// Infected nodes; the constructors keep it zero for every other status.
type NodeState struct {
	Status        Status `json:"status"`
	DaysRemaining int    `json:"days_remaining,omitempty"`
}

// StateOf returns a state with the given status and no payload.
// Use InfectedFor for infected nodes.
func StateOf(s Status) NodeState {
	return NodeState{Status: s}
}

// InfectedFor returns an Infected state with the given number of days left.
func InfectedFor(days int) NodeState {
	return NodeState{Status: Infected, DaysRemaining: days}
}

// Adopted reports whether the node has adopted (cascade model).
func (n NodeState) Adopted() bool {
	return n.Status == Adopted
}

// String renders the state compactly, e.g. "I(3)".
func (n NodeState) String() string {
	if n.Status == Infected {
		return fmt.Sprintf("I(%d)", n.DaysRemaining)
	}
	return n.Status.Code()
}
