package models

import "encoding/json"

// Snapshot is a point-in-time copy of every node's state. It shares the
// (immutable) node ordering with the store that produced it but owns its
// state slice, so consumers can hold on to it while the simulation moves on.
type Snapshot struct {
	ids    []string
	index  map[string]int
	states []NodeState
}

// NewSnapshot copies states. ids and index are shared and must not be
// modified by anyone after construction.
func NewSnapshot(ids []string, index map[string]int, states []NodeState) Snapshot {
	cp := make([]NodeState, len(states))
	copy(cp, states)
	return Snapshot{ids: ids, index: index, states: cp}
}

// Len returns the number of nodes.
func (s Snapshot) Len() int { return len(s.states) }

// IDs returns node IDs in graph order. The slice must not be modified.
func (s Snapshot) IDs() []string { return s.ids }

// At returns the i-th node in graph order.
func (s Snapshot) At(i int) (string, NodeState) {
	return s.ids[i], s.states[i]
}

// State returns the state of id.
func (s Snapshot) State(id string) (NodeState, bool) {
	i, ok := s.index[id]
	if !ok {
		return NodeState{}, false
	}
	return s.states[i], true
}

// States returns a fresh map from node ID to state.
func (s Snapshot) States() map[string]NodeState {
	out := make(map[string]NodeState, len(s.states))
	for i, st := range s.states {
		out[s.ids[i]] = st
	}
	return out
}

// Count returns how many nodes are in status st.
func (s Snapshot) Count(st Status) int {
	n := 0
	for _, ns := range s.states {
		if ns.Status == st {
			n++
		}
	}
	return n
}

// Counts returns the number of nodes per status. Every status is present.
func (s Snapshot) Counts() map[Status]int {
	out := make(map[Status]int, len(AllStatuses))
	for _, st := range AllStatuses {
		out[st] = 0
	}
	for _, ns := range s.states {
		out[ns.Status]++
	}
	return out
}

// WithStatus returns the IDs in status st, in graph order.
func (s Snapshot) WithStatus(st Status) []string {
	var out []string
	for i, ns := range s.states {
		if ns.Status == st {
			out = append(out, s.ids[i])
		}
	}
	return out
}

// RoundSnapshot is one element of a simulation's output sequence.
type RoundSnapshot struct {
	Snapshot

	// Round is 0 for the initial state.
	Round int

	// NewTransitions counts nodes that adopted (cascade) or became infected
	// (epidemic) in this round. Always 0 for round 0.
	NewTransitions int

	// Recoveries counts Infected -> Recovered transitions in this round.
	Recoveries int
}

type roundSnapshotJSON struct {
	Round          int                  `json:"round"`
	NewTransitions int                  `json:"new_transitions"`
	Recoveries     int                  `json:"recoveries"`
	States         map[string]NodeState `json:"states"`
}

// MarshalJSON encodes the round with its states keyed by node ID.
func (r RoundSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(roundSnapshotJSON{
		Round:          r.Round,
		NewTransitions: r.NewTransitions,
		Recoveries:     r.Recoveries,
		States:         r.States(),
	})
}
