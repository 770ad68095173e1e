package spreading

import (
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// Store holds the current state of every node. Only the rules in this
// package mutate it; everyone else reads it or takes a Snapshot.
//
// The id order and index are fixed at construction and shared with every
// clone and snapshot, so they must never be modified.
type Store struct {
	ids    []string
	index  map[string]int
	states []models.NodeState
}

// NewStore creates a store with every node of g Susceptible.
func NewStore(g graph.Graph) *Store {
	nodes := g.Nodes()
	ids := make([]string, len(nodes))
	copy(ids, nodes)

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	return &Store{
		ids:    ids,
		index:  index,
		states: make([]models.NodeState, len(ids)),
	}
}

// Len returns the number of nodes.
func (s *Store) Len() int { return len(s.states) }

// IDs returns node IDs in graph order. The slice must not be modified.
func (s *Store) IDs() []string { return s.ids }

// Get returns the state of id.
func (s *Store) Get(id string) (models.NodeState, bool) {
	i, ok := s.index[id]
	if !ok {
		return models.NodeState{}, false
	}
	return s.states[i], true
}

// Each calls fn for every node in graph order.
func (s *Store) Each(fn func(id string, st models.NodeState)) {
	for i, st := range s.states {
		fn(s.ids[i], st)
	}
}

// Count returns how many nodes are in status st.
func (s *Store) Count(st models.Status) int {
	n := 0
	for _, ns := range s.states {
		if ns.Status == st {
			n++
		}
	}
	return n
}

// Counts returns the number of nodes per status. Every status is present.
func (s *Store) Counts() map[models.Status]int {
	out := make(map[models.Status]int, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		out[st] = 0
	}
	for _, ns := range s.states {
		out[ns.Status]++
	}
	return out
}

// Snapshot returns an immutable copy of the current states.
func (s *Store) Snapshot() models.Snapshot {
	return models.NewSnapshot(s.ids, s.index, s.states)
}

// set overwrites the state of the i-th node.
func (s *Store) set(i int, st models.NodeState) {
	s.states[i] = st
}

// clone returns a store with the same ordering and a copy of the states.
func (s *Store) clone() *Store {
	states := make([]models.NodeState, len(s.states))
	copy(states, s.states)
	return &Store{ids: s.ids, index: s.index, states: states}
}

// Transition records a single node changing state between two rounds.
type Transition struct {
	Node string
	From models.NodeState
	To   models.NodeState
}

// Diff lists the nodes whose state differs between prev and next.
// Both stores must come from the same graph.
func Diff(prev, next *Store) []Transition {
	var out []Transition
	for i := range prev.states {
		if prev.states[i] != next.states[i] {
			out = append(out, Transition{Node: prev.ids[i], From: prev.states[i], To: next.states[i]})
		}
	}
	return out
}
