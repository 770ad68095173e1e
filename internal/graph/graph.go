// Package graph provides the static topology the simulation runs over.
// Graphs are built once (usually from a GML file) and then only read.
package graph

import (
	"errors"
	"fmt"
)

// ErrGraphLoad is returned when a graph source is unreadable or malformed.
var ErrGraphLoad = errors.New("graph load error")

// Graph is the read-only view the simulation consumes.
//
// Nodes and Neighbors must return the same sequence on every call so that
// runs with a fixed seed are reproducible.
type Graph interface {
	// Nodes returns every node ID in a stable order.
	Nodes() []string

	// Neighbors returns the nodes whose state influences id. For undirected
	// graphs these are the adjacent nodes; for directed graphs they are the
	// predecessors (sources of edges pointing at id).
	Neighbors(id string) []string

	// HasNode reports whether id is part of the graph.
	HasNode(id string) bool

	// Len returns the number of nodes.
	Len() int
}

// Edge is a single connection between two nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// AdjacencyGraph implements Graph with insertion-ordered adjacency lists.
// It is not safe for concurrent mutation; once built it may be read freely.
type AdjacencyGraph struct {
	directed bool
	order    []string
	index    map[string]int
	inbound  [][]int // inbound[i] lists predecessors of node i (all neighbors if undirected)
	seen     map[[2]int]bool
	edges    []Edge
	labels   map[string]string
}

// New creates an empty graph.
func New(directed bool) *AdjacencyGraph {
	return &AdjacencyGraph{
		directed: directed,
		index:    make(map[string]int),
		seen:     make(map[[2]int]bool),
		labels:   make(map[string]string),
	}
}

// AddNode adds id to the graph. Adding an existing node is a no-op.
func (g *AdjacencyGraph) AddNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.order)
	g.order = append(g.order, id)
	g.inbound = append(g.inbound, nil)
}

// SetLabel attaches a display label to a node.
func (g *AdjacencyGraph) SetLabel(id, label string) {
	if _, ok := g.index[id]; ok && label != "" {
		g.labels[id] = label
	}
}

// Label returns the display label of a node, falling back to its ID.
func (g *AdjacencyGraph) Label(id string) string {
	if l, ok := g.labels[id]; ok {
		return l
	}
	return id
}

// AddEdge connects source to target. Both nodes must already exist.
// Parallel edges are collapsed.
func (g *AdjacencyGraph) AddEdge(source, target string) error {
	s, ok := g.index[source]
	if !ok {
		return fmt.Errorf("edge %s->%s: unknown source node %s", source, target, source)
	}
	t, ok := g.index[target]
	if !ok {
		return fmt.Errorf("edge %s->%s: unknown target node %s", source, target, target)
	}

	key := [2]int{s, t}
	if !g.directed && s > t {
		key = [2]int{t, s}
	}
	if g.seen[key] {
		return nil
	}
	g.seen[key] = true
	g.edges = append(g.edges, Edge{Source: source, Target: target})

	g.inbound[t] = append(g.inbound[t], s)
	if !g.directed && s != t {
		g.inbound[s] = append(g.inbound[s], t)
	}
	return nil
}

// Directed reports whether edges are one-way.
func (g *AdjacencyGraph) Directed() bool { return g.directed }

// Nodes returns node IDs in insertion order. The slice must not be modified.
func (g *AdjacencyGraph) Nodes() []string { return g.order }

// Len returns the number of nodes.
func (g *AdjacencyGraph) Len() int { return len(g.order) }

// EdgeCount returns the number of distinct edges.
func (g *AdjacencyGraph) EdgeCount() int { return len(g.edges) }

// Edges returns a copy of the edge list in insertion order.
func (g *AdjacencyGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// HasNode reports whether id is part of the graph.
func (g *AdjacencyGraph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Neighbors returns the predecessors of id (all adjacent nodes when the
// graph is undirected). Unknown IDs have no neighbors.
func (g *AdjacencyGraph) Neighbors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, len(g.inbound[i]))
	for j, n := range g.inbound[i] {
		out[j] = g.order[n]
	}
	return out
}

// Degree returns len(Neighbors(id)) without allocating.
func (g *AdjacencyGraph) Degree(id string) int {
	i, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.inbound[i])
}

// Stats summarizes a graph's shape.
type Stats struct {
	Nodes     int     `json:"nodes"`
	Edges     int     `json:"edges"`
	Directed  bool    `json:"directed"`
	MinDegree int     `json:"min_degree"`
	MaxDegree int     `json:"max_degree"`
	AvgDegree float64 `json:"avg_degree"`
	Isolated  int     `json:"isolated"`
}

// ComputeStats returns degree statistics, where degree counts the
// neighbors a node is influenced by.
func ComputeStats(g *AdjacencyGraph) Stats {
	st := Stats{Nodes: g.Len(), Edges: g.EdgeCount(), Directed: g.directed}
	if g.Len() == 0 {
		return st
	}
	st.MinDegree = g.Degree(g.order[0])
	total := 0
	for _, id := range g.order {
		d := g.Degree(id)
		total += d
		if d < st.MinDegree {
			st.MinDegree = d
		}
		if d > st.MaxDegree {
			st.MaxDegree = d
		}
		if d == 0 {
			st.Isolated++
		}
	}
	st.AvgDegree = float64(total) / float64(g.Len())
	return st
}
