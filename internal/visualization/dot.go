// Package visualization renders a graph coloured by node state.
package visualization

import (
	"fmt"
	"strings"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/graph"
	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// statusColors maps node states to DOT colors. S/I/R/V follow the legend of
// the original drawing tool.
var statusColors = map[models.Status]string{
	models.Susceptible: "lightblue",
	models.Infected:    "red",
	models.Recovered:   "yellow",
	models.Vaccinated:  "green",
	models.Adopted:     "red",
	models.Sheltered:   "gray",
}

// StatusColor returns the fill colour used for st.
func StatusColor(st models.Status) string {
	if c, ok := statusColors[st]; ok {
		return c
	}
	return "white"
}

// RenderDOT produces a Graphviz DOT representation of g with every node
// filled according to its state in snap. Nodes missing from snap are drawn
// as susceptible.
func RenderDOT(g *graph.AdjacencyGraph, snap models.Snapshot, title string) string {
	var b strings.Builder
	kind, arrow := "graph", "--"
	if g.Directed() {
		kind, arrow = "digraph", "->"
	}

	fmt.Fprintf(&b, "%s dynpop {\n", kind)
	if title != "" {
		fmt.Fprintf(&b, "  label=%q;\n  labelloc=t;\n", title)
	}
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\"];\n\n")

	present := make(map[models.Status]bool)
	for _, id := range g.Nodes() {
		st, _ := snap.State(id)
		present[st.Status] = true

		label := g.Label(id)
		if st.Status == models.Infected {
			label = fmt.Sprintf("%s\\n%d", label, st.DaysRemaining)
		}
		fmt.Fprintf(&b, "  %q [label=%q, fillcolor=%q, tooltip=%q];\n",
			id, label, StatusColor(st.Status), st.Status.String())
	}
	b.WriteString("\n")

	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "  %q %s %q;\n", e.Source, arrow, e.Target)
	}

	// Legend lists only the states that appear.
	var legend []models.Status
	for _, st := range models.AllStatuses {
		if present[st] {
			legend = append(legend, st)
		}
	}
	if len(legend) > 0 {
		b.WriteString("\n  subgraph cluster_legend {\n    label=\"legend\";\n")
		for _, st := range legend {
			fmt.Fprintf(&b, "    \"legend_%s\" [label=%q, shape=box, fillcolor=%q];\n",
				st.Code(), st.String(), StatusColor(st))
		}
		b.WriteString("  }\n")
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON graph representation with nodes and edges arrays.
func RenderJSON(g *graph.AdjacencyGraph, snap models.Snapshot) map[string]interface{} {
	nodes := make([]map[string]interface{}, 0, g.Len())
	for _, id := range g.Nodes() {
		st, _ := snap.State(id)
		entry := map[string]interface{}{
			"id":     id,
			"label":  g.Label(id),
			"status": st.Status.String(),
			"color":  StatusColor(st.Status),
		}
		if st.Status == models.Infected {
			entry["days_remaining"] = st.DaysRemaining
		}
		nodes = append(nodes, entry)
	}

	edges := g.Edges()
	return map[string]interface{}{
		"directed":   g.Directed(),
		"nodes":      nodes,
		"edges":      edges,
		"node_count": len(nodes),
		"edge_count": len(edges),
	}
}
