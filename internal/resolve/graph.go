// Package resolve turns raw import specifiers into concrete file-to-file
// edges and assembles the dependency graph. Resolution runs strictly after
// the analysis phase: it reads the completed module map and requires no
// locking.
package resolve

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Node is a file in the dependency graph, annotated with its language.
type Node struct {
	Path     string `json:"path"`
	Language string `json:"language"`
}

// Edge is a directed "imports" relation between two files.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is an explicit node/edge set. It is directed and may contain
// cycles; nothing here assumes acyclicity. Files with no imports and no
// importers are still present as isolated nodes.
type Graph struct {
	nodes map[string]Node
	edges map[Edge]bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		edges: make(map[Edge]bool),
	}
}

// AddNode registers a file. Re-adding the same path is a no-op.
func (g *Graph) AddNode(path, language string) {
	if _, ok := g.nodes[path]; !ok {
		g.nodes[path] = Node{Path: path, Language: language}
	}
}

// AddEdge records a directed import relation, deduplicated per
// (from, to) pair.
func (g *Graph) AddEdge(from, to string) {
	g.edges[Edge{From: from, To: to}] = true
}

// HasEdge reports whether the graph contains from -> to.
func (g *Graph) HasEdge(from, to string) bool {
	return g.edges[Edge{From: from, To: to}]
}

// Nodes returns all nodes sorted by path.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Edges returns all edges sorted by (from, to).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// NodeCount and EdgeCount report graph size.
func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// WriteJSON writes the nodes+edges artifact consumed by external tooling.
func (g *Graph) WriteJSON(w io.Writer) error {
	artifact := struct {
		Nodes []Node `json:"nodes"`
		Edges []Edge `json:"edges"`
	}{Nodes: g.Nodes(), Edges: g.Edges()}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(artifact); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

// WriteDOT writes the graph in Graphviz DOT form under the given digraph
// name, for the external renderer. Rendering itself is out of scope here.
func (g *Graph) WriteDOT(w io.Writer, name string) error {
	if _, err := fmt.Fprintf(w, "digraph %s {\n", name); err != nil {
		return fmt.Errorf("write dot: %w", err)
	}
	for _, n := range g.Nodes() {
		if _, err := fmt.Fprintf(w, "  %q [label=%q, language=%q];\n", n.Path, n.Path, n.Language); err != nil {
			return fmt.Errorf("write dot: %w", err)
		}
	}
	for _, e := range g.Edges() {
		if _, err := fmt.Fprintf(w, "  %q -> %q;\n", e.From, e.To); err != nil {
			return fmt.Errorf("write dot: %w", err)
		}
	}
	if _, err := fmt.Fprintln(w, "}"); err != nil {
		return fmt.Errorf("write dot: %w", err)
	}
	return nil
}
