// Package graph builds the deduplicated, undirected people graph from the
// canonical merged records.
//
// A Graph is immutable once built: the node and edge lists are fixed and
// neighbour queries are served from a gonum undirected graph. Filtering
// produces a new Graph via New rather than mutating an existing one.
package graph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/mutual-graph/pkg/model"
)

// Graph is the built node/edge model.
type Graph struct {
	graph *simple.UndirectedGraph
	nodes []model.Node
	edges []model.Edge
	ids   map[string]int64 // Map from identity to graph ID (= position in nodes)
	stats Stats
}

// Stats counts what the builder dropped.
type Stats struct {
	Dangling   int // References to identities without a record
	SelfLoops  int
	Duplicates int // Edges already seen from the other endpoint
}

// New assembles a graph from node and edge lists. Edges that reference
// unknown nodes, self-loops and duplicates are dropped. Degree and title of
// every node are recomputed from the kept edges.
func New(nodes []model.Node, edges []model.Edge) *Graph {
	g := newGraph(len(nodes))
	for _, n := range nodes {
		g.addNode(n)
	}
	for _, e := range edges {
		g.addEdge(e.From, e.To)
	}
	g.finish()
	return g
}

func newGraph(capacity int) *Graph {
	return &Graph{
		graph: simple.NewUndirectedGraph(),
		nodes: make([]model.Node, 0, capacity),
		edges: make([]model.Edge, 0),
		ids:   make(map[string]int64, capacity),
	}
}

// addNode appends a node unless its identity is already present.
func (g *Graph) addNode(n model.Node) {
	if _, exists := g.ids[n.ID]; exists {
		return
	}
	id := int64(len(g.nodes))
	g.ids[n.ID] = id
	g.nodes = append(g.nodes, n)
	g.graph.AddNode(simple.Node(id))
}

// addEdge adds the undirected edge a-b and reports whether it was new.
func (g *Graph) addEdge(a, b string) bool {
	from, ok := g.ids[a]
	if !ok {
		g.stats.Dangling++
		return false
	}
	to, ok := g.ids[b]
	if !ok {
		g.stats.Dangling++
		return false
	}
	if from == to {
		g.stats.SelfLoops++
		return false
	}
	if g.graph.HasEdgeBetween(from, to) {
		g.stats.Duplicates++
		return false
	}
	g.graph.SetEdge(g.graph.NewEdge(g.graph.Node(from), g.graph.Node(to)))
	g.edges = append(g.edges, model.NewEdge(a, b))
	return true
}

// finish derives degree and hover title for every node.
func (g *Graph) finish() {
	for i := range g.nodes {
		n := &g.nodes[i]
		n.Degree = g.graph.From(int64(i)).Len()
		n.Title = Title(n.Label, n.Degree)
	}
}

// Title is the hover text of a node.
func Title(label string, degree int) string {
	return fmt.Sprintf("%s\nMutuals: %d", label, degree)
}

// Nodes returns a copy of the nodes in build order.
func (g *Graph) Nodes() []model.Node {
	return append([]model.Node(nil), g.nodes...)
}

// Edges returns a copy of the edges in discovery order.
func (g *Graph) Edges() []model.Edge {
	return append([]model.Edge(nil), g.edges...)
}

// Node returns the node for id.
func (g *Graph) Node(id string) (model.Node, bool) {
	idx, ok := g.ids[id]
	if !ok {
		return model.Node{}, false
	}
	return g.nodes[idx], true
}

// Has reports whether id is a node.
func (g *Graph) Has(id string) bool {
	_, ok := g.ids[id]
	return ok
}

// Neighbors returns the identities adjacent to id in node order.
func (g *Graph) Neighbors(id string) []string {
	idx, ok := g.ids[id]
	if !ok {
		return nil
	}

	iter := g.graph.From(idx)
	positions := make([]int64, 0, iter.Len())
	for iter.Next() {
		positions = append(positions, iter.Node().ID())
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	out := make([]string, len(positions))
	for i, p := range positions {
		out[i] = g.nodes[p].ID
	}
	return out
}

// Degree returns the number of neighbours of id, 0 for unknown ids.
func (g *Graph) Degree(id string) int {
	idx, ok := g.ids[id]
	if !ok {
		return 0
	}
	return g.graph.From(idx).Len()
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Stats returns what was dropped while the graph was assembled.
func (g *Graph) Stats() Stats {
	return g.stats
}
