// Package filter prunes nodes whose only connection is an export origin.
//
// Every person in an export is connected to its origin, so with several
// exports loaded most of the graph is a fan of single-edge leaves around
// each origin. Hiding them leaves the people that link exports together.
package filter

import (
	"fmt"
	"strings"

	"github.com/ritzau/mutual-graph/pkg/graph"
	"github.com/ritzau/mutual-graph/pkg/model"
)

// Mode selects whether root leaves are hidden.
type Mode string

const (
	// ModeAuto hides root leaves when more than one source is loaded.
	ModeAuto Mode = "auto"
	ModeOn   Mode = "on"
	ModeOff  Mode = "off"
)

// ParseMode accepts auto/on/off and the usual boolean spellings.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "on", "true", "yes", "1":
		return ModeOn, nil
	case "off", "false", "no", "0":
		return ModeOff, nil
	default:
		return "", fmt.Errorf("invalid hide-leaves mode %q (want auto, on or off)", s)
	}
}

// ModeFor converts an explicit toggle to a Mode.
func ModeFor(enabled bool) Mode {
	if enabled {
		return ModeOn
	}
	return ModeOff
}

// Enabled resolves the mode for a load of sourceCount sources.
func (m Mode) Enabled(sourceCount int) bool {
	switch m {
	case ModeOn:
		return true
	case ModeOff:
		return false
	default:
		return sourceCount > 1
	}
}

// RootLeaves removes every non-root node that has exactly one neighbour when
// that neighbour is a root. The pass is single: nodes that become leaves
// after the removal are kept. Edges touching a removed node are dropped.
func RootLeaves(nodes []model.Node, edges []model.Edge, roots model.RootSet) ([]model.Node, []model.Edge, []string) {
	if len(roots) == 0 {
		return nodes, edges, nil
	}

	adj := make(map[string]map[string]struct{}, len(nodes))
	link := func(a, b string) {
		set, ok := adj[a]
		if !ok {
			set = make(map[string]struct{})
			adj[a] = set
		}
		set[b] = struct{}{}
	}
	for _, e := range edges {
		link(e.From, e.To)
		link(e.To, e.From)
	}

	removed := make(map[string]bool)
	var removedIDs []string
	for _, n := range nodes {
		neighbours := adj[n.ID]
		if len(neighbours) != 1 || roots.Has(n.ID) {
			continue
		}
		for only := range neighbours {
			if roots.Has(only) {
				removed[n.ID] = true
				removedIDs = append(removedIDs, n.ID)
			}
		}
	}
	if len(removed) == 0 {
		return nodes, edges, nil
	}

	keptNodes := make([]model.Node, 0, len(nodes)-len(removed))
	for _, n := range nodes {
		if !removed[n.ID] {
			keptNodes = append(keptNodes, n)
		}
	}
	keptEdges := make([]model.Edge, 0, len(edges))
	for _, e := range edges {
		if !removed[e.From] && !removed[e.To] {
			keptEdges = append(keptEdges, e)
		}
	}
	return keptNodes, keptEdges, removedIDs
}

// Apply filters g and returns a new graph whose degrees count only the kept
// edges, along with the removed identities. Without roots, or when nothing is
// removed, g itself is returned.
func Apply(g *graph.Graph, roots model.RootSet) (*graph.Graph, []string) {
	nodes, edges, removed := RootLeaves(g.Nodes(), g.Edges(), roots)
	if len(removed) == 0 {
		return g, nil
	}
	return graph.New(nodes, edges), removed
}
