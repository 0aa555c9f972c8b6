package selection

import (
	"fmt"
	"strings"

	"github.com/ritzau/mutual-graph/pkg/graph"
	"github.com/ritzau/mutual-graph/pkg/layout"
	"github.com/ritzau/mutual-graph/pkg/model"
)

// Engine computes highlight updates for one built graph and pushes them to
// the layout engine. It is not safe for concurrent use; callers serialise
// access.
type Engine struct {
	graph  *graph.Graph
	layout layout.Engine
	nodes  []model.Node
	edges  []model.Edge

	state     State
	avatars   bool
	reshape   bool            // Next update carries shape fields
	hidden    map[string]bool // Edge key -> currently hidden
	fallbacks map[string]string
}

// New creates an idle engine for g. The graph is expected to be loaded into
// eng already.
func New(g *graph.Graph, eng layout.Engine) *Engine {
	return &Engine{
		graph:     g,
		layout:    eng,
		nodes:     g.Nodes(),
		edges:     g.Edges(),
		state:     State{Mode: ModeIdle},
		hidden:    make(map[string]bool),
		fallbacks: make(map[string]string),
	}
}

// State returns the current selection state.
func (e *Engine) State() State {
	return e.state
}

// AvatarMode reports whether nodes are drawn as avatar images.
func (e *Engine) AvatarMode() bool {
	return e.avatars
}

// Select highlights id and its neighbours, dims everything else and hides
// edges that leave the neighbourhood.
func (e *Engine) Select(id string) (Update, error) {
	if !e.graph.Has(id) {
		return Update{}, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return e.selectNode(id, "", true), nil
}

// Search highlights every node whose label contains query, case-insensitive.
// An empty query clears the selection. A single match behaves like selecting
// it. Without matches the base styles are restored and the state remembers
// the query.
func (e *Engine) Search(query string) Update {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return e.Clear()
	}

	var matched []string
	for _, n := range e.nodes {
		if strings.Contains(strings.ToLower(n.Label), q) {
			matched = append(matched, n.ID)
		}
	}

	switch len(matched) {
	case 0:
		return e.apply(State{Mode: ModeSearching, Query: q}, e.styles(nil, nil, roleBase, roleBase), nil, "")
	case 1:
		return e.selectNode(matched[0], q, true)
	}

	matchedSet := toSet(matched)
	around := make(map[string]bool)
	for _, id := range matched {
		for _, nb := range e.layout.Neighbors(id) {
			if !matchedSet[nb] && e.graph.Has(nb) {
				around[nb] = true
			}
		}
	}
	neighbors := e.inNodeOrder(around)

	state := State{Mode: ModeSearching, Query: q, Matched: matched, Neighbors: neighbors}
	visible := toSet(matched)
	for id := range around {
		visible[id] = true
	}
	return e.apply(state, e.styles(matchedSet, around, roleSearchNeighbor, roleDimSearch), visible, matched[0])
}

// Clear restores base styles and shows every edge.
func (e *Engine) Clear() Update {
	return e.apply(State{Mode: ModeIdle}, e.styles(nil, nil, roleBase, roleBase), nil, "")
}

// SetAvatarMode switches between coloured dots and avatar images, then
// re-applies the current selection or search in the new mode.
func (e *Engine) SetAvatarMode(on bool) Update {
	e.avatars = on
	e.reshape = true

	switch {
	case e.state.Mode == ModeSelected && e.state.Query == "":
		return e.selectNode(e.state.SelectedID, "", false)
	case e.state.Query != "":
		return e.Search(e.state.Query)
	default:
		return e.Clear()
	}
}

func (e *Engine) selectNode(id, query string, focus bool) Update {
	around := make(map[string]bool)
	for _, nb := range e.layout.Neighbors(id) {
		if nb != id && e.graph.Has(nb) {
			around[nb] = true
		}
	}

	state := State{
		Mode:       ModeSelected,
		SelectedID: id,
		Query:      query,
		Neighbors:  e.inNodeOrder(around),
	}
	if query != "" {
		state.Matched = []string{id}
	}

	visible := map[string]bool{id: true}
	for nb := range around {
		visible[nb] = true
	}
	focusID := ""
	if focus {
		focusID = id
	}
	return e.apply(state, e.styles(map[string]bool{id: true}, around, roleNeighbor, roleDimSelect), visible, focusID)
}

// styles assigns highlight to the marked set, the near role to around and
// the other role to everything else.
func (e *Engine) styles(marked, around map[string]bool, near, other role) []layout.NodeStyle {
	out := make([]layout.NodeStyle, len(e.nodes))
	for i, n := range e.nodes {
		r := other
		switch {
		case marked[n.ID]:
			r = roleHighlight
		case around[n.ID]:
			r = near
		}
		out[i] = e.style(n, r, e.reshape)
	}
	return out
}

// apply commits state, computes edge visibility changes for the visible node
// set (nil shows every edge) and pushes the update to the layout engine.
func (e *Engine) apply(state State, styles []layout.NodeStyle, visible map[string]bool, focus string) Update {
	changes := make([]layout.EdgeVisibility, 0)
	for _, edge := range e.edges {
		show := visible == nil || (visible[edge.From] && visible[edge.To])
		key := edge.Key()
		if e.hidden[key] != show {
			continue
		}
		if show {
			delete(e.hidden, key)
		} else {
			e.hidden[key] = true
		}
		changes = append(changes, layout.EdgeVisibility{ID: key, Hidden: !show})
	}

	e.state = state
	e.reshape = false

	e.layout.Update(styles, changes)
	if focus != "" {
		e.layout.Focus(focus)
	}
	return Update{State: state, Nodes: styles, Edges: changes, Focus: focus}
}

// HiddenEdges returns the number of currently hidden edges.
func (e *Engine) HiddenEdges() int {
	return len(e.hidden)
}

// EdgeHidden reports whether the edge with the given key is hidden.
func (e *Engine) EdgeHidden(key string) bool {
	return e.hidden[key]
}

func (e *Engine) inNodeOrder(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for _, n := range e.nodes {
		if set[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
