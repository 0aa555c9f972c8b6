package layout

import (
	"sync"

	"github.com/ritzau/mutual-graph/pkg/graph"
	"github.com/ritzau/mutual-graph/pkg/model"
)

// Mirror is an Engine that keeps the last loaded graph and the accumulated
// attribute updates in memory. Neighbour queries are answered from the
// loaded graph.
type Mirror struct {
	mu         sync.Mutex
	graph      *graph.Graph
	styles     map[string]NodeStyle
	hidden     map[string]bool
	focus      string
	updates    int
	stabilized chan struct{}
	settled    bool
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	m := &Mirror{}
	m.Load(nil, nil)
	return m
}

func (m *Mirror) Load(nodes []model.Node, edges []model.Edge) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.graph = graph.New(nodes, edges)
	m.styles = make(map[string]NodeStyle, len(nodes))
	m.hidden = make(map[string]bool)
	m.focus = ""
	m.updates = 0
	m.stabilized = make(chan struct{})
	m.settled = false
}

// Update merges the partial attributes into the recorded state. Shape and
// image fields are kept from earlier updates when a later one leaves them
// empty, like the engine does.
func (m *Mirror) Update(nodes []NodeStyle, edges []EdgeVisibility) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range nodes {
		prev, ok := m.styles[s.ID]
		if ok && s.Shape == "" {
			s.Shape = prev.Shape
			s.Image = prev.Image
			s.BrokenImage = prev.BrokenImage
		}
		m.styles[s.ID] = s
	}
	for _, e := range edges {
		if e.Hidden {
			m.hidden[e.ID] = true
		} else {
			delete(m.hidden, e.ID)
		}
	}
	m.updates++
}

func (m *Mirror) Neighbors(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.Neighbors(id)
}

func (m *Mirror) Focus(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focus = id
}

func (m *Mirror) Stabilized() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stabilized
}

// MarkStabilized signals that the layout of the current graph has settled.
// Repeated calls are ignored until the next Load.
func (m *Mirror) MarkStabilized() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.settled {
		m.settled = true
		close(m.stabilized)
	}
}

// Style returns the accumulated style of a node.
func (m *Mirror) Style(id string) (NodeStyle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.styles[id]
	return s, ok
}

// Hidden reports whether the edge with the given key is hidden.
func (m *Mirror) Hidden(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hidden[key]
}

// HiddenCount returns the number of hidden edges.
func (m *Mirror) HiddenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hidden)
}

// Focused returns the last focused identity.
func (m *Mirror) Focused() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focus
}

// Updates returns how many updates were applied since the last Load.
func (m *Mirror) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}
