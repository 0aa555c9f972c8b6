package session

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ritzau/mutual-graph/pkg/graph"
	"github.com/ritzau/mutual-graph/pkg/layout"
	"github.com/ritzau/mutual-graph/pkg/metrics"
	"github.com/ritzau/mutual-graph/pkg/model"
	"github.com/ritzau/mutual-graph/pkg/pubsub"
	"github.com/ritzau/mutual-graph/pkg/selection"
)

var numbers = message.NewPrinter(language.English)

// Session is one committed load: the sources it came from, the merged
// records, the rendered graph and its selection state. A session is never
// modified after commit except for selection state; reloads and filter
// toggles replace it.
type Session struct {
	ID         string
	Sources    []*model.Source // After origin augmentation
	Canonical  *model.Canonical
	Roots      model.RootSet
	Graph      *graph.Graph // As rendered, after the leaf filter
	HideLeaves bool
	Removed    []string // Identities hidden by the leaf filter
	Layout     layout.Engine

	mu        sync.Mutex
	selection *selection.Engine
}

func newSession(id string, b *buildResult, eng layout.Engine) *Session {
	return &Session{
		ID:         id,
		Sources:    b.sources,
		Canonical:  b.canonical,
		Roots:      b.roots,
		Graph:      b.graph,
		HideLeaves: b.hideLeaves,
		Removed:    b.removed,
		Layout:     eng,
		selection:  selection.New(b.graph, eng),
	}
}

// Select highlights a node and its neighbours.
func (s *Session) Select(id string) (selection.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.CountSelection("select")
	return s.selection.Select(id)
}

// Search highlights nodes whose label contains query.
func (s *Session) Search(query string) selection.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.CountSelection("search")
	return s.selection.Search(query)
}

// Clear drops any selection or search.
func (s *Session) Clear() selection.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.CountSelection("clear")
	return s.selection.Clear()
}

// SetAvatarMode switches node rendering between dots and avatar images.
func (s *Session) SetAvatarMode(on bool) selection.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.CountSelection("avatars")
	return s.selection.SetAvatarMode(on)
}

// SelectionState returns the current selection state.
func (s *Session) SelectionState() selection.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.State()
}

// AvatarMode reports whether avatar rendering is on.
func (s *Session) AvatarMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.AvatarMode()
}

// Stats returns the status line shown under the graph.
func (s *Session) Stats() string {
	return FormatStats(len(s.Sources), s.Graph.Len(), s.Graph.EdgeCount())
}

// Summary describes the session for clients.
func (s *Session) Summary(stabilized bool) pubsub.GraphSummary {
	return pubsub.GraphSummary{
		LoadID:     s.ID,
		Sources:    len(s.Sources),
		Nodes:      s.Graph.Len(),
		Edges:      s.Graph.EdgeCount(),
		Roots:      s.Roots.Sorted(),
		HideLeaves: s.HideLeaves,
		Removed:    len(s.Removed),
		Stats:      s.Stats(),
		Stabilized: stabilized,
	}
}

// FormatStats renders "Sources: N | Nodes: n | Edges: e" with thousands
// separators.
func FormatStats(sources, nodes, edges int) string {
	return fmt.Sprintf("Sources: %d | Nodes: %s | Edges: %s",
		sources, numbers.Sprintf("%d", nodes), numbers.Sprintf("%d", edges))
}
