package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/mutual-graph/pkg/graph"
	"github.com/ritzau/mutual-graph/pkg/layout"
	"github.com/ritzau/mutual-graph/pkg/model"
)

// fixture: a star around "hub" plus a separate pair
//
//	alice - hub - bob     carol - dave
//	         |
//	       alison
func fixture(t *testing.T) (*Engine, *layout.Mirror, *graph.Graph) {
	t.Helper()
	labels := map[string]string{
		"hub": "Hub", "a": "alice", "b": "bob", "s": "alison", "c": "carol", "d": "dave",
	}
	var nodes []model.Node
	for _, id := range []string{"hub", "a", "b", "s", "c", "d"} {
		nodes = append(nodes, model.Node{
			ID:        id,
			Label:     labels[id],
			Color:     graph.ColorFromID(id),
			AvatarURL: "https://img/" + id,
		})
	}
	edges := []model.Edge{
		model.NewEdge("hub", "a"),
		model.NewEdge("hub", "b"),
		model.NewEdge("hub", "s"),
		model.NewEdge("c", "d"),
	}
	g := graph.New(nodes, edges)
	m := layout.NewMirror()
	m.Load(g.Nodes(), g.Edges())
	return New(g, m), m, g
}

func styleOf(u Update, id string) layout.NodeStyle {
	for _, s := range u.Nodes {
		if s.ID == id {
			return s
		}
	}
	return layout.NodeStyle{}
}

func TestSelect_HighlightsNeighbourhood(t *testing.T) {
	e, m, g := fixture(t)

	u, err := e.Select("a")
	require.NoError(t, err)

	assert.Equal(t, State{Mode: ModeSelected, SelectedID: "a", Neighbors: []string{"hub"}}, u.State)
	assert.Equal(t, "a", u.Focus)
	assert.Equal(t, "a", m.Focused())

	a := styleOf(u, "a")
	assert.Equal(t, layout.NodeColor{Background: "#f6c177", Border: "#845a2c"}, a.Color)
	assert.Equal(t, 1.0, a.Opacity)

	hub, _ := g.Node("hub")
	assert.Equal(t, layout.NodeColor{Background: "#9cb9d9", Border: hub.Color.Border}, styleOf(u, "hub").Color)
	assert.Equal(t, 0.9, styleOf(u, "hub").Opacity)

	c, _ := g.Node("c")
	assert.Equal(t, layout.NodeColor{Background: "#394b5a", Border: c.Color.Border}, styleOf(u, "c").Color)
	assert.Equal(t, 0.35, styleOf(u, "c").Opacity)

	// Only hub-a stays visible
	assert.ElementsMatch(t, []layout.EdgeVisibility{
		{ID: "b|hub", Hidden: true},
		{ID: "hub|s", Hidden: true},
		{ID: "c|d", Hidden: true},
	}, u.Edges)
	assert.False(t, m.Hidden("a|hub"))
	assert.Equal(t, 3, m.HiddenCount())
}

func TestSelect_UnknownNode(t *testing.T) {
	e, m, _ := fixture(t)

	_, err := e.Select("nobody")
	require.ErrorIs(t, err, ErrUnknownNode)
	assert.Equal(t, ModeIdle, e.State().Mode)
	assert.Equal(t, 0, m.Updates())
}

func TestSearch_SingleMatchActsLikeSelect(t *testing.T) {
	clicked, _, _ := fixture(t)
	searched, _, _ := fixture(t)

	viaClick, err := clicked.Select("b")
	require.NoError(t, err)
	viaSearch := searched.Search("  BO ")

	assert.Equal(t, viaClick.Nodes, viaSearch.Nodes)
	assert.ElementsMatch(t, viaClick.Edges, viaSearch.Edges)
	assert.Equal(t, viaClick.Focus, viaSearch.Focus)
	assert.Equal(t, viaClick.State.Neighbors, viaSearch.State.Neighbors)
	assert.Equal(t, ModeSelected, viaSearch.State.Mode)
	assert.Equal(t, "b", viaSearch.State.SelectedID)
	assert.Equal(t, "bo", viaSearch.State.Query)
	assert.Equal(t, []string{"b"}, viaSearch.State.Matched)
}

func TestSearch_MultipleMatches(t *testing.T) {
	e, m, g := fixture(t)

	u := e.Search("ali")

	assert.Equal(t, ModeSearching, u.State.Mode)
	assert.Equal(t, []string{"a", "s"}, u.State.Matched)
	assert.Equal(t, []string{"hub"}, u.State.Neighbors)
	assert.Equal(t, "a", u.Focus)

	assert.Equal(t, "#f6c177", styleOf(u, "a").Color.Background)
	assert.Equal(t, "#f6c177", styleOf(u, "s").Color.Background)
	assert.Equal(t, "#9cb9d9", styleOf(u, "hub").Color.Background)
	b, _ := g.Node("b")
	assert.Equal(t, layout.NodeColor{Background: "#394b5a", Border: b.Color.Border}, styleOf(u, "b").Color)
	assert.Equal(t, 0.4, styleOf(u, "b").Opacity)

	assert.False(t, m.Hidden("a|hub"))
	assert.False(t, m.Hidden("hub|s"))
	assert.True(t, m.Hidden("b|hub"))
	assert.True(t, m.Hidden("c|d"))
}

func TestSearch_NeighbourUsesThemeBorder(t *testing.T) {
	e, _, g := fixture(t)
	hub, _ := g.Node("hub")
	require.NotEqual(t, "#2e4a67", hub.Color.Border)

	u := e.Search("ali")
	assert.Equal(t, layout.NodeColor{Background: "#9cb9d9", Border: "#2e4a67"}, styleOf(u, "hub").Color)
	assert.Equal(t, 0.9, styleOf(u, "hub").Opacity)

	e.SetAvatarMode(true)
	u = e.Search("ali")
	assert.Equal(t, layout.NodeColor{Border: hub.Color.Border}, styleOf(u, "hub").Color)
}

func TestSearch_NoMatchRestoresBase(t *testing.T) {
	e, m, g := fixture(t)
	_, err := e.Select("a")
	require.NoError(t, err)

	u := e.Search("zzz")

	assert.Equal(t, State{Mode: ModeSearching, Query: "zzz"}, u.State)
	for _, n := range g.Nodes() {
		s := styleOf(u, n.ID)
		assert.Equal(t, layout.NodeColor{Background: n.Color.Background, Border: n.Color.Border}, s.Color)
		assert.Equal(t, 1.0, s.Opacity)
	}
	assert.Equal(t, 0, m.HiddenCount())
	assert.Empty(t, u.Focus)
}

func TestSearch_EmptyAfterSearchRestoresEverything(t *testing.T) {
	e, m, g := fixture(t)
	e.Search("ali")
	require.NotZero(t, m.HiddenCount())

	u := e.Search("   ")

	assert.Equal(t, State{Mode: ModeIdle}, u.State)
	for _, n := range g.Nodes() {
		s := styleOf(u, n.ID)
		assert.Equal(t, n.Color.Background, s.Color.Background)
		assert.Equal(t, n.Color.Border, s.Color.Border)
		assert.Equal(t, 1.0, s.Opacity)
	}
	assert.Len(t, u.Edges, 2)
	for _, ev := range u.Edges {
		assert.False(t, ev.Hidden)
	}
	assert.Equal(t, 0, m.HiddenCount())
	assert.Equal(t, 0, e.HiddenEdges())
}

func TestSearch_Idempotent(t *testing.T) {
	e, m, _ := fixture(t)

	first := e.Search("ali")
	hiddenAfterFirst := m.HiddenCount()
	second := e.Search("ali")

	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.Nodes, second.Nodes)
	assert.Equal(t, first.Focus, second.Focus)
	assert.Empty(t, second.Edges, "visibility already matches")
	assert.Equal(t, hiddenAfterFirst, m.HiddenCount())
}

func TestClear_EmitsOnlyChangedEdges(t *testing.T) {
	e, _, _ := fixture(t)

	u := e.Clear()
	assert.Empty(t, u.Edges)
	assert.Equal(t, ModeIdle, u.State.Mode)
}

func TestSetAvatarMode(t *testing.T) {
	e, m, g := fixture(t)
	_, err := e.Select("a")
	require.NoError(t, err)

	u := e.SetAvatarMode(true)

	assert.True(t, e.AvatarMode())
	assert.Equal(t, "a", u.State.SelectedID)
	assert.Empty(t, u.Focus, "re-applying a click does not refocus")

	a := styleOf(u, "a")
	assert.Equal(t, layout.ShapeCircularImage, a.Shape)
	assert.Equal(t, "https://img/a", a.Image)
	assert.Contains(t, a.BrokenImage, "data:image/svg+xml")
	assert.Equal(t, layout.NodeColor{Border: "#f6c177"}, a.Color)
	assert.Equal(t, 3, a.BorderWidth)

	hub, _ := g.Node("hub")
	assert.Equal(t, layout.NodeColor{Border: hub.Color.Border}, styleOf(u, "hub").Color)
	assert.Equal(t, 2, styleOf(u, "hub").BorderWidth)
	assert.Equal(t, 0.35, styleOf(u, "c").Opacity)

	// Later updates leave the shape alone
	next := e.Clear()
	assert.Empty(t, styleOf(next, "a").Shape)
	s, _ := m.Style("a")
	assert.Equal(t, layout.ShapeCircularImage, s.Shape)

	off := e.SetAvatarMode(false)
	assert.Equal(t, layout.ShapeDot, styleOf(off, "a").Shape)
	assert.Empty(t, styleOf(off, "a").Image)
}

func TestSetAvatarMode_ReappliesSearch(t *testing.T) {
	e, _, _ := fixture(t)
	e.Search("ali")

	u := e.SetAvatarMode(true)

	assert.Equal(t, ModeSearching, u.State.Mode)
	assert.Equal(t, []string{"a", "s"}, u.State.Matched)
	assert.Equal(t, 0.35, styleOf(u, "b").Opacity)
	assert.Equal(t, "a", u.Focus)
}
