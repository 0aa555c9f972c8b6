package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/mutual-graph/pkg/graph"
	"github.com/ritzau/mutual-graph/pkg/model"
)

func nodes(ids ...string) []model.Node {
	out := make([]model.Node, len(ids))
	for i, id := range ids {
		out[i] = model.Node{ID: id, Label: id}
	}
	return out
}

func ids(ns []model.Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestRootLeaves_OriginFan(t *testing.T) {
	const r = "111111111111111111"
	ns := nodes(r, "A", "B")
	es := []model.Edge{model.NewEdge(r, "A"), model.NewEdge(r, "B"), model.NewEdge("A", "B")}

	// A and B know each other, so nothing is a root leaf
	keptN, keptE, removed := RootLeaves(ns, es, model.NewRootSet(r))
	assert.Empty(t, removed)
	assert.Len(t, keptN, 3)
	assert.Len(t, keptE, 3)

	es = []model.Edge{model.NewEdge(r, "A"), model.NewEdge(r, "B")}
	keptN, keptE, removed = RootLeaves(ns, es, model.NewRootSet(r))
	assert.ElementsMatch(t, []string{"A", "B"}, removed)
	assert.Equal(t, []string{r}, ids(keptN))
	assert.Empty(t, keptE)
}

func TestRootLeaves_Correctness(t *testing.T) {
	ns := nodes("r1", "r2", "leaf", "bridge", "chain1", "chain2", "lonely")
	es := []model.Edge{
		model.NewEdge("r1", "leaf"),
		model.NewEdge("r1", "bridge"),
		model.NewEdge("r2", "bridge"),
		model.NewEdge("r1", "chain1"),
		model.NewEdge("chain1", "chain2"),
		model.NewEdge("r1", "r2"),
	}
	roots := model.NewRootSet("r1", "r2")

	keptN, keptE, removed := RootLeaves(ns, es, roots)

	assert.Equal(t, []string{"leaf"}, removed)
	assert.Equal(t, []string{"r1", "r2", "bridge", "chain1", "chain2", "lonely"}, ids(keptN))

	kept := map[string]bool{}
	for _, n := range keptN {
		kept[n.ID] = true
	}
	for _, e := range keptE {
		assert.True(t, kept[e.From] && kept[e.To])
	}
	assert.Len(t, keptE, len(es)-1)
}

func TestRootLeaves_RootsNeverRemoved(t *testing.T) {
	ns := nodes("r1", "r2")
	es := []model.Edge{model.NewEdge("r1", "r2")}

	keptN, _, removed := RootLeaves(ns, es, model.NewRootSet("r1", "r2"))

	assert.Empty(t, removed)
	assert.Len(t, keptN, 2)
}

func TestRootLeaves_NoRoots(t *testing.T) {
	ns := nodes("a", "b")
	es := []model.Edge{model.NewEdge("a", "b")}

	keptN, keptE, removed := RootLeaves(ns, es, nil)

	assert.Equal(t, ns, keptN)
	assert.Equal(t, es, keptE)
	assert.Nil(t, removed)
}

func TestApply_RecomputesDegree(t *testing.T) {
	g := graph.New(nodes("r", "a", "b", "c"), []model.Edge{
		model.NewEdge("r", "a"),
		model.NewEdge("r", "b"),
		model.NewEdge("b", "c"),
	})

	filtered, removed := Apply(g, model.NewRootSet("r"))

	assert.Equal(t, []string{"a"}, removed)
	require.False(t, filtered.Has("a"))
	r, _ := filtered.Node("r")
	assert.Equal(t, 1, r.Degree)
	assert.Equal(t, "r\nMutuals: 1", r.Title)

	before, _ := g.Node("r")
	assert.Equal(t, 2, before.Degree)
}

func TestMode(t *testing.T) {
	assert.False(t, ModeAuto.Enabled(1))
	assert.True(t, ModeAuto.Enabled(2))
	assert.True(t, ModeOn.Enabled(1))
	assert.False(t, ModeOff.Enabled(3))

	m, err := ParseMode("ON")
	require.NoError(t, err)
	assert.Equal(t, ModeOn, m)
	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)
	_, err = ParseMode("sometimes")
	assert.Error(t, err)

	assert.Equal(t, ModeOn, ModeFor(true))
	assert.Equal(t, ModeOff, ModeFor(false))
}
