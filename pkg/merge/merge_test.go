package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/mutual-graph/pkg/model"
	"github.com/ritzau/mutual-graph/pkg/source"
)

func mustParse(t *testing.T, file, doc string) *model.Source {
	t.Helper()
	src, err := source.Parse(file, []byte(doc))
	require.NoError(t, err)
	return src
}

func TestMerge_SingleSource(t *testing.T) {
	src := mustParse(t, "x.json", `{"A":{"name":"alice#0","mutual":["B"]},"B":{"name":"bob","mutual":["A","C"]}}`)

	c := Merge([]*model.Source{src})

	assert.Equal(t, []string{"A", "B"}, c.Order)
	assert.Equal(t, "alice", c.Get("A").Name)
	assert.Equal(t, []string{"B"}, c.Get("A").Mutual)
	// C has no record but stays referenced
	assert.Equal(t, []string{"A", "C"}, c.Get("B").Mutual)
	assert.False(t, c.Has("C"))
}

func TestMerge_FirstGenuineNameWins(t *testing.T) {
	s1 := mustParse(t, "1.json", `{"A":{"mutual":[]}}`)
	s2 := mustParse(t, "2.json", `{"A":{"name":"Alice"}}`)
	s3 := mustParse(t, "3.json", `{"A":{"name":"Alicia"}}`)

	c := Merge([]*model.Source{s1, s2, s3})

	assert.Equal(t, "Alice", c.Get("A").Name)
}

func TestMerge_PlaceholderName(t *testing.T) {
	c := Merge([]*model.Source{mustParse(t, "1.json", `{"A":{"name":"#0"}}`)})
	assert.Equal(t, "A", c.Get("A").Name)
}

func TestMerge_FirstAvatarWins(t *testing.T) {
	s1 := mustParse(t, "1.json", `{"42":{}}`)
	s2 := mustParse(t, "2.json", `{"42":{"avatar":"abc"}}`)
	s3 := mustParse(t, "3.json", `{"42":{"avatarUrl":"https://example.com/x.png"}}`)

	c := Merge([]*model.Source{s1, s2, s3})

	assert.Equal(t, "https://cdn.discordapp.com/avatars/42/abc.png?size=128", c.Get("42").AvatarURL)
}

func TestMerge_MutualUnionIsMonotone(t *testing.T) {
	s1 := mustParse(t, "1.json", `{"A":{"mutual":["B","C"]},"B":{"mutual":["A"]}}`)
	s2 := mustParse(t, "2.json", `{"A":{"mutual":["D","B"]},"D":{"mutual":["A"]}}`)

	single := Merge([]*model.Source{s1})
	both := Merge([]*model.Source{s1, s2})

	for _, id := range single.Order {
		require.True(t, both.Has(id))
		assert.Subset(t, both.Get(id).Mutual, single.Get(id).Mutual, id)
	}
	assert.Equal(t, []string{"B", "C", "D"}, both.Get("A").Mutual)
	assert.Equal(t, []string{"A", "B", "D"}, both.Order)
}

func TestMerge_Deterministic(t *testing.T) {
	s1 := mustParse(t, "1.json", `{"A":{"mutual":["B"]},"B":{"name":"b"}}`)
	s2 := mustParse(t, "2.json", `{"C":{"mutual":["A"]},"A":{"name":"a"}}`)

	first, err := Snapshot(Merge([]*model.Source{s1, s2}))
	require.NoError(t, err)
	second, err := Snapshot(Merge([]*model.Source{s1, s2}))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSnapshot_RoundTrips(t *testing.T) {
	s1 := mustParse(t, "1.json", `{"A":{"name":"alice","avatar":"h","mutual":["B","X"]},"B":{"mutual":["A"]}}`)
	c := Merge([]*model.Source{s1})

	data, err := Snapshot(c)
	require.NoError(t, err)

	reloaded := Merge([]*model.Source{mustParse(t, "snapshot.json", string(data))})
	assert.Equal(t, c.Order, reloaded.Order)
	for _, id := range c.Order {
		assert.Equal(t, c.Get(id), reloaded.Get(id), id)
	}
}
