package session

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/mutual-graph/pkg/filter"
	"github.com/ritzau/mutual-graph/pkg/pubsub"
	"github.com/ritzau/mutual-graph/pkg/selection"
	"github.com/ritzau/mutual-graph/pkg/source"
)

const rootID = "123456789012345"

type recorded struct {
	topic string
	typ   string
	data  any
}

// recorder is a Publisher that keeps every event and lets tests wait for one.
type recorder struct {
	mu     sync.Mutex
	events []recorded
	notify chan recorded
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan recorded, 256)}
}

func (r *recorder) Publish(topic, typ string, data any) error {
	ev := recorded{topic: topic, typ: typ, data: data}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.notify <- ev:
	default:
	}
	return nil
}

func (r *recorder) waitFor(t *testing.T, topic, typ string) recorded {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-r.notify:
			if ev.topic == topic && ev.typ == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s/%s", topic, typ)
			return recorded{}
		}
	}
}

func (r *recorder) percents(loadID string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, ev := range r.events {
		if st, ok := ev.data.(pubsub.LoadStatus); ok && st.LoadID == loadID {
			out = append(out, st.Percent)
		}
	}
	return out
}

func exampleFiles() []source.File {
	return []source.File{
		{Name: rootID + ".json", Data: []byte(`{
			"` + rootID + `": {"name": "me", "mutual": []},
			"A": {"name": "alice", "mutual": ["B"]},
			"B": {"name": "bob", "mutual": ["A"]},
			"L": {"name": "loner", "mutual": []}
		}`)},
		{Name: "friendOfA.json", Data: []byte(`{
			"C": {"name": "carol", "mutual": ["A"]},
			"A": {"name": "alice#0", "avatar": "hash", "mutual": ["C"]}
		}`)},
	}
}

func newTestManager(t *testing.T, pub Publisher, opts Options) *Manager {
	t.Helper()
	m := NewManager(pub, opts)
	t.Cleanup(m.Close)
	return m
}

func TestLoad_RootLeavesHiddenByDefault(t *testing.T) {
	m := newTestManager(t, newRecorder(), Options{})

	s, err := m.Load(context.Background(), exampleFiles(), filter.ModeAuto)
	require.NoError(t, err)

	assert.Equal(t, []string{rootID}, s.Roots.Sorted())
	assert.True(t, s.HideLeaves)
	assert.Equal(t, []string{"L"}, s.Removed)
	assert.False(t, s.Graph.Has("L"))
	assert.True(t, s.Graph.Has("A"))
	assert.Same(t, s, m.Current())

	root, ok := s.Graph.Node(rootID)
	require.True(t, ok)
	assert.Equal(t, 2, root.Degree, "A and B remain connected to the root")
	assert.Equal(t, "Sources: 2 | Nodes: 4 | Edges: 4", s.Stats())
}

func TestLoad_SingleSourceKeepsLeaves(t *testing.T) {
	m := newTestManager(t, nil, Options{})

	s, err := m.Load(context.Background(), exampleFiles()[:1], filter.ModeAuto)
	require.NoError(t, err)

	assert.False(t, s.HideLeaves)
	assert.Empty(t, s.Roots)
	assert.True(t, s.Graph.Has("L"))
}

func TestLoad_MalformedKeepsPreviousSession(t *testing.T) {
	rec := newRecorder()
	m := newTestManager(t, rec, Options{})
	first, err := m.Load(context.Background(), exampleFiles(), filter.ModeAuto)
	require.NoError(t, err)

	_, err = m.Load(context.Background(), []source.File{
		{Name: "ok.json", Data: []byte(`{}`)},
		{Name: "broken.json", Data: []byte(`[1,2]`)},
	}, filter.ModeAuto)

	var malformed *source.MalformedSourceError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "broken.json", malformed.File)
	assert.Same(t, first, m.Current())

	ev := rec.waitFor(t, pubsub.TopicLoadStatus, "failed")
	assert.Contains(t, ev.data.(pubsub.LoadStatus).Message, "broken.json")
}

func TestLoad_ProgressPercentages(t *testing.T) {
	rec := newRecorder()
	m := newTestManager(t, rec, Options{NodeChunk: 1, EdgeChunk: 1})

	s, err := m.Load(context.Background(), exampleFiles(), filter.ModeOff)
	require.NoError(t, err)

	pcts := rec.percents(s.ID)
	require.NotEmpty(t, pcts)
	for i := 1; i < len(pcts); i++ {
		assert.GreaterOrEqual(t, pcts[i], pcts[i-1], "progress must not go backwards: %v", pcts)
	}
	assert.Contains(t, pcts, 55)
	assert.Contains(t, pcts, 95)
}

func TestCommit_SupersededGeneration(t *testing.T) {
	m := newTestManager(t, nil, Options{})
	s, err := m.Load(context.Background(), exampleFiles(), filter.ModeOff)
	require.NoError(t, err)

	older := m.begin()
	newer := m.begin()
	res := &buildResult{buildInput: buildInput{sources: s.Sources, canonical: s.Canonical, roots: s.Roots}, graph: s.Graph}

	_, err = m.commit(older, "old", res, false)
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Same(t, s, m.Current())

	committed, err := m.commit(newer, "new", res, false)
	require.NoError(t, err)
	assert.Same(t, committed, m.Current())
}

// gate blocks the first load that reports merging until released.
type gate struct {
	*recorder
	blocked atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func (g *gate) Publish(topic, typ string, data any) error {
	err := g.recorder.Publish(topic, typ, data)
	if typ == "merging" && g.blocked.CompareAndSwap(false, true) {
		close(g.reached)
		<-g.release
	}
	return err
}

func (r *recorder) statuses() []pubsub.LoadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []pubsub.LoadStatus
	for _, ev := range r.events {
		if st, ok := ev.data.(pubsub.LoadStatus); ok {
			out = append(out, st)
		}
	}
	return out
}

func TestLoad_LastLoadWins(t *testing.T) {
	g := &gate{recorder: newRecorder(), reached: make(chan struct{}), release: make(chan struct{})}
	m := newTestManager(t, g, Options{})

	slowErr := make(chan error, 1)
	go func() {
		_, err := m.Load(context.Background(), exampleFiles(), filter.ModeAuto)
		slowErr <- err
	}()
	<-g.reached

	fast, err := m.Load(context.Background(), exampleFiles()[1:], filter.ModeAuto)
	require.NoError(t, err)

	close(g.release)
	assert.ErrorIs(t, <-slowErr, ErrSuperseded)
	assert.Same(t, fast, m.Current())
	assert.Len(t, m.Current().Sources, 1)
}

func TestLoad_SupersededLoadPublishesNothing(t *testing.T) {
	g := &gate{recorder: newRecorder(), reached: make(chan struct{}), release: make(chan struct{})}
	m := newTestManager(t, g, Options{NodeChunk: 1, EdgeChunk: 1})

	slowErr := make(chan error, 1)
	go func() {
		_, err := m.Load(context.Background(), exampleFiles(), filter.ModeAuto)
		slowErr <- err
	}()
	<-g.reached

	fast, err := m.Load(context.Background(), exampleFiles()[1:], filter.ModeAuto)
	require.NoError(t, err)
	close(g.release)
	require.ErrorIs(t, <-slowErr, ErrSuperseded)

	statuses := g.statuses()
	require.NotEmpty(t, statuses)
	assert.Equal(t, fast.ID, statuses[len(statuses)-1].LoadID)

	var slowID string
	for _, st := range statuses {
		if st.State == "merging" && st.LoadID != fast.ID {
			slowID = st.LoadID
		}
	}
	require.NotEmpty(t, slowID)
	for _, st := range statuses {
		if st.LoadID == slowID {
			assert.Contains(t, []string{"parsing", "merging"}, st.State,
				"no progress after a newer load started")
		}
	}
}

func TestSetHideLeaves_Rebuilds(t *testing.T) {
	m := newTestManager(t, nil, Options{})
	s, err := m.Load(context.Background(), exampleFiles(), filter.ModeAuto)
	require.NoError(t, err)
	s.SetAvatarMode(true)
	_, err = s.Select("A")
	require.NoError(t, err)

	rebuilt, err := m.SetHideLeaves(context.Background(), false)
	require.NoError(t, err)

	assert.NotEqual(t, s.ID, rebuilt.ID)
	assert.False(t, rebuilt.HideLeaves)
	assert.True(t, rebuilt.Graph.Has("L"))
	assert.Same(t, s.Canonical, rebuilt.Canonical)
	assert.True(t, rebuilt.AvatarMode())
	assert.Equal(t, selection.ModeIdle, rebuilt.SelectionState().Mode)
}

func TestSetHideLeaves_NoSession(t *testing.T) {
	m := newTestManager(t, nil, Options{})
	_, err := m.SetHideLeaves(context.Background(), true)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStabilization_FallbackTimeout(t *testing.T) {
	rec := newRecorder()
	m := newTestManager(t, rec, Options{
		StabilizeTimeout: func(int) time.Duration { return 10 * time.Millisecond },
	})

	s, err := m.Load(context.Background(), exampleFiles(), filter.ModeAuto)
	require.NoError(t, err)

	ev := rec.waitFor(t, pubsub.TopicGraph, "stabilized")
	summary := ev.data.(pubsub.GraphSummary)
	assert.Equal(t, s.ID, summary.LoadID)
	assert.True(t, summary.Stabilized)

	ready := rec.waitFor(t, pubsub.TopicLoadStatus, "ready")
	assert.Equal(t, 100, ready.data.(pubsub.LoadStatus).Percent)
	assert.Equal(t, s.Stats(), ready.data.(pubsub.LoadStatus).Message)
}

func TestStabilization_Notified(t *testing.T) {
	rec := newRecorder()
	m := newTestManager(t, rec, Options{
		StabilizeTimeout: func(int) time.Duration { return time.Hour },
	})
	assert.ErrorIs(t, m.MarkStabilized(), ErrNoSession)

	_, err := m.Load(context.Background(), exampleFiles(), filter.ModeAuto)
	require.NoError(t, err)
	require.NoError(t, m.MarkStabilized())

	rec.waitFor(t, pubsub.TopicGraph, "stabilized")
}

func TestExport(t *testing.T) {
	m := newTestManager(t, nil, Options{})
	_, err := m.Export()
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = m.Load(context.Background(), exampleFiles(), filter.ModeAuto)
	require.NoError(t, err)

	data, err := m.Export()
	require.NoError(t, err)

	var decoded map[string]struct {
		Name      string   `json:"name"`
		AvatarURL string   `json:"avatarUrl"`
		Mutual    []string `json:"mutual"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "alice", decoded["A"].Name)
	assert.Equal(t, "https://cdn.discordapp.com/avatars/A/hash.png?size=128", decoded["A"].AvatarURL)
	assert.ElementsMatch(t, []string{"A", "B", "L"}, decoded[rootID].Mutual)
	assert.ElementsMatch(t, []string{"B", "C"}, decoded["A"].Mutual)

	// Loading the export again gives the same records
	reloaded, err := m.Load(context.Background(), []source.File{{Name: ExportFileName, Data: data}}, filter.ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Canonical.Len())
}

func TestSubmitSearch_PublishesDebouncedUpdate(t *testing.T) {
	rec := newRecorder()
	m := newTestManager(t, rec, Options{SearchInterval: 20 * time.Millisecond})
	_, err := m.Load(context.Background(), exampleFiles(), filter.ModeAuto)
	require.NoError(t, err)

	m.SubmitSearch("c")
	m.SubmitSearch("ca")
	m.SubmitSearch("car")

	// Bursts normally collapse to the last query; a slow scheduler may
	// split them, so wait for the final one.
	for {
		ev := rec.waitFor(t, pubsub.TopicSelection, "update")
		u := ev.data.(selection.Update)
		if u.State.Query != "car" {
			continue
		}
		assert.Equal(t, selection.ModeSelected, u.State.Mode)
		assert.Equal(t, "C", u.State.SelectedID)
		break
	}
}

func TestFormatStats(t *testing.T) {
	assert.Equal(t, "Sources: 3 | Nodes: 12,345 | Edges: 1,234,567", FormatStats(3, 12345, 1234567))
}
