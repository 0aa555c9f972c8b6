// Package session coordinates loads: it runs the parse, augment, merge,
// build and filter pipeline, commits the result as the current Session and
// publishes progress to subscribers.
//
// Loads may overlap. Each load takes a generation number when it starts and
// only the load holding the newest generation may commit, so a slow load
// that finishes after a newer one started is discarded (last load wins).
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ritzau/mutual-graph/pkg/filter"
	"github.com/ritzau/mutual-graph/pkg/graph"
	"github.com/ritzau/mutual-graph/pkg/layout"
	"github.com/ritzau/mutual-graph/pkg/logging"
	"github.com/ritzau/mutual-graph/pkg/merge"
	"github.com/ritzau/mutual-graph/pkg/metrics"
	"github.com/ritzau/mutual-graph/pkg/model"
	"github.com/ritzau/mutual-graph/pkg/pubsub"
	"github.com/ritzau/mutual-graph/pkg/selection"
	"github.com/ritzau/mutual-graph/pkg/source"
)

var (
	log    = logging.New("session")
	tracer = otel.Tracer("github.com/ritzau/mutual-graph/pkg/session")
)

// Load kinds, used in metrics and status events.
const (
	KindLoad    = "load"
	KindRebuild = "rebuild"
)

// ExportFileName is the suggested name of the merged export download.
const ExportFileName = "merged.json"

// Publisher receives status, graph and selection events.
type Publisher interface {
	Publish(topic string, eventType string, data any) error
}

// Options configures a Manager.
type Options struct {
	NodeChunk int
	EdgeChunk int

	// StabilizeTimeout bounds the wait for the layout engine after commit.
	// Default: layout.StabilizeTimeout
	StabilizeTimeout func(nodes int) time.Duration

	// NewEngine creates the layout engine for a committed graph.
	// Default: layout.NewMirror
	NewEngine func() layout.Engine

	// SearchInterval is the debounce window for SubmitSearch.
	// Default: selection.FrameInterval
	SearchInterval time.Duration
}

// DefaultOptions returns the options used by the server.
func DefaultOptions() Options {
	return Options{
		NodeChunk:        graph.DefaultNodeChunk,
		EdgeChunk:        graph.DefaultEdgeChunk,
		StabilizeTimeout: layout.StabilizeTimeout,
		NewEngine:        func() layout.Engine { return layout.NewMirror() },
		SearchInterval:   selection.FrameInterval,
	}
}

// Manager owns the current session.
type Manager struct {
	opts   Options
	pub    Publisher
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	generation uint64
	current    *Session

	exports  singleflight.Group
	searches chan string
}

// NewManager creates a manager publishing to pub (may be nil). Close stops
// its background work.
func NewManager(pub Publisher, opts Options) *Manager {
	defaults := DefaultOptions()
	if opts.NodeChunk <= 0 {
		opts.NodeChunk = defaults.NodeChunk
	}
	if opts.EdgeChunk <= 0 {
		opts.EdgeChunk = defaults.EdgeChunk
	}
	if opts.StabilizeTimeout == nil {
		opts.StabilizeTimeout = defaults.StabilizeTimeout
	}
	if opts.NewEngine == nil {
		opts.NewEngine = defaults.NewEngine
	}
	if opts.SearchInterval <= 0 {
		opts.SearchInterval = defaults.SearchInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		opts:     opts,
		pub:      pub,
		ctx:      ctx,
		cancel:   cancel,
		searches: make(chan string, 64),
	}
	m.startSearchLoop()
	return m
}

// Close stops background work. Pending stabilisation waits are abandoned.
func (m *Manager) Close() {
	m.cancel()
}

// Current returns the committed session, or nil before the first load.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Session returns the committed session or ErrNoSession.
func (m *Manager) Session() (*Session, error) {
	if s := m.Current(); s != nil {
		return s, nil
	}
	return nil, ErrNoSession
}

func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	return m.generation
}

// latest reports whether gen belongs to the newest load. Side effects of
// older loads are dropped.
func (m *Manager) latest(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.generation
}

// LoadPaths reads the given files and loads them as one batch.
func (m *Manager) LoadPaths(ctx context.Context, paths []string, mode filter.Mode) (*Session, error) {
	gen := m.begin()
	m.status(gen, "", "reading", fmt.Sprintf("Reading %d file(s)...", len(paths)), 2)
	files, err := source.ReadFiles(ctx, paths)
	if err != nil {
		m.status(gen, "", "failed", err.Error(), 0)
		return nil, err
	}
	return m.load(ctx, gen, files, mode)
}

// Load parses and merges a batch of exports and commits the resulting graph
// as the current session. A malformed file aborts the batch and the previous
// session stays current.
func (m *Manager) Load(ctx context.Context, files []source.File, mode filter.Mode) (*Session, error) {
	return m.load(ctx, m.begin(), files, mode)
}

func (m *Manager) load(ctx context.Context, gen uint64, files []source.File, mode filter.Mode) (*Session, error) {
	loadID := uuid.NewString()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "session.Load", trace.WithAttributes(
		attribute.String("load_id", loadID),
		attribute.Int("files", len(files)),
	))
	defer span.End()

	logger := log.With("loadID", loadID)
	logger.Info("Loading sources", "files", len(files), "hideLeaves", string(mode))

	m.status(gen, loadID, "parsing", fmt.Sprintf("Parsing %d file(s)...", len(files)), 8)
	sources, err := parseStage(ctx, files)
	if err != nil {
		return nil, m.fail(span, gen, KindLoad, loadID, start, err)
	}

	augmented, roots := augmentStage(ctx, sources)
	m.status(gen, loadID, "merging", "Merging sources...", 14)
	canonical := mergeStage(ctx, augmented)

	res, err := m.build(ctx, gen, loadID, buildInput{
		sources:    augmented,
		canonical:  canonical,
		roots:      roots,
		hideLeaves: mode.Enabled(len(files)),
	}, loadWindow)
	if err != nil {
		return nil, m.fail(span, gen, KindLoad, loadID, start, err)
	}

	s, err := m.commit(gen, loadID, res, false)
	if err != nil {
		return nil, m.fail(span, gen, KindLoad, loadID, start, err)
	}

	metrics.ObserveLoad(KindLoad, metrics.ResultOK, time.Since(start))
	logger.Info("Load complete", "sources", len(s.Sources), "nodes", s.Graph.Len(),
		"edges", s.Graph.EdgeCount(), "roots", len(s.Roots), "durationMs", time.Since(start).Milliseconds())
	return s, nil
}

// SetHideLeaves rebuilds the current session's graph with the leaf filter
// switched on or off. Selection state is reset; avatar mode is kept.
func (m *Manager) SetHideLeaves(ctx context.Context, hide bool) (*Session, error) {
	cur, err := m.Session()
	if err != nil {
		return nil, err
	}

	gen := m.begin()
	loadID := uuid.NewString()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "session.Rebuild", trace.WithAttributes(
		attribute.String("load_id", loadID),
		attribute.Bool("hide_leaves", hide),
	))
	defer span.End()

	m.status(gen, loadID, "rebuilding", "Rebuilding...", rebuildWindow.nodesFrom)
	res, err := m.build(ctx, gen, loadID, buildInput{
		sources:    cur.Sources,
		canonical:  cur.Canonical,
		roots:      cur.Roots,
		hideLeaves: hide,
	}, rebuildWindow)
	if err != nil {
		return nil, m.fail(span, gen, KindRebuild, loadID, start, err)
	}

	s, err := m.commit(gen, loadID, res, cur.AvatarMode())
	if err != nil {
		return nil, m.fail(span, gen, KindRebuild, loadID, start, err)
	}

	metrics.ObserveLoad(KindRebuild, metrics.ResultOK, time.Since(start))
	log.Info("Rebuild complete", "loadID", loadID, "hideLeaves", hide,
		"nodes", s.Graph.Len(), "edges", s.Graph.EdgeCount())
	return s, nil
}

func (m *Manager) fail(span trace.Span, gen uint64, kind, loadID string, start time.Time, err error) error {
	var malformed *source.MalformedSourceError
	switch {
	case errors.Is(err, ErrSuperseded), !m.latest(gen):
		metrics.ObserveLoad(kind, metrics.ResultSuperseded, time.Since(start))
		log.Info("Discarding superseded result", "loadID", loadID, "kind", kind)
		span.SetAttributes(attribute.Bool("superseded", true))
		return err
	case errors.As(err, &malformed):
		metrics.ObserveLoad(kind, metrics.ResultMalformed, time.Since(start))
	default:
		metrics.ObserveLoad(kind, metrics.ResultError, time.Since(start))
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error("Load failed", "loadID", loadID, "kind", kind, "error", err)
	m.status(gen, loadID, "failed", err.Error(), 0)
	return err
}

// window maps builder progress onto overall percentages.
type window struct {
	nodesFrom, nodesSpan int
	edgesFrom, edgesSpan int
}

var (
	loadWindow    = window{nodesFrom: 15, nodesSpan: 40, edgesFrom: 55, edgesSpan: 40}
	rebuildWindow = window{nodesFrom: 10, nodesSpan: 30, edgesFrom: 40, edgesSpan: 30}
)

func (w window) percent(p graph.BuildProgress) int {
	from, span := w.nodesFrom, w.nodesSpan
	if p.Phase == graph.ProgressPhaseEdges {
		from, span = w.edgesFrom, w.edgesSpan
	}
	return from + int(math.Round(p.Fraction()*float64(span)))
}

type buildInput struct {
	sources    []*model.Source
	canonical  *model.Canonical
	roots      model.RootSet
	hideLeaves bool
}

type buildResult struct {
	buildInput
	graph   *graph.Graph
	removed []string
}

func (m *Manager) build(ctx context.Context, gen uint64, loadID string, in buildInput, w window) (*buildResult, error) {
	ctx, span := tracer.Start(ctx, "graph.Build", trace.WithAttributes(
		attribute.Int("records", in.canonical.Len()),
	))
	g, err := graph.Build(ctx, in.canonical,
		graph.WithNodeChunk(m.opts.NodeChunk),
		graph.WithEdgeChunk(m.opts.EdgeChunk),
		graph.WithProgress(func(p graph.BuildProgress) {
			verb := "Building nodes"
			state := "building_nodes"
			if p.Phase == graph.ProgressPhaseEdges {
				verb = "Linking edges"
				state = "building_edges"
			}
			msg := fmt.Sprintf("%s... %d%%", verb, int(math.Round(p.Fraction()*100)))
			m.status(gen, loadID, state, msg, w.percent(p))
		}),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, fmt.Errorf("building graph: %w", err)
	}
	span.SetAttributes(attribute.Int("nodes", g.Len()), attribute.Int("edges", g.EdgeCount()))
	span.End()
	if m.latest(gen) {
		metrics.AddDangling(g.Stats().Dangling)
	}

	res := &buildResult{buildInput: in, graph: g}
	if in.hideLeaves {
		_, fspan := tracer.Start(ctx, "filter.RootLeaves")
		res.graph, res.removed = filter.Apply(g, in.roots)
		fspan.SetAttributes(attribute.Int("removed", len(res.removed)))
		fspan.End()
		if m.latest(gen) {
			metrics.AddRemovedLeaves(len(res.removed))
		}
		log.Debug("Filtered root leaves", "loadID", loadID, "removed", len(res.removed))
	}
	return res, nil
}

// commit installs the result as the current session unless a newer load has
// started since gen was taken.
func (m *Manager) commit(gen uint64, loadID string, res *buildResult, avatars bool) (*Session, error) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return nil, ErrSuperseded
	}
	eng := m.opts.NewEngine()
	eng.Load(res.graph.Nodes(), res.graph.Edges())
	s := newSession(loadID, res, eng)
	m.current = s
	m.mu.Unlock()

	if avatars {
		s.SetAvatarMode(true)
	}
	metrics.SetGraphSize(s.Graph.Len(), s.Graph.EdgeCount())

	if c, ok := m.pub.(interface{ ClearTopic(string) }); ok {
		c.ClearTopic(pubsub.TopicSelection)
	}
	m.publish(pubsub.TopicGraph, "loaded", s.Summary(false))
	m.status(gen, loadID, "stabilizing", "Stabilizing layout...", 95)

	go m.awaitStabilized(s)
	return s, nil
}

// awaitStabilized publishes the final summary once the layout engine settles
// or the fallback timeout passes, whichever comes first.
func (m *Manager) awaitStabilized(s *Session) {
	timeout := m.opts.StabilizeTimeout(s.Graph.Len())
	notified, err := layout.WaitStabilizedTimeout(m.ctx, s.Layout, timeout)
	if err != nil {
		return
	}
	if m.Current() != s {
		return
	}
	if !notified {
		log.Info("Layout did not report stabilization in time, continuing", "loadID", s.ID, "timeout", timeout.String())
	}
	m.publish(pubsub.TopicGraph, "stabilized", s.Summary(true))
	m.publishStatus(s.ID, "ready", s.Stats(), 100)
}

// MarkStabilized forwards the layout engine's stabilised notification to the
// current session.
func (m *Manager) MarkStabilized() error {
	s, err := m.Session()
	if err != nil {
		return err
	}
	if st, ok := s.Layout.(interface{ MarkStabilized() }); ok {
		st.MarkStabilized()
	}
	return nil
}

// Export encodes the current session's merged records in the input format.
// Concurrent requests for the same session share one encoding.
func (m *Manager) Export() ([]byte, error) {
	s, err := m.Session()
	if err != nil {
		return nil, err
	}
	v, err, shared := m.exports.Do(s.ID, func() (any, error) {
		return merge.Snapshot(s.Canonical)
	})
	if err != nil {
		return nil, err
	}
	log.Debug("Exported merged records", "loadID", s.ID, "shared", shared)
	return v.([]byte), nil
}

// SubmitSearch queues search input. Bursts are debounced and the resulting
// update is published on the selection topic.
func (m *Manager) SubmitSearch(query string) {
	select {
	case m.searches <- query:
	default:
		log.Warn("Search input queue full, dropping query")
	}
}

func (m *Manager) startSearchLoop() {
	d := selection.NewDebouncer(m.searches, m.opts.SearchInterval)
	d.Start(m.ctx)
	go func() {
		for q := range d.Output() {
			s := m.Current()
			if s == nil {
				continue
			}
			m.publish(pubsub.TopicSelection, "update", s.Search(q))
		}
	}()
}

// status publishes load progress unless a newer load has started.
func (m *Manager) status(gen uint64, loadID, state, msg string, percent int) {
	if !m.latest(gen) {
		return
	}
	m.publishStatus(loadID, state, msg, percent)
}

func (m *Manager) publishStatus(loadID, state, msg string, percent int) {
	m.publish(pubsub.TopicLoadStatus, state, pubsub.LoadStatus{
		LoadID:  loadID,
		State:   state,
		Message: msg,
		Percent: percent,
	})
}

func (m *Manager) publish(topic, eventType string, data any) {
	if m.pub == nil {
		return
	}
	if err := m.pub.Publish(topic, eventType, data); err != nil {
		log.Debug("Publish failed", "topic", topic, "type", eventType, "error", err)
	}
}
