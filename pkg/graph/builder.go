package graph

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ritzau/mutual-graph/pkg/logging"
	"github.com/ritzau/mutual-graph/pkg/model"
	"github.com/ritzau/mutual-graph/pkg/profile"
)

var log = logging.New("graph")

const (
	// DefaultNodeChunk is how many nodes are created between yields.
	DefaultNodeChunk = 500
	// DefaultEdgeChunk is how many mutual references are processed between yields.
	DefaultEdgeChunk = 4000
)

// ProgressPhase indicates which phase of building is in progress.
type ProgressPhase int

const (
	// ProgressPhaseNodes indicates nodes are being created.
	ProgressPhaseNodes ProgressPhase = iota
	// ProgressPhaseEdges indicates mutual references are turned into edges.
	ProgressPhaseEdges
)

// String returns the string representation of the ProgressPhase.
func (p ProgressPhase) String() string {
	switch p {
	case ProgressPhaseNodes:
		return "nodes"
	case ProgressPhaseEdges:
		return "edges"
	default:
		return "unknown"
	}
}

// BuildProgress contains progress information during a build.
type BuildProgress struct {
	Phase ProgressPhase
	Done  int
	Total int
}

// Fraction returns Done/Total clamped to [0, 1]. An empty phase is complete.
func (p BuildProgress) Fraction() float64 {
	if p.Total <= 0 {
		return 1
	}
	f := float64(p.Done) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

// ProgressFunc is a callback function for build progress updates.
type ProgressFunc func(progress BuildProgress)

// BuilderOptions configures Build.
type BuilderOptions struct {
	NodeChunk int
	EdgeChunk int

	// Progress is called at chunk boundaries and at the end of each phase.
	// May be nil.
	Progress ProgressFunc
}

// DefaultBuilderOptions returns the chunk sizes used by the browser UI.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		NodeChunk: DefaultNodeChunk,
		EdgeChunk: DefaultEdgeChunk,
	}
}

// BuilderOption is a functional option for configuring Build.
type BuilderOption func(*BuilderOptions)

// WithNodeChunk sets the node chunk size. Non-positive values are ignored.
func WithNodeChunk(n int) BuilderOption {
	return func(o *BuilderOptions) {
		if n > 0 {
			o.NodeChunk = n
		}
	}
}

// WithEdgeChunk sets the edge chunk size. Non-positive values are ignored.
func WithEdgeChunk(n int) BuilderOption {
	return func(o *BuilderOptions) {
		if n > 0 {
			o.EdgeChunk = n
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) BuilderOption {
	return func(o *BuilderOptions) {
		o.Progress = fn
	}
}

// Build turns the canonical records into a graph in two phases. Nodes are
// created in canonical order; then every mutual reference becomes an edge
// unless it is dangling, a self reference or already present. Between chunks
// the builder yields and checks ctx.
func Build(ctx context.Context, c *model.Canonical, opts ...BuilderOption) (*Graph, error) {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	b := &builder{options: options}
	return b.build(ctx, c)
}

type builder struct {
	options BuilderOptions
}

func (b *builder) build(ctx context.Context, c *model.Canonical) (*Graph, error) {
	g := newGraph(c.Len())

	if err := b.nodesPhase(ctx, g, c); err != nil {
		return nil, err
	}
	if err := b.edgesPhase(ctx, g, c); err != nil {
		return nil, err
	}
	g.finish()

	if g.stats.Dangling > 0 || g.stats.SelfLoops > 0 {
		log.Debug("Dropped references while building graph",
			"dangling", g.stats.Dangling, "selfLoops", g.stats.SelfLoops)
	}
	log.Debug("Built graph", "nodes", g.Len(), "edges", g.EdgeCount(), "duplicates", g.stats.Duplicates)
	return g, nil
}

func (b *builder) nodesPhase(ctx context.Context, g *Graph, c *model.Canonical) error {
	total := c.Len()
	for i, id := range c.Order {
		if i > 0 && i%b.options.NodeChunk == 0 {
			b.report(ProgressPhaseNodes, i, total)
			if err := yield(ctx); err != nil {
				return err
			}
		}
		g.addNode(newNode(id, c.Get(id)))
	}
	b.report(ProgressPhaseNodes, total, total)
	return nil
}

func (b *builder) edgesPhase(ctx context.Context, g *Graph, c *model.Canonical) error {
	total := 0
	for _, id := range c.Order {
		if rec := c.Get(id); rec != nil {
			total += len(rec.Mutual)
		}
	}

	processed := 0
	for _, a := range c.Order {
		rec := c.Get(a)
		if rec == nil {
			continue
		}
		for _, other := range rec.Mutual {
			processed++
			g.addEdge(a, other)
			if processed%b.options.EdgeChunk == 0 && processed < total {
				b.report(ProgressPhaseEdges, processed, total)
				if err := yield(ctx); err != nil {
					return err
				}
			}
		}
	}
	b.report(ProgressPhaseEdges, total, total)
	return nil
}

func (b *builder) report(phase ProgressPhase, done, total int) {
	if b.options.Progress == nil {
		return
	}
	b.options.Progress(BuildProgress{Phase: phase, Done: done, Total: total})
}

func yield(ctx context.Context) error {
	runtime.Gosched()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBuildCancelled, err)
	}
	return nil
}

func newNode(id string, rec *model.CanonicalRecord) model.Node {
	var name, avatar string
	if rec != nil {
		name = rec.Name
		avatar = rec.AvatarURL
	}

	label := profile.CleanName(name)
	if label == "" {
		label = id
	}
	if avatar == "" {
		avatar = profile.DefaultAvatarURL(id, name)
	}

	return model.Node{
		ID:        id,
		Label:     label,
		Title:     label,
		Color:     ColorFromID(id),
		AvatarURL: avatar,
	}
}
