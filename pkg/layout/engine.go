// Package layout describes the contract with the force-directed layout and
// rendering engine that draws the graph.
//
// The engine itself lives outside this module (in the browser). Mirror is an
// in-process stand-in that records what was pushed to it, so the server can
// answer neighbour queries and tests can observe updates.
package layout

import (
	"context"
	"time"

	"github.com/ritzau/mutual-graph/pkg/model"
)

// Node shapes understood by the engine.
const (
	ShapeDot           = "dot"
	ShapeCircularImage = "circularImage"
)

// NodeColor is a partial colour update. An empty Background leaves the
// engine's current fill untouched.
type NodeColor struct {
	Background string `json:"background,omitempty"`
	Border     string `json:"border"`
}

// NodeStyle is a partial attribute update for one node.
type NodeStyle struct {
	ID          string    `json:"id"`
	Color       NodeColor `json:"color"`
	Opacity     float64   `json:"opacity"`
	BorderWidth int       `json:"borderWidth,omitempty"`

	// Only set when the node shape changes (avatar mode toggles)
	Shape       string `json:"shape,omitempty"`
	Image       string `json:"image,omitempty"`
	BrokenImage string `json:"brokenImage,omitempty"`
}

// EdgeVisibility shows or hides one edge. ID is the edge key.
type EdgeVisibility struct {
	ID     string `json:"id"`
	Hidden bool   `json:"hidden"`
}

// Engine is the layout/rendering engine as seen by the core.
type Engine interface {
	// Load replaces the whole graph.
	Load(nodes []model.Node, edges []model.Edge)
	// Update applies partial node and edge attributes.
	Update(nodes []NodeStyle, edges []EdgeVisibility)
	// Neighbors returns the identities connected to id.
	Neighbors(id string) []string
	// Focus centres the view on id.
	Focus(id string)
	// Stabilized is closed once the layout settles after the last Load.
	Stabilized() <-chan struct{}
}

const (
	minStabilizeWait = 6 * time.Second
	maxStabilizeWait = 15 * time.Second
	perNodeWait      = 5 * time.Millisecond
)

// StabilizeTimeout is how long to wait for the stabilised notification of a
// graph with the given node count before carrying on without it.
func StabilizeTimeout(nodes int) time.Duration {
	d := time.Duration(nodes) * perNodeWait
	if d < minStabilizeWait {
		return minStabilizeWait
	}
	if d > maxStabilizeWait {
		return maxStabilizeWait
	}
	return d
}

// WaitStabilized blocks until eng reports a stable layout or the size-scaled
// fallback timeout passes. It reports whether the notification arrived.
func WaitStabilized(ctx context.Context, eng Engine, nodes int) (bool, error) {
	return WaitStabilizedTimeout(ctx, eng, StabilizeTimeout(nodes))
}

// WaitStabilizedTimeout is WaitStabilized with an explicit fallback timeout.
func WaitStabilizedTimeout(ctx context.Context, eng Engine, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-eng.Stabilized():
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
