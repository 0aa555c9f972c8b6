// Package selection keeps the highlight state of an explored graph: which
// node is selected, what the search box matches, and the node styles and
// edge visibility that follow from it.
package selection

import (
	"errors"

	"github.com/ritzau/mutual-graph/pkg/layout"
)

// ErrUnknownNode is returned when selecting an identity that is not in the
// current graph.
var ErrUnknownNode = errors.New("unknown node")

// Mode is the interaction mode.
type Mode string

const (
	ModeIdle      Mode = "idle"
	ModeSelected  Mode = "selected"
	ModeSearching Mode = "searching"
)

// State describes the current selection. Neighbors never contains a matched
// or selected identity.
type State struct {
	Mode       Mode     `json:"mode"`
	SelectedID string   `json:"selectedId,omitempty"`
	Query      string   `json:"query,omitempty"` // Normalised: trimmed and lower-cased
	Matched    []string `json:"matched,omitempty"`
	Neighbors  []string `json:"neighbors,omitempty"`
}

// Update is the result of one selection operation: the new state plus the
// node styles and edge visibility changes that were pushed to the layout
// engine.
type Update struct {
	State State                   `json:"state"`
	Nodes []layout.NodeStyle      `json:"nodes"`
	Edges []layout.EdgeVisibility `json:"edges"` // Only edges whose visibility changed
	Focus string                  `json:"focus,omitempty"`
}
