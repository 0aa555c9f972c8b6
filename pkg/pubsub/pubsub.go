// Package pubsub fans load progress, graph summaries and selection updates
// out to browser clients over Server-Sent Events.
package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the session.
const (
	TopicLoadStatus = "load_status"
	TopicGraph      = "graph"
	TopicSelection  = "selection"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "load_status", "graph")
	Type    string          `json:"type"`    // Event type (e.g., "parsing", "building_nodes", "ready")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// LoadStatus reports the progress of a load or rebuild.
type LoadStatus struct {
	LoadID  string `json:"load_id"`
	State   string `json:"state"`   // reading, parsing, merging, building_nodes, building_edges, filtering, stabilizing, ready, failed
	Message string `json:"message"` // Human-readable status message
	Percent int    `json:"percent"` // Overall progress, 0-100
}

// GraphSummary describes the committed graph of the current session.
type GraphSummary struct {
	LoadID     string   `json:"load_id"`
	Sources    int      `json:"sources"`
	Nodes      int      `json:"nodes"`
	Edges      int      `json:"edges"`
	Roots      []string `json:"roots"`
	HideLeaves bool     `json:"hide_leaves"`
	Removed    int      `json:"removed"`    // Nodes hidden by the leaf filter
	Stats      string   `json:"stats"`      // "Sources: N | Nodes: n | Edges: e"
	Stabilized bool     `json:"stabilized"` // True once the layout settled or the wait timed out
}

// NewSessionPublisher returns a publisher configured for the session topics.
// Each topic replays only its latest event, which is all a client that
// joins mid-load needs to render the current state.
func NewSessionPublisher() *SSEPublisher {
	p := NewSSEPublisher()
	for _, topic := range []string{TopicLoadStatus, TopicGraph, TopicSelection} {
		p.ConfigureTopic(topic, TopicConfig{BufferSize: 1})
	}
	return p
}
