package session

import "errors"

var (
	// ErrSuperseded is returned by a load or rebuild that finished after a
	// newer one had started. Its result is discarded.
	ErrSuperseded = errors.New("load superseded by a newer load")

	// ErrNoSession is returned when an operation needs a loaded graph.
	ErrNoSession = errors.New("no graph loaded")
)
