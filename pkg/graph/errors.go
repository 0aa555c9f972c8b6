package graph

import "errors"

// ErrBuildCancelled is returned by Build when its context is done before the
// graph is complete.
var ErrBuildCancelled = errors.New("graph build cancelled")
