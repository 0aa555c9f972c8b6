package source

import (
	"errors"
	"fmt"
)

// ErrNotObject is wrapped when a document decodes to something other than an
// object keyed by identity (an array, a primitive or null).
var ErrNotObject = errors.New("root must be an object keyed by user id")

// MalformedSourceError reports an input file that cannot be used. It aborts
// the whole batch it belongs to.
type MalformedSourceError struct {
	File string
	Err  error
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("invalid JSON in %s: %v", e.File, e.Err)
}

func (e *MalformedSourceError) Unwrap() error {
	return e.Err
}

func malformed(file string, err error) error {
	return &MalformedSourceError{File: file, Err: err}
}
