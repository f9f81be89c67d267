package tree

import (
	"errors"
	"fmt"
)

// ErrNotDirectory reports a content root that is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ReadError is a structural failure: a directory that cannot be listed or
// a page that cannot be read. It aborts the whole build.
type ReadError struct {
	Op   string
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("content %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
