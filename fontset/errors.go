package fontset

import (
	"errors"
	"fmt"
)

// ErrClosed is returned for operations that did not run because the set was closed.
var ErrClosed = errors.New("font set closed")

// IOError is a failure of the store or the glyph service. The operation may be retried by a later update.
type IOError struct {
	Op   string // "get", "put", "fetch base" or "fetch glyphs"
	Font string
	Err  error
}

func (err *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", err.Op, err.Font, err.Err)
}

func (err *IOError) Unwrap() error {
	return err.Err
}

// RenderApplyError is a failure of the sink to apply a snapshot. The merged snapshot is kept.
type RenderApplyError struct {
	Font string
	Err  error
}

func (err *RenderApplyError) Error() string {
	return fmt.Sprintf("apply %s: %v", err.Font, err.Err)
}

func (err *RenderApplyError) Unwrap() error {
	return err.Err
}
