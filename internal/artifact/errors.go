package artifact

import (
	"errors"
	"fmt"
)

// ErrIO matches every *Error with errors.Is.
var ErrIO = errors.New("flashcache: artifact i/o failed")

// Error reports a failed operation on an artifact file.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("artifact %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrIO }
