package domain

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrNotFound is matched by NotFoundError
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing input audio file
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNotFound) and errors.Is(err, fs.ErrNotExist) hold
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == fs.ErrNotExist
}
