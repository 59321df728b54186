package db

import "errors"

// ErrNotFound is returned for unknown job or result ids
var ErrNotFound = errors.New("not found")
