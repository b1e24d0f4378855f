package domain

import "errors"

// ErrNotFound is returned by repositories when a lookup misses.
var ErrNotFound = errors.New("not found")
