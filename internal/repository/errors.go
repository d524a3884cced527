package repository

import "errors"

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("repository: not found")

// ErrNotFailed is returned by Retry when the task is not currently failed.
var ErrNotFailed = errors.New("repository: task is not failed")
