package repository

import "errors"

// ErrNotFound is returned when no row matches the given id. Admin handlers map it to 404.
var ErrNotFound = errors.New("repository: record not found")
