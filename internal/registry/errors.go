package registry

import "errors"

// ErrNotFound is returned when no active application matches the lookup key.
var ErrNotFound = errors.New("application not found")
