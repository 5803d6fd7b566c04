package repo

import "errors"

// ErrNotFound is returned when an ownership-scoped lookup matches no row.
// A deadline owned by another user is indistinguishable from a missing one,
// so existence never leaks across accounts.
var ErrNotFound = errors.New("not found")
