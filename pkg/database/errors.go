package database

import "errors"

// ErrDirtySchema indicates a previous migration failed part way and the
// version must be forced before migrating again.
var ErrDirtySchema = errors.New("database schema is dirty")
