// Package xid mints identifiers for schedulers, jobs and tasks.
package xid

import "github.com/google/uuid"

// ID is an opaque, comparable identifier.
type ID string

// New mints a fresh random identifier.
func New() ID {
	return ID(uuid.NewString())
}

// String returns the identifier's textual form.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether id is the empty identifier.
func (id ID) IsZero() bool {
	return id == ""
}
