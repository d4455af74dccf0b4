// Package repository defines error values shared across repositories so
// handlers can map failure modes to HTTP statuses without inspecting
// driver errors.
package repository

import "errors"

// ErrConflict is returned when a delete cannot proceed because dependent
// rows still reference the record, such as removing a table that has
// guests seated at it. Handlers translate this into an HTTP 409.
var ErrConflict = errors.New("conflict")
