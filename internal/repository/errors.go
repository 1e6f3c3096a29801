// Package repository defines error sentinels shared across the data access
// layer. Handlers and services use errors.Is against these values to map
// failures onto HTTP responses: missing rows become 404s, ownership
// violations 403s and lost capacity races 409s.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by another restaurant. Handlers translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write loses a concurrency race after the
// bounded retries are exhausted (deadlock or lock wait timeout on the
// capacity-checked insert). Handlers translate this into an HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrInsufficientCapacity is returned when a capacity-checked reservation
// insert finds fewer free covers than the requested party size. Unlike
// ErrConflict this is a definitive answer, not a transient race.
var ErrInsufficientCapacity = errors.New("insufficient capacity")

// ErrServiceVersionNotFound is returned when no service version exists for
// the given id.
var ErrServiceVersionNotFound = errors.New("service version not found")

// ErrExceptionNotFound is returned when no date exception exists for the
// given id.
var ErrExceptionNotFound = errors.New("date exception not found")

// ErrSlotNotFound is returned when no legacy slot exists for the given id.
var ErrSlotNotFound = errors.New("legacy slot not found")
