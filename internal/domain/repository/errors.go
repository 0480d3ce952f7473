package repository

import "errors"

var ErrIdempotencyKeyConflict = errors.New("idempotency key conflicts with request")
var ErrInvalidCursor = errors.New("invalid cursor")
var ErrNotFound = errors.New("record not found")

// ErrStaleOutboxEvent is returned when a status update matched no row that is still
// allowed to transition, typically because another poller already published it.
var ErrStaleOutboxEvent = errors.New("outbox event is no longer eligible for this transition")
