package services

import "errors"

// Typed business errors returned by the scheduling services. Handlers map
// these to HTTP status codes; anything else is an infrastructure failure.
var (
	// ErrInvalidArgument marks malformed input: bad ranges, out-of-bounds
	// percentages, missing required fields.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOverlap marks a time conflict with an existing non-cancelled
	// session. Reported per candidate in bulk flows, never aborts a batch.
	ErrOverlap = errors.New("session overlaps an existing session")

	// ErrInvalidTransition marks a lifecycle rule violation.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound covers both unknown ids and rows owned by another user,
	// deliberately conflated for authorization opacity.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification marks an optimistic concurrency loss.
	// Safe to retry.
	ErrConcurrentModification = errors.New("concurrent modification")
)

func isInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
