package booking

import (
	"errors"
	"fmt"
)

// ErrNoCandidates signals that matching found zero eligible providers. The
// caller must surface this as a "no providers" condition, never as an empty
// success.
var ErrNoCandidates = errors.New("no eligible providers found")

// NotFoundError is returned when a referenced booking or provider does not
// exist. It is always surfaced to the caller and never retried internally.
type NotFoundError struct {
	Kind string // "booking" | "provider" | "request"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidTransitionError is returned when an illegal status edge is
// attempted. Invalid transitions are rejected outright, never applied.
type InvalidTransitionError struct {
	BookingID string
	From      string
	To        string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition %s -> %s for booking %s", e.From, e.To, e.BookingID)
}

// TransitionConflictError is returned when an optimistic status write lost
// to a concurrent writer on a non-acceptance edge.
type TransitionConflictError struct {
	BookingID string
	Expected  string
}

func (e *TransitionConflictError) Error() string {
	return fmt.Sprintf("booking %s no longer in status %s", e.BookingID, e.Expected)
}

// AvailabilityError is returned when the requested service is disabled in
// the booking's city. It must be surfaced before booking creation.
type AvailabilityError struct {
	Service string
	City    string
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("service %s is currently unavailable in %s", e.Service, e.City)
}
