package bookingRepo

import (
	"context"
	"time"

	"lokals/models"
)

// StatusWrite describes one optimistic status update: the write only lands
// if the booking is still in ExpectedStatus.
type StatusWrite struct {
	ExpectedStatus string
	NewStatus      string
	StampField     string // timestamp field to set for the phase reached
	At             time.Time
}

// BookingRepository defines data access for bookings, their per-provider
// requests, and the lifecycle audit log.
type BookingRepository interface {
	// Create inserts a new booking record.
	Create(ctx context.Context, booking *models.Booking) error
	// GetByID retrieves a booking by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// UpdateStatus applies an optimistic status write. It returns false when
	// the precondition no longer holds (someone else moved the booking first).
	UpdateStatus(ctx context.Context, id string, write StatusWrite) (bool, error)
	// CompareAndSwapAssignment atomically binds a provider to a PENDING,
	// unassigned booking and moves it to CONFIRMED. Returns false when the
	// booking was already taken, cancelled, or expired.
	CompareAndSwapAssignment(ctx context.Context, bookingID, providerID string, at time.Time) (bool, error)
	// SetSettlement records commission and net earnings on a completed booking.
	SetSettlement(ctx context.Context, id string, commission, netAmount float64) error
	// ListPendingOlderThan returns PENDING bookings created before the cutoff.
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Booking, error)

	// UpsertRequests creates one PENDING request per provider. Resending to a
	// provider that already has a request is a no-op (no duplicate rows).
	UpsertRequests(ctx context.Context, bookingID string, providerIDs []string, at time.Time) error
	// GetRequest fetches the request row for (bookingID, providerID).
	GetRequest(ctx context.Context, bookingID, providerID string) (*models.BookingRequest, error)
	// UpdateRequestStatus moves a single request from one status to another.
	// Returns false when the request was not in the expected status.
	UpdateRequestStatus(ctx context.Context, bookingID, providerID, expected, next string, at time.Time) (bool, error)
	// ResolveSiblings moves every PENDING request for the booking, except the
	// winner's, to the given terminal status.
	ResolveSiblings(ctx context.Context, bookingID, winnerProviderID, terminal string, at time.Time) error
	// ExpirePendingRequests moves all PENDING requests for a booking to EXPIRED.
	ExpirePendingRequests(ctx context.Context, bookingID string, at time.Time) error
	// CountPendingRequests counts unresolved requests for a booking.
	CountPendingRequests(ctx context.Context, bookingID string) (int64, error)
	// ListRequestsByBooking returns all request rows for a booking.
	ListRequestsByBooking(ctx context.Context, bookingID string) ([]models.BookingRequest, error)

	// AppendLifecycleEvent writes an audit row; failures are the caller's to
	// log, never to surface.
	AppendLifecycleEvent(ctx context.Context, event *models.LifecycleEvent) error
}
