package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "lokals/database/repository/booking"
	"lokals/models"
	"lokals/services/broadcast"

	"go.uber.org/zap"
)

// allowedTransitions is the single source of truth for legal status edges.
// COMPLETED, CANCELLED and EXPIRED are terminal.
var allowedTransitions = map[string][]string{
	models.StatusRequested:  {models.StatusPending, models.StatusCancelled},
	models.StatusPending:    {models.StatusConfirmed, models.StatusCancelled, models.StatusExpired},
	models.StatusConfirmed:  {models.StatusEnRoute, models.StatusInProgress, models.StatusCancelled},
	models.StatusEnRoute:    {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusCompleted, models.StatusCancelled},
	models.StatusCompleted:  {},
	models.StatusCancelled:  {},
	models.StatusExpired:    {},
}

// stampFields maps each status to the timestamp field recorded when the
// booking reaches it.
var stampFields = map[string]string{
	models.StatusPending:    "pending_at",
	models.StatusConfirmed:  "confirmed_at",
	models.StatusEnRoute:    "en_route_at",
	models.StatusInProgress: "started_at",
	models.StatusCompleted:  "completed_at",
	models.StatusCancelled:  "cancelled_at",
	models.StatusExpired:    "expired_at",
}

// CanTransition reports whether the edge from -> to is legal.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LifecycleService owns booking status transitions.
type LifecycleService interface {
	Transition(ctx context.Context, bookingID, newStatus string) (*models.Booking, error)
}

// DefaultLifecycleService implements LifecycleService. Invalid edges are
// rejected with InvalidTransitionError rather than logged-and-applied; the
// reference behaviour of warning but writing anyway let corrupt states leak
// into the record.
type DefaultLifecycleService struct {
	Repo        bookingRepo.BookingRepository
	Broadcaster broadcast.Broadcaster
	Logger      *zap.Logger
}

// Transition validates and applies a status change, stamps the phase
// timestamp, and notifies subscribers. Acceptance (PENDING -> CONFIRMED with
// provider binding) does not go through here; that is the arbiter's CAS.
func (s *DefaultLifecycleService) Transition(ctx context.Context, bookingID, newStatus string) (*models.Booking, error) {
	current, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, &NotFoundError{Kind: "booking", ID: bookingID}
		}
		return nil, err
	}

	// CONFIRMED binds a provider, and that binding happens only through the
	// arbiter's atomic accept. A bare status change to CONFIRMED would leave
	// a confirmed booking with nobody bound to it.
	if newStatus == models.StatusConfirmed {
		s.Logger.Warn("rejected bare transition to CONFIRMED",
			zap.String("bookingID", bookingID),
			zap.String("from", current.Status))
		return nil, &InvalidTransitionError{BookingID: bookingID, From: current.Status, To: newStatus}
	}

	if !CanTransition(current.Status, newStatus) {
		s.Logger.Warn("rejected invalid booking transition",
			zap.String("bookingID", bookingID),
			zap.String("from", current.Status),
			zap.String("to", newStatus))
		return nil, &InvalidTransitionError{BookingID: bookingID, From: current.Status, To: newStatus}
	}

	now := time.Now()
	ok, err := s.Repo.UpdateStatus(ctx, bookingID, bookingRepo.StatusWrite{
		ExpectedStatus: current.Status,
		NewStatus:      newStatus,
		StampField:     stampFields[newStatus],
		At:             now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone else moved the booking between our read and write.
		return nil, &TransitionConflictError{BookingID: bookingID, Expected: current.Status}
	}

	updated := *current
	updated.Status = newStatus
	applyStamp(&updated, newStatus, now)

	s.publish(ctx, &updated, now)
	s.audit(ctx, bookingID, current.Status, newStatus)
	return &updated, nil
}

// applyStamp mirrors the store's phase timestamp onto the in-memory copy so
// the caller sees the same record the write produced.
func applyStamp(b *models.Booking, status string, at time.Time) {
	switch status {
	case models.StatusPending:
		b.PendingAt = &at
	case models.StatusConfirmed:
		b.ConfirmedAt = &at
	case models.StatusEnRoute:
		b.EnRouteAt = &at
	case models.StatusInProgress:
		b.StartedAt = &at
	case models.StatusCompleted:
		b.CompletedAt = &at
	case models.StatusCancelled:
		b.CancelledAt = &at
	case models.StatusExpired:
		b.ExpiredAt = &at
	}
}

func (s *DefaultLifecycleService) publish(ctx context.Context, b *models.Booking, at time.Time) {
	if s.Broadcaster == nil {
		return
	}
	event := models.BookingEvent{
		BookingID:  b.ID,
		Status:     b.Status,
		ProviderID: b.ProviderID,
		At:         at,
	}
	if err := s.Broadcaster.Publish(ctx, event); err != nil {
		s.Logger.Warn("failed to publish booking update",
			zap.String("bookingID", b.ID), zap.Error(err))
	}
}

func (s *DefaultLifecycleService) audit(ctx context.Context, bookingID, from, to string) {
	err := s.Repo.AppendLifecycleEvent(ctx, &models.LifecycleEvent{
		BookingID: bookingID,
		Phase:     "STATUS",
		EventType: "status_changed",
		EventData: map[string]any{"from": from, "to": to},
	})
	if err != nil {
		s.Logger.Warn("failed to append lifecycle event",
			zap.String("bookingID", bookingID), zap.Error(err))
	}
}
