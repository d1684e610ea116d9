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

// AcceptOutcome classifies the result of an acceptance attempt. Losing the
// race is a normal outcome under contention, not a fault.
type AcceptOutcome string

const (
	OutcomeAccepted     AcceptOutcome = "ACCEPTED"
	OutcomeAlreadyTaken AcceptOutcome = "ALREADY_TAKEN"
	OutcomeNotFound     AcceptOutcome = "NOT_FOUND"
)

// AcceptResult reports how an acceptance attempt resolved.
type AcceptResult struct {
	Outcome    AcceptOutcome `json:"outcome"`
	Success    bool          `json:"success"`
	BookingID  string        `json:"booking_id"`
	ProviderID string        `json:"provider_id"`
}

// RejectResult reports a rejection plus whether any requests remain open,
// so the caller can decide to re-run matching.
type RejectResult struct {
	Rejected         bool  `json:"rejected"`
	RemainingPending int64 `json:"remaining_pending"`
}

// ArbiterService resolves races between providers accepting the same
// booking, guaranteeing at most one winner.
type ArbiterService interface {
	Accept(ctx context.Context, bookingID, providerID string) (AcceptResult, error)
	Reject(ctx context.Context, bookingID, providerID string) (RejectResult, error)
}

// DefaultArbiterService implements ArbiterService on top of the store's
// conditional-write primitive.
type DefaultArbiterService struct {
	Repo        bookingRepo.BookingRepository
	Broadcaster broadcast.Broadcaster
	Logger      *zap.Logger
}

// Accept attempts to bind the provider to the booking. The whole arbitration
// is one compare-and-swap against the store: only the caller whose write
// actually modifies the booking wins; everyone else observes AlreadyTaken.
func (s *DefaultArbiterService) Accept(ctx context.Context, bookingID, providerID string) (AcceptResult, error) {
	result := AcceptResult{
		Outcome:    OutcomeAlreadyTaken,
		BookingID:  bookingID,
		ProviderID: providerID,
	}

	// The request row gates who is allowed to accept at all.
	req, err := s.Repo.GetRequest(ctx, bookingID, providerID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			result.Outcome = OutcomeNotFound
			return result, nil
		}
		return result, err
	}
	if req.Status != models.RequestPending {
		// Already resolved (rejected, expired, or this provider won earlier).
		return result, nil
	}

	now := time.Now()
	won, err := s.Repo.CompareAndSwapAssignment(ctx, bookingID, providerID, now)
	if err != nil {
		return result, err
	}
	if !won {
		// Distinguish a vanished booking from a lost race for the caller.
		if _, err := s.Repo.GetByID(ctx, bookingID); errors.Is(err, bookingRepo.ErrNotFound) {
			result.Outcome = OutcomeNotFound
		}
		return result, nil
	}

	result.Outcome = OutcomeAccepted
	result.Success = true

	// Winner's request goes ACCEPTED; every sibling still PENDING is closed
	// out so none dangles once the booking is bound.
	marked, err := s.Repo.UpdateRequestStatus(ctx, bookingID, providerID, models.RequestPending, models.RequestAccepted, now)
	if err != nil {
		s.Logger.Error("failed to mark winning request accepted",
			zap.String("bookingID", bookingID), zap.String("providerID", providerID), zap.Error(err))
	} else if !marked {
		// A reject slipped in between the pre-check and the CAS. The booking
		// binding stands; the stale request row needs eyes on it.
		s.Logger.Warn("winning request was not pending at resolution",
			zap.String("bookingID", bookingID), zap.String("providerID", providerID))
	}
	if err := s.Repo.ResolveSiblings(ctx, bookingID, providerID, models.RequestRejected, now); err != nil {
		s.Logger.Error("failed to resolve sibling requests",
			zap.String("bookingID", bookingID), zap.Error(err))
	}

	if s.Broadcaster != nil {
		event := models.BookingEvent{
			BookingID:  bookingID,
			Status:     models.StatusConfirmed,
			ProviderID: providerID,
			At:         now,
		}
		if err := s.Broadcaster.Publish(ctx, event); err != nil {
			s.Logger.Warn("failed to publish confirmation",
				zap.String("bookingID", bookingID), zap.Error(err))
		}
	}

	if err := s.Repo.AppendLifecycleEvent(ctx, &models.LifecycleEvent{
		BookingID: bookingID,
		Phase:     "ACCEPT",
		EventType: "provider_bound",
		EventData: map[string]any{"provider_id": providerID},
	}); err != nil {
		s.Logger.Warn("failed to append accept event", zap.String("bookingID", bookingID), zap.Error(err))
	}

	return result, nil
}

// Reject moves the provider's request to REJECTED without touching the
// booking. The result carries how many requests remain PENDING so the
// caller can re-run matching when the pool empties.
func (s *DefaultArbiterService) Reject(ctx context.Context, bookingID, providerID string) (RejectResult, error) {
	now := time.Now()
	ok, err := s.Repo.UpdateRequestStatus(ctx, bookingID, providerID, models.RequestPending, models.RequestRejected, now)
	if err != nil {
		return RejectResult{}, err
	}
	remaining, err := s.Repo.CountPendingRequests(ctx, bookingID)
	if err != nil {
		return RejectResult{Rejected: ok}, err
	}
	return RejectResult{Rejected: ok, RemainingPending: remaining}, nil
}
