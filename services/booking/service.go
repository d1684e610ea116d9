package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "lokals/database/repository/booking"
	pricingRepo "lokals/database/repository/pricing"
	providerRepo "lokals/database/repository/provider"
	"lokals/models"
	"lokals/services/pricing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateBookingInput carries everything a client supplies when requesting a
// service.
type CreateBookingInput struct {
	ClientID        string
	ServiceCategory string
	DeliveryMode    string
	Location        *models.GeoPoint
	Address         *models.Address
	Requirements    map[string]any
}

// BookingService is the intake and settlement orchestrator: it creates
// bookings with pricing attached, kicks off provider matching, and settles
// completed bookings.
type BookingService interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error)
	DispatchMatching(ctx context.Context, bookingID string) (int, error)
	Settle(ctx context.Context, bookingID string) (*models.CommissionBreakdown, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	GetRequests(ctx context.Context, bookingID string) ([]models.BookingRequest, error)
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Bookings  bookingRepo.BookingRepository
	Providers providerRepo.ProviderRepository
	Pricing   pricing.PricingService
	PriceRepo pricingRepo.PricingRepository
	Matching  MatchingService
	Logger    *zap.Logger
}

// CreateBooking validates availability, resolves the price, and persists a
// new REQUESTED booking. Matching is dispatched separately so intake stays
// fast and a matching failure never loses the booking.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	city := ""
	if input.Address != nil {
		city = input.Address.City
	}

	if input.DeliveryMode == models.ModeLocal && city != "" {
		available, err := s.PriceRepo.GetServiceAvailability(ctx, input.ServiceCategory, city)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, &AvailabilityError{Service: input.ServiceCategory, City: city}
		}
	}

	breakdown, err := s.Pricing.ResolvePrice(ctx, input.ServiceCategory, city)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		ID:              uuid.NewString(),
		ClientID:        input.ClientID,
		ServiceCategory: input.ServiceCategory,
		DeliveryMode:    input.DeliveryMode,
		Status:          models.StatusRequested,
		Location:        input.Location,
		Address:         input.Address,
		Requirements:    input.Requirements,
		BasePrice:       breakdown.BasePrice,
		SurgeMultiplier: breakdown.DemandMultiplier,
		FinalPrice:      breakdown.FinalPrice,
		PricingTier:     breakdown.TierReached,
		CreatedAt:       time.Now(),
	}
	if err := s.Bookings.Create(ctx, b); err != nil {
		return nil, err
	}

	if err := s.Bookings.AppendLifecycleEvent(ctx, &models.LifecycleEvent{
		BookingID: b.ID,
		Phase:     "INTAKE",
		EventType: "booking_created",
		EventData: map[string]any{
			"service_category": b.ServiceCategory,
			"final_price":      b.FinalPrice,
			"pricing_tier":     b.PricingTier,
		},
	}); err != nil {
		s.Logger.Warn("failed to append intake event", zap.String("bookingID", b.ID), zap.Error(err))
	}

	return b, nil
}

// DispatchMatching discovers candidates for the booking and notifies them,
// returning how many providers were reached. Zero eligible providers is a
// distinct condition (ErrNoCandidates), never an empty success.
func (s *DefaultBookingService) DispatchMatching(ctx context.Context, bookingID string) (int, error) {
	candidates, err := s.Matching.FindCandidates(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}
	if err := s.Matching.NotifyCandidates(ctx, bookingID, candidates); err != nil {
		return 0, err
	}
	return len(candidates), nil
}

// Settle computes and records the commission split for a COMPLETED booking.
// It is idempotent: settling twice recomputes the same figures.
func (s *DefaultBookingService) Settle(ctx context.Context, bookingID string) (*models.CommissionBreakdown, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, &NotFoundError{Kind: "booking", ID: bookingID}
		}
		return nil, err
	}
	if b.Status != models.StatusCompleted {
		return nil, &InvalidTransitionError{BookingID: bookingID, From: b.Status, To: "SETTLED"}
	}

	tier := models.TierTwo
	if b.ProviderID != "" {
		p, err := s.Providers.GetByID(ctx, b.ProviderID)
		if err != nil {
			s.Logger.Warn("failed to load provider tier, using default rate",
				zap.String("bookingID", bookingID), zap.Error(err))
		} else {
			tier = p.Tier
		}
	}

	split := pricing.ComputeCommission(b.FinalPrice, tier)
	if err := s.Bookings.SetSettlement(ctx, bookingID, split.Commission, split.NetAmount); err != nil {
		return nil, err
	}

	if err := s.Bookings.AppendLifecycleEvent(ctx, &models.LifecycleEvent{
		BookingID: bookingID,
		Phase:     "SETTLE",
		EventType: "commission_recorded",
		EventData: map[string]any{
			"tier":       split.Tier,
			"commission": split.Commission,
			"net_amount": split.NetAmount,
		},
	}); err != nil {
		s.Logger.Warn("failed to append settlement event", zap.String("bookingID", bookingID), zap.Error(err))
	}

	return &split, nil
}

func (s *DefaultBookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, &NotFoundError{Kind: "booking", ID: bookingID}
		}
		return nil, err
	}
	return b, nil
}

func (s *DefaultBookingService) GetRequests(ctx context.Context, bookingID string) ([]models.BookingRequest, error) {
	return s.Bookings.ListRequestsByBooking(ctx, bookingID)
}
