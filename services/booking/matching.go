package booking

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	bookingRepo "lokals/database/repository/booking"
	providerRepo "lokals/database/repository/provider"
	"lokals/models"
	"lokals/services/notification"

	"go.uber.org/zap"
)

// RankedProvider holds provider data along with computed score and proximity.
type RankedProvider struct {
	Provider   models.Provider
	RankPoints float64
	Proximity  float64 // metres from the booking location, 0 for online
}

// Ranker orders candidate providers. The matching contract itself promises
// no ordering; rankers are pluggable without changing the contract shape.
type Ranker interface {
	Rank(center models.GeoPoint, providers []models.Provider) []RankedProvider
}

// MatchingService discovers and notifies candidate providers for a booking.
type MatchingService interface {
	FindCandidates(ctx context.Context, bookingID string) ([]string, error)
	NotifyCandidates(ctx context.Context, bookingID string, providerIDs []string) error
}

// DefaultMatchingService implements MatchingService.
type DefaultMatchingService struct {
	Bookings      bookingRepo.BookingRepository
	Providers     providerRepo.ProviderRepository
	Notifier      notification.NotificationService
	Ranker        Ranker
	RadiusKm      float64
	MaxCandidates int
	Logger        *zap.Logger
}

// FindCandidates produces the provider ids eligible to receive a booking.
// LOCAL bookings are narrowed by radius search around the booking location,
// falling back to a city match when no usable coordinates exist; ONLINE
// bookings skip geography entirely.
func (s *DefaultMatchingService) FindCandidates(ctx context.Context, bookingID string) ([]string, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, &NotFoundError{Kind: "booking", ID: bookingID}
		}
		return nil, err
	}

	criteria := providerRepo.ProviderSearchCriteria{
		ServiceCategory: b.ServiceCategory,
		Limit:           s.MaxCandidates,
	}
	if b.DeliveryMode == models.ModeLocal {
		switch {
		case b.Location != nil && !b.Location.IsZero():
			criteria.LocationGeo = *b.Location
			criteria.MaxDistanceKm = s.RadiusKm
		case b.Address != nil && b.Address.City != "":
			criteria.City = b.Address.City
		default:
			// A local job with no coordinates and no city cannot be scoped
			// geographically; matching the whole directory would page every
			// provider in the category regardless of where they work.
			s.Logger.Warn("local booking has no usable location or city",
				zap.String("bookingID", bookingID))
			return nil, nil
		}
	}

	providers, err := s.Providers.FindActiveProviders(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		s.Logger.Info("no providers matched",
			zap.String("bookingID", bookingID),
			zap.String("category", b.ServiceCategory))
		return nil, nil
	}

	var center models.GeoPoint
	if b.Location != nil {
		center = *b.Location
	}
	ranked := s.Ranker.Rank(center, providers)

	ids := make([]string, 0, len(ranked))
	for _, rp := range ranked {
		ids = append(ids, rp.Provider.ID)
	}
	return ids, nil
}

// NotifyCandidates creates one PENDING request per candidate and moves the
// booking to PENDING. Calling with zero candidates is a no-op; calling twice
// with the same providers produces no duplicate rows.
func (s *DefaultMatchingService) NotifyCandidates(ctx context.Context, bookingID string, providerIDs []string) error {
	if len(providerIDs) == 0 {
		return nil
	}

	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return &NotFoundError{Kind: "booking", ID: bookingID}
		}
		return err
	}

	now := time.Now()
	if err := s.Bookings.UpsertRequests(ctx, bookingID, providerIDs, now); err != nil {
		return err
	}

	if b.Status == models.StatusRequested {
		ok, err := s.Bookings.UpdateStatus(ctx, bookingID, bookingRepo.StatusWrite{
			ExpectedStatus: models.StatusRequested,
			NewStatus:      models.StatusPending,
			StampField:     "pending_at",
			At:             now,
		})
		if err != nil {
			return err
		}
		if !ok {
			// Already moved (cancelled or re-notified concurrently); the
			// requests stand either way.
			s.Logger.Debug("booking left REQUESTED before notify completed",
				zap.String("bookingID", bookingID))
		}
	}

	if err := s.Bookings.AppendLifecycleEvent(ctx, &models.LifecycleEvent{
		BookingID: bookingID,
		Phase:     "MATCH",
		EventType: "providers_notified",
		EventData: map[string]any{"count": len(providerIDs)},
	}); err != nil {
		s.Logger.Warn("failed to append match event", zap.String("bookingID", bookingID), zap.Error(err))
	}

	// Push alerts are fire-and-forget: delivery failures never roll back
	// matching.
	if s.Notifier != nil {
		go s.Notifier.NotifyNewRequests(context.WithoutCancel(ctx), b, providerIDs)
	}
	return nil
}

// DistanceRanker is the default Ranker: proximity, rating and completed-job
// history combine into a single score, computed concurrently per provider.
type DistanceRanker struct {
	RadiusKm float64
}

func (r *DistanceRanker) Rank(center models.GeoPoint, providers []models.Provider) []RankedProvider {
	const (
		maxLocationPts  = 45.0
		maxCompletedPts = 20.0
		maxRatingPts    = 15.0
	)
	radius := r.RadiusKm
	if radius <= 0 {
		radius = 15
	}

	scored := make([]RankedProvider, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p models.Provider) {
			defer wg.Done()

			var locScore, distanceKm float64
			if !center.IsZero() && !p.LocationGeo.IsZero() {
				distanceKm = haversine(center.Lat(), center.Lng(), p.LocationGeo.Lat(), p.LocationGeo.Lng())
				if distanceKm < radius {
					locScore = maxLocationPts * (1 - distanceKm/radius)
				}
			}
			completedScore := math.Log10(float64(p.CompletedBookings+1)) * maxCompletedPts / math.Log10(101)
			rating := p.Rating
			if rating > 5 {
				rating = 5
			}
			ratingScore := (rating / 5) * maxRatingPts

			scored[i] = RankedProvider{
				Provider:   p,
				RankPoints: locScore + completedScore + ratingScore,
				Proximity:  distanceKm * 1000,
			}
		}(i, p)
	}
	wg.Wait()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RankPoints > scored[j].RankPoints
	})
	return scored
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLon := (lon2 - lon1) * (math.Pi / 180)
	lat1Rad := lat1 * (math.Pi / 180)
	lat2Rad := lat2 * (math.Pi / 180)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
