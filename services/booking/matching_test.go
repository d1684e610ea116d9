package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"lokals/models"

	"go.uber.org/zap"
)

func newMatching(bookings *fakeBookingRepo, providers *fakeProviderRepo) *DefaultMatchingService {
	return &DefaultMatchingService{
		Bookings:      bookings,
		Providers:     providers,
		Ranker:        &DistanceRanker{RadiusKm: 15},
		RadiusKm:      15,
		MaxCandidates: 20,
		Logger:        zap.NewNop(),
	}
}

func activeProvider(id, category, city string, lng, lat float64) models.Provider {
	return models.Provider{
		ID:          id,
		Active:      true,
		Services:    []string{category},
		City:        city,
		LocationGeo: models.NewGeoPoint(lng, lat),
		Tier:        models.TierTwo,
	}
}

func TestFindCandidatesFiltersByCategory(t *testing.T) {
	t.Parallel()

	bookings := newFakeBookingRepo()
	providers := &fakeProviderRepo{providers: []models.Provider{
		activeProvider("p1", "plumbing", "pune", 73.85, 18.52),
		activeProvider("p2", "cleaning", "pune", 73.86, 18.53),
	}}
	svc := newMatching(bookings, providers)

	loc := models.NewGeoPoint(73.85, 18.52)
	bookings.Create(context.Background(), &models.Booking{
		ID:              "b1",
		ServiceCategory: "plumbing",
		DeliveryMode:    models.ModeLocal,
		Status:          models.StatusRequested,
		Location:        &loc,
		CreatedAt:       time.Now(),
	})

	ids, err := svc.FindCandidates(context.Background(), "b1")
	if err != nil {
		t.Fatalf("FindCandidates returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "p1" {
		t.Fatalf("expected only p1, got %v", ids)
	}
}

func TestFindCandidatesZeroMatchesIsNotAnError(t *testing.T) {
	t.Parallel()

	bookings := newFakeBookingRepo()
	svc := newMatching(bookings, &fakeProviderRepo{})
	bookings.Create(context.Background(), &models.Booking{
		ID:              "b1",
		ServiceCategory: "plumbing",
		DeliveryMode:    models.ModeOnline,
		Status:          models.StatusRequested,
		CreatedAt:       time.Now(),
	})

	ids, err := svc.FindCandidates(context.Background(), "b1")
	if err != nil {
		t.Fatalf("zero matches must not error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no candidates, got %v", ids)
	}
}

func TestFindCandidatesLocalWithoutLocationMatchesNobody(t *testing.T) {
	t.Parallel()

	bookings := newFakeBookingRepo()
	providers := &fakeProviderRepo{providers: []models.Provider{
		activeProvider("p1", "plumbing", "pune", 73.85, 18.52),
	}}
	svc := newMatching(bookings, providers)

	// A LOCAL booking with neither coordinates nor a city has no geographic
	// scope; it must match nobody rather than the whole directory.
	bookings.Create(context.Background(), &models.Booking{
		ID:              "b1",
		ServiceCategory: "plumbing",
		DeliveryMode:    models.ModeLocal,
		Status:          models.StatusRequested,
		CreatedAt:       time.Now(),
	})

	ids, err := svc.FindCandidates(context.Background(), "b1")
	if err != nil {
		t.Fatalf("FindCandidates returned error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("unscoped local booking matched %v, want none", ids)
	}
}

func TestFindCandidatesUnknownBooking(t *testing.T) {
	t.Parallel()

	svc := newMatching(newFakeBookingRepo(), &fakeProviderRepo{})
	_, err := svc.FindCandidates(context.Background(), "missing")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestNotifyCandidatesMovesBookingToPending(t *testing.T) {
	t.Parallel()

	bookings := newFakeBookingRepo()
	svc := newMatching(bookings, &fakeProviderRepo{})
	notifier := &fakeNotifier{}
	svc.Notifier = notifier

	bookings.Create(context.Background(), &models.Booking{
		ID:        "b1",
		Status:    models.StatusRequested,
		CreatedAt: time.Now(),
	})

	if err := svc.NotifyCandidates(context.Background(), "b1", []string{"p1", "p2"}); err != nil {
		t.Fatalf("NotifyCandidates returned error: %v", err)
	}

	b, _ := bookings.GetByID(context.Background(), "b1")
	if b.Status != models.StatusPending {
		t.Errorf("booking status = %s, want PENDING", b.Status)
	}
	count, _ := bookings.CountPendingRequests(context.Background(), "b1")
	if count != 2 {
		t.Errorf("pending requests = %d, want 2", count)
	}
}

func TestNotifyCandidatesIsIdempotent(t *testing.T) {
	t.Parallel()

	bookings := newFakeBookingRepo()
	svc := newMatching(bookings, &fakeProviderRepo{})

	bookings.Create(context.Background(), &models.Booking{
		ID:        "b1",
		Status:    models.StatusRequested,
		CreatedAt: time.Now(),
	})

	ctx := context.Background()
	if err := svc.NotifyCandidates(ctx, "b1", []string{"p1", "p2"}); err != nil {
		t.Fatalf("first notify errored: %v", err)
	}
	if err := svc.NotifyCandidates(ctx, "b1", []string{"p1", "p2"}); err != nil {
		t.Fatalf("second notify errored: %v", err)
	}

	reqs, _ := bookings.ListRequestsByBooking(ctx, "b1")
	if len(reqs) != 2 {
		t.Fatalf("expected 2 request rows after duplicate notify, got %d", len(reqs))
	}
}

func TestNotifyCandidatesEmptyIsNoOp(t *testing.T) {
	t.Parallel()

	bookings := newFakeBookingRepo()
	svc := newMatching(bookings, &fakeProviderRepo{})
	bookings.Create(context.Background(), &models.Booking{
		ID:        "b1",
		Status:    models.StatusRequested,
		CreatedAt: time.Now(),
	})

	if err := svc.NotifyCandidates(context.Background(), "b1", nil); err != nil {
		t.Fatalf("empty notify must be a no-op, got %v", err)
	}
	b, _ := bookings.GetByID(context.Background(), "b1")
	if b.Status != models.StatusRequested {
		t.Errorf("booking moved to %s on empty notify", b.Status)
	}
}

func TestDistanceRankerPrefersCloserProviders(t *testing.T) {
	t.Parallel()

	center := models.NewGeoPoint(73.85, 18.52)
	providers := []models.Provider{
		activeProvider("far", "plumbing", "pune", 73.95, 18.62),
		activeProvider("near", "plumbing", "pune", 73.851, 18.521),
	}

	ranker := &DistanceRanker{RadiusKm: 15}
	ranked := ranker.Rank(center, providers)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked providers, got %d", len(ranked))
	}
	if ranked[0].Provider.ID != "near" {
		t.Errorf("expected near provider ranked first, got %s", ranked[0].Provider.ID)
	}
	if ranked[0].Proximity >= ranked[1].Proximity {
		t.Errorf("proximity ordering wrong: %f >= %f", ranked[0].Proximity, ranked[1].Proximity)
	}
}

func TestDistanceRankerRewardsTrackRecord(t *testing.T) {
	t.Parallel()

	// Same spot, different history: rating and completed jobs break the tie.
	veteran := activeProvider("veteran", "plumbing", "pune", 73.85, 18.52)
	veteran.Rating = 4.8
	veteran.CompletedBookings = 90
	rookie := activeProvider("rookie", "plumbing", "pune", 73.85, 18.52)

	ranker := &DistanceRanker{RadiusKm: 15}
	ranked := ranker.Rank(models.NewGeoPoint(73.85, 18.52), []models.Provider{rookie, veteran})

	if ranked[0].Provider.ID != "veteran" {
		t.Errorf("expected veteran ranked first, got %s", ranked[0].Provider.ID)
	}
}
