package booking

import (
	"context"
	"sync"
	"time"

	bookingRepo "lokals/database/repository/booking"
	providerRepo "lokals/database/repository/provider"
	"lokals/models"

	"github.com/google/uuid"
)

// fakeBookingRepo is an in-memory BookingRepository with the same atomicity
// guarantees as the real store: status writes and assignment are guarded by
// a single lock, so conditional updates observe a consistent state.
type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	requests map[string]*models.BookingRequest // keyed bookingID|providerID
	events   []models.LifecycleEvent
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings: make(map[string]*models.Booking),
		requests: make(map[string]*models.BookingRequest),
	}
}

func reqKey(bookingID, providerID string) string {
	return bookingID + "|" + providerID
}

func (f *fakeBookingRepo) Create(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *b
	f.bookings[b.ID] = &clone
	return nil
}

func (f *fakeBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (f *fakeBookingRepo) UpdateStatus(_ context.Context, id string, write bookingRepo.StatusWrite) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != write.ExpectedStatus {
		return false, nil
	}
	b.Status = write.NewStatus
	return true, nil
}

func (f *fakeBookingRepo) CompareAndSwapAssignment(_ context.Context, bookingID, providerID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok || b.Status != models.StatusPending || b.ProviderID != "" {
		return false, nil
	}
	b.Status = models.StatusConfirmed
	b.ProviderID = providerID
	b.ConfirmedAt = &at
	return true, nil
}

func (f *fakeBookingRepo) SetSettlement(_ context.Context, id string, commission, netAmount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	b.PlatformCommission = commission
	b.ProviderEarnings = netAmount
	return nil
}

func (f *fakeBookingRepo) ListPendingOlderThan(_ context.Context, cutoff time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.Status == models.StatusPending && b.CreatedAt.Before(cutoff) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) UpsertRequests(_ context.Context, bookingID string, providerIDs []string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pid := range providerIDs {
		key := reqKey(bookingID, pid)
		if _, exists := f.requests[key]; exists {
			continue
		}
		f.requests[key] = &models.BookingRequest{
			ID:         uuid.NewString(),
			BookingID:  bookingID,
			ProviderID: pid,
			Status:     models.RequestPending,
			CreatedAt:  at,
		}
	}
	return nil
}

func (f *fakeBookingRepo) GetRequest(_ context.Context, bookingID, providerID string) (*models.BookingRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[reqKey(bookingID, providerID)]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (f *fakeBookingRepo) UpdateRequestStatus(_ context.Context, bookingID, providerID, expected, next string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[reqKey(bookingID, providerID)]
	if !ok || r.Status != expected {
		return false, nil
	}
	r.Status = next
	r.ResolvedAt = &at
	return true, nil
}

func (f *fakeBookingRepo) ResolveSiblings(_ context.Context, bookingID, winnerProviderID, terminal string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.BookingID == bookingID && r.ProviderID != winnerProviderID && r.Status == models.RequestPending {
			r.Status = terminal
			r.ResolvedAt = &at
		}
	}
	return nil
}

func (f *fakeBookingRepo) ExpirePendingRequests(_ context.Context, bookingID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.BookingID == bookingID && r.Status == models.RequestPending {
			r.Status = models.RequestExpired
			r.ResolvedAt = &at
		}
	}
	return nil
}

func (f *fakeBookingRepo) CountPendingRequests(_ context.Context, bookingID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.requests {
		if r.BookingID == bookingID && r.Status == models.RequestPending {
			n++
		}
	}
	return n, nil
}

func (f *fakeBookingRepo) ListRequestsByBooking(_ context.Context, bookingID string) ([]models.BookingRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BookingRequest
	for _, r := range f.requests {
		if r.BookingID == bookingID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) AppendLifecycleEvent(_ context.Context, event *models.LifecycleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeBookingRepo) requestStatus(bookingID, providerID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[reqKey(bookingID, providerID)]
	if !ok {
		return ""
	}
	return r.Status
}

// fakeBroadcaster records published events.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (f *fakeBroadcaster) Publish(_ context.Context, event models.BookingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeBroadcaster) Subscribe(_ context.Context, _ string) (<-chan models.BookingEvent, func()) {
	ch := make(chan models.BookingEvent)
	close(ch)
	return ch, func() {}
}

func (f *fakeBroadcaster) published() []models.BookingEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.BookingEvent, len(f.events))
	copy(out, f.events)
	return out
}

// fakeProviderRepo serves a fixed provider set.
type fakeProviderRepo struct {
	providers []models.Provider
}

func (f *fakeProviderRepo) GetByID(_ context.Context, id string) (*models.Provider, error) {
	for i := range f.providers {
		if f.providers[i].ID == id {
			clone := f.providers[i]
			return &clone, nil
		}
	}
	return nil, providerRepo.ErrNotFound
}

func (f *fakeProviderRepo) FindActiveProviders(_ context.Context, criteria providerRepo.ProviderSearchCriteria) ([]models.Provider, error) {
	var out []models.Provider
	for _, p := range f.providers {
		if !p.Active {
			continue
		}
		serves := false
		for _, s := range p.Services {
			if s == criteria.ServiceCategory {
				serves = true
				break
			}
		}
		if !serves {
			continue
		}
		if criteria.City != "" && p.City != criteria.City {
			continue
		}
		out = append(out, p)
		if criteria.Limit > 0 && len(out) == criteria.Limit {
			break
		}
	}
	return out, nil
}

// fakeNotifier counts push batches.
type fakeNotifier struct {
	mu      sync.Mutex
	batches [][]string
}

func (f *fakeNotifier) NotifyNewRequests(_ context.Context, _ *models.Booking, providerIDs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, providerIDs)
}
