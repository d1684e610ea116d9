package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lokals/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newArbiter(repo *fakeBookingRepo, bc *fakeBroadcaster) *DefaultArbiterService {
	return &DefaultArbiterService{Repo: repo, Broadcaster: bc, Logger: zap.NewNop()}
}

func seedPendingBooking(repo *fakeBookingRepo, bookingID string, providerIDs []string) {
	ctx := context.Background()
	repo.Create(ctx, &models.Booking{
		ID:        bookingID,
		ClientID:  "client-1",
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	})
	repo.UpsertRequests(ctx, bookingID, providerIDs, time.Now())
}

func TestAcceptBindsSingleProvider(t *testing.T) {
	t.Parallel()

	repo := newFakeBookingRepo()
	bc := &fakeBroadcaster{}
	arbiter := newArbiter(repo, bc)
	seedPendingBooking(repo, "b1", []string{"p1", "p2", "p3"})

	result, err := arbiter.Accept(context.Background(), "b1", "p2")
	if err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}
	if !result.Success || result.Outcome != OutcomeAccepted {
		t.Fatalf("expected accepted, got %+v", result)
	}

	b, _ := repo.GetByID(context.Background(), "b1")
	if b.Status != models.StatusConfirmed || b.ProviderID != "p2" {
		t.Errorf("booking = %s/%s, want CONFIRMED/p2", b.Status, b.ProviderID)
	}

	// Winner ACCEPTED, siblings closed out.
	if got := repo.requestStatus("b1", "p2"); got != models.RequestAccepted {
		t.Errorf("winner request = %s, want ACCEPTED", got)
	}
	for _, pid := range []string{"p1", "p3"} {
		if got := repo.requestStatus("b1", pid); got != models.RequestRejected {
			t.Errorf("sibling %s request = %s, want REJECTED", pid, got)
		}
	}

	events := bc.published()
	if len(events) != 1 || events[0].Status != models.StatusConfirmed || events[0].ProviderID != "p2" {
		t.Errorf("expected one CONFIRMED broadcast for p2, got %+v", events)
	}
}

func TestAcceptSecondProviderLoses(t *testing.T) {
	t.Parallel()

	repo := newFakeBookingRepo()
	arbiter := newArbiter(repo, &fakeBroadcaster{})
	seedPendingBooking(repo, "b1", []string{"p1", "p2"})

	first, err := arbiter.Accept(context.Background(), "b1", "p1")
	if err != nil || !first.Success {
		t.Fatalf("first accept failed: %+v, %v", first, err)
	}

	second, err := arbiter.Accept(context.Background(), "b1", "p2")
	if err != nil {
		t.Fatalf("second accept returned error: %v", err)
	}
	if second.Success || second.Outcome != OutcomeAlreadyTaken {
		t.Fatalf("expected AlreadyTaken for loser, got %+v", second)
	}

	b, _ := repo.GetByID(context.Background(), "b1")
	if b.ProviderID != "p1" {
		t.Errorf("binding moved to %s, must stay p1", b.ProviderID)
	}
}

func TestAcceptConcurrentExactlyOneWinner(t *testing.T) {
	t.Parallel()

	const contenders = 32
	repo := newFakeBookingRepo()
	arbiter := newArbiter(repo, &fakeBroadcaster{})

	providers := make([]string, contenders)
	for i := range providers {
		providers[i] = fmt.Sprintf("p%d", i)
	}
	seedPendingBooking(repo, "b1", providers)

	results := make([]AcceptResult, contenders)
	var wg sync.WaitGroup
	for i, pid := range providers {
		wg.Add(1)
		go func(i int, pid string) {
			defer wg.Done()
			r, err := arbiter.Accept(context.Background(), "b1", pid)
			if err != nil {
				t.Errorf("accept by %s errored: %v", pid, err)
			}
			results[i] = r
		}(i, pid)
	}
	wg.Wait()

	winners := 0
	var winner string
	for i, r := range results {
		if r.Success {
			winners++
			winner = providers[i]
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	b, _ := repo.GetByID(context.Background(), "b1")
	if b.ProviderID != winner {
		t.Errorf("booking bound to %s but winner was %s", b.ProviderID, winner)
	}
	if b.Status != models.StatusConfirmed {
		t.Errorf("booking status = %s, want CONFIRMED", b.Status)
	}

	// No sibling may remain PENDING once the booking is bound.
	remaining, _ := repo.CountPendingRequests(context.Background(), "b1")
	if remaining != 0 {
		t.Errorf("%d requests still pending after arbitration", remaining)
	}
}

func TestAcceptCancelledBookingHasNoWinner(t *testing.T) {
	t.Parallel()

	repo := newFakeBookingRepo()
	arbiter := newArbiter(repo, &fakeBroadcaster{})
	ctx := context.Background()
	repo.Create(ctx, &models.Booking{
		ID:        "b1",
		Status:    models.StatusCancelled,
		CreatedAt: time.Now(),
	})
	repo.UpsertRequests(ctx, "b1", []string{"p1"}, time.Now())

	result, err := arbiter.Accept(ctx, "b1", "p1")
	if err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}
	if result.Success {
		t.Fatal("accept on a cancelled booking must not succeed")
	}

	b, _ := repo.GetByID(ctx, "b1")
	if b.ProviderID != "" || b.Status != models.StatusCancelled {
		t.Errorf("cancelled booking mutated: %s/%s", b.Status, b.ProviderID)
	}
}

func TestAcceptWithoutRequestIsNotFound(t *testing.T) {
	t.Parallel()

	repo := newFakeBookingRepo()
	arbiter := newArbiter(repo, &fakeBroadcaster{})
	seedPendingBooking(repo, "b1", []string{"p1"})

	result, err := arbiter.Accept(context.Background(), "b1", "stranger")
	if err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}
	if result.Outcome != OutcomeNotFound {
		t.Fatalf("expected NotFound for provider without a request, got %+v", result)
	}
}

// rejectDuringCASRepo rejects the accepting provider's request right before
// the assignment write, reproducing a reject racing the accept between the
// pre-check and the CAS.
type rejectDuringCASRepo struct {
	*fakeBookingRepo
}

func (r *rejectDuringCASRepo) CompareAndSwapAssignment(ctx context.Context, bookingID, providerID string, at time.Time) (bool, error) {
	r.fakeBookingRepo.UpdateRequestStatus(ctx, bookingID, providerID, models.RequestPending, models.RequestRejected, at)
	return r.fakeBookingRepo.CompareAndSwapAssignment(ctx, bookingID, providerID, at)
}

func TestAcceptLogsWhenWinnerRequestAlreadyResolved(t *testing.T) {
	t.Parallel()

	inner := newFakeBookingRepo()
	seedPendingBooking(inner, "b1", []string{"p1"})

	core, logs := observer.New(zap.WarnLevel)
	arbiter := &DefaultArbiterService{
		Repo:        &rejectDuringCASRepo{fakeBookingRepo: inner},
		Broadcaster: &fakeBroadcaster{},
		Logger:      zap.New(core),
	}

	result, err := arbiter.Accept(context.Background(), "b1", "p1")
	if err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}
	if !result.Success {
		t.Fatal("binding must stand even when the request row was raced")
	}

	b, _ := inner.GetByID(context.Background(), "b1")
	if b.Status != models.StatusConfirmed || b.ProviderID != "p1" {
		t.Errorf("booking = %s/%s, want CONFIRMED/p1", b.Status, b.ProviderID)
	}

	// The stale request row must at least be flagged in the logs.
	if logs.FilterMessage("winning request was not pending at resolution").Len() != 1 {
		t.Errorf("expected a warning about the raced request row, got %v", logs.All())
	}
}

func TestRejectReportsRemainingPending(t *testing.T) {
	t.Parallel()

	repo := newFakeBookingRepo()
	arbiter := newArbiter(repo, &fakeBroadcaster{})
	seedPendingBooking(repo, "b1", []string{"p1", "p2"})
	ctx := context.Background()

	first, err := arbiter.Reject(ctx, "b1", "p1")
	if err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
	if !first.Rejected || first.RemainingPending != 1 {
		t.Fatalf("first reject = %+v, want rejected with 1 remaining", first)
	}

	second, err := arbiter.Reject(ctx, "b1", "p2")
	if err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
	if !second.Rejected || second.RemainingPending != 0 {
		t.Fatalf("second reject = %+v, want rejected with 0 remaining", second)
	}

	// Rejecting again is a no-op, not an error.
	again, err := arbiter.Reject(ctx, "b1", "p2")
	if err != nil {
		t.Fatalf("repeat reject returned error: %v", err)
	}
	if again.Rejected {
		t.Error("repeat reject must report no change")
	}
}

func TestRejectedProviderCannotAccept(t *testing.T) {
	t.Parallel()

	repo := newFakeBookingRepo()
	arbiter := newArbiter(repo, &fakeBroadcaster{})
	seedPendingBooking(repo, "b1", []string{"p1", "p2"})
	ctx := context.Background()

	if _, err := arbiter.Reject(ctx, "b1", "p1"); err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}

	result, err := arbiter.Accept(ctx, "b1", "p1")
	if err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}
	if result.Success {
		t.Fatal("provider whose request was rejected must not win the booking")
	}

	// Another provider can still take it.
	other, err := arbiter.Accept(ctx, "b1", "p2")
	if err != nil || !other.Success {
		t.Fatalf("remaining provider should win: %+v, %v", other, err)
	}
}
