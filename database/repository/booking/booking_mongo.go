package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lokals/database"
	"lokals/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a booking or request row does not exist.
var ErrNotFound = errors.New("not found")

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	bookingColl *mongo.Collection
	requestColl *mongo.Collection
	eventColl   *mongo.Collection
}

// NewMongoBookingRepo creates a new BookingRepository backed by MongoDB.
func NewMongoBookingRepo() BookingRepository {
	db := database.MongoClient.Database("lokals")
	repo := &MongoBookingRepo{
		bookingColl: db.Collection("bookings"),
		requestColl: db.Collection("booking_requests"),
		eventColl:   db.Collection("booking_lifecycle_events"),
	}
	if err := repo.ensureIndexes(); err != nil {
		panic(fmt.Sprintf("booking repo index setup failed: %v", err))
	}
	return repo
}

func (r *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if _, err := r.bookingColl.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &booking, nil
}

// UpdateStatus writes the new status only while the expected status still
// holds, so concurrent writers cannot clobber each other.
func (r *MongoBookingRepo) UpdateStatus(ctx context.Context, id string, write StatusWrite) (bool, error) {
	filter := bson.M{"id": id, "status": write.ExpectedStatus}
	set := bson.M{"status": write.NewStatus}
	if write.StampField != "" {
		set[write.StampField] = write.At
	}
	res, err := r.bookingColl.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update booking %s status: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}

// CompareAndSwapAssignment is the single atomic arbitration write: the
// booking must still be PENDING and unassigned, otherwise nothing happens
// and the caller lost the race.
func (r *MongoBookingRepo) CompareAndSwapAssignment(ctx context.Context, bookingID, providerID string, at time.Time) (bool, error) {
	filter := bson.M{
		"id":     bookingID,
		"status": models.StatusPending,
		"$or": bson.A{
			bson.M{"provider_id": bson.M{"$exists": false}},
			bson.M{"provider_id": ""},
		},
	}
	update := bson.M{"$set": bson.M{
		"status":       models.StatusConfirmed,
		"provider_id":  providerID,
		"confirmed_at": at,
	}}
	res, err := r.bookingColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("assignment CAS failed for booking %s: %w", bookingID, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoBookingRepo) SetSettlement(ctx context.Context, id string, commission, netAmount float64) error {
	filter := bson.M{"id": id, "status": models.StatusCompleted}
	update := bson.M{"$set": bson.M{
		"platform_commission": commission,
		"provider_earnings":   netAmount,
	}}
	res, err := r.bookingColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to record settlement for booking %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoBookingRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"status":     models.StatusPending,
		"created_at": bson.M{"$lt": cutoff},
	}
	cursor, err := r.bookingColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending bookings: %w", err)
	}
	defer cursor.Close(ctx)
	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode stale pending bookings: %w", err)
	}
	return bookings, nil
}

// UpsertRequests relies on the unique (booking_id, provider_id) index plus
// $setOnInsert, so resending to a provider never duplicates or resets a row.
func (r *MongoBookingRepo) UpsertRequests(ctx context.Context, bookingID string, providerIDs []string, at time.Time) error {
	if len(providerIDs) == 0 {
		return nil
	}
	ops := make([]mongo.WriteModel, 0, len(providerIDs))
	for _, providerID := range providerIDs {
		filter := bson.M{"booking_id": bookingID, "provider_id": providerID}
		update := bson.M{"$setOnInsert": bson.M{
			"id":          uuid.New().String(),
			"booking_id":  bookingID,
			"provider_id": providerID,
			"status":      models.RequestPending,
			"created_at":  at,
		}}
		ops = append(ops, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(update).
			SetUpsert(true))
	}
	if _, err := r.requestColl.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to upsert booking requests for %s: %w", bookingID, err)
	}
	return nil
}

func (r *MongoBookingRepo) GetRequest(ctx context.Context, bookingID, providerID string) (*models.BookingRequest, error) {
	var req models.BookingRequest
	filter := bson.M{"booking_id": bookingID, "provider_id": providerID}
	if err := r.requestColl.FindOne(ctx, filter).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch request %s/%s: %w", bookingID, providerID, err)
	}
	return &req, nil
}

func (r *MongoBookingRepo) UpdateRequestStatus(ctx context.Context, bookingID, providerID, expected, next string, at time.Time) (bool, error) {
	filter := bson.M{
		"booking_id":  bookingID,
		"provider_id": providerID,
		"status":      expected,
	}
	update := bson.M{"$set": bson.M{"status": next, "resolved_at": at}}
	res, err := r.requestColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update request %s/%s: %w", bookingID, providerID, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoBookingRepo) ResolveSiblings(ctx context.Context, bookingID, winnerProviderID, terminal string, at time.Time) error {
	filter := bson.M{
		"booking_id":  bookingID,
		"provider_id": bson.M{"$ne": winnerProviderID},
		"status":      models.RequestPending,
	}
	update := bson.M{"$set": bson.M{"status": terminal, "resolved_at": at}}
	if _, err := r.requestColl.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to resolve sibling requests for booking %s: %w", bookingID, err)
	}
	return nil
}

func (r *MongoBookingRepo) ExpirePendingRequests(ctx context.Context, bookingID string, at time.Time) error {
	filter := bson.M{"booking_id": bookingID, "status": models.RequestPending}
	update := bson.M{"$set": bson.M{"status": models.RequestExpired, "resolved_at": at}}
	if _, err := r.requestColl.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to expire requests for booking %s: %w", bookingID, err)
	}
	return nil
}

func (r *MongoBookingRepo) CountPendingRequests(ctx context.Context, bookingID string) (int64, error) {
	count, err := r.requestColl.CountDocuments(ctx, bson.M{
		"booking_id": bookingID,
		"status":     models.RequestPending,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending requests for %s: %w", bookingID, err)
	}
	return count, nil
}

func (r *MongoBookingRepo) ListRequestsByBooking(ctx context.Context, bookingID string) ([]models.BookingRequest, error) {
	cursor, err := r.requestColl.Find(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctx)
	var requests []models.BookingRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode requests for booking %s: %w", bookingID, err)
	}
	return requests, nil
}

func (r *MongoBookingRepo) AppendLifecycleEvent(ctx context.Context, event *models.LifecycleEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if _, err := r.eventColl.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to append lifecycle event for booking %s: %w", event.BookingID, err)
	}
	return nil
}
