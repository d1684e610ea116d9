package models

import "time"

// BookingRequest status values.
const (
	RequestPending  = "PENDING"
	RequestAccepted = "ACCEPTED"
	RequestRejected = "REJECTED"
	RequestExpired  = "EXPIRED"
)

// BookingRequest is a per-provider offer for a booking during matching.
// For a given booking at most one request ever reaches ACCEPTED; once one
// does, all sibling requests are moved to a terminal non-accepted state.
type BookingRequest struct {
	ID         string    `bson:"id" json:"id"`
	BookingID  string    `bson:"booking_id" json:"booking_id"`
	ProviderID string    `bson:"provider_id" json:"provider_id"`
	Status     string    `bson:"status" json:"status"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}
