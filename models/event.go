package models

import "time"

// BookingEvent is the payload published on every booking status mutation.
// Updates for the same booking are delivered in the order produced.
type BookingEvent struct {
	BookingID  string    `json:"booking_id"`
	Status     string    `json:"status"`
	ProviderID string    `json:"provider_id,omitempty"`
	At         time.Time `json:"at"`
}

// LifecycleEvent is an append-only audit row for a booking phase.
type LifecycleEvent struct {
	ID        string         `bson:"id" json:"id"`
	BookingID string         `bson:"booking_id" json:"booking_id"`
	Phase     string         `bson:"phase" json:"phase"` // INTAKE | MATCH | ACCEPT | STATUS | SETTLE | EXPIRY
	EventType string         `bson:"event_type" json:"event_type"`
	EventData map[string]any `bson:"event_data,omitempty" json:"event_data,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}
