package models

import "time"

// Booking status values. The lifecycle service owns which transitions
// between these are legal.
const (
	StatusRequested  = "REQUESTED"
	StatusPending    = "PENDING"
	StatusConfirmed  = "CONFIRMED"
	StatusEnRoute    = "EN_ROUTE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusExpired    = "EXPIRED"
)

// Delivery modes.
const (
	ModeLocal  = "LOCAL"
	ModeOnline = "ONLINE"
)

// Booking represents a single service request moving through its lifecycle.
// ProviderID stays empty until the acceptance arbiter binds exactly one
// provider; once bound it is never reassigned.
type Booking struct {
	ID              string         `bson:"id" json:"id"`
	ClientID        string         `bson:"client_id" json:"client_id"`
	ProviderID      string         `bson:"provider_id,omitempty" json:"provider_id,omitempty"`
	ServiceCategory string         `bson:"service_category" json:"service_category"`
	DeliveryMode    string         `bson:"delivery_mode" json:"delivery_mode"` // LOCAL | ONLINE
	Status          string         `bson:"status" json:"status"`
	Location        *GeoPoint      `bson:"location,omitempty" json:"location,omitempty"`
	Address         *Address       `bson:"address,omitempty" json:"address,omitempty"`
	Requirements    map[string]any `bson:"requirements,omitempty" json:"requirements,omitempty"` // caller-owned payload, never interpreted

	// Pricing audit.
	BasePrice       float64 `bson:"base_price,omitempty" json:"base_price,omitempty"`
	SurgeMultiplier float64 `bson:"surge_multiplier,omitempty" json:"surge_multiplier,omitempty"`
	FinalPrice      float64 `bson:"final_price,omitempty" json:"final_price,omitempty"`
	PricingTier     string  `bson:"pricing_tier,omitempty" json:"pricing_tier,omitempty"`

	// Settlement, written once the booking completes.
	PlatformCommission float64 `bson:"platform_commission,omitempty" json:"platform_commission,omitempty"`
	ProviderEarnings   float64 `bson:"provider_earnings,omitempty" json:"provider_earnings,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	PendingAt   *time.Time `bson:"pending_at,omitempty" json:"pending_at,omitempty"`
	ConfirmedAt *time.Time `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	EnRouteAt   *time.Time `bson:"en_route_at,omitempty" json:"en_route_at,omitempty"`
	StartedAt   *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	ExpiredAt   *time.Time `bson:"expired_at,omitempty" json:"expired_at,omitempty"`
}

// IsTerminalStatus reports whether a booking can no longer move.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// ProviderBound reports whether the status implies a bound provider.
func ProviderBound(status string) bool {
	switch status {
	case StatusConfirmed, StatusEnRoute, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}
