package models

// Provider tier values, used for commission classification.
const (
	TierOne   = "tier1"
	TierTwo   = "tier2"
	TierThree = "tier3"
)

// Provider is the read-only provider view consumed by the matching and
// pricing engines. Onboarding and verification own the full record.
type Provider struct {
	ID                string   `bson:"id" json:"id"`
	Name              string   `bson:"name,omitempty" json:"name,omitempty"`
	Active            bool     `bson:"active" json:"active"`
	Services          []string `bson:"services" json:"services"` // service category codes
	City              string   `bson:"city,omitempty" json:"city,omitempty"`
	LocationGeo       GeoPoint `bson:"location_geo" json:"location_geo"`
	Tier              string   `bson:"tier" json:"tier"` // tier1 | tier2 | tier3
	Rating            float64  `bson:"rating,omitempty" json:"rating,omitempty"`
	CompletedBookings int      `bson:"completed_bookings,omitempty" json:"completed_bookings,omitempty"`
	FCMToken          string   `bson:"fcm_token,omitempty" json:"-"`
}
