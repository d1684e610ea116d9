package models

import "time"

// Pricing tiers, recorded on the breakdown for auditability.
const (
	PricingTierBase   = "tier1_base"
	PricingTierML     = "tier2_ml"
	PricingTierDemand = "tier3_demand"
)

// PricingBreakdown is the result of the tiered price-fallback computation.
// TierReached records which tier produced the final number.
type PricingBreakdown struct {
	ServiceCode      string  `bson:"service_code" json:"service_code"`
	BasePrice        float64 `bson:"base_price" json:"base_price"`
	DynamicPrice     float64 `bson:"dynamic_price,omitempty" json:"dynamic_price,omitempty"`
	DemandMultiplier float64 `bson:"demand_multiplier" json:"demand_multiplier"`
	FinalPrice       float64 `bson:"final_price" json:"final_price"`
	TierReached      string  `bson:"tier_reached" json:"tier_reached"`
}

// CommissionBreakdown is the per-provider commission split for an amount.
type CommissionBreakdown struct {
	Tier       string  `json:"tier"`
	Commission float64 `json:"commission"`
	NetAmount  float64 `json:"net_amount"`
}

// ServiceCatalogEntry is the catalog row behind tier-1 pricing.
type ServiceCatalogEntry struct {
	Code      string  `bson:"code" json:"code"`
	Name      string  `bson:"name,omitempty" json:"name,omitempty"`
	BasePrice float64 `bson:"base_price" json:"base_price"`
	PriceUnit string  `bson:"price_unit,omitempty" json:"price_unit,omitempty"`
	Active    bool    `bson:"active" json:"active"`
}

// DynamicPrice is an externally maintained price for a service, only
// honoured while fresh.
type DynamicPrice struct {
	ServiceCode string    `bson:"service_code" json:"service_code"`
	Price       float64   `bson:"price" json:"price"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
