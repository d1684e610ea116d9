package pricingRepo

import (
	"context"

	"lokals/models"
)

// PricingRepository defines the upstream pricing data sources consumed by
// the tiered pricing engine. Every lookup except the catalog is optional:
// a nil result means "no data", which the engine treats as fall-through.
type PricingRepository interface {
	// GetCatalogEntry returns the catalog row for a service code.
	GetCatalogEntry(ctx context.Context, code string) (*models.ServiceCatalogEntry, error)
	// GetDynamicPrice returns the externally maintained price for a service,
	// or nil if none has been published.
	GetDynamicPrice(ctx context.Context, code string) (*models.DynamicPrice, error)
	// GetDemandMultiplier returns the demand-analytics multiplier keyed by
	// service code, or nil if absent.
	GetDemandMultiplier(ctx context.Context, code string) (*float64, error)
	// GetLocationSurge returns the location-level surge multiplier, or nil
	// if the location has none.
	GetLocationSurge(ctx context.Context, locationID string) (*float64, error)
	// GetServiceAvailability reports whether the service is enabled in the
	// city. A missing row defaults to available.
	GetServiceAvailability(ctx context.Context, serviceCategory, city string) (bool, error)
}
