package providerRepo

import (
	"context"

	"lokals/models"
)

// ProviderSearchCriteria defines criteria for a candidate provider search.
// When LocationGeo is usable and MaxDistanceKm > 0 the search is geospatial;
// otherwise City (if set) narrows the match.
type ProviderSearchCriteria struct {
	ServiceCategory string
	City            string
	LocationGeo     models.GeoPoint
	MaxDistanceKm   float64
	Limit           int
}

// ProviderRepository defines read access to the provider directory as seen
// by the matching engine.
type ProviderRepository interface {
	// GetByID retrieves a provider by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Provider, error)
	// FindActiveProviders returns active providers offering the service,
	// optionally narrowed by geography.
	FindActiveProviders(ctx context.Context, criteria ProviderSearchCriteria) ([]models.Provider, error)
}
