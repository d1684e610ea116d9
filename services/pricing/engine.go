// Package pricing computes booking prices through a tiered fallback chain:
// the static catalog price, then a fresh dynamically computed price, then
// demand and surge adjustment. Failures in the higher tiers degrade silently
// to the tier below; only a missing catalog entry is fatal.
package pricing

import (
	"context"
	"errors"
	"math"
	"time"

	pricingRepo "lokals/database/repository/pricing"
	"lokals/models"

	"go.uber.org/zap"
)

// PricingService resolves the price for a service at a location.
type PricingService interface {
	ResolvePrice(ctx context.Context, serviceCode, locationID string) (*models.PricingBreakdown, error)
}

// tierResolver is one step of the fallback chain. Each resolver may refine
// the breakdown in place; returning an error marks the tier unavailable and
// the chain moves on with whatever the previous tiers produced. Only the
// first tier is mandatory.
type tierResolver struct {
	name      string
	mandatory bool
	resolve   func(ctx context.Context, serviceCode, locationID string, b *models.PricingBreakdown) error
}

// DefaultPricingService implements PricingService.
type DefaultPricingService struct {
	Repo pricingRepo.PricingRepository
	// FreshnessWindow bounds how old a dynamic price may be before it is
	// ignored in favour of the catalog base.
	FreshnessWindow time.Duration
	Logger          *zap.Logger
}

// chain returns the ordered tier resolvers. The order IS the precedence
// rule: catalog base first, fresh dynamic price second, demand adjustment
// last.
func (s *DefaultPricingService) chain() []tierResolver {
	return []tierResolver{
		{name: models.PricingTierBase, mandatory: true, resolve: s.resolveBase},
		{name: models.PricingTierML, resolve: s.resolveDynamic},
		{name: models.PricingTierDemand, resolve: s.resolveDemand},
	}
}

// ResolvePrice walks the pricing tiers for a service. locationID may be
// empty, in which case surge adjustment is skipped.
func (s *DefaultPricingService) ResolvePrice(ctx context.Context, serviceCode, locationID string) (*models.PricingBreakdown, error) {
	breakdown := &models.PricingBreakdown{
		ServiceCode:      serviceCode,
		DemandMultiplier: 1.0,
	}

	for _, tier := range s.chain() {
		if err := tier.resolve(ctx, serviceCode, locationID, breakdown); err != nil {
			if tier.mandatory {
				return nil, err
			}
			s.Logger.Warn("pricing tier unavailable, falling back",
				zap.String("tier", tier.name),
				zap.String("serviceCode", serviceCode),
				zap.Error(err))
		}
	}
	return breakdown, nil
}

// resolveBase seeds the breakdown from the catalog. Everything downstream
// adjusts this number, so a missing entry cannot be papered over.
func (s *DefaultPricingService) resolveBase(ctx context.Context, serviceCode, _ string, b *models.PricingBreakdown) error {
	entry, err := s.Repo.GetCatalogEntry(ctx, serviceCode)
	if err != nil {
		if errors.Is(err, pricingRepo.ErrNotFound) {
			return &UnknownServiceError{ServiceCode: serviceCode}
		}
		return err
	}
	b.BasePrice = entry.BasePrice
	b.FinalPrice = entry.BasePrice
	b.TierReached = models.PricingTierBase
	return nil
}

// resolveDynamic swaps in the externally computed price, honoured only while
// fresh.
func (s *DefaultPricingService) resolveDynamic(ctx context.Context, serviceCode, _ string, b *models.PricingBreakdown) error {
	dyn, err := s.Repo.GetDynamicPrice(ctx, serviceCode)
	if err != nil {
		return err
	}
	if dyn == nil || dyn.Price <= 0 || !s.isFresh(dyn.UpdatedAt) {
		return nil
	}
	b.DynamicPrice = dyn.Price
	b.FinalPrice = dyn.Price
	b.TierReached = models.PricingTierML
	return nil
}

// resolveDemand multiplies the price reached so far. A service-level demand
// multiplier wins; otherwise a location surge applies, but only when it
// raises the price.
func (s *DefaultPricingService) resolveDemand(ctx context.Context, serviceCode, locationID string, b *models.PricingBreakdown) error {
	multiplier, err := s.demandMultiplier(ctx, serviceCode, locationID)
	if err != nil {
		return err
	}
	if multiplier == 1.0 {
		return nil
	}
	b.DemandMultiplier = multiplier
	b.FinalPrice = math.Round(b.FinalPrice * multiplier)
	b.TierReached = models.PricingTierDemand
	return nil
}

func (s *DefaultPricingService) isFresh(updatedAt time.Time) bool {
	window := s.FreshnessWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	return time.Since(updatedAt) <= window
}

func (s *DefaultPricingService) demandMultiplier(ctx context.Context, serviceCode, locationID string) (float64, error) {
	m, err := s.Repo.GetDemandMultiplier(ctx, serviceCode)
	if err != nil {
		return 1.0, err
	}
	if m != nil && *m > 0 {
		return *m, nil
	}

	if locationID == "" {
		return 1.0, nil
	}
	surge, err := s.Repo.GetLocationSurge(ctx, locationID)
	if err != nil {
		return 1.0, err
	}
	// Surge never discounts.
	if surge != nil && *surge > 1.0 {
		return *surge, nil
	}
	return 1.0, nil
}
