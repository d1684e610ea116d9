package pricing

import "lokals/models"

// Platform commission rates by provider tier. Tier-one providers keep a
// larger share as a loyalty incentive.
const (
	commissionRateTierOne = 0.12
	commissionRateDefault = 0.15
)

// CommissionRate returns the platform's cut for a provider tier.
func CommissionRate(tier string) float64 {
	if tier == models.TierOne {
		return commissionRateTierOne
	}
	return commissionRateDefault
}

// ComputeCommission splits an amount into the platform commission and the
// provider's net earnings for the given provider tier.
func ComputeCommission(amount float64, tier string) models.CommissionBreakdown {
	rate := CommissionRate(tier)
	commission := amount * rate
	return models.CommissionBreakdown{
		Tier:       tier,
		Commission: commission,
		NetAmount:  amount - commission,
	}
}
