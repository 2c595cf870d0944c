package businessflow

import (
	"context"

	"github.com/numbay/numbay/repository"
	"github.com/numbay/numbay/utils"
)

// PricingFlow resolves the unit price of a range
type PricingFlow interface {
	// ResolvePrice returns the range's configured price, or the fallback
	// constant when no rule exists. Absence is a valid, priced-as-default
	// state, not an error.
	ResolvePrice(ctx context.Context, rangeID string) (int64, error)
}

// PricingFlowImpl implements the pricing business flow
type PricingFlowImpl struct {
	priceRuleRepo repository.PriceRuleRepository
	fallbackCents int64
}

// NewPricingFlow creates a new pricing flow instance
func NewPricingFlow(priceRuleRepo repository.PriceRuleRepository, fallbackCents int64) PricingFlow {
	if fallbackCents <= 0 {
		fallbackCents = utils.DefaultPriceCents
	}
	return &PricingFlowImpl{
		priceRuleRepo: priceRuleRepo,
		fallbackCents: fallbackCents,
	}
}

// ResolvePrice looks up the one price rule for the range
func (p *PricingFlowImpl) ResolvePrice(ctx context.Context, rangeID string) (int64, error) {
	rule, err := p.priceRuleRepo.ByRangeID(ctx, rangeID)
	if err != nil {
		return 0, err
	}
	if rule == nil {
		return p.fallbackCents, nil
	}
	return rule.PriceCents, nil
}
