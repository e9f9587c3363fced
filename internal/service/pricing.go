package service

import (
	"tokenledger/internal/config"
	"tokenledger/internal/model"
)

// PriceQuote is the per-currency cost of one unit of work.
type PriceQuote struct {
	Diamonds int `json:"diamonds"`
	Bananas  int `json:"bananas"`
}

// Delta returns the quote as a positive balance vector.
func (q PriceQuote) Delta() model.BalanceDelta {
	return model.BalanceDelta{Diamonds: q.Diamonds, Bananas: q.Bananas}
}

// PricingResolver decides which currency pays for a unit of work. Pure:
// no I/O, prices injected at construction.
//
// Policy: the base tier prefers bananas and falls back to diamonds when
// bananas don't cover the price; the premium tier spends diamonds only.
// The order of preference is business policy and must not be changed.
type PricingResolver struct {
	prices      map[string]int
	animateCost int
}

func NewPricingResolver(cfg *config.BusinessConfig) *PricingResolver {
	prices := cfg.TierPrices
	if len(prices) == 0 {
		prices = map[string]int{model.TierNano: 1, model.TierPro: 2}
	}
	return &PricingResolver{
		prices:      prices,
		animateCost: cfg.AnimateCostDiamonds,
	}
}

// TierPrice returns the unit price of a tier, defaulting to 1 for
// unknown tiers.
func (r *PricingResolver) TierPrice(tier string) int {
	price, ok := r.prices[tier]
	if !ok {
		return 1
	}
	return price
}

// Resolve returns the cost of one generation for the account at the
// given tier, or ok == false when no balance covers it.
func (r *PricingResolver) Resolve(account *model.Account, tier string) (PriceQuote, bool) {
	price := r.TierPrice(tier)
	if tier == model.TierNano {
		if account.Bananas >= price {
			return PriceQuote{Bananas: price}, true
		}
		if account.Diamonds >= price {
			return PriceQuote{Diamonds: price}, true
		}
		return PriceQuote{}, false
	}
	if account.Diamonds >= price {
		return PriceQuote{Diamonds: price}, true
	}
	return PriceQuote{}, false
}

// ResolveAnimate prices the flat-cost animate operation, diamonds only.
func (r *PricingResolver) ResolveAnimate(account *model.Account) (PriceQuote, bool) {
	if account.Diamonds >= r.animateCost {
		return PriceQuote{Diamonds: r.animateCost}, true
	}
	return PriceQuote{}, false
}
