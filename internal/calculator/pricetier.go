package calculator

import (
	"context"
	"fmt"

	"github.com/velmart/pricing-core/internal/money"
	"github.com/velmart/pricing-core/internal/pricetier"
)

// PriceTierStage adjusts line prices by the customer's role markup before
// any discount runs. It runs first so every later percentage computes on the
// tier-adjusted cost.
type PriceTierStage struct {
	Cache *pricetier.Cache
}

func (PriceTierStage) Name() string { return "price_tier" }

func (s PriceTierStage) Calculate(ctx context.Context, run *Run) error {
	if s.Cache == nil || len(run.In.Customer.Roles) == 0 {
		return nil
	}
	for _, it := range run.In.Items {
		if it.MerchantID == 0 {
			continue
		}
		settings, err := s.Cache.Get(ctx, it.MerchantID)
		if err != nil {
			return fmt.Errorf("load merchant %d pricing: %w", it.MerchantID, err)
		}
		markup, ok := settings.MarkupFor(it.ProductID, it.CategoryID, it.BrandID, run.In.Customer.Roles)
		if !ok || markup == 0 {
			continue
		}
		it.Price += money.Percent(it.Price, markup)
		it.Cost += money.Percent(it.Cost, markup)
	}
	return nil
}
