package calculator

import (
	"context"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/bonus"
	"github.com/velmart/pricing-core/internal/money"
	"github.com/velmart/pricing-core/internal/rule"
)

// BonusEarnStage computes the loyalty points granted for the order.
// Percentage bonuses accrue on the discounted price so earn never rewards
// value the customer did not pay.
type BonusEarnStage struct{}

func (BonusEarnStage) Name() string { return "bonus_earn" }

func (s BonusEarnStage) Calculate(ctx context.Context, run *Run) error {
	env := run.Env()
	for _, b := range run.Rules.Bonuses {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !b.ActiveAt(run.Now) {
			continue
		}
		if b.PromoCodeOnly && !run.BonusActivated(b.ID) {
			continue
		}
		if !bonus.Eligible(b, env) {
			continue
		}
		s.grant(run, b)
	}
	return nil
}

func (s BonusEarnStage) grant(run *Run, b *bonus.Bonus) {
	// A fixed-value bonus gated on a distinct-product threshold is an
	// order-level grant multiplied by the recorded threshold, not per line.
	if b.ValueType == rule.ValueFixed {
		if cond, ok := run.Store.ProductCountCondition(b.ID); ok && cond.MinCount > 0 {
			run.Out.RecordBonus(b.ID, b.Value*cond.MinCount, b.ValidPeriodDays, nil)
			return
		}
	}

	items := s.targetItems(run, b)
	if len(items) == 0 {
		return
	}
	var change int64
	var offerIDs []int64
	for _, it := range items {
		perUnit := b.Value
		if b.ValueType == rule.ValuePercent {
			perUnit = money.Percent(it.Price, b.Value)
		}
		if perUnit <= 0 {
			continue
		}
		it.Bonus += perUnit
		change += perUnit * it.Qty
		offerIDs = append(offerIDs, it.OfferID)
	}
	if change <= 0 {
		return
	}
	run.Out.RecordBonus(b.ID, change, b.ValidPeriodDays, offerIDs)
}

func (s BonusEarnStage) targetItems(run *Run, b *bonus.Bonus) []*basket.Item {
	var out []*basket.Item
	for _, it := range run.In.Items {
		if s.inScope(it, b) {
			out = append(out, it)
		}
	}
	return filterByMerchant(run, b.ID, out)
}

func (s BonusEarnStage) inScope(it *basket.Item, b *bonus.Bonus) bool {
	switch b.Scope {
	case bonus.ScopeOffer:
		return containsInt64(b.OfferIDs, it.OfferID)
	case bonus.ScopeBrand:
		return containsInt64(b.BrandIDs, it.BrandID)
	case bonus.ScopeCategory:
		for _, id := range b.CategoryIDs {
			if it.InCategory(id) {
				return true
			}
		}
		return false
	case bonus.ScopeAnyOffer, bonus.ScopeCartTotal:
		return true
	default:
		return false
	}
}
