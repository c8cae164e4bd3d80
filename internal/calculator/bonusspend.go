package calculator

import (
	"context"
	"sort"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/money"
)

// BonusSpendStage redeems the customer's requested loyalty balance against
// the discounted basket. Spending never changes line prices; it is recorded
// per line and settled by the calling layer. The redeemable amount is bounded
// by a per-order percentage of the discounted subtotal and per line by a
// percentage of the line's discounted price.
type BonusSpendStage struct {
	// MaxDebitPercentOrder caps the total redemption as a percent of the
	// discounted subtotal; 0 disables spending entirely.
	MaxDebitPercentOrder int64
	// MaxDebitPercentProduct caps each unit's redemption as a percent of its
	// discounted unit price.
	MaxDebitPercentProduct int64
}

func (BonusSpendStage) Name() string { return "bonus_spend" }

func (s BonusSpendStage) Calculate(ctx context.Context, run *Run) error {
	requested := run.In.BonusToSpend
	if requested <= 0 || s.MaxDebitPercentOrder <= 0 || len(run.In.Items) == 0 {
		return nil
	}
	orderCap := money.Percent(run.In.Subtotal(basket.BasisPrice), s.MaxDebitPercentOrder)
	target := money.Min(requested, orderCap)
	if target <= 0 {
		return nil
	}

	order := make([]*basket.Item, len(run.In.Items))
	copy(order, run.In.Items)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Total(basket.BasisPrice) > order[j].Total(basket.BasisPrice)
	})

	// Same even-distribution shape as the cart-total applier, with headroom
	// defined by the per-unit debit cap instead of the floor price. Per-unit
	// amounts never overshoot the remaining target, so the settled total is
	// exactly the per-line sum and never exceeds the requested balance; an
	// indivisible residual smaller than every line's quantity stays unspent.
	remaining := target
	var settled int64
	for pass := 0; remaining > 0 && pass < 2; pass++ {
		force := pass == 1
		var progressed int64
		for i := range order {
			if remaining <= 0 {
				break
			}
			it := order[i]
			if force {
				it = order[len(order)-1-i]
			}
			headroom := s.unitCap(it) - it.SpentBonus
			if headroom <= 0 || it.Qty <= 0 {
				continue
			}
			perUnit := money.Clamp(money.DivFloor(remaining, it.Qty), 0, headroom)
			if perUnit <= 0 {
				continue
			}
			it.SpentBonus += perUnit
			change := perUnit * it.Qty
			remaining -= change
			settled += change
			progressed += change
		}
		if progressed > 0 && remaining > 0 {
			pass--
		}
	}

	run.Out.SpentBonus = settled
	return nil
}

func (s BonusSpendStage) unitCap(it *basket.Item) int64 {
	if s.MaxDebitPercentProduct <= 0 {
		return it.Price
	}
	return money.Percent(it.Price, s.MaxDebitPercentProduct)
}
