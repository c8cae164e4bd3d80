package calculator

import (
	"context"

	"github.com/velmart/pricing-core/internal/applier"
	"github.com/velmart/pricing-core/internal/promocode"
)

// PromoCodeStage resolves the supplied code string and activates its target.
// Every failure path is silent: an invalid, expired, exhausted, or mismatched
// code leaves the run exactly as if no code was supplied.
type PromoCodeStage struct{}

func (PromoCodeStage) Name() string { return "promo_code" }

func (PromoCodeStage) Calculate(ctx context.Context, run *Run) error {
	code := run.In.PromoCode
	if code == "" {
		return nil
	}
	var match *promocode.PromoCode
	for _, pc := range run.Rules.PromoCodes {
		if pc.Matches(code) {
			match = pc
			break
		}
	}
	if match == nil || !match.Applicable(run.In.Customer, run.Now) {
		return nil
	}

	switch match.Target() {
	case promocode.TargetDiscount:
		run.ActivateDiscount(match.DiscountID)
	case promocode.TargetBonus:
		run.ActivateBonus(match.BonusID)
	case promocode.TargetGift:
		run.Out.GiftID = match.GiftID
	case promocode.TargetFreeDelivery:
		if selected := run.In.SelectedDelivery(); selected != nil {
			applier.Delivery{}.MakeFree(selected)
		}
	default:
		return nil
	}

	run.Out.PromoCodes = append(run.Out.PromoCodes, match.Code)
	run.Out.AppliedPromoCode = match
	return nil
}
