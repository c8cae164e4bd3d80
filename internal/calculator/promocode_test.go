package calculator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/bonus"
	"github.com/velmart/pricing-core/internal/calculator"
	"github.com/velmart/pricing-core/internal/discount"
	"github.com/velmart/pricing-core/internal/promocode"
	"github.com/velmart/pricing-core/internal/rule"
)

func promoRun(code string, rules calculator.RuleSet) (*calculator.Run, *basket.Input) {
	in := twoLineInput()
	in.PromoCode = code
	in.Deliveries = []*basket.Delivery{{Method: 1, Price: 400, Selected: true}}
	return calculator.NewRun(in, rules, testNow), in
}

func TestPromoCodeStageActivatesDiscount(t *testing.T) {
	gated := activeBrandDiscount(7)
	gated.PromoCodeOnly = true
	child := activeBrandDiscount(8)
	child.ParentID = 7
	child.PromoCodeOnly = true
	child.BrandIDs = []int64{4}

	rules := calculator.RuleSet{
		Discounts: []*discount.Discount{gated, child},
		PromoCodes: []*promocode.PromoCode{
			{ID: 1, Code: "TEN", Status: rule.StatusActive, DiscountID: 7},
		},
	}
	run, _ := promoRun("ten", rules)
	require.NoError(t, calculator.PromoCodeStage{}.Calculate(context.Background(), run))

	require.True(t, run.DiscountActivated(7))
	require.True(t, run.DiscountActivated(8), "children activate with their parent")
	require.Equal(t, []string{"TEN"}, run.Out.PromoCodes)
	require.NotNil(t, run.Out.AppliedPromoCode)
	require.Equal(t, int64(1), run.Out.AppliedPromoCode.ID)
}

func TestPromoCodeStageActivatesBonus(t *testing.T) {
	rules := calculator.RuleSet{
		Bonuses: []*bonus.Bonus{{ID: 3, Scope: bonus.ScopeAnyOffer, Status: rule.StatusActive, PromoCodeOnly: true}},
		PromoCodes: []*promocode.PromoCode{
			{ID: 1, Code: "POINTS", Status: rule.StatusActive, BonusID: 3},
		},
	}
	run, _ := promoRun("POINTS", rules)
	require.NoError(t, calculator.PromoCodeStage{}.Calculate(context.Background(), run))
	require.True(t, run.BonusActivated(3))
}

func TestPromoCodeStageGift(t *testing.T) {
	rules := calculator.RuleSet{
		PromoCodes: []*promocode.PromoCode{
			{ID: 1, Code: "GIFT", Status: rule.StatusActive, GiftID: 909},
		},
	}
	run, _ := promoRun("GIFT", rules)
	require.NoError(t, calculator.PromoCodeStage{}.Calculate(context.Background(), run))
	require.Equal(t, int64(909), run.Out.GiftID)
}

func TestPromoCodeStageFreeDelivery(t *testing.T) {
	rules := calculator.RuleSet{
		PromoCodes: []*promocode.PromoCode{
			{ID: 1, Code: "SHIP", Status: rule.StatusActive, FreeDelivery: true},
		},
	}
	run, in := promoRun("SHIP", rules)
	require.NoError(t, calculator.PromoCodeStage{}.Calculate(context.Background(), run))
	require.Equal(t, int64(0), in.Deliveries[0].Price)
	require.Equal(t, int64(400), in.Deliveries[0].Discount)
}

func TestPromoCodeStageSilentFailures(t *testing.T) {
	end := testNow.Add(-time.Hour)
	rules := calculator.RuleSet{
		PromoCodes: []*promocode.PromoCode{
			{ID: 1, Code: "EXPIRED", Status: rule.StatusActive, GiftID: 1, Window: rule.Window{End: &end}},
			{ID: 2, Code: "USEDUP", Status: rule.StatusActive, GiftID: 1, UsageLimit: 1, UsedCount: 1},
			{ID: 3, Code: "NOTARGET", Status: rule.StatusActive},
		},
	}
	for _, code := range []string{"EXPIRED", "USEDUP", "NOTARGET", "UNKNOWN", ""} {
		run, _ := promoRun(code, rules)
		require.NoError(t, calculator.PromoCodeStage{}.Calculate(context.Background(), run))
		require.Empty(t, run.Out.PromoCodes, "code %q must fail silently", code)
		require.Nil(t, run.Out.AppliedPromoCode)
	}
}
