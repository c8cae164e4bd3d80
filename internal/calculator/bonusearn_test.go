package calculator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/bonus"
	"github.com/velmart/pricing-core/internal/calculator"
	"github.com/velmart/pricing-core/internal/rule"
)

func activeBonus(id int64) *bonus.Bonus {
	return &bonus.Bonus{
		ID:        id,
		Scope:     bonus.ScopeAnyOffer,
		Value:     5,
		ValueType: rule.ValuePercent,
		Status:    rule.StatusActive,
	}
}

func TestBonusEarnPercentOnDiscountedPrice(t *testing.T) {
	in := twoLineInput()
	in.Items[0].Price = 1000 // discounted from cost 1500
	run := calculator.NewRun(in, calculator.RuleSet{
		Bonuses: []*bonus.Bonus{activeBonus(1)},
	}, testNow)
	require.NoError(t, calculator.BonusEarnStage{}.Calculate(context.Background(), run))

	require.Len(t, run.Out.Bonuses, 1)
	// 5% of 1000 × 2 units plus 5% of 500 × 1 unit.
	require.Equal(t, int64(125), run.Out.Bonuses[0].Change)
	require.Equal(t, int64(50), in.Items[0].Bonus)
	require.Equal(t, int64(25), in.Items[1].Bonus)
	require.ElementsMatch(t, []int64{10, 11}, run.Out.Bonuses[0].OfferIDs)
}

func TestBonusEarnFixedPerUnit(t *testing.T) {
	b := activeBonus(1)
	b.Scope = bonus.ScopeOffer
	b.OfferIDs = []int64{10}
	b.Value = 7
	b.ValueType = rule.ValueFixed
	b.ValidPeriodDays = 30

	in := twoLineInput()
	run := calculator.NewRun(in, calculator.RuleSet{Bonuses: []*bonus.Bonus{b}}, testNow)
	require.NoError(t, calculator.BonusEarnStage{}.Calculate(context.Background(), run))

	require.Len(t, run.Out.Bonuses, 1)
	require.Equal(t, int64(14), run.Out.Bonuses[0].Change, "7 per unit on qty 2")
	require.Equal(t, int64(30), run.Out.Bonuses[0].ValidPeriodDays)
	require.Zero(t, in.Items[1].Bonus, "out-of-scope line earns nothing")
}

func TestBonusEarnSkipsInactiveAndUngated(t *testing.T) {
	paused := activeBonus(1)
	paused.Status = rule.StatusPaused
	gated := activeBonus(2)
	gated.PromoCodeOnly = true

	in := twoLineInput()
	run := calculator.NewRun(in, calculator.RuleSet{
		Bonuses: []*bonus.Bonus{paused, gated},
	}, testNow)
	require.NoError(t, calculator.BonusEarnStage{}.Calculate(context.Background(), run))
	require.Empty(t, run.Out.Bonuses)

	run = calculator.NewRun(twoLineInput(), calculator.RuleSet{
		Bonuses: []*bonus.Bonus{gated},
	}, testNow)
	run.ActivateBonus(2)
	require.NoError(t, calculator.BonusEarnStage{}.Calculate(context.Background(), run))
	require.Len(t, run.Out.Bonuses, 1)
}

func TestBonusEarnDistinctProductGrant(t *testing.T) {
	b := &bonus.Bonus{
		ID:              9,
		Scope:           bonus.ScopeCartTotal,
		Value:           100,
		ValueType:       rule.ValueFixed,
		Status:          rule.StatusActive,
		ConditionsLogic: rule.OpAnd,
		ConditionGroups: []rule.Group{{Logic: rule.OpAnd, Conditions: []rule.Condition{
			{Type: rule.CondDifferentProductsCount, MinCount: 2},
		}}},
	}
	in := twoLineInput() // two distinct products
	run := calculator.NewRun(in, calculator.RuleSet{Bonuses: []*bonus.Bonus{b}}, testNow)
	require.NoError(t, calculator.BonusEarnStage{}.Calculate(context.Background(), run))

	require.Len(t, run.Out.Bonuses, 1)
	// Order-level grant: value × the recorded threshold, not per line.
	require.Equal(t, int64(200), run.Out.Bonuses[0].Change)
	require.Empty(t, run.Out.Bonuses[0].OfferIDs)
	for _, it := range in.Items {
		require.Zero(t, it.Bonus)
	}
}

func TestBonusEarnBrandScope(t *testing.T) {
	b := activeBonus(1)
	b.Scope = bonus.ScopeBrand
	b.BrandIDs = []int64{4}

	in := twoLineInput()
	run := calculator.NewRun(in, calculator.RuleSet{Bonuses: []*bonus.Bonus{b}}, testNow)
	require.NoError(t, calculator.BonusEarnStage{}.Calculate(context.Background(), run))

	require.Len(t, run.Out.Bonuses, 1)
	require.Equal(t, int64(25), run.Out.Bonuses[0].Change, "5 percent of the brand-4 line only")
	require.Zero(t, in.Items[0].Bonus)
}

func TestBonusEarnIneligibleScope(t *testing.T) {
	b := activeBonus(1)
	b.Scope = bonus.ScopeOffer // no offer ids: structurally ineligible
	in := &basket.Input{
		Items:    []*basket.Item{{Qty: 1, OfferID: 10, Price: 100, Cost: 100}},
		Customer: basket.Customer{ID: 5},
	}
	run := calculator.NewRun(in, calculator.RuleSet{Bonuses: []*bonus.Bonus{b}}, testNow)
	require.NoError(t, calculator.BonusEarnStage{}.Calculate(context.Background(), run))
	require.Empty(t, run.Out.Bonuses)
}
