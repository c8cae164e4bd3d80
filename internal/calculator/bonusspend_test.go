package calculator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/calculator"
)

func spendStage() calculator.BonusSpendStage {
	return calculator.BonusSpendStage{MaxDebitPercentOrder: 30, MaxDebitPercentProduct: 50}
}

func TestBonusSpendWithinCaps(t *testing.T) {
	in := twoLineInput() // subtotal 3500
	in.BonusToSpend = 300
	run := calculator.NewRun(in, calculator.RuleSet{}, testNow)
	require.NoError(t, spendStage().Calculate(context.Background(), run))

	require.Equal(t, int64(300), run.Out.SpentBonus)
	var settled int64
	for _, it := range in.Items {
		settled += it.SpentBonus * it.Qty
		require.LessOrEqual(t, it.SpentBonus, it.Price/2, "per-unit cap is half the price")
		require.Equal(t, it.Cost, it.Price, "spending never changes prices")
	}
	require.Equal(t, int64(300), settled)
}

func TestBonusSpendOrderCapBounds(t *testing.T) {
	in := twoLineInput() // subtotal 3500, order cap 30% = 1050
	in.BonusToSpend = 5000
	run := calculator.NewRun(in, calculator.RuleSet{}, testNow)
	require.NoError(t, spendStage().Calculate(context.Background(), run))
	require.Equal(t, int64(1050), run.Out.SpentBonus)
}

func TestBonusSpendDisabledByZeroOrderCap(t *testing.T) {
	in := twoLineInput()
	in.BonusToSpend = 100
	run := calculator.NewRun(in, calculator.RuleSet{}, testNow)
	stage := calculator.BonusSpendStage{MaxDebitPercentOrder: 0, MaxDebitPercentProduct: 50}
	require.NoError(t, stage.Calculate(context.Background(), run))
	require.Zero(t, run.Out.SpentBonus)
}

func TestBonusSpendNothingRequested(t *testing.T) {
	in := twoLineInput()
	run := calculator.NewRun(in, calculator.RuleSet{}, testNow)
	require.NoError(t, spendStage().Calculate(context.Background(), run))
	require.Zero(t, run.Out.SpentBonus)
	for _, it := range in.Items {
		require.Zero(t, it.SpentBonus)
	}
}

func TestBonusSpendPerUnitCapForcesSpread(t *testing.T) {
	in := &basket.Input{
		Items: []*basket.Item{
			{ID: 1, Qty: 1, OfferID: 10, Price: 100, Cost: 100},
			{ID: 2, Qty: 1, OfferID: 11, Price: 100, Cost: 100},
		},
		Customer:     basket.Customer{ID: 5},
		BonusToSpend: 80,
	}
	stage := calculator.BonusSpendStage{MaxDebitPercentOrder: 100, MaxDebitPercentProduct: 50}
	run := calculator.NewRun(in, calculator.RuleSet{}, testNow)
	require.NoError(t, stage.Calculate(context.Background(), run))

	// 80 cannot land on one line: the per-unit cap is 50, so both lines carry.
	require.Equal(t, int64(80), run.Out.SpentBonus)
	require.Equal(t, int64(50), in.Items[0].SpentBonus)
	require.Equal(t, int64(30), in.Items[1].SpentBonus)
}

func TestBonusSpendTotalMatchesLineSum(t *testing.T) {
	in := &basket.Input{
		Items:        []*basket.Item{{ID: 1, Qty: 3, OfferID: 10, Price: 100, Cost: 100}},
		Customer:     basket.Customer{ID: 5},
		BonusToSpend: 80,
	}
	stage := calculator.BonusSpendStage{MaxDebitPercentOrder: 100, MaxDebitPercentProduct: 50}
	run := calculator.NewRun(in, calculator.RuleSet{}, testNow)
	require.NoError(t, stage.Calculate(context.Background(), run))

	// 80 does not divide by 3; the residual 2 stays unspent rather than
	// rounding a unit up past the request.
	require.Equal(t, int64(78), run.Out.SpentBonus)
	require.Equal(t, in.Items[0].SpentBonus*in.Items[0].Qty, run.Out.SpentBonus)
	require.LessOrEqual(t, run.Out.SpentBonus, in.BonusToSpend)
}
