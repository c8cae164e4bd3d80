package calculator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/calculator"
	"github.com/velmart/pricing-core/internal/pricetier"
)

func tierCache(settings map[int64]*pricetier.Settings) *pricetier.Cache {
	return pricetier.NewCache(pricetier.LoaderFunc(func(_ context.Context, merchantID int64) (*pricetier.Settings, error) {
		s, ok := settings[merchantID]
		if !ok {
			return nil, errors.New("unknown merchant")
		}
		return s, nil
	}))
}

func TestPriceTierStageAppliesRoleMarkup(t *testing.T) {
	cache := tierCache(map[int64]*pricetier.Settings{
		40: {MerchantID: 40, Default: pricetier.RoleMarkup{8: 20}},
	})
	in := &basket.Input{
		Items: []*basket.Item{
			{Qty: 1, OfferID: 10, MerchantID: 40, ProductID: 100, Price: 1000, Cost: 1000},
			{Qty: 1, OfferID: 11, MerchantID: 0, Price: 500, Cost: 500},
		},
		Customer: basket.Customer{ID: 5, Roles: []int64{8}},
	}
	run := calculator.NewRun(in, calculator.RuleSet{}, testNow)
	require.NoError(t, calculator.PriceTierStage{Cache: cache}.Calculate(context.Background(), run))

	require.Equal(t, int64(1200), in.Items[0].Price)
	require.Equal(t, int64(1200), in.Items[0].Cost, "cost moves with the markup")
	require.Equal(t, int64(500), in.Items[1].Price, "merchantless line untouched")
}

func TestPriceTierStageSpecificityChain(t *testing.T) {
	cache := tierCache(map[int64]*pricetier.Settings{
		40: {
			MerchantID: 40,
			Default:    pricetier.RoleMarkup{8: 5},
			ByBrand:    map[int64]pricetier.RoleMarkup{3: {8: 10}},
			ByProduct:  map[int64]pricetier.RoleMarkup{100: {8: 15}},
		},
	})
	in := &basket.Input{
		Items: []*basket.Item{
			{Qty: 1, OfferID: 10, MerchantID: 40, ProductID: 100, BrandID: 3, Price: 1000, Cost: 1000},
			{Qty: 1, OfferID: 11, MerchantID: 40, ProductID: 101, BrandID: 3, Price: 1000, Cost: 1000},
			{Qty: 1, OfferID: 12, MerchantID: 40, ProductID: 102, Price: 1000, Cost: 1000},
		},
		Customer: basket.Customer{ID: 5, Roles: []int64{8}},
	}
	run := calculator.NewRun(in, calculator.RuleSet{}, testNow)
	require.NoError(t, calculator.PriceTierStage{Cache: cache}.Calculate(context.Background(), run))

	require.Equal(t, int64(1150), in.Items[0].Price, "product markup wins")
	require.Equal(t, int64(1100), in.Items[1].Price, "brand markup next")
	require.Equal(t, int64(1050), in.Items[2].Price, "merchant default last")
}

func TestPriceTierStageSkipsWithoutRolesOrCache(t *testing.T) {
	in := &basket.Input{
		Items:    []*basket.Item{{Qty: 1, OfferID: 10, MerchantID: 40, Price: 1000, Cost: 1000}},
		Customer: basket.Customer{ID: 5},
	}
	run := calculator.NewRun(in, calculator.RuleSet{}, testNow)
	require.NoError(t, calculator.PriceTierStage{}.Calculate(context.Background(), run))
	require.Equal(t, int64(1000), in.Items[0].Price)

	in.Customer.Roles = nil
	cache := tierCache(nil)
	run = calculator.NewRun(in, calculator.RuleSet{}, testNow)
	require.NoError(t, calculator.PriceTierStage{Cache: cache}.Calculate(context.Background(), run))
	require.Equal(t, int64(1000), in.Items[0].Price)
}

func TestPriceTierStageLoaderErrorFailsTheRun(t *testing.T) {
	in := &basket.Input{
		Items:    []*basket.Item{{Qty: 1, OfferID: 10, MerchantID: 99, Price: 1000, Cost: 1000}},
		Customer: basket.Customer{ID: 5, Roles: []int64{8}},
	}
	run := calculator.NewRun(in, calculator.RuleSet{}, testNow)
	err := calculator.PriceTierStage{Cache: tierCache(nil)}.Calculate(context.Background(), run)
	require.Error(t, err)
}
