package applier_test

import (
	"testing"

	"github.com/velmart/pricing-core/internal/applier"
	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/discount"
	"github.com/velmart/pricing-core/internal/rule"
	"github.com/velmart/pricing-core/internal/synergy"
)

func item(offerID, qty, price int64) *basket.Item {
	return &basket.Item{OfferID: offerID, Qty: qty, Price: price, Cost: price}
}

func TestOfferApplyPercentComputesOnCost(t *testing.T) {
	a := applier.Offer{FloorPrice: 1}
	it := item(10, 2, 1000)
	it.Price = 800 // already reduced by an earlier discount
	d := &discount.Discount{ID: 1, Value: 10, ValueType: rule.ValuePercent}

	res := a.Apply([]*basket.Item{it}, d)
	// 10% of cost 1000 = 100 per unit, never 10% of the discounted 800.
	if it.Price != 700 {
		t.Fatalf("price = %d, want 700", it.Price)
	}
	if res.Change != 200 {
		t.Fatalf("change = %d, want 200", res.Change)
	}
	if it.Discount != 300 {
		t.Fatalf("accumulated discount = %d, want 300", it.Discount)
	}
	if len(res.OfferIDs) != 1 || res.OfferIDs[0] != 10 {
		t.Fatalf("offer ids = %v", res.OfferIDs)
	}
}

func TestOfferApplyFixedPerUnit(t *testing.T) {
	a := applier.Offer{FloorPrice: 1}
	it := item(10, 3, 500)
	res := a.Apply([]*basket.Item{it}, &discount.Discount{ID: 1, Value: 50, ValueType: rule.ValueFixed})
	if it.Price != 450 || res.Change != 150 {
		t.Fatalf("price = %d change = %d, want 450/150", it.Price, res.Change)
	}
}

func TestOfferApplyRespectsFloor(t *testing.T) {
	a := applier.Offer{FloorPrice: 100, FloorPriceMasterClass: 1}
	regular := item(10, 1, 120)
	master := item(11, 1, 120)
	master.MasterClass = true
	d := &discount.Discount{ID: 1, Value: 200, ValueType: rule.ValueFixed}

	res := a.Apply([]*basket.Item{regular, master}, d)
	if regular.Price != 100 {
		t.Fatalf("regular line must stop at floor 100, got %d", regular.Price)
	}
	if master.Price != 1 {
		t.Fatalf("master class line must stop at its own floor, got %d", master.Price)
	}
	if res.Change != 20+119 {
		t.Fatalf("change = %d, want 139", res.Change)
	}
}

func TestOfferApplyAtFloorIsNoop(t *testing.T) {
	a := applier.Offer{FloorPrice: 100}
	it := item(10, 1, 100)
	res := a.Apply([]*basket.Item{it}, &discount.Discount{ID: 1, Value: 50, ValueType: rule.ValueFixed})
	if res.Change != 0 || len(res.OfferIDs) != 0 {
		t.Fatalf("a line at the floor must not change: %+v", res)
	}
}

func TestOfferApplyQuantityLimit(t *testing.T) {
	a := applier.Offer{FloorPrice: 1}
	first := item(10, 2, 1000)
	second := item(11, 4, 1000)
	d := &discount.Discount{ID: 1, Value: 100, ValueType: rule.ValueFixed, ProductQtyLimit: 4}

	res := a.Apply([]*basket.Item{first, second}, d)
	// The first line is fully covered; the second covers 2 of 4 units, so its
	// per-unit change is prorated: 100×2/4 = 50.
	if first.Price != 900 {
		t.Fatalf("first price = %d, want 900", first.Price)
	}
	if second.Price != 950 {
		t.Fatalf("second price = %d, want 950", second.Price)
	}
	if res.Change != 200+200 {
		t.Fatalf("change = %d, want 400", res.Change)
	}
}

func TestOfferApplySynergyCapFloor(t *testing.T) {
	g := synergy.NewGraph()
	g.SetCap(1, synergy.Cap{Value: 150, ValueType: rule.ValueFixed})
	a := applier.Offer{FloorPrice: 1, Tracker: synergy.NewTracker(g)}
	it := item(10, 1, 1000)
	res := a.Apply([]*basket.Item{it}, &discount.Discount{ID: 1, Value: 400, ValueType: rule.ValueFixed})
	// The stack cap bounds the total reduction at 150 off cost.
	if it.Price != 850 || res.Change != 150 {
		t.Fatalf("price = %d change = %d, want 850/150", it.Price, res.Change)
	}
}

func TestOfferApplyBundleSplitsValue(t *testing.T) {
	a := applier.Offer{FloorPrice: 1}
	first := item(10, 1, 500)
	second := item(11, 1, 300)
	d := &discount.Discount{ID: 1, Value: 200, ValueType: rule.ValueFixed}

	res := a.ApplyBundle([]*basket.Item{first, second}, d)
	if first.Price != 400 || second.Price != 200 {
		t.Fatalf("prices = %d/%d, want 400/200", first.Price, second.Price)
	}
	if res.Change != 200 {
		t.Fatalf("change = %d, want 200", res.Change)
	}
}

func TestOfferApplyBundlePercentDividesByCount(t *testing.T) {
	a := applier.Offer{FloorPrice: 1}
	first := item(10, 1, 1000)
	second := item(11, 1, 1000)
	d := &discount.Discount{ID: 1, Value: 20, ValueType: rule.ValuePercent}

	res := a.ApplyBundle([]*basket.Item{first, second}, d)
	// 20% divides across 2 components: 10% of each line's cost.
	if first.Price != 900 || second.Price != 900 {
		t.Fatalf("prices = %d/%d, want 900/900", first.Price, second.Price)
	}
	if res.Change != 200 {
		t.Fatalf("change = %d, want 200", res.Change)
	}
}
