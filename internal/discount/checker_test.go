package discount_test

import (
	"testing"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/condition"
	"github.com/velmart/pricing-core/internal/discount"
	"github.com/velmart/pricing-core/internal/rule"
)

func checkerInput() *basket.Input {
	return &basket.Input{
		Items: []*basket.Item{
			{Qty: 1, OfferID: 10, ProductID: 100, CategoryID: 7, BrandID: 3, Price: 1000, Cost: 1000},
		},
		Customer: basket.Customer{ID: 5, Segment: 2, Roles: []int64{8}, OrderCount: 0},
	}
}

func newChecker(in *basket.Input) discount.Checker {
	return discount.Checker{Env: &condition.Env{Input: in, Store: condition.NewStore()}}
}

func TestCheckerTypePrerequisites(t *testing.T) {
	in := checkerInput()
	cases := []struct {
		name string
		d    discount.Discount
		want bool
	}{
		{"offer with relations", discount.Discount{Type: discount.TypeOffer, Offers: []discount.OfferRelation{{OfferID: 10}}}, true},
		{"offer with only excluded relations", discount.Discount{Type: discount.TypeOffer, Offers: []discount.OfferRelation{{OfferID: 10, Excluded: true}}}, false},
		{"brand with ids", discount.Discount{Type: discount.TypeBrand, BrandIDs: []int64{3}}, true},
		{"brand without ids", discount.Discount{Type: discount.TypeBrand}, false},
		{"cart total with items", discount.Discount{Type: discount.TypeCartTotal}, true},
		{"delivery without options", discount.Discount{Type: discount.TypeDelivery}, false},
		{"unknown type fails closed", discount.Discount{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := c.d
			if got := newChecker(in).Check(&d); got != c.want {
				t.Fatalf("check = %v, want %v", got, c.want)
			}
		})
	}
}

func TestCheckerBundlePrerequisite(t *testing.T) {
	d := &discount.Discount{ID: 44, Type: discount.TypeBundleOffer, BundleOfferIDs: []int64{10, 11}}
	in := checkerInput()
	if newChecker(in).Check(d) {
		t.Fatal("a bundle with no component lines in the basket must fail")
	}
	in.Items = append(in.Items,
		&basket.Item{Qty: 1, OfferID: 10, BundleID: 44, Price: 500, Cost: 500},
		&basket.Item{Qty: 1, OfferID: 11, BundleID: 44, Price: 300, Cost: 300},
	)
	if !newChecker(in).Check(d) {
		t.Fatal("bundle lines present must pass the structural check")
	}
}

func TestCheckerRoleAndSegment(t *testing.T) {
	in := checkerInput()
	d := &discount.Discount{Type: discount.TypeCartTotal, RoleIDs: []int64{8}}
	if !newChecker(in).Check(d) {
		t.Fatal("matching role must pass")
	}
	d.RoleIDs = []int64{99}
	if newChecker(in).Check(d) {
		t.Fatal("unmatched role must fail")
	}
	d = &discount.Discount{Type: discount.TypeCartTotal, SegmentIDs: []int64{9}}
	if newChecker(in).Check(d) {
		t.Fatal("unmatched segment must fail")
	}
}

func TestCheckerConditionGroups(t *testing.T) {
	in := checkerInput()
	d := &discount.Discount{
		Type:            discount.TypeCartTotal,
		ConditionsLogic: rule.OpAnd,
		ConditionGroups: []rule.Group{
			{Logic: rule.OpAnd, Conditions: []rule.Condition{
				{Type: rule.CondFirstOrder},
				{Type: rule.CondMinPriceOrder, MinPrice: 500},
			}},
		},
	}
	if !newChecker(in).Check(d) {
		t.Fatal("first order over 500 must pass")
	}
	in.Customer.OrderCount = 3
	if newChecker(in).Check(d) {
		t.Fatal("repeat buyer must fail the first-order condition")
	}
}

func TestCheckerSynergyConditionIsNeutral(t *testing.T) {
	in := checkerInput()
	d := &discount.Discount{
		Type:            discount.TypeCartTotal,
		ConditionsLogic: rule.OpAnd,
		ConditionGroups: []rule.Group{
			{Logic: rule.OpAnd, Conditions: []rule.Condition{
				{Type: rule.CondDiscountSynergy, SynergyIDs: []int64{99}},
			}},
		},
	}
	// Synergy is resolved by the tracker at apply time, never here.
	if !newChecker(in).Check(d) {
		t.Fatal("a synergy condition alone must not block eligibility")
	}
}

func TestCheckerNilInputs(t *testing.T) {
	if (discount.Checker{}).Check(&discount.Discount{Type: discount.TypeCartTotal}) {
		t.Fatal("nil environment must fail closed")
	}
	in := checkerInput()
	if newChecker(in).Check(nil) {
		t.Fatal("nil discount must fail closed")
	}
}

func TestCheckerDeliveryDiscountCoversAnyOption(t *testing.T) {
	in := checkerInput()
	in.Deliveries = []*basket.Delivery{
		{Method: 1, Price: 400, Selected: true},
		{Method: 2, Price: 600},
	}
	d := &discount.Discount{
		Type:            discount.TypeDelivery,
		ConditionsLogic: rule.OpAnd,
		ConditionGroups: []rule.Group{{Logic: rule.OpAnd, Conditions: []rule.Condition{
			{Type: rule.CondDeliveryMethod, DeliveryIDs: []int64{2}},
		}}},
	}
	// The selected option mismatches, but the unselected priced option does
	// match, and delivery discounts price options individually.
	if !newChecker(in).Check(d) {
		t.Fatal("a matching unselected option must keep a delivery discount eligible")
	}
	d.ConditionGroups[0].Conditions[0].DeliveryIDs = []int64{9}
	if newChecker(in).Check(d) {
		t.Fatal("no matching option must fail")
	}
}

func TestCheckerNonDeliveryScopeReadsSelection(t *testing.T) {
	in := checkerInput()
	in.Deliveries = []*basket.Delivery{
		{Method: 1, Price: 400, Selected: true},
		{Method: 2, Price: 600},
	}
	d := &discount.Discount{
		Type:            discount.TypeCartTotal,
		ConditionsLogic: rule.OpAnd,
		ConditionGroups: []rule.Group{{Logic: rule.OpAnd, Conditions: []rule.Condition{
			{Type: rule.CondDeliveryMethod, DeliveryIDs: []int64{2}},
		}}},
	}
	// An item-scope discount conditioned on delivery method 2 must not fire
	// while method 1 is selected.
	if newChecker(in).Check(d) {
		t.Fatal("delivery condition on an item scope must read the selection")
	}
	in.Deliveries[0].Selected = false
	in.Deliveries[1].Selected = true
	if !newChecker(in).Check(d) {
		t.Fatal("selecting the conditioned method must pass")
	}
}

func TestCheckerDeliveryOptionEligible(t *testing.T) {
	in := checkerInput()
	in.Deliveries = []*basket.Delivery{{Method: 1, Price: 400, Selected: true}}
	d := &discount.Discount{
		ID:   3,
		Type: discount.TypeDelivery,
		ConditionGroups: []rule.Group{{Logic: rule.OpAnd, Conditions: []rule.Condition{
			{Type: rule.CondDeliveryMethod, DeliveryIDs: []int64{2}},
		}}},
	}
	c := newChecker(in)
	if c.DeliveryOptionEligible(d, 1) {
		t.Fatal("method 1 is not in the condition's list")
	}
	if !c.DeliveryOptionEligible(d, 2) {
		t.Fatal("method 2 probe must pass regardless of the selection")
	}
	// The probe must not leak into the shared environment.
	if c.Env.Params.DeliveryMethod != nil {
		t.Fatal("probe parameters leaked into the shared environment")
	}
	unconditioned := &discount.Discount{Type: discount.TypeDelivery}
	if !c.DeliveryOptionEligible(unconditioned, 9) {
		t.Fatal("a delivery discount without conditions covers every option")
	}
}
