// Package applier reduces basket prices for eligible discounts and reports
// the change. All arithmetic is integral; prices never drop below the
// configured floors.
package applier

import (
	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/discount"
	"github.com/velmart/pricing-core/internal/money"
	"github.com/velmart/pricing-core/internal/rule"
	"github.com/velmart/pricing-core/internal/synergy"
)

// Applied summarizes the outcome of one applier call.
type Applied struct {
	// Change is the total price reduction across all affected lines.
	Change int64
	// OfferIDs lists the offers whose price changed, in basket order.
	OfferIDs []int64
}

// Offer reduces the price of individual basket lines.
type Offer struct {
	// FloorPrice is the minimum viable unit price for physical goods.
	FloorPrice int64
	// FloorPriceMasterClass is the lower floor for non-physical event tickets.
	FloorPriceMasterClass int64
	// Tracker supplies synergy cap floors when the discount stacks; optional.
	Tracker *synergy.Tracker
}

// Apply reduces each line by the discount's per-unit change: percentages
// compute on cost and never compound on an already-discounted price within
// one call; fixed amounts apply per unit. An optional product quantity limit
// covers only the first N units in basket order, prorating the per-unit
// change for a partially covered line and fixing it there.
func (a Offer) Apply(items []*basket.Item, d *discount.Discount) Applied {
	var out Applied
	remainingQty := d.ProductQtyLimit
	for _, it := range items {
		if d.ProductQtyLimit > 0 && remainingQty <= 0 {
			break
		}
		perUnit := a.perUnitChange(it, d.Value, d.ValueType)
		if d.ProductQtyLimit > 0 {
			covered := money.Min(it.Qty, remainingQty)
			if covered < it.Qty {
				// Spread the limited total over every unit of the line and
				// continue on a fixed-amount basis from here.
				perUnit = perUnit * covered / it.Qty
			}
			remainingQty -= covered
		}
		change := a.reduce(it, d.ID, perUnit)
		if change <= 0 {
			continue
		}
		out.Change += change
		out.OfferIDs = append(out.OfferIDs, it.OfferID)
	}
	return out
}

// ApplyBundle prices a bundle as one unit: the discount value is divided
// evenly across the bundle's component lines. Both percentage and fixed
// values divide by the component count.
func (a Offer) ApplyBundle(components []*basket.Item, d *discount.Discount) Applied {
	var out Applied
	n := int64(len(components))
	if n == 0 {
		return out
	}
	share := money.DivFloor(d.Value, n)
	if share <= 0 {
		return out
	}
	for _, it := range components {
		perUnit := a.perUnitChange(it, share, d.ValueType)
		change := a.reduce(it, d.ID, perUnit)
		if change <= 0 {
			continue
		}
		out.Change += change
		out.OfferIDs = append(out.OfferIDs, it.OfferID)
	}
	return out
}

func (a Offer) perUnitChange(it *basket.Item, value int64, vt rule.ValueType) int64 {
	if vt == rule.ValuePercent {
		return money.Percent(it.Cost, value)
	}
	return value
}

// reduce lowers the line's unit price by at most perUnit, respecting the
// configured floor and any synergy cap floor, and returns the line change.
func (a Offer) reduce(it *basket.Item, discountID, perUnit int64) int64 {
	if perUnit <= 0 || it.Qty <= 0 {
		return 0
	}
	floor := a.floorFor(it)
	if a.Tracker != nil {
		if capFloor := a.Tracker.CapFloor(discountID, it.Cost); capFloor > floor {
			floor = capFloor
		}
	}
	newPrice := money.Max(it.Price-perUnit, floor)
	applied := it.Price - newPrice
	if applied <= 0 {
		return 0
	}
	it.Price = newPrice
	it.Discount += applied
	return applied * it.Qty
}

func (a Offer) floorFor(it *basket.Item) int64 {
	if it.MasterClass {
		return a.FloorPriceMasterClass
	}
	return a.FloorPrice
}
