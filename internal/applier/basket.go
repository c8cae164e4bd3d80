package applier

import (
	"errors"
	"sort"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/money"
	"github.com/velmart/pricing-core/internal/rule"
)

// ErrDistributionStalled reports that the even-distribution loop hit its
// iteration cap before exhausting the discount. This is a logic error worth
// surfacing, not a condition to silently truncate.
var ErrDistributionStalled = errors.New("basket distribution stalled before exhausting discount")

// defaultMaxPasses bounds distribution passes; two consecutive passes without
// progress abort earlier.
const defaultMaxPasses = 64

// Basket spreads a cart-total discount across eligible lines as evenly as
// integral per-unit currency amounts allow.
type Basket struct {
	FloorPrice            int64
	FloorPriceMasterClass int64
	MaxPasses             int
}

// Nominal converts a cart-total discount value to a currency amount.
// Percentages compute on the cost subtotal of the eligible lines.
func (a Basket) Nominal(items []*basket.Item, value int64, vt rule.ValueType) int64 {
	if vt == rule.ValuePercent {
		var costTotal int64
		for _, it := range items {
			costTotal += it.Total(basket.BasisCost)
		}
		return money.Percent(costTotal, value)
	}
	return value
}

// distribution carries the mutable state of one Distribute call.
type distribution struct {
	cfg       Basket
	order     []*basket.Item
	remaining int64
	// applied records the per-unit change this call made to each line, so the
	// reported change never includes reductions from earlier appliers.
	applied map[*basket.Item]int64
}

// Distribute reduces the lines by target in total, capped at the eligible
// subtotal. Lines are visited highest-total-first so large lines absorb their
// share before rounding forces over- or undershoot on small ones; per line
// the ceiling of its proportional per-unit share is preferred whenever
// applying it to the whole line cannot overshoot the remaining target. A pass
// that makes no progress flips to reverse order ("force" mode) where a line
// may exceed its proportional share to exhaust the residual.
func (a Basket) Distribute(items []*basket.Item, target int64) (Applied, error) {
	if target <= 0 || len(items) == 0 {
		return Applied{}, nil
	}
	var subtotal int64
	for _, it := range items {
		subtotal += it.Total(basket.BasisPrice)
	}
	target = money.Min(target, subtotal)
	if target <= 0 {
		return Applied{}, nil
	}

	order := make([]*basket.Item, len(items))
	copy(order, items)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Total(basket.BasisPrice) > order[j].Total(basket.BasisPrice)
	})

	d := &distribution{
		cfg:       a,
		order:     order,
		remaining: target,
		applied:   make(map[*basket.Item]int64, len(items)),
	}
	maxPasses := a.MaxPasses
	if maxPasses <= 0 {
		maxPasses = defaultMaxPasses
	}

	force := false
	for pass := 0; d.remaining > 0; pass++ {
		if pass >= maxPasses {
			return d.result(items), ErrDistributionStalled
		}
		var progressed int64
		if force {
			progressed = d.forcePass()
		} else {
			progressed = d.evenPass()
		}
		if progressed == 0 {
			if force {
				// Neither direction can move: every line is at its floor.
				break
			}
			force = true
		}
	}
	return d.result(items), nil
}

// evenPass walks lines largest-first, applying each line's proportional
// integral per-unit share of the remaining target.
func (d *distribution) evenPass() int64 {
	var progressed int64
	for _, it := range d.order {
		if d.remaining <= 0 {
			break
		}
		headroom := it.Price - d.cfg.floorFor(it)
		if headroom <= 0 || it.Qty <= 0 {
			continue
		}
		eligible := d.eligibleSubtotal()
		if eligible <= 0 {
			break
		}
		// Integral per-unit amounts implied by price × (remaining/eligible).
		lo := it.Price * d.remaining / eligible
		perUnit := lo
		if hi := lo + 1; hi*it.Qty <= d.remaining {
			perUnit = hi
		}
		perUnit = money.Clamp(perUnit, 0, headroom)
		if perUnit*it.Qty > d.remaining {
			perUnit = money.Clamp(money.DivFloor(d.remaining, it.Qty), 0, headroom)
		}
		if perUnit <= 0 {
			continue
		}
		progressed += d.reduce(it, perUnit)
	}
	return progressed
}

// forcePass walks lines in reverse order and may exceed a line's
// proportional share; an indivisible residual may round the total up by less
// than one currency unit per unit of the line absorbing it.
func (d *distribution) forcePass() int64 {
	var progressed int64
	for i := len(d.order) - 1; i >= 0 && d.remaining > 0; i-- {
		it := d.order[i]
		headroom := it.Price - d.cfg.floorFor(it)
		if headroom <= 0 || it.Qty <= 0 {
			continue
		}
		perUnit := money.Clamp(money.DivCeil(d.remaining, it.Qty), 0, headroom)
		if perUnit <= 0 {
			continue
		}
		progressed += d.reduce(it, perUnit)
	}
	return progressed
}

func (d *distribution) reduce(it *basket.Item, perUnit int64) int64 {
	it.Price -= perUnit
	it.Discount += perUnit
	d.applied[it] += perUnit
	change := perUnit * it.Qty
	d.remaining -= change
	if d.remaining < 0 {
		d.remaining = 0
	}
	return change
}

func (d *distribution) eligibleSubtotal() int64 {
	var total int64
	for _, it := range d.order {
		if it.Price > d.cfg.floorFor(it) {
			total += it.Total(basket.BasisPrice)
		}
	}
	return total
}

// result reports the change of this call only, offers in basket order.
func (d *distribution) result(items []*basket.Item) Applied {
	var out Applied
	for _, it := range items {
		perUnit, ok := d.applied[it]
		if !ok || perUnit <= 0 {
			continue
		}
		out.Change += perUnit * it.Qty
		out.OfferIDs = append(out.OfferIDs, it.OfferID)
	}
	return out
}

func (a Basket) floorFor(it *basket.Item) int64 {
	if it.MasterClass {
		return a.FloorPriceMasterClass
	}
	return a.FloorPrice
}
