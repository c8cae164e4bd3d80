package applier

import (
	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/money"
	"github.com/velmart/pricing-core/internal/rule"
)

// Delivery reduces the price of a delivery option. The floor is free
// delivery: the price clamps at zero and never goes negative.
type Delivery struct{}

// Apply reduces the option's price by the discount value and returns the change.
func (Delivery) Apply(d *basket.Delivery, value int64, vt rule.ValueType) int64 {
	if d == nil || d.Price <= 0 || value <= 0 {
		return 0
	}
	change := value
	if vt == rule.ValuePercent {
		change = money.Percent(d.Price, value)
	}
	change = money.Min(change, d.Price)
	if change <= 0 {
		return 0
	}
	d.Price -= change
	d.Discount += change
	return change
}

// MakeFree clamps the option's price to zero, returning the change. Promo
// codes with a free-delivery target use this directly.
func (Delivery) MakeFree(d *basket.Delivery) int64 {
	if d == nil || d.Price <= 0 {
		return 0
	}
	change := d.Price
	d.Price = 0
	d.Discount += change
	return change
}
