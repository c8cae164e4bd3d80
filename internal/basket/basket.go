// Package basket holds the normalized in-memory representation of one
// calculation request: basket lines, customer, delivery options, and payment.
// The surrounding application resolves all of this before calculation starts;
// the engine never performs its own lookups.
package basket

// PriceBasis selects which per-unit amount a computation reads.
type PriceBasis int

const (
	// BasisPrice reads the current (possibly already discounted) unit price.
	BasisPrice PriceBasis = iota
	// BasisCost reads the pre-discount reference price.
	BasisCost
)

// Item is one basket line. Appliers mutate Price, Discount, and Bonus in
// place during a single calculation run; Price never drops below its floor.
type Item struct {
	ID                    int64
	Qty                   int64
	OfferID               int64
	ProductID             int64
	CategoryID            int64
	AdditionalCategoryIDs []int64
	BrandID               int64
	MerchantID            int64
	Price                 int64
	Cost                  int64
	Discount              int64
	SpentBonus            int64
	Bonus                 int64
	// BundleID links bundle components; 0 means the line is not part of a bundle.
	BundleID int64
	// MasterClass marks non-physical event tickets which use a lower price floor.
	MasterClass bool
}

// Unit returns the per-unit amount for the given basis.
func (it *Item) Unit(basis PriceBasis) int64 {
	if basis == BasisCost {
		return it.Cost
	}
	return it.Price
}

// Total returns qty × unit amount for the given basis.
func (it *Item) Total(basis PriceBasis) int64 {
	return it.Qty * it.Unit(basis)
}

// InCategory reports whether the item belongs to the category directly or
// through one of its additional categories.
func (it *Item) InCategory(categoryID int64) bool {
	if it.CategoryID == categoryID {
		return true
	}
	for _, id := range it.AdditionalCategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// Customer describes the buyer as resolved by the calling layer.
type Customer struct {
	ID         int64
	Roles      []int64
	Segment    int64
	RegionID   int64
	OrderCount int64
}

// HasRole reports whether the customer carries the given role.
func (c Customer) HasRole(role int64) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Delivery is one delivery option offered at checkout.
type Delivery struct {
	Method   int64
	Price    int64
	RegionID int64
	Selected bool
	Discount int64
}

// Payment is the selected payment method.
type Payment struct {
	Method int64
}

// Input is the shared read side of one calculation run.
type Input struct {
	Items      []*Item
	Customer   Customer
	Deliveries []*Delivery
	Payment    Payment
	// PromoCode is the raw code string supplied at checkout, if any.
	PromoCode string
	// BonusToSpend is the loyalty balance the customer asked to redeem.
	BonusToSpend int64
}

// SelectedDelivery returns the currently chosen delivery option, or nil.
func (in *Input) SelectedDelivery() *Delivery {
	for _, d := range in.Deliveries {
		if d.Selected {
			return d
		}
	}
	return nil
}

// Subtotal sums qty × unit over all lines for the given basis.
func (in *Input) Subtotal(basis PriceBasis) int64 {
	var total int64
	for _, it := range in.Items {
		total += it.Total(basis)
	}
	return total
}

// OfferQty returns the total quantity of the given offer. Bundle components
// are excluded: a bundle is priced as one unit, not per constituent offer.
func (in *Input) OfferQty(offerID int64) int64 {
	var qty int64
	for _, it := range in.Items {
		if it.OfferID == offerID && it.BundleID == 0 {
			qty += it.Qty
		}
	}
	return qty
}

// DistinctProductCount returns the number of distinct products in the basket.
func (in *Input) DistinctProductCount() int64 {
	seen := make(map[int64]struct{}, len(in.Items))
	for _, it := range in.Items {
		seen[it.ProductID] = struct{}{}
	}
	return int64(len(seen))
}

// BrandSubtotal sums line totals for items of the given brand.
func (in *Input) BrandSubtotal(brandID int64, basis PriceBasis) int64 {
	var total int64
	for _, it := range in.Items {
		if it.BrandID == brandID {
			total += it.Total(basis)
		}
	}
	return total
}

// CategorySubtotal sums line totals for items in the given category.
func (in *Input) CategorySubtotal(categoryID int64, basis PriceBasis) int64 {
	var total int64
	for _, it := range in.Items {
		if it.InCategory(categoryID) {
			total += it.Total(basis)
		}
	}
	return total
}

// ItemsByOffer returns the lines selling any of the given offers, in basket order.
func (in *Input) ItemsByOffer(offerIDs map[int64]struct{}) []*Item {
	var out []*Item
	for _, it := range in.Items {
		if _, ok := offerIDs[it.OfferID]; ok {
			out = append(out, it)
		}
	}
	return out
}

// BundleItems groups bundle components by bundle id, preserving basket order.
func (in *Input) BundleItems(bundleID int64) []*Item {
	var out []*Item
	for _, it := range in.Items {
		if it.BundleID == bundleID {
			out = append(out, it)
		}
	}
	return out
}
