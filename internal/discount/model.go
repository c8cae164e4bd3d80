// Package discount defines promotional rules and their eligibility checks.
package discount

import (
	"time"

	"github.com/velmart/pricing-core/internal/rule"
)

// Type identifies what a discount applies to.
type Type int

const (
	TypeUnknown Type = iota
	TypeOffer
	TypeBundleOffer
	TypeBrand
	TypeCategory
	TypeMasterClass
	TypeAnyOffer
	TypeAnyBrand
	TypeAnyCategory
	TypeAnyMasterClass
	TypeCartTotal
	TypeDelivery
)

// String names the type for logs and metrics labels.
func (t Type) String() string {
	switch t {
	case TypeOffer:
		return "offer"
	case TypeBundleOffer:
		return "bundle_offer"
	case TypeBrand:
		return "brand"
	case TypeCategory:
		return "category"
	case TypeMasterClass:
		return "master_class"
	case TypeAnyOffer:
		return "any_offer"
	case TypeAnyBrand:
		return "any_brand"
	case TypeAnyCategory:
		return "any_category"
	case TypeAnyMasterClass:
		return "any_master_class"
	case TypeCartTotal:
		return "cart_total"
	case TypeDelivery:
		return "delivery"
	default:
		return "unknown"
	}
}

// ApplyPriority orders discounts for application: narrow scopes first so
// synergy resolution sees offer-level discounts before basket-wide ones.
func (t Type) ApplyPriority() int {
	switch t {
	case TypeOffer:
		return 1
	case TypeBundleOffer:
		return 2
	case TypeMasterClass:
		return 3
	case TypeBrand:
		return 4
	case TypeCategory:
		return 5
	case TypeAnyOffer, TypeAnyBrand, TypeAnyCategory, TypeAnyMasterClass:
		return 6
	case TypeCartTotal:
		return 7
	case TypeDelivery:
		return 8
	default:
		return 99
	}
}

// OfferRelation ties a discount to one offer. Excluded relations carve an
// offer out of the discount's scope.
type OfferRelation struct {
	OfferID  int64
	Excluded bool
}

// Discount is one promotional rule.
type Discount struct {
	ID        int64
	Type      Type
	Value     int64
	ValueType rule.ValueType
	Status    rule.Status
	SponsorID int64
	Window    rule.Window
	// PromoCodeOnly discounts apply only when activated by a matched promo
	// code within the same calculation run.
	PromoCodeOnly bool
	// ProductQtyLimit caps how many units per offer receive the discount; 0 = unlimited.
	ProductQtyLimit int64
	ParentID        int64

	Offers      []OfferRelation
	BrandIDs    []int64
	CategoryIDs []int64
	// BundleOfferIDs lists the offers sold together under a bundle discount.
	BundleOfferIDs []int64

	RoleIDs    []int64
	SegmentIDs []int64

	ConditionsLogic rule.Op
	ConditionGroups []rule.Group
}

// ActiveAt reports whether the discount participates in calculation at the
// given instant: ACTIVE status inside the date window.
func (d *Discount) ActiveAt(now time.Time) bool {
	return d.Status == rule.StatusActive && d.Window.Contains(now)
}

// IncludedOfferIDs returns the non-excluded offer relations as a set.
func (d *Discount) IncludedOfferIDs() map[int64]struct{} {
	out := make(map[int64]struct{}, len(d.Offers))
	for _, rel := range d.Offers {
		if !rel.Excluded {
			out[rel.OfferID] = struct{}{}
		}
	}
	return out
}

// ExcludedOfferIDs returns offers explicitly carved out of the scope.
func (d *Discount) ExcludedOfferIDs() map[int64]struct{} {
	out := make(map[int64]struct{})
	for _, rel := range d.Offers {
		if rel.Excluded {
			out[rel.OfferID] = struct{}{}
		}
	}
	return out
}

// SynergyCondition returns the discount's synergy condition, if present.
func (d *Discount) SynergyCondition() *rule.Condition {
	for gi := range d.ConditionGroups {
		for ci := range d.ConditionGroups[gi].Conditions {
			if d.ConditionGroups[gi].Conditions[ci].Type == rule.CondDiscountSynergy {
				return &d.ConditionGroups[gi].Conditions[ci]
			}
		}
	}
	return nil
}
