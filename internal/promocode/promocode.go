// Package promocode maps code strings onto their single target effect.
// Resolution never fails a checkout: an invalid code simply is not applied.
package promocode

import (
	"strings"
	"time"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/rule"
)

// Target identifies the one effect a promo code triggers.
type Target int

const (
	TargetNone Target = iota
	TargetDiscount
	TargetBonus
	TargetGift
	TargetFreeDelivery
)

// PromoCode is one redeemable code. Exactly one of DiscountID, BonusID,
// GiftID, or FreeDelivery is set.
type PromoCode struct {
	ID     int64
	Code   string
	Status rule.Status
	Window rule.Window
	// UsageLimit caps total redemptions; 0 = unlimited. UsedCount is
	// maintained by the persistence layer.
	UsageLimit int64
	UsedCount  int64

	DiscountID   int64
	BonusID      int64
	GiftID       int64
	FreeDelivery bool

	CustomerIDs []int64
	SegmentIDs  []int64
	RoleIDs     []int64
}

// Target returns the code's effect kind.
func (p *PromoCode) Target() Target {
	switch {
	case p.DiscountID != 0:
		return TargetDiscount
	case p.BonusID != 0:
		return TargetBonus
	case p.GiftID != 0:
		return TargetGift
	case p.FreeDelivery:
		return TargetFreeDelivery
	default:
		return TargetNone
	}
}

// Matches reports whether the supplied code string redeems this promo code.
func (p *PromoCode) Matches(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), p.Code)
}

// Applicable reports whether the code may be applied for the customer at the
// given instant. Any failure means "not applied", never an error.
func (p *PromoCode) Applicable(customer basket.Customer, now time.Time) bool {
	if p == nil || p.Status != rule.StatusActive || !p.Window.Contains(now) {
		return false
	}
	if p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit {
		return false
	}
	if len(p.CustomerIDs) > 0 && !containsID(p.CustomerIDs, customer.ID) {
		return false
	}
	if len(p.SegmentIDs) > 0 && !containsID(p.SegmentIDs, customer.Segment) {
		return false
	}
	if len(p.RoleIDs) > 0 {
		matched := false
		for _, role := range p.RoleIDs {
			if customer.HasRole(role) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return p.Target() != TargetNone
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
