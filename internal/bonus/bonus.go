// Package bonus defines loyalty-point rules. A bonus has the same shape as a
// discount but accrues points instead of reducing price.
package bonus

import (
	"time"

	"github.com/velmart/pricing-core/internal/condition"
	"github.com/velmart/pricing-core/internal/rule"
)

// Scope identifies what a bonus accrues on.
type Scope int

const (
	ScopeUnknown Scope = iota
	ScopeOffer
	ScopeBrand
	ScopeCategory
	ScopeAnyOffer
	ScopeCartTotal
)

// Bonus is one loyalty rule.
type Bonus struct {
	ID        int64
	Scope     Scope
	Value     int64
	ValueType rule.ValueType
	Status    rule.Status
	Window    rule.Window
	// PromoCodeOnly bonuses accrue only when activated by a matched promo code.
	PromoCodeOnly bool
	// ValidPeriodDays governs the expiry of the granted points; 0 = no expiry.
	ValidPeriodDays int64

	OfferIDs    []int64
	BrandIDs    []int64
	CategoryIDs []int64

	RoleIDs    []int64
	SegmentIDs []int64

	ConditionsLogic rule.Op
	ConditionGroups []rule.Group
}

// ActiveAt reports whether the bonus participates at the given instant.
func (b *Bonus) ActiveAt(now time.Time) bool {
	return b.Status == rule.StatusActive && b.Window.Contains(now)
}

// Eligible runs the bonus counterpart of the discount eligibility check:
// scope prerequisite, role, segment, generic groups, and the specialized
// delivery-method and distinct-product-count passes.
func Eligible(b *Bonus, env *condition.Env) bool {
	if b == nil || env == nil || env.Input == nil {
		return false
	}
	env.RuleID = b.ID
	if !scopeSatisfied(b, env) {
		return false
	}
	if !roleSatisfied(b, env) || !segmentSatisfied(b, env) {
		return false
	}
	if len(b.ConditionGroups) > 0 &&
		!condition.EvalGroups(b.ConditionGroups, b.ConditionsLogic, env, condition.GenericSkip) {
		return false
	}
	for _, cond := range rule.ConditionsOfType(b.ConditionGroups, rule.CondDeliveryMethod) {
		if !condition.Check(cond, env) {
			return false
		}
	}
	for _, cond := range rule.ConditionsOfType(b.ConditionGroups, rule.CondDifferentProductsCount) {
		if !condition.Check(cond, env) {
			return false
		}
	}
	return true
}

func scopeSatisfied(b *Bonus, env *condition.Env) bool {
	switch b.Scope {
	case ScopeOffer:
		return len(b.OfferIDs) > 0
	case ScopeBrand:
		return len(b.BrandIDs) > 0
	case ScopeCategory:
		return len(b.CategoryIDs) > 0
	case ScopeAnyOffer, ScopeCartTotal:
		return len(env.Input.Items) > 0
	default:
		return false
	}
}

func roleSatisfied(b *Bonus, env *condition.Env) bool {
	if len(b.RoleIDs) == 0 {
		return true
	}
	for _, role := range b.RoleIDs {
		if env.Input.Customer.HasRole(role) {
			return true
		}
	}
	return false
}

func segmentSatisfied(b *Bonus, env *condition.Env) bool {
	if len(b.SegmentIDs) == 0 {
		return true
	}
	for _, segment := range b.SegmentIDs {
		if segment == env.Input.Customer.Segment {
			return true
		}
	}
	return false
}
