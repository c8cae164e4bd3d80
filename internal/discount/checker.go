package discount

import (
	"github.com/velmart/pricing-core/internal/condition"
	"github.com/velmart/pricing-core/internal/rule"
)

// Checker decides whether a discount is eligible against one calculation
// run. Synergy is not decided here; the stacking tracker gates it per offer
// at apply time.
type Checker struct {
	Env *condition.Env
}

// Check is the full eligibility test: structural type prerequisite, customer
// role, segment, generic condition groups, then the specialized passes for
// delivery-method and distinct-product-count conditions which need
// cross-cutting state.
func (c Checker) Check(d *Discount) bool {
	if c.Env == nil || c.Env.Input == nil || d == nil {
		return false
	}
	c.Env.RuleID = d.ID
	return c.checkType(d) &&
		c.checkCustomerRole(d) &&
		c.checkSegment(d) &&
		c.checkConditionGroups(d) &&
		c.checkDeliveryConditions(d) &&
		c.checkDistinctProductConditions(d)
}

// checkType verifies the structural prerequisite of the discount's scope.
// Unknown types fail closed.
func (c Checker) checkType(d *Discount) bool {
	in := c.Env.Input
	switch d.Type {
	case TypeOffer, TypeMasterClass:
		return len(d.IncludedOfferIDs()) > 0
	case TypeBundleOffer:
		return len(d.BundleOfferIDs) >= 2 && len(in.BundleItems(d.ID)) > 0
	case TypeBrand:
		return len(d.BrandIDs) > 0
	case TypeCategory:
		return len(d.CategoryIDs) > 0
	case TypeDelivery:
		for _, opt := range in.Deliveries {
			if opt.Price > 0 {
				return true
			}
		}
		return false
	case TypeCartTotal, TypeAnyOffer, TypeAnyBrand, TypeAnyCategory, TypeAnyMasterClass:
		return len(in.Items) > 0
	default:
		return false
	}
}

func (c Checker) checkCustomerRole(d *Discount) bool {
	if len(d.RoleIDs) == 0 {
		return true
	}
	for _, role := range d.RoleIDs {
		if c.Env.Input.Customer.HasRole(role) {
			return true
		}
	}
	return false
}

func (c Checker) checkSegment(d *Discount) bool {
	if len(d.SegmentIDs) == 0 {
		return true
	}
	for _, segment := range d.SegmentIDs {
		if segment == c.Env.Input.Customer.Segment {
			return true
		}
	}
	return false
}

func (c Checker) checkConditionGroups(d *Discount) bool {
	if len(d.ConditionGroups) == 0 {
		return true
	}
	return condition.EvalGroups(d.ConditionGroups, d.ConditionsLogic, c.Env, condition.GenericSkip)
}

// checkDeliveryConditions re-checks delivery-method conditions outside the
// generic pass. Delivery discounts price each offered option individually, so
// they are eligible when any priced option matches; every other scope reads
// the selected option.
func (c Checker) checkDeliveryConditions(d *Discount) bool {
	conds := rule.ConditionsOfType(d.ConditionGroups, rule.CondDeliveryMethod)
	if len(conds) == 0 {
		return true
	}
	if d.Type == TypeDelivery {
		for _, opt := range c.Env.Input.Deliveries {
			if opt.Price > 0 && c.DeliveryOptionEligible(d, opt.Method) {
				return true
			}
		}
		return false
	}
	for _, cond := range conds {
		if !condition.Check(cond, c.Env) {
			return false
		}
	}
	return true
}

// DeliveryOptionEligible probes the discount's delivery-method conditions
// against one delivery option through the parameter bag, without touching the
// selection. A discount with no such conditions covers every option.
func (c Checker) DeliveryOptionEligible(d *Discount, method int64) bool {
	if c.Env == nil || c.Env.Input == nil || d == nil {
		return false
	}
	probe := *c.Env
	probe.Params.DeliveryMethod = &method
	probe.RuleID = d.ID
	for _, cond := range rule.ConditionsOfType(d.ConditionGroups, rule.CondDeliveryMethod) {
		if !condition.Check(cond, &probe) {
			return false
		}
	}
	return true
}

// checkDistinctProductConditions evaluates distinct-product-count conditions,
// recording the most restrictive satisfied threshold in the run store for
// later bonus-amount logic.
func (c Checker) checkDistinctProductConditions(d *Discount) bool {
	for _, cond := range rule.ConditionsOfType(d.ConditionGroups, rule.CondDifferentProductsCount) {
		if !condition.Check(cond, c.Env) {
			return false
		}
	}
	return true
}
