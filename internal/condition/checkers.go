// Package condition evaluates the typed predicates promotional rules are
// guarded by, and combines them with the four logical operators.
package condition

import (
	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/rule"
)

// Params is the extra-parameter bag handed to predicates when a caller needs
// to probe a condition without mutating shared state, e.g. once per delivery
// option during delivery and bonus calculation.
type Params struct {
	// DeliveryMethod overrides the selected delivery option for this probe.
	DeliveryMethod *int64
	// PayMethod overrides the selected payment method for this probe.
	PayMethod *int64
	// CostBasis overrides the price basis for order-total thresholds.
	CostBasis *bool
}

// Env is everything a predicate may read: the immutable calculation input,
// probe parameters, the run-scoped store, and the id of the rule being checked.
type Env struct {
	Input  *basket.Input
	Params Params
	Store  *Store
	RuleID int64
}

type predicate func(rule.Condition, *Env) bool

// checkers maps condition types to their predicates. Resolved once at
// package init; unknown types fall through to a closed (false) result.
var checkers map[rule.ConditionType]predicate

func init() {
	checkers = map[rule.ConditionType]predicate{
		rule.CondFirstOrder:             checkFirstOrder,
		rule.CondMinPriceOrder:          checkMinPriceOrder,
		rule.CondMinPriceBrand:          checkMinPriceBrand,
		rule.CondMinPriceCategory:       checkMinPriceCategory,
		rule.CondEveryUnitProduct:       checkEveryUnitProduct,
		rule.CondPayMethod:              checkPayMethod,
		rule.CondDeliveryMethod:         checkDeliveryMethod,
		rule.CondRegion:                 checkRegion,
		rule.CondMerchant:               checkMerchant,
		rule.CondCustomer:               checkCustomer,
		rule.CondOrderSequenceNumber:    checkOrderSequence,
		rule.CondDifferentProductsCount: checkDifferentProducts,
		// Synergy is resolved by the stacking tracker at apply time; inside a
		// group it is neutral. Bundle membership is checked structurally by
		// the appliers.
		rule.CondDiscountSynergy: checkAlwaysTrue,
		rule.CondBundle:          checkAlwaysTrue,
	}
}

// Check evaluates a single condition against the environment. Misconfigured
// rules fail closed: an unknown condition type is never satisfied.
func Check(cond rule.Condition, env *Env) bool {
	if env == nil || env.Input == nil {
		return false
	}
	pred, ok := checkers[cond.Type]
	if !ok {
		return false
	}
	return pred(cond, env)
}

func checkAlwaysTrue(rule.Condition, *Env) bool { return true }

func checkFirstOrder(_ rule.Condition, env *Env) bool {
	return env.Input.Customer.OrderCount == 0
}

func checkMinPriceOrder(cond rule.Condition, env *Env) bool {
	basis := basket.BasisPrice
	costBasis := cond.CostBasis
	if env.Params.CostBasis != nil {
		costBasis = *env.Params.CostBasis
	}
	if costBasis {
		basis = basket.BasisCost
	}
	return env.Input.Subtotal(basis) >= cond.MinPrice
}

func checkMinPriceBrand(cond rule.Condition, env *Env) bool {
	var best int64
	for _, brandID := range cond.BrandIDs {
		if sum := env.Input.BrandSubtotal(brandID, basket.BasisPrice); sum > best {
			best = sum
		}
	}
	return best >= cond.MinPrice
}

func checkMinPriceCategory(cond rule.Condition, env *Env) bool {
	var best int64
	for _, categoryID := range cond.CategoryIDs {
		if sum := env.Input.CategorySubtotal(categoryID, basket.BasisPrice); sum > best {
			best = sum
		}
	}
	return best >= cond.MinPrice
}

func checkEveryUnitProduct(cond rule.Condition, env *Env) bool {
	if cond.MinQty <= 0 {
		return false
	}
	return env.Input.OfferQty(cond.OfferID) >= cond.MinQty
}

func checkPayMethod(cond rule.Condition, env *Env) bool {
	method := env.Input.Payment.Method
	if env.Params.PayMethod != nil {
		method = *env.Params.PayMethod
	}
	return containsID(cond.PaymentMethods, method)
}

func checkDeliveryMethod(cond rule.Condition, env *Env) bool {
	var method int64
	if env.Params.DeliveryMethod != nil {
		method = *env.Params.DeliveryMethod
	} else if selected := env.Input.SelectedDelivery(); selected != nil {
		method = selected.Method
	} else {
		return false
	}
	return containsID(cond.DeliveryIDs, method)
}

func checkRegion(cond rule.Condition, env *Env) bool {
	return containsID(cond.RegionIDs, env.Input.Customer.RegionID)
}

func checkMerchant(cond rule.Condition, env *Env) bool {
	for _, it := range env.Input.Items {
		if containsID(cond.MerchantIDs, it.MerchantID) {
			// Remember the condition so the applier can filter which basket
			// lines the rule actually touches.
			env.Store.RecordMerchant(env.RuleID, cond)
			return true
		}
	}
	return false
}

func checkCustomer(cond rule.Condition, env *Env) bool {
	return containsID(cond.CustomerIDs, env.Input.Customer.ID)
}

func checkOrderSequence(cond rule.Condition, env *Env) bool {
	if cond.Divisor <= 0 {
		return false
	}
	return (env.Input.Customer.OrderCount+1)%cond.Divisor == 0
}

func checkDifferentProducts(cond rule.Condition, env *Env) bool {
	if cond.MinCount <= 0 {
		return false
	}
	if env.Input.DistinctProductCount() < cond.MinCount {
		return false
	}
	env.Store.RecordProductCount(env.RuleID, cond)
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
