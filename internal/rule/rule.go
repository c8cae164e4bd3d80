// Package rule defines the vocabulary shared by discounts, bonuses, and
// promo codes: value types, statuses, logical operators, and the typed
// conditions promotional rules are guarded by.
package rule

import "time"

// ValueType distinguishes percentage values from fixed currency amounts.
type ValueType int

const (
	ValuePercent ValueType = iota + 1
	ValueFixed
)

// Status is the lifecycle state of a rule. Only active rules participate in
// calculation; child rules always mirror their parent's status.
type Status int

const (
	StatusDraft Status = iota + 1
	StatusActive
	StatusPaused
	StatusExpired
)

// Window is an optional validity interval.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether now falls inside the window. Open ends pass.
func (w Window) Contains(now time.Time) bool {
	if w.Start != nil && now.Before(*w.Start) {
		return false
	}
	if w.End != nil && now.After(*w.End) {
		return false
	}
	return true
}

// Op combines condition results within a group, and group results within a rule.
type Op int

const (
	OpAnd Op = iota + 1
	OpOr
	OpAndNot
	OpOrNot
)

// ConditionType enumerates the predicate kinds a rule may carry.
type ConditionType int

const (
	CondUnknown ConditionType = iota
	CondFirstOrder
	CondMinPriceOrder
	CondMinPriceBrand
	CondMinPriceCategory
	CondEveryUnitProduct
	CondPayMethod
	CondDeliveryMethod
	CondRegion
	CondMerchant
	CondCustomer
	CondOrderSequenceNumber
	CondDifferentProductsCount
	CondDiscountSynergy
	CondBundle
)

// Condition is one typed predicate. Only the fields relevant to its Type are
// populated; the rest stay zero. The JSON tags fix the shape conditions are
// stored in and accepted from administrative input.
type Condition struct {
	ID   int64         `json:"id"`
	Type ConditionType `json:"type"`

	// CondMinPrice*: threshold and which per-unit amount to measure.
	MinPrice  int64 `json:"minPrice,omitempty"`
	CostBasis bool  `json:"costBasis,omitempty"`

	// Scoping lists shared by several condition kinds.
	BrandIDs       []int64 `json:"brandIds,omitempty"`
	CategoryIDs    []int64 `json:"categoryIds,omitempty"`
	CustomerIDs    []int64 `json:"customerIds,omitempty"`
	RegionIDs      []int64 `json:"regionIds,omitempty"`
	PaymentMethods []int64 `json:"paymentMethods,omitempty"`
	DeliveryIDs    []int64 `json:"deliveryIds,omitempty"`
	MerchantIDs    []int64 `json:"merchantIds,omitempty"`

	// CondEveryUnitProduct: offer and minimum quantity.
	OfferID int64 `json:"offerId,omitempty"`
	MinQty  int64 `json:"minQty,omitempty"`

	// CondOrderSequenceNumber: every Nth order.
	Divisor int64 `json:"divisor,omitempty"`

	// CondDifferentProductsCount threshold.
	MinCount int64 `json:"minCount,omitempty"`

	// CondDiscountSynergy: compatible discount ids plus an optional value cap.
	SynergyIDs   []int64   `json:"synergyIds,omitempty"`
	MaxValue     int64     `json:"maxValue,omitempty"`
	MaxValueType ValueType `json:"maxValueType,omitempty"`
}

// Group combines conditions under one logical operator.
type Group struct {
	ID         int64       `json:"id"`
	Logic      Op          `json:"logic"`
	Conditions []Condition `json:"conditions"`
}

// ConditionsOfType yields every condition of the given type across groups.
func ConditionsOfType(groups []Group, t ConditionType) []Condition {
	var out []Condition
	for _, g := range groups {
		for _, c := range g.Conditions {
			if c.Type == t {
				out = append(out, c)
			}
		}
	}
	return out
}
