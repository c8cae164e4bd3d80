// Package calculator sequences the pricing pipeline against one basket:
// promo code resolution, discount application, bonus spend, and bonus earn.
package calculator

import (
	"context"
	"time"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/bonus"
	"github.com/velmart/pricing-core/internal/condition"
	"github.com/velmart/pricing-core/internal/discount"
	"github.com/velmart/pricing-core/internal/promocode"
	"github.com/velmart/pricing-core/internal/rule"
	"github.com/velmart/pricing-core/internal/synergy"
)

// RuleSet is the pre-loaded catalog of candidate rules for one run. The
// persistence layer supplies only ACTIVE, window-valid rules, but the run
// re-checks both to stay correct near window edges.
type RuleSet struct {
	Discounts  []*discount.Discount
	Bonuses    []*bonus.Bonus
	PromoCodes []*promocode.PromoCode
}

// SynergyGraph builds the stacking relation from the rule set's synergy conditions.
func (rs RuleSet) SynergyGraph() *synergy.Graph {
	conds := make(map[int64]rule.Condition)
	for _, d := range rs.Discounts {
		if cond := d.SynergyCondition(); cond != nil {
			conds[d.ID] = *cond
		}
	}
	return synergy.FromDiscountConditions(conds)
}

// AppliedDiscount records one applied discount for reporting.
type AppliedDiscount struct {
	DiscountID int64   `json:"id"`
	Change     int64   `json:"change"`
	OfferIDs   []int64 `json:"offerIds,omitempty"`
}

// AppliedBonus records one applied bonus grant.
type AppliedBonus struct {
	BonusID         int64   `json:"id"`
	Change          int64   `json:"change"`
	ValidPeriodDays int64   `json:"validPeriodDays,omitempty"`
	OfferIDs        []int64 `json:"offerIds,omitempty"`
}

// Output accumulates the results of one run. Discarded after serialization.
type Output struct {
	PromoCodes []string
	Discounts  []AppliedDiscount
	Bonuses    []AppliedBonus
	SpentBonus int64
	GiftID     int64
	// AppliedPromoCode lets the caller consume the usage counter after a
	// successful run.
	AppliedPromoCode *promocode.PromoCode
}

// RecordDiscount merges a change into the per-discount accumulator.
func (o *Output) RecordDiscount(discountID, change int64, offerIDs []int64) {
	for i := range o.Discounts {
		if o.Discounts[i].DiscountID == discountID {
			o.Discounts[i].Change += change
			o.Discounts[i].OfferIDs = appendUnique(o.Discounts[i].OfferIDs, offerIDs)
			return
		}
	}
	o.Discounts = append(o.Discounts, AppliedDiscount{
		DiscountID: discountID,
		Change:     change,
		OfferIDs:   appendUnique(nil, offerIDs),
	})
}

// RecordBonus merges a grant into the per-bonus accumulator.
func (o *Output) RecordBonus(bonusID, change, validPeriodDays int64, offerIDs []int64) {
	for i := range o.Bonuses {
		if o.Bonuses[i].BonusID == bonusID {
			o.Bonuses[i].Change += change
			o.Bonuses[i].OfferIDs = appendUnique(o.Bonuses[i].OfferIDs, offerIDs)
			return
		}
	}
	o.Bonuses = append(o.Bonuses, AppliedBonus{
		BonusID:         bonusID,
		Change:          change,
		ValidPeriodDays: validPeriodDays,
		OfferIDs:        appendUnique(nil, offerIDs),
	})
}

func appendUnique(dst []int64, src []int64) []int64 {
	for _, id := range src {
		seen := false
		for _, existing := range dst {
			if existing == id {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, id)
		}
	}
	return dst
}

// Run is the shared mutable context of one calculation: constructed fresh
// per request, never reused. The condition store and synergy tracker are
// reinitialized here so no state leaks between runs.
type Run struct {
	In      *basket.Input
	Out     *Output
	Store   *condition.Store
	Tracker *synergy.Tracker
	Now     time.Time
	Rules   RuleSet

	activatedDiscounts map[int64]bool
	activatedBonuses   map[int64]bool
}

// NewRun builds a fresh run context over the input and rule set.
func NewRun(in *basket.Input, rules RuleSet, now time.Time) *Run {
	return &Run{
		In:                 in,
		Out:                &Output{},
		Store:              condition.NewStore(),
		Tracker:            synergy.NewTracker(rules.SynergyGraph()),
		Now:                now,
		Rules:              rules,
		activatedDiscounts: make(map[int64]bool),
		activatedBonuses:   make(map[int64]bool),
	}
}

// Env returns a condition environment bound to this run's store.
func (r *Run) Env() *condition.Env {
	return &condition.Env{Input: r.In, Store: r.Store}
}

// ActivateDiscount marks a promo-code-only discount usable this run.
// Children of the target are activated with it, mirroring parent status.
func (r *Run) ActivateDiscount(discountID int64) {
	r.activatedDiscounts[discountID] = true
	for _, d := range r.Rules.Discounts {
		if d.ParentID == discountID {
			r.activatedDiscounts[d.ID] = true
		}
	}
}

// ActivateBonus marks a promo-code-only bonus usable this run.
func (r *Run) ActivateBonus(bonusID int64) {
	r.activatedBonuses[bonusID] = true
}

// DiscountActivated reports whether a promo code unlocked the discount.
func (r *Run) DiscountActivated(discountID int64) bool {
	return r.activatedDiscounts[discountID]
}

// BonusActivated reports whether a promo code unlocked the bonus.
func (r *Run) BonusActivated(bonusID int64) bool {
	return r.activatedBonuses[bonusID]
}

// Calculator is one stage of the pipeline.
type Calculator interface {
	Name() string
	Calculate(ctx context.Context, run *Run) error
}
