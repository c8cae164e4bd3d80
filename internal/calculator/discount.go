package calculator

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/velmart/pricing-core/internal/applier"
	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/discount"
	"github.com/velmart/pricing-core/internal/obs"
)

// DiscountStage applies every eligible discount to the basket, narrowest
// scope first, gating stacking through the run's synergy tracker.
type DiscountStage struct {
	FloorPrice            int64
	FloorPriceMasterClass int64
	MaxPasses             int
	Log                   zerolog.Logger
}

func (DiscountStage) Name() string { return "discount" }

// Calculate walks the active candidates in apply-priority order and reduces
// the basket for each one that passes the eligibility checker. Ineligible or
// misconfigured discounts are skipped silently.
func (s DiscountStage) Calculate(ctx context.Context, run *Run) error {
	candidates := make([]*discount.Discount, 0, len(run.Rules.Discounts))
	for _, d := range run.Rules.Discounts {
		if !d.ActiveAt(run.Now) {
			continue
		}
		if d.PromoCodeOnly && !run.DiscountActivated(d.ID) {
			continue
		}
		candidates = append(candidates, d)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].Type.ApplyPriority(), candidates[j].Type.ApplyPriority()
		if pi != pj {
			return pi < pj
		}
		return candidates[i].ID < candidates[j].ID
	})

	checker := discount.Checker{Env: run.Env()}
	for _, d := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !checker.Check(d) {
			continue
		}
		s.apply(run, d)
	}
	return nil
}

func (s DiscountStage) apply(run *Run, d *discount.Discount) {
	switch d.Type {
	case discount.TypeDelivery:
		s.applyDelivery(run, d)
	case discount.TypeBundleOffer:
		s.applyBundle(run, d)
	case discount.TypeCartTotal:
		s.applyCartTotal(run, d)
	default:
		s.applyItems(run, d, s.targetItems(run, d))
	}
}

// targetItems resolves the lines within the discount's scope, before synergy
// gating. Excluded offer relations and recorded merchant conditions narrow
// every scope.
func (s DiscountStage) targetItems(run *Run, d *discount.Discount) []*basket.Item {
	var out []*basket.Item
	excluded := d.ExcludedOfferIDs()
	for _, it := range run.In.Items {
		if _, skip := excluded[it.OfferID]; skip {
			continue
		}
		if it.BundleID != 0 {
			continue
		}
		if s.inScope(it, d) {
			out = append(out, it)
		}
	}
	return filterByMerchant(run, d.ID, out)
}

func (s DiscountStage) inScope(it *basket.Item, d *discount.Discount) bool {
	switch d.Type {
	case discount.TypeOffer, discount.TypeMasterClass:
		included := d.IncludedOfferIDs()
		_, ok := included[it.OfferID]
		return ok
	case discount.TypeBrand:
		return containsInt64(d.BrandIDs, it.BrandID)
	case discount.TypeCategory:
		for _, id := range d.CategoryIDs {
			if it.InCategory(id) {
				return true
			}
		}
		return false
	case discount.TypeAnyOffer:
		return true
	case discount.TypeAnyBrand:
		return it.BrandID != 0
	case discount.TypeAnyCategory:
		return it.CategoryID != 0
	case discount.TypeAnyMasterClass:
		return it.MasterClass
	default:
		return false
	}
}

// applyItems runs the offer applier over the synergy-admissible subset of the
// target lines and records the stacking.
func (s DiscountStage) applyItems(run *Run, d *discount.Discount, items []*basket.Item) {
	admissible := items[:0:0]
	for _, it := range items {
		if run.Tracker.CanApply(it.OfferID, d.ID) {
			admissible = append(admissible, it)
		}
	}
	if len(admissible) == 0 {
		return
	}
	res := s.offerApplier(run).Apply(admissible, d)
	if res.Change <= 0 {
		return
	}
	for _, offerID := range res.OfferIDs {
		run.Tracker.Record(offerID, d.ID)
	}
	run.Out.RecordDiscount(d.ID, res.Change, res.OfferIDs)
}

func (s DiscountStage) applyBundle(run *Run, d *discount.Discount) {
	components := run.In.BundleItems(d.ID)
	if len(components) == 0 {
		return
	}
	admissible := components[:0:0]
	for _, it := range components {
		if run.Tracker.CanApply(it.OfferID, d.ID) {
			admissible = append(admissible, it)
		}
	}
	if len(admissible) < len(components) {
		// A bundle prices as one unit: a partially blocked bundle is skipped,
		// never applied to a subset of its components.
		return
	}
	res := s.offerApplier(run).ApplyBundle(components, d)
	if res.Change <= 0 {
		return
	}
	for _, offerID := range res.OfferIDs {
		run.Tracker.Record(offerID, d.ID)
	}
	run.Out.RecordDiscount(d.ID, res.Change, res.OfferIDs)
}

func (s DiscountStage) applyCartTotal(run *Run, d *discount.Discount) {
	var eligible []*basket.Item
	excluded := d.ExcludedOfferIDs()
	for _, it := range run.In.Items {
		if _, skip := excluded[it.OfferID]; skip {
			continue
		}
		if run.Tracker.CanApply(it.OfferID, d.ID) {
			eligible = append(eligible, it)
		}
	}
	eligible = filterByMerchant(run, d.ID, eligible)
	if len(eligible) == 0 {
		return
	}
	b := applier.Basket{
		FloorPrice:            s.FloorPrice,
		FloorPriceMasterClass: s.FloorPriceMasterClass,
		MaxPasses:             s.MaxPasses,
	}
	target := b.Nominal(eligible, d.Value, d.ValueType)
	res, err := b.Distribute(eligible, target)
	if errors.Is(err, applier.ErrDistributionStalled) {
		// What was applied stands and the run continues, but a stall is a
		// rule-configuration defect and has to stay visible.
		s.Log.Warn().
			Int64("discount_id", d.ID).
			Int64("target", target).
			Int64("change", res.Change).
			Msg("cart-total distribution stalled")
		if obs.DistributionStallTotal != nil {
			obs.DistributionStallTotal.WithLabelValues(d.Type.String()).Inc()
		}
	}
	if res.Change <= 0 {
		return
	}
	for _, offerID := range res.OfferIDs {
		run.Tracker.Record(offerID, d.ID)
	}
	run.Out.RecordDiscount(d.ID, res.Change, res.OfferIDs)
}

// applyDelivery prices every offered delivery option the discount covers,
// probing its delivery-method conditions once per option. Only the selected
// option's change counts toward the run total; unselected options keep their
// discounted price for the per-option result.
func (s DiscountStage) applyDelivery(run *Run, d *discount.Discount) {
	checker := discount.Checker{Env: run.Env()}
	for _, opt := range run.In.Deliveries {
		if opt.Price <= 0 {
			continue
		}
		if !checker.DeliveryOptionEligible(d, opt.Method) {
			continue
		}
		change := applier.Delivery{}.Apply(opt, d.Value, d.ValueType)
		if change <= 0 {
			continue
		}
		if opt.Selected {
			run.Out.RecordDiscount(d.ID, change, nil)
		}
	}
}

func (s DiscountStage) offerApplier(run *Run) applier.Offer {
	return applier.Offer{
		FloorPrice:            s.FloorPrice,
		FloorPriceMasterClass: s.FloorPriceMasterClass,
		Tracker:               run.Tracker,
	}
}

// filterByMerchant narrows the target lines to merchants whose condition
// fired during the eligibility pass. No recorded condition means no
// restriction.
func filterByMerchant(run *Run, ruleID int64, items []*basket.Item) []*basket.Item {
	conds := run.Store.MerchantConditions(ruleID)
	if len(conds) == 0 {
		return items
	}
	allowed := make(map[int64]struct{})
	for _, cond := range conds {
		for _, id := range cond.MerchantIDs {
			allowed[id] = struct{}{}
		}
	}
	out := items[:0:0]
	for _, it := range items {
		if _, ok := allowed[it.MerchantID]; ok {
			out = append(out, it)
		}
	}
	return out
}

func containsInt64(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
