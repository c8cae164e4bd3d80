package calculator

import "github.com/velmart/pricing-core/internal/basket"

// OfferResult is the priced state of one basket line after calculation.
type OfferResult struct {
	OfferID    int64   `json:"offerId"`
	Price      int64   `json:"price"`
	Qty        int64   `json:"qty"`
	Cost       int64   `json:"cost"`
	Discount   int64   `json:"discount"`
	Discounts  []int64 `json:"discounts"`
	SpentBonus int64   `json:"spentBonus"`
	Bonus      int64   `json:"bonus"`
	Bonuses    []int64 `json:"bonuses"`
}

// DeliveryResult is the priced state of one delivery option.
type DeliveryResult struct {
	Method   int64 `json:"method"`
	Price    int64 `json:"price"`
	Discount int64 `json:"discount"`
	Selected bool  `json:"selected"`
}

// Result is the wire shape of one calculation, everything integral.
type Result struct {
	PromoCodes []string          `json:"promoCodes"`
	Discounts  []AppliedDiscount `json:"discounts"`
	Bonuses    []AppliedBonus    `json:"bonuses"`
	Offers     []OfferResult     `json:"offers"`
	Deliveries []DeliveryResult  `json:"deliveries"`
	SpentBonus int64             `json:"spentBonus"`
	GiftID     int64             `json:"giftId,omitempty"`
}

// BuildResult freezes the run into its wire shape. Empty collections
// serialize as [] rather than null so callers never branch on absence.
func BuildResult(run *Run) Result {
	res := Result{
		PromoCodes: run.Out.PromoCodes,
		Discounts:  run.Out.Discounts,
		Bonuses:    run.Out.Bonuses,
		SpentBonus: run.Out.SpentBonus,
		GiftID:     run.Out.GiftID,
	}
	if res.PromoCodes == nil {
		res.PromoCodes = []string{}
	}
	if res.Discounts == nil {
		res.Discounts = []AppliedDiscount{}
	}
	if res.Bonuses == nil {
		res.Bonuses = []AppliedBonus{}
	}

	discountsByOffer := offerIndex(run.Out.Discounts)
	bonusesByOffer := make(map[int64][]int64)
	for _, b := range run.Out.Bonuses {
		for _, offerID := range b.OfferIDs {
			bonusesByOffer[offerID] = append(bonusesByOffer[offerID], b.BonusID)
		}
	}

	res.Offers = make([]OfferResult, 0, len(run.In.Items))
	for _, it := range run.In.Items {
		res.Offers = append(res.Offers, offerResult(it, discountsByOffer, bonusesByOffer))
	}
	res.Deliveries = make([]DeliveryResult, 0, len(run.In.Deliveries))
	for _, d := range run.In.Deliveries {
		res.Deliveries = append(res.Deliveries, DeliveryResult{
			Method:   d.Method,
			Price:    d.Price,
			Discount: d.Discount,
			Selected: d.Selected,
		})
	}
	return res
}

func offerIndex(applied []AppliedDiscount) map[int64][]int64 {
	out := make(map[int64][]int64)
	for _, a := range applied {
		for _, offerID := range a.OfferIDs {
			out[offerID] = append(out[offerID], a.DiscountID)
		}
	}
	return out
}

func offerResult(it *basket.Item, discounts, bonuses map[int64][]int64) OfferResult {
	res := OfferResult{
		OfferID:    it.OfferID,
		Price:      it.Price,
		Qty:        it.Qty,
		Cost:       it.Cost,
		Discount:   it.Discount,
		Discounts:  discounts[it.OfferID],
		SpentBonus: it.SpentBonus,
		Bonus:      it.Bonus,
		Bonuses:    bonuses[it.OfferID],
	}
	if res.Discounts == nil {
		res.Discounts = []int64{}
	}
	if res.Bonuses == nil {
		res.Bonuses = []int64{}
	}
	return res
}
