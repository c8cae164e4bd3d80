package calculator

import (
	"net/http"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/common"
)

// Handler exposes the calculation endpoints.
type Handler struct {
	Svc *Service
}

type calculateRequest struct {
	Items        []itemPayload     `json:"items"`
	Customer     customerPayload   `json:"customer"`
	Deliveries   []deliveryPayload `json:"deliveries"`
	Payment      paymentPayload    `json:"payment"`
	PromoCode    string            `json:"promoCode"`
	BonusToSpend int64             `json:"bonusToSpend"`
}

type itemPayload struct {
	ID                    int64   `json:"id"`
	Qty                   int64   `json:"qty"`
	OfferID               int64   `json:"offerId"`
	ProductID             int64   `json:"productId"`
	CategoryID            int64   `json:"categoryId"`
	AdditionalCategoryIDs []int64 `json:"additionalCategoryIds"`
	BrandID               int64   `json:"brandId"`
	MerchantID            int64   `json:"merchantId"`
	Price                 int64   `json:"price"`
	Cost                  int64   `json:"cost"`
	BundleID              int64   `json:"bundleId"`
	MasterClass           bool    `json:"masterClass"`
}

type customerPayload struct {
	ID         int64   `json:"id"`
	Roles      []int64 `json:"roles"`
	Segment    int64   `json:"segment"`
	RegionID   int64   `json:"regionId"`
	OrderCount int64   `json:"orderCount"`
}

type deliveryPayload struct {
	Method   int64 `json:"method"`
	Price    int64 `json:"price"`
	RegionID int64 `json:"regionId"`
	Selected bool  `json:"selected"`
}

type paymentPayload struct {
	Method int64 `json:"method"`
}

// Checkout handles POST /checkout/calculate.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.calculate(w, r, true)
}

// Catalog handles POST /catalog/calculate.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	h.calculate(w, r, false)
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request, checkout bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "calculator not configured", nil)
		return
	}
	var payload calculateRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if len(payload.Items) == 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "items are required", nil)
		return
	}
	in := payload.toInput()

	var result Result
	var err error
	if checkout {
		result, err = h.Svc.Checkout(r.Context(), in)
	} else {
		result, err = h.Svc.Catalog(r.Context(), in)
	}
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

func (p calculateRequest) toInput() *basket.Input {
	in := &basket.Input{
		Customer: basket.Customer{
			ID:         p.Customer.ID,
			Roles:      p.Customer.Roles,
			Segment:    p.Customer.Segment,
			RegionID:   p.Customer.RegionID,
			OrderCount: p.Customer.OrderCount,
		},
		Payment:      basket.Payment{Method: p.Payment.Method},
		PromoCode:    p.PromoCode,
		BonusToSpend: p.BonusToSpend,
	}
	for _, item := range p.Items {
		in.Items = append(in.Items, &basket.Item{
			ID:                    item.ID,
			Qty:                   item.Qty,
			OfferID:               item.OfferID,
			ProductID:             item.ProductID,
			CategoryID:            item.CategoryID,
			AdditionalCategoryIDs: item.AdditionalCategoryIDs,
			BrandID:               item.BrandID,
			MerchantID:            item.MerchantID,
			Price:                 item.Price,
			Cost:                  item.Cost,
			BundleID:              item.BundleID,
			MasterClass:           item.MasterClass,
		})
	}
	for _, d := range p.Deliveries {
		in.Deliveries = append(in.Deliveries, &basket.Delivery{
			Method:   d.Method,
			Price:    d.Price,
			RegionID: d.RegionID,
			Selected: d.Selected,
		})
	}
	return in
}
