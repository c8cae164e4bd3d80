package discount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/velmart/pricing-core/internal/audit"
	"github.com/velmart/pricing-core/internal/rule"
)

// AdminStore is the write side administrative operations need.
type AdminStore interface {
	CreateDiscount(ctx context.Context, d *Discount) (int64, error)
	SetDiscountStatus(ctx context.Context, id int64, status rule.Status) error
	DeleteDiscount(ctx context.Context, id int64) error
}

// Service handles administrative discount management. Calculation never goes
// through here; it reads pre-loaded rule sets.
type Service struct {
	Store     AdminStore
	Validator Validator
	Audit     audit.Service
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create validates a draft and persists it.
func (s *Service) Create(ctx context.Context, in Draft) (int64, error) {
	if s == nil || s.Store == nil {
		return 0, errors.New("discount service not configured")
	}
	if err := s.Validator.Validate(in); err != nil {
		return 0, err
	}
	id, err := s.Store.CreateDiscount(ctx, draftToModel(in))
	if err != nil {
		return 0, err
	}
	meta, _ := json.Marshal(map[string]int64{"type": in.Type, "value": in.Value})
	_ = s.Audit.Record(ctx, 0, "discount.create", "discount", id, meta)
	return id, nil
}

// SetStatus changes a rule's lifecycle status; children mirror it.
func (s *Service) SetStatus(ctx context.Context, id int64, status rule.Status) error {
	if s == nil || s.Store == nil {
		return errors.New("discount service not configured")
	}
	if status < rule.StatusDraft || status > rule.StatusExpired {
		return errors.New("unknown status")
	}
	if err := s.Store.SetDiscountStatus(ctx, id, status); err != nil {
		return err
	}
	meta, _ := json.Marshal(map[string]string{"status": fmt.Sprint(int(status))})
	_ = s.Audit.Record(ctx, 0, "discount.set_status", "discount", id, meta)
	return nil
}

// Delete removes a rule. The store prunes synergy references held by other
// discounts so the stacking graph stays consistent.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s == nil || s.Store == nil {
		return errors.New("discount service not configured")
	}
	if err := s.Store.DeleteDiscount(ctx, id); err != nil {
		return err
	}
	_ = s.Audit.Record(ctx, 0, "discount.delete", "discount", id, nil)
	return nil
}

func draftToModel(in Draft) *Discount {
	d := &Discount{
		Type:            Type(in.Type),
		Value:           in.Value,
		ValueType:       rule.ValueType(in.ValueType),
		Status:          rule.Status(in.Status),
		SponsorID:       in.SponsorID,
		Window:          rule.Window{Start: in.StartDate, End: in.EndDate},
		PromoCodeOnly:   in.PromoCodeOnly,
		ProductQtyLimit: in.ProductQtyLimit,
		BrandIDs:        in.BrandIDs,
		CategoryIDs:     in.CategoryIDs,
		BundleOfferIDs:  in.BundleOfferIDs,
		ConditionsLogic: rule.OpAnd,
	}
	for _, offerID := range in.OfferIDs {
		d.Offers = append(d.Offers, OfferRelation{OfferID: offerID})
	}
	if len(in.SynergyIDs) > 0 {
		d.ConditionGroups = append(d.ConditionGroups, rule.Group{
			Logic: rule.OpAnd,
			Conditions: []rule.Condition{{
				Type:       rule.CondDiscountSynergy,
				SynergyIDs: in.SynergyIDs,
			}},
		})
	}
	return d
}
