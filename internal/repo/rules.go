// Package repo backs the rule, promo code, and pricing interfaces with
// PostgreSQL. Rule relations and condition groups live in JSONB columns;
// every read filters to ACTIVE status and a valid date window, which the
// engine re-checks anyway.
package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/velmart/pricing-core/internal/bonus"
	"github.com/velmart/pricing-core/internal/discount"
	"github.com/velmart/pricing-core/internal/promocode"
	"github.com/velmart/pricing-core/internal/rule"
)

// DB captures the pgx methods the repositories use; *pgxpool.Pool satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Rules loads active rule sets for calculation runs.
type Rules struct {
	DB DB
}

const activeDiscountsSQL = `
SELECT id, type, value, value_type, status, sponsor_id, starts_at, ends_at,
       promo_code_only, product_qty_limit, parent_id,
       offers, brand_ids, category_ids, bundle_offer_ids, role_ids, segment_ids,
       conditions_logic, condition_groups
FROM discounts
WHERE status = $1
  AND (starts_at IS NULL OR starts_at <= now())
  AND (ends_at IS NULL OR ends_at >= now())
ORDER BY id`

// ActiveDiscounts returns every discount currently in its validity window.
func (r Rules) ActiveDiscounts(ctx context.Context) ([]*discount.Discount, error) {
	rows, err := r.DB.Query(ctx, activeDiscountsSQL, rule.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active discounts: %w", err)
	}
	defer rows.Close()

	var out []*discount.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDiscount(row pgx.Row) (*discount.Discount, error) {
	var d discount.Discount
	var offersJSON, groupsJSON []byte
	err := row.Scan(
		&d.ID, &d.Type, &d.Value, &d.ValueType, &d.Status, &d.SponsorID,
		&d.Window.Start, &d.Window.End,
		&d.PromoCodeOnly, &d.ProductQtyLimit, &d.ParentID,
		&offersJSON, &d.BrandIDs, &d.CategoryIDs, &d.BundleOfferIDs,
		&d.RoleIDs, &d.SegmentIDs,
		&d.ConditionsLogic, &groupsJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("scan discount: %w", err)
	}
	if d.Offers, err = decodeOffers(offersJSON); err != nil {
		return nil, fmt.Errorf("discount %d offers: %w", d.ID, err)
	}
	if d.ConditionGroups, err = DecodeConditionGroups(groupsJSON); err != nil {
		return nil, fmt.Errorf("discount %d conditions: %w", d.ID, err)
	}
	return &d, nil
}

const activeBonusesSQL = `
SELECT id, scope, value, value_type, status, starts_at, ends_at,
       promo_code_only, valid_period_days,
       offer_ids, brand_ids, category_ids, role_ids, segment_ids,
       conditions_logic, condition_groups
FROM bonuses
WHERE status = $1
  AND (starts_at IS NULL OR starts_at <= now())
  AND (ends_at IS NULL OR ends_at >= now())
ORDER BY id`

// ActiveBonuses returns every loyalty rule currently in its validity window.
func (r Rules) ActiveBonuses(ctx context.Context) ([]*bonus.Bonus, error) {
	rows, err := r.DB.Query(ctx, activeBonusesSQL, rule.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active bonuses: %w", err)
	}
	defer rows.Close()

	var out []*bonus.Bonus
	for rows.Next() {
		var b bonus.Bonus
		var groupsJSON []byte
		err := rows.Scan(
			&b.ID, &b.Scope, &b.Value, &b.ValueType, &b.Status,
			&b.Window.Start, &b.Window.End,
			&b.PromoCodeOnly, &b.ValidPeriodDays,
			&b.OfferIDs, &b.BrandIDs, &b.CategoryIDs, &b.RoleIDs, &b.SegmentIDs,
			&b.ConditionsLogic, &groupsJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bonus: %w", err)
		}
		if b.ConditionGroups, err = DecodeConditionGroups(groupsJSON); err != nil {
			return nil, fmt.Errorf("bonus %d conditions: %w", b.ID, err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

const activePromoCodesSQL = `
SELECT id, code, status, starts_at, ends_at, usage_limit, used_count,
       discount_id, bonus_id, gift_id, free_delivery,
       customer_ids, segment_ids, role_ids
FROM promo_codes
WHERE status = $1
  AND (starts_at IS NULL OR starts_at <= now())
  AND (ends_at IS NULL OR ends_at >= now())
ORDER BY id`

// ActivePromoCodes returns every redeemable code in its validity window.
func (r Rules) ActivePromoCodes(ctx context.Context) ([]*promocode.PromoCode, error) {
	rows, err := r.DB.Query(ctx, activePromoCodesSQL, rule.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active promo codes: %w", err)
	}
	defer rows.Close()

	var out []*promocode.PromoCode
	for rows.Next() {
		var p promocode.PromoCode
		err := rows.Scan(
			&p.ID, &p.Code, &p.Status, &p.Window.Start, &p.Window.End,
			&p.UsageLimit, &p.UsedCount,
			&p.DiscountID, &p.BonusID, &p.GiftID, &p.FreeDelivery,
			&p.CustomerIDs, &p.SegmentIDs, &p.RoleIDs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan promo code: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// ConsumePromoCode increments the usage counter of a redeemed code.
func (r Rules) ConsumePromoCode(ctx context.Context, id int64) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE promo_codes SET used_count = used_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("consume promo code %d: %w", id, err)
	}
	return nil
}

type offerRelationRow struct {
	OfferID  int64 `json:"offerId"`
	Excluded bool  `json:"excluded,omitempty"`
}

func decodeOffers(raw []byte) ([]discount.OfferRelation, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []offerRelationRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	out := make([]discount.OfferRelation, 0, len(rows))
	for _, row := range rows {
		out = append(out, discount.OfferRelation{OfferID: row.OfferID, Excluded: row.Excluded})
	}
	return out, nil
}

// DecodeConditionGroups parses the JSONB condition_groups column. Empty and
// NULL both mean "no conditions".
func DecodeConditionGroups(raw []byte) ([]rule.Group, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var groups []rule.Group
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// EncodeConditionGroups serializes condition groups for storage.
func EncodeConditionGroups(groups []rule.Group) ([]byte, error) {
	if len(groups) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(groups)
}
