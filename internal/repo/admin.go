package repo

import (
	"context"
	"fmt"

	"github.com/velmart/pricing-core/internal/discount"
	"github.com/velmart/pricing-core/internal/rule"
)

// Admin is the write side used by rule management and the status sweep.
type Admin struct {
	DB DB
}

const insertDiscountSQL = `
INSERT INTO discounts (
  type, value, value_type, status, sponsor_id, starts_at, ends_at,
  promo_code_only, product_qty_limit, parent_id,
  offers, brand_ids, category_ids, bundle_offer_ids, role_ids, segment_ids,
  conditions_logic, condition_groups
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
RETURNING id`

// CreateDiscount inserts a rule, mirrors its synergy set onto the partner
// discounts it names, and returns its id.
func (a Admin) CreateDiscount(ctx context.Context, d *discount.Discount) (int64, error) {
	offers := make([]offerRelationRow, 0, len(d.Offers))
	for _, rel := range d.Offers {
		offers = append(offers, offerRelationRow{OfferID: rel.OfferID, Excluded: rel.Excluded})
	}
	groups, err := EncodeConditionGroups(d.ConditionGroups)
	if err != nil {
		return 0, fmt.Errorf("encode condition groups: %w", err)
	}
	var id int64
	err = a.DB.QueryRow(ctx, insertDiscountSQL,
		d.Type, d.Value, d.ValueType, d.Status, d.SponsorID,
		d.Window.Start, d.Window.End,
		d.PromoCodeOnly, d.ProductQtyLimit, d.ParentID,
		offers, d.BrandIDs, d.CategoryIDs, d.BundleOfferIDs, d.RoleIDs, d.SegmentIDs,
		d.ConditionsLogic, groups,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert discount: %w", err)
	}
	if partners := synergyPartnerIDs(d.ConditionGroups); len(partners) > 0 {
		if err := a.propagateSynergyReferences(ctx, id, partners); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// propagateSynergyReferences adds the new discount's id to the synergy lists
// of every partner it names, children included. The stacking relation is
// symmetric; the in-memory graph rebuilds edges both ways per run, but the
// stored lists must agree with it.
func (a Admin) propagateSynergyReferences(ctx context.Context, newID int64, partners []int64) error {
	rows, err := a.DB.Query(ctx,
		`SELECT id, condition_groups FROM discounts WHERE id = ANY($1) OR parent_id = ANY($1)`,
		partners)
	if err != nil {
		return fmt.Errorf("query synergy partners: %w", err)
	}
	defer rows.Close()

	type update struct {
		id     int64
		groups []rule.Group
	}
	var updates []update
	for rows.Next() {
		var partnerID int64
		var raw []byte
		if err := rows.Scan(&partnerID, &raw); err != nil {
			return err
		}
		if partnerID == newID {
			continue
		}
		groups, err := DecodeConditionGroups(raw)
		if err != nil {
			return fmt.Errorf("discount %d conditions: %w", partnerID, err)
		}
		if mirrored, changed := addSynergyID(groups, newID); changed {
			updates = append(updates, update{id: partnerID, groups: mirrored})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, u := range updates {
		encoded, err := EncodeConditionGroups(u.groups)
		if err != nil {
			return fmt.Errorf("encode discount %d conditions: %w", u.id, err)
		}
		if _, err := a.DB.Exec(ctx,
			`UPDATE discounts SET condition_groups = $2 WHERE id = $1`, u.id, encoded); err != nil {
			return fmt.Errorf("mirror discount %d synergy: %w", u.id, err)
		}
	}
	return nil
}

// synergyPartnerIDs collects the distinct partner ids a rule's synergy
// conditions name, in first-seen order.
func synergyPartnerIDs(groups []rule.Group) []int64 {
	var out []int64
	seen := make(map[int64]struct{})
	for _, cond := range rule.ConditionsOfType(groups, rule.CondDiscountSynergy) {
		for _, sid := range cond.SynergyIDs {
			if _, ok := seen[sid]; ok {
				continue
			}
			seen[sid] = struct{}{}
			out = append(out, sid)
		}
	}
	return out
}

// addSynergyID inserts the id into the rule's first synergy condition,
// creating a dedicated group when the rule has none, and reports whether the
// groups changed.
func addSynergyID(groups []rule.Group, id int64) ([]rule.Group, bool) {
	for gi := range groups {
		for ci := range groups[gi].Conditions {
			cond := &groups[gi].Conditions[ci]
			if cond.Type != rule.CondDiscountSynergy {
				continue
			}
			for _, sid := range cond.SynergyIDs {
				if sid == id {
					return groups, false
				}
			}
			cond.SynergyIDs = append(cond.SynergyIDs, id)
			return groups, true
		}
	}
	groups = append(groups, rule.Group{
		Logic: rule.OpAnd,
		Conditions: []rule.Condition{{
			Type:       rule.CondDiscountSynergy,
			SynergyIDs: []int64{id},
		}},
	})
	return groups, true
}

// SetDiscountStatus updates a rule's status. Children mirror the parent.
func (a Admin) SetDiscountStatus(ctx context.Context, id int64, status rule.Status) error {
	_, err := a.DB.Exec(ctx,
		`UPDATE discounts SET status = $2 WHERE id = $1 OR parent_id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set discount %d status: %w", id, err)
	}
	return nil
}

// DeleteDiscount removes a rule and prunes every synergy reference other
// discounts hold to it, so the stacking graph never carries dangling edges.
func (a Admin) DeleteDiscount(ctx context.Context, id int64) error {
	if err := a.pruneSynergyReferences(ctx, id); err != nil {
		return err
	}
	_, err := a.DB.Exec(ctx,
		`DELETE FROM discounts WHERE id = $1 OR parent_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete discount %d: %w", id, err)
	}
	return nil
}

func (a Admin) pruneSynergyReferences(ctx context.Context, id int64) error {
	rows, err := a.DB.Query(ctx, `
SELECT id, condition_groups FROM discounts
WHERE condition_groups @? '$[*].conditions[*] ? (@.type == `+fmt.Sprint(int(rule.CondDiscountSynergy))+`)'`)
	if err != nil {
		return fmt.Errorf("query synergy references: %w", err)
	}
	defer rows.Close()

	type update struct {
		id     int64
		groups []rule.Group
	}
	var updates []update
	for rows.Next() {
		var refID int64
		var raw []byte
		if err := rows.Scan(&refID, &raw); err != nil {
			return err
		}
		groups, err := DecodeConditionGroups(raw)
		if err != nil {
			return fmt.Errorf("discount %d conditions: %w", refID, err)
		}
		if pruned, changed := pruneSynergyID(groups, id); changed {
			updates = append(updates, update{id: refID, groups: pruned})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, u := range updates {
		encoded, err := EncodeConditionGroups(u.groups)
		if err != nil {
			return fmt.Errorf("encode discount %d conditions: %w", u.id, err)
		}
		if _, err := a.DB.Exec(ctx,
			`UPDATE discounts SET condition_groups = $2 WHERE id = $1`, u.id, encoded); err != nil {
			return fmt.Errorf("prune discount %d synergy: %w", u.id, err)
		}
	}
	return nil
}

// pruneSynergyID drops the id from every synergy condition and reports
// whether anything changed. A synergy condition whose partner list empties is
// removed with it, as is a group left without conditions, so no dangling rule
// bodies survive a partner's deletion.
func pruneSynergyID(groups []rule.Group, id int64) ([]rule.Group, bool) {
	changed := false
	outGroups := groups[:0:0]
	for _, g := range groups {
		conds := g.Conditions[:0:0]
		for _, cond := range g.Conditions {
			if cond.Type != rule.CondDiscountSynergy {
				conds = append(conds, cond)
				continue
			}
			kept := cond.SynergyIDs[:0:0]
			for _, sid := range cond.SynergyIDs {
				if sid != id {
					kept = append(kept, sid)
				}
			}
			if len(kept) == len(cond.SynergyIDs) {
				conds = append(conds, cond)
				continue
			}
			changed = true
			if len(kept) == 0 {
				continue
			}
			cond.SynergyIDs = kept
			conds = append(conds, cond)
		}
		if len(conds) == 0 && len(g.Conditions) > 0 {
			continue
		}
		g.Conditions = conds
		outGroups = append(outGroups, g)
	}
	if !changed {
		return groups, false
	}
	return outGroups, true
}

// SweepResult reports how many rules each sweep pass expired.
type SweepResult struct {
	Discounts  int64
	Bonuses    int64
	PromoCodes int64
}

// SweepStatuses expires every active rule whose window has lapsed and then
// mirrors parent statuses onto children.
func (a Admin) SweepStatuses(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	expire := func(table string) (int64, error) {
		tag, err := a.DB.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET status = $1 WHERE status = $2 AND ends_at IS NOT NULL AND ends_at < now()`,
			table), rule.StatusExpired, rule.StatusActive)
		if err != nil {
			return 0, fmt.Errorf("sweep %s: %w", table, err)
		}
		return tag.RowsAffected(), nil
	}

	var err error
	if res.Discounts, err = expire("discounts"); err != nil {
		return res, err
	}
	if res.Bonuses, err = expire("bonuses"); err != nil {
		return res, err
	}
	if res.PromoCodes, err = expire("promo_codes"); err != nil {
		return res, err
	}

	_, err = a.DB.Exec(ctx, `
UPDATE discounts c SET status = p.status
FROM discounts p
WHERE c.parent_id = p.id AND c.status <> p.status`)
	if err != nil {
		return res, fmt.Errorf("mirror child statuses: %w", err)
	}
	return res, nil
}
