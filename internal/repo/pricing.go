package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/velmart/pricing-core/internal/pricetier"
)

// Pricing loads merchant markup settings. It satisfies pricetier.Loader and
// usually sits behind the Redis and in-process caches.
type Pricing struct {
	DB DB
}

// MerchantPricing returns the merchant's markup settings. A merchant without
// configured settings gets an empty set, never an error: tiers are optional.
func (p Pricing) MerchantPricing(ctx context.Context, merchantID int64) (*pricetier.Settings, error) {
	var raw []byte
	err := p.DB.QueryRow(ctx,
		`SELECT settings FROM merchant_pricing WHERE merchant_id = $1`, merchantID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return &pricetier.Settings{MerchantID: merchantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query merchant %d pricing: %w", merchantID, err)
	}
	settings := &pricetier.Settings{MerchantID: merchantID}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, settings); err != nil {
			return nil, fmt.Errorf("decode merchant %d pricing: %w", merchantID, err)
		}
	}
	settings.MerchantID = merchantID
	return settings, nil
}

// MerchantIDs lists every merchant with configured pricing, for cache warming.
func (p Pricing) MerchantIDs(ctx context.Context) ([]int64, error) {
	rows, err := p.DB.Query(ctx, `SELECT merchant_id FROM merchant_pricing ORDER BY merchant_id`)
	if err != nil {
		return nil, fmt.Errorf("query pricing merchants: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
