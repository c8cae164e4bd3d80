package calculator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Pipeline runs its stages in declared order over one shared run context.
type Pipeline struct {
	Kind   string
	Stages []Calculator
}

// Run executes the stages sequentially, stopping at the first failure.
func (p Pipeline) Run(ctx context.Context, run *Run) error {
	for _, stage := range p.Stages {
		if err := stage.Calculate(ctx, run); err != nil {
			return fmt.Errorf("%s stage %s: %w", p.Kind, stage.Name(), err)
		}
	}
	return nil
}

// StageConfig carries the tunables the stages need.
type StageConfig struct {
	FloorPrice             int64
	FloorPriceMasterClass  int64
	DistributionMaxPasses  int
	MaxDebitPercentOrder   int64
	MaxDebitPercentProduct int64
	// Log receives stage diagnostics; the zero logger discards them.
	Log zerolog.Logger
}

// CheckoutPipeline is the full order pipeline: price tiers, promo code,
// discounts, bonus spend, bonus earn, in that strict order.
func CheckoutPipeline(cfg StageConfig, tiers PriceTierStage) Pipeline {
	return Pipeline{
		Kind: "checkout",
		Stages: []Calculator{
			tiers,
			PromoCodeStage{},
			DiscountStage{
				FloorPrice:            cfg.FloorPrice,
				FloorPriceMasterClass: cfg.FloorPriceMasterClass,
				MaxPasses:             cfg.DistributionMaxPasses,
				Log:                   cfg.Log,
			},
			BonusSpendStage{
				MaxDebitPercentOrder:   cfg.MaxDebitPercentOrder,
				MaxDebitPercentProduct: cfg.MaxDebitPercentProduct,
			},
			BonusEarnStage{},
		},
	}
}

// CatalogPipeline prices listing pages: no checkout context, so promo codes
// and bonus spending are out, only discounts and the earn preview run.
func CatalogPipeline(cfg StageConfig, tiers PriceTierStage) Pipeline {
	return Pipeline{
		Kind: "catalog",
		Stages: []Calculator{
			tiers,
			DiscountStage{
				FloorPrice:            cfg.FloorPrice,
				FloorPriceMasterClass: cfg.FloorPriceMasterClass,
				MaxPasses:             cfg.DistributionMaxPasses,
				Log:                   cfg.Log,
			},
			BonusEarnStage{},
		},
	}
}
