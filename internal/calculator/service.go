package calculator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/velmart/pricing-core/internal/basket"
	"github.com/velmart/pricing-core/internal/bonus"
	"github.com/velmart/pricing-core/internal/discount"
	"github.com/velmart/pricing-core/internal/obs"
	"github.com/velmart/pricing-core/internal/pricetier"
	"github.com/velmart/pricing-core/internal/promocode"
)

// RuleSource loads the pre-filtered active rule sets a run operates on.
type RuleSource interface {
	ActiveDiscounts(ctx context.Context) ([]*discount.Discount, error)
	ActiveBonuses(ctx context.Context) ([]*bonus.Bonus, error)
	ActivePromoCodes(ctx context.Context) ([]*promocode.PromoCode, error)
}

// UsageConsumer settles a promo code redemption after a successful run.
type UsageConsumer interface {
	ConsumePromoCode(ctx context.Context, id int64) error
}

// Service wires the pipelines to their rule source and tunables.
type Service struct {
	Rules RuleSource
	Usage UsageConsumer
	Tiers *pricetier.Cache
	Cfg   StageConfig
	Now   func() time.Time
	Log   zerolog.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Checkout runs the full pipeline over the input and, when a promo code was
// applied, consumes its usage counter.
func (s *Service) Checkout(ctx context.Context, in *basket.Input) (Result, error) {
	return s.run(ctx, in, true)
}

// Catalog runs the listing pipeline: discounts and the bonus-earn preview
// only, no promo code or bonus spending.
func (s *Service) Catalog(ctx context.Context, in *basket.Input) (Result, error) {
	return s.run(ctx, in, false)
}

func (s *Service) run(ctx context.Context, in *basket.Input, checkout bool) (Result, error) {
	if s == nil || s.Rules == nil {
		return Result{}, errors.New("calculator service not configured")
	}
	started := time.Now()
	rules, err := s.loadRules(ctx, checkout)
	if err != nil {
		return Result{}, err
	}

	run := NewRun(in, rules, s.now())
	tiers := PriceTierStage{Cache: s.Tiers}
	cfg := s.Cfg
	cfg.Log = s.Log
	var pipe Pipeline
	if checkout {
		pipe = CheckoutPipeline(cfg, tiers)
	} else {
		pipe = CatalogPipeline(cfg, tiers)
	}

	if err := pipe.Run(ctx, run); err != nil {
		s.observe(pipe.Kind, started, "error")
		return Result{}, err
	}
	if checkout && run.Out.AppliedPromoCode != nil && s.Usage != nil {
		if err := s.Usage.ConsumePromoCode(ctx, run.Out.AppliedPromoCode.ID); err != nil {
			// The customer keeps the code benefit; the counter catches up on
			// the next sweep.
			s.Log.Warn().Err(err).
				Int64("promo_code_id", run.Out.AppliedPromoCode.ID).
				Msg("consume promo code usage")
		}
	}
	s.observe(pipe.Kind, started, "ok")
	s.countApplied(run)
	return BuildResult(run), nil
}

func (s *Service) loadRules(ctx context.Context, checkout bool) (RuleSet, error) {
	var rules RuleSet
	var err error
	if rules.Discounts, err = s.Rules.ActiveDiscounts(ctx); err != nil {
		return rules, err
	}
	if rules.Bonuses, err = s.Rules.ActiveBonuses(ctx); err != nil {
		return rules, err
	}
	if checkout {
		if rules.PromoCodes, err = s.Rules.ActivePromoCodes(ctx); err != nil {
			return rules, err
		}
	}
	return rules, nil
}

func (s *Service) observe(pipeline string, started time.Time, result string) {
	if obs.CalculationTotal != nil {
		obs.CalculationTotal.WithLabelValues(pipeline, result).Inc()
	}
	if obs.CalculationDuration != nil {
		obs.CalculationDuration.WithLabelValues(pipeline).
			Observe(float64(time.Since(started).Milliseconds()))
	}
}

func (s *Service) countApplied(run *Run) {
	if obs.PromoCodeTotal != nil && run.In.PromoCode != "" {
		result := "not_applied"
		if len(run.Out.PromoCodes) > 0 {
			result = "applied"
		}
		obs.PromoCodeTotal.WithLabelValues(result).Inc()
	}
	if obs.AppliedDiscountTotal == nil {
		return
	}
	byID := make(map[int64]*discount.Discount, len(run.Rules.Discounts))
	for _, d := range run.Rules.Discounts {
		byID[d.ID] = d
	}
	for _, applied := range run.Out.Discounts {
		if d, ok := byID[applied.DiscountID]; ok {
			obs.AppliedDiscountTotal.WithLabelValues(d.Type.String()).Inc()
		}
	}
}
