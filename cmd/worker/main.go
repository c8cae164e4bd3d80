package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/velmart/pricing-core/internal/config"
	"github.com/velmart/pricing-core/internal/lock"
	"github.com/velmart/pricing-core/internal/obs"
	"github.com/velmart/pricing-core/internal/pricetier"
	"github.com/velmart/pricing-core/internal/repo"
	"github.com/velmart/pricing-core/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient, redisOpts := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	adminRepo := repo.Admin{DB: pool}
	pricingRepo := repo.Pricing{DB: pool}
	tierCache := pricetier.NewCache(pricetier.RedisLoader{
		Client: redisClient,
		Next:   pricingRepo,
		TTL:    cfg.PricingCacheTTL,
	})
	locker := lock.Locker{Client: redisClient}

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRuleSweep, func(taskCtx context.Context, _ *asynq.Task) error {
		// Several replicas may receive the periodic sweep; the lock keeps it
		// single-flight.
		return locker.WithLock(taskCtx, "lock:rules:sweep", time.Minute, func(lockCtx context.Context) error {
			res, err := adminRepo.SweepStatuses(lockCtx)
			if err != nil {
				return err
			}
			obs.RuleSweepTotal.WithLabelValues("discount").Add(float64(res.Discounts))
			obs.RuleSweepTotal.WithLabelValues("bonus").Add(float64(res.Bonuses))
			obs.RuleSweepTotal.WithLabelValues("promo_code").Add(float64(res.PromoCodes))
			logger.Info().
				Int64("discounts", res.Discounts).
				Int64("bonuses", res.Bonuses).
				Int64("promo_codes", res.PromoCodes).
				Msg("rule sweep complete")
			return nil
		})
	})
	mux.HandleFunc(tasks.TypePricingWarm, func(taskCtx context.Context, t *asynq.Task) error {
		var payload tasks.PricingWarmPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return err
			}
		}
		ids := payload.MerchantIDs
		if len(ids) == 0 {
			var err error
			if ids, err = pricingRepo.MerchantIDs(taskCtx); err != nil {
				return err
			}
		}
		if err := tierCache.Warm(taskCtx, ids); err != nil {
			return err
		}
		logger.Info().Int("merchants", len(ids)).Msg("pricing cache warmed")
		return nil
	})

	redisConnOpt := asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB}
	srv := asynq.NewServer(redisConnOpt, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 4),
		Queues:      map[string]int{"default": 5, "pricing": 3},
		Logger:      asynqLogger{logger},
	})

	client := asynq.NewClient(redisConnOpt)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	go enqueueSweeps(ctx, client, cfg.SweepInterval, logger)

	logger.Info().Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// enqueueSweeps schedules the periodic status sweep until the context ends.
func enqueueSweeps(ctx context.Context, client *asynq.Client, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := client.Enqueue(tasks.NewRuleSweep()); err != nil {
				logger.Error().Err(err).Msg("enqueue rule sweep")
			}
		}
	}
}

type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug().Msgf("%v", args) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info().Msgf("%v", args) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn().Msgf("%v", args) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error().Msgf("%v", args) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msgf("%v", args) }

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pricing-worker"
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, *redis.Options) {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient, redisOpts
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
