package commands

import (
	"context"
	"fmt"

	"github.com/openquant/screener/internal/contracts"
	"github.com/openquant/screener/internal/formulas"
	"github.com/openquant/screener/internal/indicators"
	"github.com/openquant/screener/internal/notify"
	"github.com/openquant/screener/internal/query"
	"github.com/openquant/screener/internal/refresh"
	"github.com/openquant/screener/internal/screener"
	"github.com/openquant/screener/internal/source/constituents"
	"github.com/openquant/screener/internal/source/edgar"
	"github.com/openquant/screener/internal/source/nasdaq"
	"github.com/openquant/screener/internal/store"
	"github.com/openquant/screener/pkg/config"
	"github.com/openquant/screener/pkg/database"
	"github.com/openquant/screener/pkg/logger"
	"github.com/openquant/screener/pkg/redis"
)

// app wires the full dependency graph shared by the CLI commands.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client
	cache *redis.Cache

	universe     contracts.UniverseSource
	orchestrator *refresh.Orchestrator
	query        *query.Service
}

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "screener")

	priceRepo := store.NewPriceRepository(db.Pool)
	fundamentalsRepo := store.NewFundamentalsRepository(db.Pool)
	indicatorRepo := store.NewIndicatorRepository(db.Pool)
	scoreRepo := store.NewScoreRepository(db.Pool)
	freshnessRepo := store.NewFreshnessRepository(db.Pool)

	universe := constituents.NewSP500(cfg.Sources.SP500CSVPath, log)
	priceSource := nasdaq.NewClient(cfg.Sources.NasdaqBaseURL, cfg.Sources.NasdaqRateLimit, log)
	fundamentalsSource := edgar.NewClient(cfg.Sources.EdgarBaseURL, cfg.Sources.EdgarUserAgent, cfg.Sources.EdgarRateLimit, log)
	if cfg.Redis.Enabled {
		fundamentalsSource.WithDistributedLimiter(redis.NewRateLimiter(redisClient, "screener"))
	}

	deps := refresh.Deps{
		Universe:         universe,
		Prices:           priceSource,
		Fundamentals:     fundamentalsSource,
		PriceRepo:        priceRepo,
		FundamentalsRepo: fundamentalsRepo,
		IndicatorRepo:    indicatorRepo,
		ScoreRepo:        scoreRepo,
		Freshness:        freshnessRepo,
		Engine:           indicators.NewEngine(log),
		Formulas:         formulas.NewEngine(),
		Scorer:           screener.NewScorer(log),
		InvalidateCache: func(ctx context.Context) error {
			if err := cache.Invalidate(ctx, redis.RankingKey()); err != nil {
				return err
			}
			return cache.Invalidate(ctx, redis.AllRowsKey())
		},
	}
	if cfg.Telegram.Enabled {
		deps.Notifier = notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
	}

	opts := refresh.Options{
		Concurrency: cfg.Refresh.Concurrency,
		TTL: store.TTLPolicy{
			Prices:       cfg.Refresh.PriceTTL,
			Fundamentals: cfg.Refresh.FundamentalsTTL,
		},
		BackfillDays: cfg.Sources.BackfillDays,
		Screen: screener.Params{
			OversoldThreshold: cfg.Refresh.OversoldThreshold,
			MinQualityScore:   cfg.Refresh.MinQualityScore,
			TechnicalWeight:   cfg.Refresh.TechnicalWeight,
			FundamentalWeight: cfg.Refresh.FundamentalWeight,
			TopN:              cfg.Refresh.TopN,
		},
	}
	orchestrator := refresh.NewOrchestrator(deps, opts, log)

	catalog, err := query.LoadCatalog(cfg.IndicatorsConfigPath)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("load indicator catalog: %w", err)
	}
	queryService := query.NewService(catalog, indicatorRepo, scoreRepo, cache, log)

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        redisClient,
		cache:        cache,
		universe:     universe,
		orchestrator: orchestrator,
		query:        queryService,
	}, nil
}

func (a *app) close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("redis close failed")
	}
}
