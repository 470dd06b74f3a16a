package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/event-sync/internal/attribution"
	"github.com/jonesrussell/north-cloud/event-sync/internal/browser"
	"github.com/jonesrussell/north-cloud/event-sync/internal/config"
	"github.com/jonesrussell/north-cloud/event-sync/internal/database"
	"github.com/jonesrussell/north-cloud/event-sync/internal/geo"
	"github.com/jonesrussell/north-cloud/event-sync/internal/logger"
	"github.com/jonesrussell/north-cloud/event-sync/internal/quality"
	"github.com/jonesrussell/north-cloud/event-sync/internal/sources"
	"github.com/jonesrussell/north-cloud/event-sync/internal/status"
	"github.com/jonesrussell/north-cloud/event-sync/internal/syncer"
	"github.com/jonesrussell/north-cloud/event-sync/internal/telemetry"
	"github.com/jonesrussell/north-cloud/event-sync/internal/upsert"
)

// app holds the dependencies shared by the commands.
type app struct {
	cfg        *config.Config
	log        logger.Logger
	db         *sqlx.DB
	redis      *redis.Client
	store      status.Store
	heuristics *quality.Heuristics
	telemetry  *telemetry.Provider
	events     *database.EventRepository
	references *database.ReferenceRepository
}

// newApp loads configuration, creates the logger and connects to the datastores.
// Redis is optional: when it is disabled or unreachable the status store lives in memory.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := createLogger(cfg)
	if err != nil {
		return nil, err
	}

	tables, err := loadTables(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.Int("port", cfg.Database.Port),
		logger.String("database", cfg.Database.Database),
	)

	a := &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		store:      status.NewMemoryStore(),
		heuristics: quality.New(tables),
		telemetry:  telemetry.NewProvider(),
		events:     database.NewEventRepository(db),
		references: database.NewReferenceRepository(db),
	}

	if cfg.Redis.Enabled {
		client, redisErr := status.NewRedisClient(ctx, &cfg.Redis)
		if redisErr != nil {
			log.Warn("Redis unavailable, keeping sync status in memory", logger.Error(redisErr))
		} else {
			a.redis = client
			a.store = status.NewRedisStore(client)
		}
	}

	return a, nil
}

// Close releases connections and flushes the logger.
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.db.Close()
	_ = a.log.Sync()
}

// orchestrator wires the sync pipeline.
func (a *app) orchestrator() (*syncer.Orchestrator, error) {
	cfg := a.cfg

	launcher, err := browser.NewLauncher(cfg.Browser.Driver, browser.Options{
		UserAgent: cfg.Browser.UserAgent,
		Headful:   cfg.Browser.Headful,
		ExecPath:  cfg.Browser.ExecPath,
		// Scrolling and extraction get the same budget as navigation.
		ActionTimeout: cfg.Browser.NavTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create browser launcher: %w", err)
	}

	eventbrite := sources.NewEventbriteAPI(sources.EventbriteAPIConfig{
		BaseURL:     cfg.Sources.Eventbrite.APIURL,
		Token:       cfg.Sources.Eventbrite.Token,
		AffiliateID: cfg.Sources.Eventbrite.AffiliateID,
		RatePerSec:  cfg.Sources.Eventbrite.RatePerSec,
	})

	adapters, err := sources.Build(cfg.Sources.Enabled, sources.Options{
		NavTimeout: cfg.Browser.NavTimeout,
		Log:        a.log,
	}, eventbrite)
	if err != nil {
		return nil, fmt.Errorf("build source adapters: %w", err)
	}

	engine := upsert.NewEngine(a.events, a.heuristics.Images(), upsert.Options{
		FeaturedRatio:    cfg.Sync.FeaturedRatio,
		DefaultEventTime: cfg.Sync.DefaultEventTime,
	})

	tagger := attribution.NewTagger(attribution.Params{
		Ref:         cfg.Attribution.Ref,
		UTMSource:   cfg.Attribution.UTMSource,
		UTMMedium:   cfg.Attribution.UTMMedium,
		UTMCampaign: cfg.Attribution.UTMCampaign,
	})

	return syncer.NewOrchestrator(syncer.Deps{
		References: a.references,
		Adapters:   adapters,
		Pool:       browser.NewPool(launcher, a.log),
		Heuristics: a.heuristics,
		Tagger:     tagger,
		Engine:     engine,
		Store:      a.store,
		Telemetry:  a.telemetry,
		Logger:     a.log,
		Cities:     cfg.Sync.Cities,
		Aliases:    geo.DefaultAliases(),
	}), nil
}

// createLogger creates the service logger from configuration.
func createLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}

func loadTables(cfg *config.Config) (quality.Tables, error) {
	if cfg.Classification.KeywordsFile == "" {
		return quality.DefaultTables(), nil
	}
	tables, err := quality.LoadTables(cfg.Classification.KeywordsFile)
	if err != nil {
		return quality.Tables{}, fmt.Errorf("load keyword tables: %w", err)
	}
	return tables, nil
}
