// Package app wires configuration into the loader, renderer and report service.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"volbot/internal/config"
	"volbot/internal/finance"
	"volbot/internal/openai"
	"volbot/internal/report"
	"volbot/internal/storage"
	"volbot/internal/volatility"
)

// SetupLogging configures the global zerolog logger.
func SetupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// App holds the long-lived dependencies of either entry point.
type App struct {
	Service *report.Service
	Store   *storage.Store
	db      storage.DB
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// New opens the database (when history or caching needs it) and builds the service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	if cfg.Database.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("db: create dir: %w", err)
		}
		db, err := storage.OpenSQLite("file:" + cfg.Database.Path + "?_fk=1")
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Database.Path).Msg("db: opened sqlite")
		if err := storage.InitSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Debug().Msg("db: schema ensured (prices, price_fetches, runs)")
		a.db = db
		a.Store = storage.NewStore(db)
	}

	loader, err := newLoader(cfg, a.Store)
	if err != nil {
		a.Close()
		return nil, err
	}

	var recorder report.RunRecorder
	if a.Store != nil {
		recorder = a.Store
	}
	var commentator report.Commentator
	if cfg.OpenAI.APIKey != "" {
		commentator = openai.NewCommentator(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		log.Info().Str("model", cfg.OpenAI.Model).Msg("openai: commentary enabled")
	}

	a.Service = report.NewService(volatility.NewComparator(loader), finance.NewChartRenderer(), recorder, commentator)
	return a, nil
}

func newLoader(cfg *config.Config, store *storage.Store) (volatility.PriceLoader, error) {
	var loader volatility.PriceLoader
	switch cfg.DataSource.Kind {
	case config.SourceCSV:
		loader = finance.NewCSVSource(cfg.DataSource.CSVDir)
		log.Info().Str("dir", cfg.DataSource.CSVDir).Msg("prices: csv source")
	case config.SourceYahoo:
		loader = finance.NewYahooSource(cfg.DataSource.YahooHosts, cfg.DataSource.Proxy)
		log.Info().Msg("prices: yahoo source")
	default:
		return nil, fmt.Errorf("%w: unknown data_source.kind %q", volatility.ErrConfig, cfg.DataSource.Kind)
	}
	if cfg.DataSource.Cache && store != nil {
		loader = finance.NewCachedSource(loader, store, cfg.DataSource.CacheMaxAge)
		log.Info().Dur("max_age", cfg.DataSource.CacheMaxAge).Msg("prices: sqlite cache enabled")
	}
	return loader, nil
}
