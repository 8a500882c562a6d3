package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wonny/valuescan/internal/external/listings"
	"github.com/wonny/valuescan/internal/external/yahoo"
	"github.com/wonny/valuescan/internal/history"
	"github.com/wonny/valuescan/internal/metrics"
	"github.com/wonny/valuescan/internal/multiples"
	"github.com/wonny/valuescan/internal/options"
	"github.com/wonny/valuescan/internal/orchestrator"
	"github.com/wonny/valuescan/internal/service"
	"github.com/wonny/valuescan/internal/universe"
	"github.com/wonny/valuescan/internal/valuation"
	"github.com/wonny/valuescan/pkg/config"
	"github.com/wonny/valuescan/pkg/database"
	"github.com/wonny/valuescan/pkg/logger"
	"github.com/wonny/valuescan/pkg/redis"
)

// app holds the wired components shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB // nil without DATABASE_URL
	rdb      *redis.Client
	metrics  *metrics.Registry
	resolver *universe.Resolver
	history  history.Store
	svc      *service.Service
}

// newApp loads config and wires the whole stack.
// ⭐ SSOT: 의존성 조립은 여기서만
func newApp() (*app, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	table, err := multiples.LoadOrDefault(cfg.Scan.MultiplesFile)
	if err != nil {
		return nil, fmt.Errorf("load multiples: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		// Redis는 캐시/레이트리밋 용도라 없어도 동작
		log.WithError(err).Warn("Redis unavailable, continuing without shared cache")
		rdb = redis.Disabled()
	}

	a := &app{cfg: cfg, log: log, rdb: rdb, metrics: metrics.New()}

	if err := a.openHistory(); err != nil {
		rdb.Close()
		return nil, err
	}

	provider := yahoo.NewClient(cfg, rdb, log)
	a.resolver = universe.NewResolver(
		listings.NewClient(cfg, rdb, log),
		redis.NewCache(rdb, "valuescan"),
		cfg.Scan.UniverseCacheTTL,
		a.metrics,
		log,
	)

	a.svc = service.New(
		a.resolver,
		provider,
		valuation.NewEngine(table, valuation.Config{ClampLeverage: cfg.Valuation.ClampLeverage}, log),
		options.NewScanner(log),
		orchestrator.New(log, a.metrics),
		a.history,
		cfg.Scan,
		log,
	)

	return a, nil
}

// openHistory uses Postgres when configured, otherwise an in-process ring
func (a *app) openHistory() error {
	db, err := database.New(a.cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		a.history = history.NewMemory(0)
		return nil
	case err != nil:
		return fmt.Errorf("connect to database: %w", err)
	}

	if err := db.Migrate(context.Background(), history.Schema...); err != nil {
		db.Close()
		return fmt.Errorf("migrate run history: %w", err)
	}

	a.db = db
	a.history = history.NewRepository(db.Pool)
	a.log.Info("Run history stored in PostgreSQL")
	return nil
}

// Close releases connections
func (a *app) Close() {
	a.db.Close()
	if err := a.rdb.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

// signalContext is cancelled on Ctrl+C / SIGTERM so batches stop cleanly
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
