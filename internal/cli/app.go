package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"habitbot/internal/config"
	"habitbot/internal/repository"
	"habitbot/internal/service"
	"habitbot/pkg/db"
	"habitbot/pkg/logger"
	pkgredis "habitbot/pkg/redis"
)

// app holds the infrastructure and services shared by the commands that touch the store.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	loc    *time.Location
	pool   *pgxpool.Pool
	// rdb is nil when redis.addr is empty.
	rdb *redis.Client

	tracker  *service.Tracker
	planner  *service.Planner
	notebook *service.Notebook

	closers []func()
}

// newApp connects to PostgreSQL (and Redis if configured), applies the schema and builds
// the services.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.NewLogger(cfg.LogLevel)

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	a := &app{cfg: cfg, logger: log, loc: loc}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)

	if err := db.Migrate(ctx, pool, log); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		rdb, err := pkgredis.NewRedisClient(cfg.Redis, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.rdb = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	clock := service.SystemClock{}
	a.tracker = service.NewTracker(repository.NewHabitRepository(pool, log), clock, loc, log)
	a.planner = service.NewPlanner(repository.NewScheduleRepository(pool, log), clock, loc, log)
	a.notebook = service.NewNotebook(repository.NewNoteRepository(pool, log), clock, log)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
