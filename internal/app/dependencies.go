package app

import (
	"context"
	"fmt"

	validator "github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/config"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/obs"
)

// Dependencies holds the shared infrastructure both binaries build on.
type Dependencies struct {
	DB         *pgxpool.Pool
	Queries    *db.Queries
	Redis      *redis.Client
	Validator  *validator.Validate
	TaskClient *asynq.Client
}

// Setup connects to Postgres and Redis and prepares shared clients. The
// returned cleanup closes everything in reverse order.
func Setup(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	taskConn, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("parse redis url for tasks: %w", err)
	}
	taskClient := asynq.NewClient(taskConn)

	deps := &Dependencies{
		DB:         pool,
		Queries:    db.New(pool),
		Redis:      rdb,
		Validator:  validator.New(),
		TaskClient: taskClient,
	}
	cleanup := func() {
		_ = taskClient.Close()
		_ = rdb.Close()
		pool.Close()
	}
	return deps, cleanup, nil
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "rl"})
}

// RunMigrations applies pending schema migrations from the configured
// directory.
func RunMigrations(databaseURL, dir string) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
