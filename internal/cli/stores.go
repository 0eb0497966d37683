package cli

import (
	"context"
	"database/sql"
	"fmt"

	"card-quiz/internal/app"
	"card-quiz/internal/config"
	"card-quiz/internal/infra/events"
	"card-quiz/internal/infra/file"
	"card-quiz/internal/infra/memory"
	"card-quiz/internal/infra/postgres"
	infraredis "card-quiz/internal/infra/redis"
	"card-quiz/internal/infra/sqlite"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// backend bundles the stores selected by storage.driver with whatever
// connections they hold.
type backend struct {
	leaderboard app.LeaderboardStore
	answerKeys  app.AnswerKeyStore
	closers     []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		b.leaderboard = memory.NewLeaderboardStore()
		b.answerKeys = memory.NewAnswerKeyStore()

	case config.DriverFile:
		b.leaderboard = file.NewLeaderboardStore(cfg.Storage.Dir)
		b.answerKeys = file.NewAnswerKeyStore(cfg.Storage.Dir)

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.leaderboard = infraredis.NewLeaderboardStore(client, cfg.Redis.Prefix)
		b.answerKeys = infraredis.NewAnswerKeyStore(client, cfg.Redis.Prefix)

	case config.DriverPostgres:
		if err := postgres.Migrate(ctx, cfg.Postgres.URL); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.leaderboard = postgres.NewLeaderboardStore(pool)
		b.answerKeys = postgres.NewAnswerKeyStore(pool)

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { closeDB(db) })
		b.leaderboard = sqlite.NewLeaderboardStore(db)
		b.answerKeys = sqlite.NewAnswerKeyStore(db)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	log.Info().Str("driver", cfg.Storage.Driver).Msg("storage ready")
	return b, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("close database")
	}
}

// openPublisher connects to NATS when a URL is configured.
func openPublisher(cfg config.Config) (app.EventPublisher, func(), error) {
	if cfg.NATS.URL == "" {
		return app.NopPublisher{}, func() {}, nil
	}
	natsCfg := events.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
	pub, err := events.Connect(natsCfg)
	if err != nil {
		return nil, nil, err
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Error().Err(err).Msg("close publisher")
		}
	}, nil
}

// newCollector opens the configured backend and loads the collector state from it.
func newCollector(ctx context.Context, cfg config.Config, opts ...app.CollectorOption) (*app.Collector, *backend, error) {
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	collector := app.NewCollector(app.NewLeaderboard(b.leaderboard), b.answerKeys, opts...)
	if err := collector.Load(ctx); err != nil {
		b.Close()
		return nil, nil, err
	}
	return collector, b, nil
}
