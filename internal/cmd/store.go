package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/Williamgithubit/bsm-backend/internal/docstore"
)

// setupStore builds the document store named by STORE_BACKEND along with the
// change notifier feeding live subscriptions. The returned cleanup releases
// connections on shutdown.
func setupStore(ctx context.Context, cfg Config) (docstore.Store, func(), error) {
	indexes, err := loadIndexes(cfg.IndexFile)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.StoreBackend {
	case "memory":
		log.Info().Msg("using in-memory document store")
		return docstore.NewMemoryStore(docstore.WithStrictIndexes(indexes)), func() {}, nil

	case "postgres":
		notifier, notifierCleanup, err := setupNotifier(cfg)
		if err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.New(ctx, postgresDSN(cfg.Database))
		if err != nil {
			notifierCleanup()
			return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			notifierCleanup()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Str("database", cfg.Database.Database).
			Msg("connected to Postgres")
		cleanup := func() {
			pool.Close()
			notifierCleanup()
		}
		return docstore.NewPostgresStore(pool, indexes, notifier), cleanup, nil

	case "mongo":
		notifier, notifierCleanup, err := setupNotifier(cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := docstore.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, indexes, notifier)
		if err != nil {
			notifierCleanup()
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		log.Info().Str("database", cfg.MongoDB).Msg("connected to MongoDB")
		cleanup := func() {
			store.Close(context.Background())
			notifierCleanup()
		}
		return store, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func setupNotifier(cfg Config) (docstore.Notifier, func(), error) {
	if cfg.NATSURL == "" {
		return docstore.NewLocalNotifier(), func() {}, nil
	}
	nn, err := docstore.NewNATSNotifier(cfg.NATSURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info().Str("nats_url", cfg.NATSURL).Msg("connected to NATS change feed")
	return nn, func() { nn.Close() }, nil
}

func loadIndexes(path string) (docstore.IndexSet, error) {
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("index config not found, compound queries will require fallback")
			return docstore.IndexSet{}, nil
		}
	}
	return docstore.LoadIndexSet(path)
}

func postgresDSN(db DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.User, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}
