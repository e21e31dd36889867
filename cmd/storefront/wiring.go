package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nevelline/storefront/internal/config"
	"github.com/nevelline/storefront/internal/events"
	"github.com/nevelline/storefront/internal/journal"
	"github.com/nevelline/storefront/internal/logger"
	"github.com/nevelline/storefront/internal/payment"
	"github.com/nevelline/storefront/internal/persistence"
	"github.com/nevelline/storefront/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}

// openStorage connects the configured cart storage backend. The returned func releases it.
func openStorage(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (persistence.KV, func(), error) {
	switch cfg.Backend {
	case "memory":
		log.Warn("carts are kept in memory and will not survive a restart")
		return persistence.NewMemoryKV(), func() {}, nil

	case "sqlite":
		kv, err := persistence.NewSQLiteKV(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return kv, func() { _ = kv.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return persistence.NewRedisKV(client, cfg.RedisTTL), func() { _ = client.Close() }, nil

	case "mongo":
		db, err := persistence.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		kv := persistence.NewMongoKV(db)
		if err := kv.CreateIndexes(ctx); err != nil {
			log.Warn("failed to create cart indexes", zap.Error(err))
		}
		return kv, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(ctx)
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func credentials(cfg config.JournalConfig) *repository.Credentials {
	return &repository.Credentials{
		Host:              cfg.Database.Host,
		Port:              cfg.Database.Port,
		User:              cfg.Database.User,
		Password:          cfg.Database.Password,
		DBName:            cfg.Database.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
}

// attemptJournal holds the optional journal sinks. Any field may be nil.
type attemptJournal struct {
	journal   *journal.Journal
	repo      *repository.Repository
	publisher *events.Publisher
	poller    *events.OutboxPoller
}

// openJournal wires Postgres with an outbox relay to Kafka when both are configured,
// or whichever one is.
func openJournal(cfg config.JournalConfig, log *zap.Logger) (*attemptJournal, error) {
	aj := &attemptJournal{}
	var sinks []journal.Sink

	if cfg.Database.Host != "" {
		creds := credentials(cfg)
		repo, err := repository.NewRepository(creds, log)
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(creds); err != nil {
			repo.Close()
			return nil, err
		}
		aj.repo = repo
		sinks = append(sinks, repo)
	}

	if len(cfg.KafkaBrokers) > 0 {
		aj.publisher = events.NewPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		if aj.repo != nil {
			aj.poller = events.NewOutboxPoller(aj.repo, aj.publisher, log)
		} else {
			sinks = append(sinks, aj.publisher)
		}
	}

	if len(sinks) > 0 {
		aj.journal = journal.New(log, sinks...)
	}
	return aj, nil
}

func (aj *attemptJournal) close(ctx context.Context, log *zap.Logger) {
	if aj.journal != nil {
		if err := aj.journal.Close(ctx); err != nil {
			log.Warn("attempt journal did not drain", zap.Error(err))
		}
	}
	if aj.publisher != nil {
		_ = aj.publisher.Close()
	}
	if aj.repo != nil {
		_ = aj.repo.Close()
	}
}

func newVerifier(cfg *config.Config, log *zap.Logger) *payment.Verifier {
	return payment.NewVerifier(
		payment.NewClient(cfg.APIURL, cfg.Verify.AttemptTimeout),
		payment.WithRetryDelay(cfg.Verify.RetryDelay),
		payment.WithAttemptTimeout(cfg.Verify.AttemptTimeout),
		payment.WithLinkTracking(cfg.Verify.TrackLinks),
		payment.WithLogger(log),
	)
}
