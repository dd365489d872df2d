package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/assignhub/marketplace/internal/infrastructure/config"
	mongodb "github.com/assignhub/marketplace/internal/infrastructure/db/mongo"
	redisdb "github.com/assignhub/marketplace/internal/infrastructure/db/redis"
	"github.com/assignhub/marketplace/pkg/logger"
)

const serviceName = "marketplace"

// app holds the connections and repositories shared by every command.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	mongoClient *mongo.Client
	db          *mongo.Database
	redis       *goredis.Client

	assignments *mongodb.AssignmentRepository
	users       *mongodb.UserRepository
	categories  *mongodb.CategoryRepository
	settings    *mongodb.SettingsRepository
	ledger      *mongodb.PayoutLedger
}

// bootstrap loads configuration, initialises the logger and connects to
// MongoDB. Redis is connected only when withRedis is set.
func bootstrap(ctx context.Context, withRedis bool) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.Init(logger.OptionsFor(serviceName, cfg.Env, cfg.LogLevel))

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		log:         log,
		mongoClient: client,
		db:          db,
		assignments: mongodb.NewAssignmentRepository(db),
		users:       mongodb.NewUserRepository(db),
		categories:  mongodb.NewCategoryRepository(db),
		settings:    mongodb.NewSettingsRepository(db),
		ledger:      mongodb.NewPayoutLedger(client, db),
	}

	if withRedis {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.redis = rdb
	}

	if err := mongodb.EnsureIndexes(ctx, a.assignments, a.users, a.categories, a.ledger); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("redis close")
		}
	}
	if err := a.mongoClient.Disconnect(ctx); err != nil {
		a.log.Warn().Err(err).Msg("mongo disconnect")
	}
}

// withApp runs fn against a bootstrapped app and always releases it.
func withApp(ctx context.Context, withRedis bool, fn func(a *app) error) error {
	a, err := bootstrap(ctx, withRedis)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.close(context.WithoutCancel(ctx))
	return fn(a)
}
