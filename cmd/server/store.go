package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wfm/task-system/internal/core/ports"
	"github.com/wfm/task-system/internal/infrastructure/db/mongo"
	"github.com/wfm/task-system/internal/infrastructure/db/postgres"
	"github.com/wfm/task-system/internal/pkg/config"
)

// store bundles the repositories of the selected persistence driver.
type store struct {
	users    ports.UserRepository
	projects ports.ProjectRepository
	tasks    ports.TaskRepository
	comments ports.CommentRepository
	audit    ports.AuditRepository

	ping  func(context.Context) error
	close func()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		return openPostgres(ctx, cfg, log)
	case config.StoreMongo:
		return openMongo(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openMongo(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")

	return &store{
		users:    mongo.NewUserRepository(db),
		projects: mongo.NewProjectRepository(db),
		tasks:    mongo.NewTaskRepository(db),
		comments: mongo.NewCommentRepository(db),
		audit:    mongo.NewAuditRepository(db),
		ping:     mongo.Ping(client),
		close: func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect failed")
			}
		},
	}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Msg("connected to postgres")

	return &store{
		users:    postgres.NewUserRepository(pool),
		projects: postgres.NewProjectRepository(pool),
		tasks:    postgres.NewTaskRepository(pool),
		comments: postgres.NewCommentRepository(pool),
		audit:    postgres.NewAuditRepository(pool),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}
