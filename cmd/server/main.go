// @title                       Task System API
// @version                     1.0
// @description                 Projects, tasks and comments behind JWT authentication and ownership-based authorization.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/wfm/task-system/internal/api"
	"github.com/wfm/task-system/internal/api/handler"
	"github.com/wfm/task-system/internal/core/service"
	"github.com/wfm/task-system/internal/core/token"
	"github.com/wfm/task-system/internal/infrastructure/db/redis"
	"github.com/wfm/task-system/internal/infrastructure/queue"
	"github.com/wfm/task-system/internal/infrastructure/tracing"
	"github.com/wfm/task-system/internal/pkg/config"
	"github.com/wfm/task-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: cfg.Tracing.ServiceName,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.Init(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// Redis only backs the auth rate limiter, which fails open, so an
	// unreachable Redis at boot is logged rather than fatal.
	redisClient := redis.NewClient(redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redis.Ping(redisClient)(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable at startup, auth rate limiting disabled until it recovers")
	}

	// Audit workers outlive the request context so Shutdown can drain them.
	audit := queue.NewAuditDispatcher(cfg.Audit.Workers, st.audit, log.With().Str("component", "audit").Logger())
	audit.Start(context.Background())

	codec, err := newCodec(cfg)
	if err != nil {
		return err
	}
	tokens := service.NewTokenService(codec, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	hasher := service.NewBcryptHasher(bcrypt.DefaultCost)

	authSvc := service.NewAuthService(st.users, hasher, tokens, audit, log.With().Str("component", "auth").Logger())
	userSvc := service.NewUserService(st.users, log)
	projectSvc := service.NewProjectService(st.projects, audit, log)
	taskSvc := service.NewTaskService(st.tasks, st.projects, audit, log)
	commentSvc := service.NewCommentService(st.comments, st.tasks, audit, log)

	if cfg.SeedAdmin.Username != "" {
		if _, err := service.SeedAdmin(ctx, authSvc, cfg.SeedAdmin.Username, cfg.SeedAdmin.Password, cfg.SeedAdmin.Email, log); err != nil {
			return err
		}
	}

	readiness := map[string]handler.Pinger{
		cfg.StoreDriver: handler.PingFunc(st.ping),
		"redis":         handler.PingFunc(redis.Ping(redisClient)),
	}

	e := api.NewRouter(api.Deps{
		Auth:        authSvc,
		Users:       userSvc,
		Projects:    projectSvc,
		Tasks:       taskSvc,
		Comments:    commentSvc,
		AuthLimiter: redis.NewFixedWindowLimiter(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window),
		Readiness:   readiness,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	if err := audit.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("audit queue not fully drained")
	}

	log.Info().Msg("server stopped")
	return nil
}

func newCodec(cfg *config.Config) (*token.Codec, error) {
	verify := make([]token.Key, 0, len(cfg.JWT.VerifyKeys))
	for kid, secret := range cfg.JWT.VerifyKeys {
		verify = append(verify, token.Key{ID: kid, Secret: []byte(secret)})
	}
	return token.NewCodec(
		token.Key{ID: cfg.JWT.KeyID, Secret: []byte(cfg.JWT.Secret)},
		token.WithLeeway(cfg.JWT.Leeway),
		token.WithVerifyKeys(verify...),
	)
}
