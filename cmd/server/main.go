package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/api"
	"github.com/taskhub/task-tracker/internal/core/ports"
	"github.com/taskhub/task-tracker/internal/core/service"
	"github.com/taskhub/task-tracker/internal/infrastructure/config"
	"github.com/taskhub/task-tracker/internal/infrastructure/db/memory"
	mongostore "github.com/taskhub/task-tracker/internal/infrastructure/db/mongo"
	redisstore "github.com/taskhub/task-tracker/internal/infrastructure/db/redis"
	"github.com/taskhub/task-tracker/internal/infrastructure/http/handlers"
	"github.com/taskhub/task-tracker/internal/realtime"
	"github.com/taskhub/task-tracker/pkg/logger"
)

// @title                       Task Tracker API
// @version                     1.0
// @description                 Collaborative task tracking with role-based access and real-time change events.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "task-tracker",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	checks := map[string]handlers.Check{}

	var (
		tasks ports.TaskRepository
		users ports.UserRepository
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn().Msg("using the in-memory store; data is lost on restart")
		store := memory.NewStore()
		tasks, users = store.Tasks, store.Users
	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		}()
		store := mongostore.NewStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		tasks, users = store.Tasks, store.Users
		checks["mongo"] = handlers.MongoCheck(db)
		log.Info().Str("db", cfg.Mongo.Database).Msg("connected to mongo")
	}

	hub := realtime.NewHub(cfg.WS.SendBuffer, logger.Named("hub"))
	defer hub.Close()

	var (
		pub  ports.Publisher = hub
		idem ports.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		relay := realtime.NewRelay(rdb, cfg.Redis.Channel, hub, logger.Named("relay"))
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("event relay stopped; change events from this instance are no longer delivered")
			}
		}()
		pub = relay
		idem = redisstore.NewIdempotencyStore(rdb)
		checks["redis"] = handlers.RedisCheck(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("redis relay enabled")
	}

	userSvc := service.NewUserService(users, tasks, pub, logger.Named("users"))
	taskSvc := service.NewTaskService(tasks, users, idem, pub, logger.Named("tasks"))
	authSvc := service.NewAuthService(users, userSvc, cfg.JWTSecret, cfg.TokenTTL)

	if cfg.Seed.Enabled() {
		created, err := userSvc.EnsureAdmin(ctx, cfg.Seed.AdminName, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("email", cfg.Seed.AdminEmail).Msg("seeded admin account")
		}
	}

	e := api.NewRouter(api.Dependencies{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.WS.AllowedOrigins,
		Tasks:          taskSvc,
		Users:          userSvc,
		Auth:           authSvc,
		Stream:         realtime.NewEndpoint(hub, cfg.WS.AllowedOrigins, logger.Named("ws")),
		HealthChecks:   checks,
		Logger:         logger.Named("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
