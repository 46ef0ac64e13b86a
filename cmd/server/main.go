package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/project-planner-api/internal/ai"
	"github.com/yukikurage/project-planner-api/internal/config"
	"github.com/yukikurage/project-planner-api/internal/constants"
	"github.com/yukikurage/project-planner-api/internal/database"
	"github.com/yukikurage/project-planner-api/internal/dateutil"
	"github.com/yukikurage/project-planner-api/internal/generation"
	"github.com/yukikurage/project-planner-api/internal/handlers"
	"github.com/yukikurage/project-planner-api/internal/middleware"
	"github.com/yukikurage/project-planner-api/internal/repository"
	"github.com/yukikurage/project-planner-api/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.GinMode != gin.ReleaseMode {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	return zcfg.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(&cfg.DatabaseConfig, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	logger.Info("database migrated")

	text, err := ai.NewTextGenerator(ctx, cfg.GenerationConfig, logger)
	if err != nil {
		return err
	}

	clock := dateutil.SystemClock{}
	cache, err := generation.NewPatternCache(cfg.CacheSize, cfg.CacheTTL, clock)
	if err != nil {
		return err
	}
	scheduler := generation.NewScheduler(clock)

	store := repository.NewStore(db)
	locks := services.NewProjectLocks()
	aggregator := services.NewProgressAggregator(store, logger)
	svc := handlers.Services{
		Projects: services.NewProjectService(store, aggregator, locks, clock, logger),
		Subtasks: services.NewSubtaskService(store, aggregator, locks, clock, logger),
		Generation: services.NewGenerationService(services.GenerationDeps{
			Store:      store,
			Generator:  generation.NewAIGenerator(text, cfg.Timeout, logger.Named("generation")),
			Fallback:   generation.NewFallback(clock, scheduler),
			Scheduler:  scheduler,
			Cache:      cache,
			Aggregator: aggregator,
			Locks:      locks,
			Clock:      clock,
			Logger:     logger.Named("generation"),
		}),
	}

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		return err
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(logger.Named("http")), gin.Recovery())
	r.Use(sessions.Sessions(constants.SessionName, sessionStore))
	handlers.RegisterRoutes(r, db, svc, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSessionStore uses Redis when REDIS_HOST is set and signed cookies
// otherwise.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	if cfg.RedisHost != "" {
		rs, err := redisStore.NewStore(
			10,    // pool size
			"tcp", // network
			cfg.RedisAddr(),
			"", // username
			"", // password
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, err
		}
		store = rs
	} else {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}
