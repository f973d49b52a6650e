package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/coauthor/backend/internal/config"
	"github.com/coauthor/backend/internal/handler"
	"github.com/coauthor/backend/internal/handler/events"
	"github.com/coauthor/backend/internal/service/ai"
	"github.com/coauthor/backend/internal/service/auth"
	storyservice "github.com/coauthor/backend/internal/service/story"
	"github.com/coauthor/backend/internal/storage"
	"github.com/coauthor/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Init(cfg.Log.Level)

	var store storage.Store
	if cfg.Redis.Enabled() {
		redisStore, err := storage.NewRedisStore(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis archive")
		}
		defer redisStore.Close()
		store = redisStore
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis story archive")
	} else {
		store = storage.NewMemoryStore()
		log.Info().Msg("using in-memory story archive")
	}

	authSvc := auth.NewService(store)
	if err := authSvc.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to restore session")
	}

	var gen storyservice.Generator
	if cfg.AI.Enabled() {
		gateway, err := ai.NewGateway(ctx, cfg.AI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize generation gateway, continuing without generation")
		} else {
			gen = gateway
			log.Info().Str("model", cfg.AI.Model).Msg("generation gateway initialized")
		}
	} else {
		log.Warn().Msg("Ark credentials not configured, story generation disabled")
	}

	hub := events.NewHub()
	storySvc := storyservice.NewService(gen, store, hub)

	router := handler.NewRouter(authSvc, storySvc, hub)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("CoAuthor backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
