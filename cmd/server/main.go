package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkamel/airwave/internal/adapters/auth"
	router "github.com/mkamel/airwave/internal/adapters/http"
	"github.com/mkamel/airwave/internal/adapters/media"
	signalws "github.com/mkamel/airwave/internal/adapters/signal"
	"github.com/mkamel/airwave/internal/app"
	"github.com/mkamel/airwave/internal/config"
	"github.com/mkamel/airwave/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	registry := core.NewMemRegistry()
	guard := core.NewPendingGuard(cfg.GuardCapacity)
	messages := core.NewMemMessageStore(cfg.MessageTTL)
	presence := app.NewPresence()
	tokens := media.NewJWTIssuer(cfg.MediaAppID, cfg.MediaSecret, cfg.MediaTokenTTL)
	identity := auth.NewJWTProvider(cfg.Secret)

	coord := app.NewCoordinator(app.CoordinatorConfig{
		Registry:     registry,
		Presence:     presence,
		Guard:        guard,
		Messages:     messages,
		Tokens:       tokens,
		Categories:   cfg.Categories,
		RoomLifetime: cfg.RoomLifetime,
		AdminGrace:   cfg.AdminGrace,
	})
	if err := coord.Resume(ctx); err != nil {
		log.Error().Err(err).Msg("failed to re-arm room timers")
	}
	relay := app.NewRelay(registry, presence, messages, coord.Notifier())

	ctl := signalws.NewController(cfg, coord, relay, presence, identity)
	r := router.SetupRouter(ctx, cfg, ctl, registry, relay, identity)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Airwave server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
