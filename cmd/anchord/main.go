package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/anchord/internal/app"
	"github.com/gosuda/anchord/internal/config"
	"github.com/gosuda/anchord/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	app.ConfigureLoggingFromEnv()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}

	a.Sweeper.Start(ctx)

	srv := server.New(ctx, cfg, a.Store, a.Verifier, a.Coordinator, a.Ledger)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("http shutdown")
	}

	// In-flight submissions get the remaining budget; records they do not
	// finish stay pending for the sweep.
	if closeErr := a.Close(shutdownCtx); closeErr != nil {
		return closeErr
	}

	log.Info().Msg("stopped")
	return nil
}
