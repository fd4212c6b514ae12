// Package app assembles the anchoring runtime from configuration. Both the
// HTTP service and the operator CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/anchord/internal/anchoring"
	"github.com/gosuda/anchord/internal/config"
	"github.com/gosuda/anchord/internal/domain"
	"github.com/gosuda/anchord/internal/ledger"
	"github.com/gosuda/anchord/internal/notify"
	"github.com/gosuda/anchord/internal/store/memory"
	"github.com/gosuda/anchord/internal/store/postgres"
	redisstore "github.com/gosuda/anchord/internal/store/redis"
	"github.com/gosuda/anchord/internal/verify"
)

// Store is implemented by *postgres.Store and *memory.Store.
type Store interface {
	AuditRecords() domain.AuditRecordRepository
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// App holds the long-lived collaborators of the anchoring subsystem.
type App struct {
	Config      *config.Config
	Store       Store
	Ledger      *ledger.Client
	PubSub      *redisstore.PubSub // nil when Redis is not configured
	Alerter     *notify.SlackAlerter
	Pool        *anchoring.Pool
	Coordinator *anchoring.Coordinator
	Sweeper     *anchoring.Sweeper
	Verifier    *verify.Service
}

// ConfigureLogging sets the global zerolog level and output format.
func ConfigureLogging(w io.Writer, level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}
}

// ConfigureLoggingFromEnv reads ANCHORD_LOG_LEVEL and ANCHORD_LOG_FORMAT so
// that configuration errors are already logged in the requested format.
func ConfigureLoggingFromEnv() {
	ConfigureLogging(os.Stdout, os.Getenv("ANCHORD_LOG_LEVEL"), os.Getenv("ANCHORD_LOG_FORMAT"))
}

// Open connects every collaborator described by cfg. Optional integrations
// (Redis events, Slack alerts, the live ledger) degrade instead of failing.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("app.Open: %w", err)
	}

	a := &App{Config: cfg, Store: store}

	a.Ledger = ledger.Open(ctx, ledger.Options{
		RPCURL:          cfg.Ledger.RPCURL,
		PrivateKey:      cfg.Ledger.PrivateKey,
		ContractAddress: cfg.Ledger.ContractAddress,
		StartBlock:      cfg.Ledger.StartBlock,
		GasMultiplier:   cfg.Ledger.GasMultiplier,
	})

	var publisher anchoring.Publisher
	if cfg.Redis.Addr != "" {
		ps, psErr := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if psErr != nil {
			log.Warn().Err(psErr).Msg("redis unavailable, audit events disabled")
		} else {
			a.PubSub = ps
			publisher = ps
		}
	}

	var alerter anchoring.Alerter
	if a.Alerter = notify.NewSlackAlerter(cfg.Slack.BotToken, cfg.Slack.AlertChannel); a.Alerter != nil {
		alerter = a.Alerter
	}

	a.Pool = anchoring.NewPool(cfg.Anchor.Workers)
	a.Coordinator = anchoring.NewCoordinator(store.AuditRecords(), a.Ledger, a.Pool, publisher, alerter, cfg.Anchor.SubmitTimeout)
	a.Sweeper = anchoring.NewSweeper(a.Coordinator, anchoring.SweepOptions{
		Interval:    cfg.Anchor.SweepInterval,
		MinAge:      cfg.Anchor.SweepMinAge,
		Backoff:     cfg.Anchor.SweepBackoff,
		MaxAttempts: cfg.Anchor.SweepMaxAttempts,
		Batch:       cfg.Anchor.SweepBatch,
	})
	a.Verifier = verify.NewService(store.AuditRecords(), a.Ledger, ledger.PlaceholderTxRef)

	log.Info().
		Str("ledger_mode", string(a.Ledger.Mode())).
		Bool("events", a.PubSub != nil).
		Bool("alerts", a.Alerter != nil).
		Bool("memory_store", cfg.Database.Memory).
		Msg("anchoring runtime ready")

	return a, nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	if cfg.Memory {
		log.Warn().Msg("using in-memory audit store; records are lost on restart")
		return memory.New(), nil
	}

	if cfg.MaxConns < 0 || cfg.MaxConns > math.MaxInt32 {
		return nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.MaxConns)
	}

	store, err := postgres.New(ctx, cfg.DSN(), int32(cfg.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return nil, fmt.Errorf("app.Open: %w", err)
	}
	return store, nil
}

// Close stops the sweep, drains in-flight submissions until ctx expires and
// releases connections.
func (a *App) Close(ctx context.Context) error {
	a.Sweeper.Stop()

	var errs []error
	if err := a.Pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.PubSub != nil {
		if err := a.PubSub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.Ledger.Close()
	a.Store.Close()

	return errors.Join(errs...)
}
