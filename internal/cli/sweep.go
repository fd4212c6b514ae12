package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gosuda/anchord/internal/app"
	"github.com/gosuda/anchord/internal/config"
)

type sweepOptions struct {
	drainTimeout time.Duration
}

// NewSweepCommand creates the sweep command: one reconciliation pass over
// pending records, run in-process against the configured store and ledger.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &sweepOptions{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Resubmit audit records stuck in pending once",
		Long: `Run a single reconciliation pass with the service configuration
(ANCHORD_* environment). Pending records older than ANCHORD_ANCHOR_SWEEP_MIN_AGE
are resubmitted to the ledger and the command waits for the outcome.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.drainTimeout, "drain-timeout", time.Minute, "how long to wait for submissions when shutting down")

	return cmd
}

func runSweep(rootOpts *RootOptions, opts *sweepOptions, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	cfg, err := config.Load()
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	a, err := app.Open(cmd.Context(), cfg)
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeUnreachable, err.Error(), nil)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), opts.drainTimeout)
		defer cancel()
		if closeErr := a.Close(ctx); closeErr != nil {
			f.VerboseLog("shutdown: %v", closeErr)
		}
	}()

	f.VerboseLog("ledger mode: %s", a.Ledger.Mode())

	report, err := a.Sweeper.RunOnce(cmd.Context())
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	text := fmt.Sprintf("scanned=%d retried=%d deferred=%d in_flight=%d confirmed=%d failed=%d gave_up=%d",
		report.Scanned, report.Retried, report.Deferred, report.InFlight, report.Confirmed, report.Failed, report.GaveUp)
	return f.Success(report, text)
}
