// Package cli implements anchorctl, the operator command line for anchord.
package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gosuda/anchord/internal/app"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Server  string
	Token   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"} //nolint:gochecknoglobals // flag choices

// NewRootCommand creates the root command for anchorctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "anchorctl",
		Short: "Operate an anchord audit anchoring service",
		Long: `anchorctl inspects and operates an anchord deployment.

status and verify talk to a running service over HTTP. sweep, watch and
token read the same ANCHORD_* environment as the service itself.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			app.ConfigureLogging(os.Stderr, level, "text")
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("ANCHORD_URL", "http://localhost:8080"), "anchord base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("ANCHORD_TOKEN"), "bearer token for authenticated endpoints")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
