package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gosuda/anchord/internal/domain"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the ledger connection status of a running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	client := newAPIClient(opts)

	f.VerboseLog("GET %s/api/v1/audit/status", client.base)

	var st domain.LedgerStatus
	if err := client.getJSON(cmd.Context(), "/api/v1/audit/status", &st); err != nil {
		return apiFailure(f, err)
	}

	return f.Success(st, formatStatus(st))
}

func formatStatus(st domain.LedgerStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode:      %s\n", st.Mode)
	fmt.Fprintf(&b, "readiness: %s\n", st.Readiness)
	fmt.Fprintf(&b, "connected: %t", st.Connected)
	if st.Network != "" {
		fmt.Fprintf(&b, "\nnetwork:   %s", st.Network)
	}
	if st.Address != "" {
		fmt.Fprintf(&b, "\naddress:   %s", st.Address)
	}
	return b.String()
}

// apiFailure reports a request error and picks the exit code.
func apiFailure(f *OutputFormatter, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return f.Error(ExitCommandError, ErrCodeAPI, apiErr.Error(), apiErr)
	}
	return f.Error(ExitCommandError, ErrCodeUnreachable, err.Error(), nil)
}
