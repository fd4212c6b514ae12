package cli

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gosuda/anchord/internal/verify"
)

// NewVerifyCommand creates the verify command. It exits 1 when the digest is
// not verified so scripts can branch on the result.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <digest>",
		Short: "Check a SHA-256 digest against the audit trail and the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], cmd)
		},
	}
}

func runVerify(opts *RootOptions, digest string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	if opts.Token == "" {
		return f.Error(ExitCommandError, ErrCodeConfig, "verify requires --token or ANCHORD_TOKEN", nil)
	}
	client := newAPIClient(opts)

	var res verify.Result
	err := client.getJSON(cmd.Context(), "/api/v1/audit/verify/"+escapePath(digest), &res)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return f.Error(ExitFailure, ErrCodeNotVerified, "no audit record for digest", map[string]string{"digest": digest})
		}
		return apiFailure(f, err)
	}

	if outErr := f.Success(res, formatVerify(&res)); outErr != nil {
		return outErr
	}
	if !res.Verified {
		return NewExitError(ExitFailure, "digest not verified")
	}
	return nil
}

func formatVerify(res *verify.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digest:   %s\n", res.Digest)
	fmt.Fprintf(&b, "verified: %t\n", res.Verified)
	fmt.Fprintf(&b, "verdict:  %s\n", res.Verdict)
	fmt.Fprintf(&b, "mismatch: %t", res.Mismatch)
	if res.Local != nil {
		fmt.Fprintf(&b, "\nlocal:    %s (%s/%s)", res.Local.State, res.Local.EntityType, res.Local.EntityID)
		if res.Local.AnchorTxRef != nil {
			fmt.Fprintf(&b, " tx=%s", *res.Local.AnchorTxRef)
		}
	}
	if res.Anchor != nil {
		switch {
		case res.Anchor.Error != "":
			fmt.Fprintf(&b, "\nledger:   unavailable (%s)", res.Anchor.Error)
		case res.Anchor.Found:
			fmt.Fprintf(&b, "\nledger:   found tx=%s block=%d", res.Anchor.TxRef, res.Anchor.BlockRef)
		default:
			b.WriteString("\nledger:   not found")
		}
	}
	return b.String()
}
