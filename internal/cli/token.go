package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gosuda/anchord/internal/auth"
	"github.com/gosuda/anchord/internal/config"
	"github.com/gosuda/anchord/internal/server/middleware"
)

type tokenOptions struct {
	user string
	role string
	ttl  time.Duration
}

type issuedToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewTokenCommand creates the token command, which signs an access token
// with ANCHORD_JWT_SECRET for service callers and operators.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with the service secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.user, "user", "", "subject user ID (required)")
	cmd.Flags().StringVar(&opts.role, "role", middleware.RoleService, "role claim: admin, member, viewer or service")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "token lifetime (default ANCHORD_JWT_ACCESS_TTL)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func validRole(role string) bool {
	switch role {
	case middleware.RoleAdmin, middleware.RoleMember, middleware.RoleViewer, middleware.RoleService:
		return true
	}
	return false
}

func runToken(rootOpts *RootOptions, opts *tokenOptions, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	if !validRole(opts.role) {
		return f.Error(ExitCommandError, ErrCodeConfig, "unknown role "+opts.role, nil)
	}

	cfg, err := config.Load()
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	ttl := opts.ttl
	if ttl <= 0 {
		ttl = cfg.JWT.AccessTTL
	}

	tok, err := auth.IssueAccessToken(cfg.JWT.Secret, opts.user, opts.role, ttl)
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	out := issuedToken{Token: tok, UserID: opts.user, Role: opts.role, ExpiresAt: time.Now().Add(ttl).UTC().Truncate(time.Second)}
	return f.Success(out, tok)
}
