package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gosuda/anchord/internal/domain"
	redisstore "github.com/gosuda/anchord/internal/store/redis"
)

type watchOptions struct {
	addr     string
	password string
	db       int
	count    int
}

// NewWatchCommand creates the watch command, which tails audit record
// lifecycle events from Redis.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [workspace-id]",
		Short: "Stream audit record events, for one workspace or all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := ""
			if len(args) == 1 {
				workspace = args[0]
			}
			return runWatch(rootOpts, opts, workspace, cmd)
		},
	}

	redisDB, _ := strconv.Atoi(os.Getenv("ANCHORD_REDIS_DB"))
	cmd.Flags().StringVar(&opts.addr, "redis-addr", envOr("ANCHORD_REDIS_ADDR", "localhost:6379"), "Redis address")
	cmd.Flags().StringVar(&opts.password, "redis-password", os.Getenv("ANCHORD_REDIS_PASSWORD"), "Redis password")
	cmd.Flags().IntVar(&opts.db, "redis-db", redisDB, "Redis database")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "exit after n events (0 = until interrupted)")

	return cmd
}

func runWatch(rootOpts *RootOptions, opts *watchOptions, workspace string, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ps, err := redisstore.New(ctx, opts.addr, opts.password, opts.db)
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeUnreachable, err.Error(), nil)
	}
	defer ps.Close()

	var (
		msgs  <-chan []byte
		unsub func()
	)
	if workspace != "" {
		msgs, unsub, err = ps.Subscribe(ctx, redisstore.WorkspaceAuditChannel(workspace))
	} else {
		msgs, unsub, err = ps.SubscribePattern(ctx, redisstore.AllAuditChannels)
	}
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeUnreachable, err.Error(), nil)
	}
	defer unsub()

	f.VerboseLog("watching %s", opts.addr)
	return streamEvents(ctx, f, msgs, opts.count)
}

// streamEvents prints decoded events until msgs closes, ctx is done or limit
// events were printed. Undecodable payloads are reported and skipped.
func streamEvents(ctx context.Context, f *OutputFormatter, msgs <-chan []byte, limit int) error {
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			ev, err := redisstore.DecodeAuditEvent(payload)
			if err != nil {
				f.VerboseLog("skipping event: %v", err)
				continue
			}
			if err := printEvent(f, ev); err != nil {
				return err
			}
			seen++
			if limit > 0 && seen >= limit {
				return nil
			}
		}
	}
}

func printEvent(f *OutputFormatter, ev domain.AuditEvent) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(ev)
	}
	r := ev.Record
	line := fmt.Sprintf("%s %s ws=%s %s/%s state=%s digest=%s",
		r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"), ev.Type, r.WorkspaceID, r.EntityType, r.EntityID, r.State, r.Digest)
	if r.AnchorTxRef != nil {
		line += " tx=" + *r.AnchorTxRef
	}
	_, err := fmt.Fprintln(f.Writer, line)
	return err
}
