package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gosuda/anchord/internal/domain"
)

const auditChannelPrefix = "audit:"

type PubSub struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// PublishAuditEvent encodes ev and publishes it on the record's workspace channel.
func (ps *PubSub) PublishAuditEvent(ctx context.Context, ev domain.AuditEvent) error {
	payload, err := EncodeAuditEvent(ev)
	if err != nil {
		return fmt.Errorf("redis.PubSub.PublishAuditEvent: %w", err)
	}
	return ps.Publish(ctx, WorkspaceAuditChannel(ev.Record.WorkspaceID), payload)
}

// Subscribe listens on a single channel.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	return ps.listen(ctx, ps.client.Subscribe(ctx, channel))
}

// SubscribePattern listens on every channel matching pattern, e.g. AllAuditChannels.
func (ps *PubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan []byte, func(), error) {
	return ps.listen(ctx, ps.client.PSubscribe(ctx, pattern))
}

func (ps *PubSub) listen(ctx context.Context, sub *redis.PubSub) (<-chan []byte, func(), error) {
	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// WorkspaceAuditChannel returns the Redis channel name for a workspace's audit events.
func WorkspaceAuditChannel(workspaceID string) string {
	return auditChannelPrefix + workspaceID
}

// AllAuditChannels is the pattern matching every workspace audit channel.
const AllAuditChannels = auditChannelPrefix + "*"

func EncodeAuditEvent(ev domain.AuditEvent) ([]byte, error) {
	if ev.Record == nil {
		return nil, fmt.Errorf("redis.EncodeAuditEvent: %w: event without record", domain.ErrValidation)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("redis.EncodeAuditEvent: %w", err)
	}
	return b, nil
}

func DecodeAuditEvent(payload []byte) (domain.AuditEvent, error) {
	var ev domain.AuditEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("redis.DecodeAuditEvent: %w", err)
	}
	if ev.Record == nil {
		return ev, fmt.Errorf("redis.DecodeAuditEvent: %w: event without record", domain.ErrValidation)
	}
	return ev, nil
}
