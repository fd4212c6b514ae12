// Package notify delivers operator alerts for records that failed to anchor.
package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/anchord/internal/domain"
)

// SlackAPI abstracts the subset of the Slack client used by SlackAlerter.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackAlerter posts anchoring alerts to a fixed Slack channel.
type SlackAlerter struct {
	api     SlackAPI
	channel string
}

// NewSlackAlerter returns nil when token or channel is empty; a nil
// *SlackAlerter is a valid no-op alerter.
func NewSlackAlerter(token, channel string) *SlackAlerter {
	if token == "" || channel == "" {
		return nil
	}
	return NewSlackAlerterWithAPI(slacklib.New(token), channel)
}

func NewSlackAlerterWithAPI(api SlackAPI, channel string) *SlackAlerter {
	return &SlackAlerter{api: api, channel: channel}
}

func (a *SlackAlerter) Alert(ctx context.Context, alert domain.AnchorAlert) error {
	if a == nil {
		return nil
	}

	text := AlertText(alert)
	_, _, err := a.api.PostMessageContext(ctx, a.channel,
		slacklib.MsgOptionText(text, false),
		slacklib.MsgOptionBlocks(BuildAlertBlocks(alert)...),
	)
	if err != nil {
		return fmt.Errorf("notify.SlackAlerter.Alert: %w", err)
	}

	return nil
}

// AlertText is the plain-text fallback shown in notifications.
func AlertText(alert domain.AnchorAlert) string {
	switch alert.Kind {
	case domain.AlertSweepGaveUp:
		return fmt.Sprintf("Anchoring gave up for %s %s", alert.Record.EntityType, alert.Record.EntityID)
	default:
		return fmt.Sprintf("Anchoring failed for %s %s", alert.Record.EntityType, alert.Record.EntityID)
	}
}

// BuildAlertBlocks builds Slack Block Kit blocks for an anchoring alert.
func BuildAlertBlocks(alert domain.AnchorAlert) []slacklib.Block {
	header := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, "*"+AlertText(alert)+"*", false, false),
		nil,
		nil,
	)

	r := alert.Record
	fields := []*slacklib.TextBlockObject{
		slacklib.NewTextBlockObject(slacklib.MarkdownType, "*Workspace:* "+r.WorkspaceID, false, false),
		slacklib.NewTextBlockObject(slacklib.MarkdownType, "*Record:* `"+r.ID.String()+"`", false, false),
		slacklib.NewTextBlockObject(slacklib.MarkdownType, "*Digest:* `"+r.Digest+"`", false, false),
		slacklib.NewTextBlockObject(slacklib.MarkdownType, "*State:* `"+string(r.State)+"`", false, false),
	}
	if alert.Reason != "" {
		fields = append(fields, slacklib.NewTextBlockObject(slacklib.MarkdownType, "*Reason:* "+alert.Reason, false, false))
	}

	return []slacklib.Block{header, slacklib.NewSectionBlock(nil, fields, nil)}
}
