package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/anchord/internal/domain"
	"github.com/gosuda/anchord/internal/notify"
)

type mockSlackAPI struct {
	channel string
	opts    []slacklib.MsgOption
	err     error
	calls   int
}

func (m *mockSlackAPI) PostMessageContext(_ context.Context, channelID string, options ...slacklib.MsgOption) (ch, ts string, err error) {
	m.calls++
	m.channel = channelID
	m.opts = options
	if m.err != nil {
		return "", "", m.err
	}
	return channelID, "1234567890.123456", nil
}

func testRecord(t *testing.T) *domain.AuditRecord {
	t.Helper()
	rec, err := domain.NewAuditRecord("ws-1", domain.EntityFile, "file-9", strings.Repeat("a1", 32), time.Now())
	require.NoError(t, err)
	return rec
}

func TestNewSlackAlerter_Unconfigured(t *testing.T) {
	t.Parallel()

	assert.Nil(t, notify.NewSlackAlerter("", "C1"))
	assert.Nil(t, notify.NewSlackAlerter("xoxb-1", ""))

	var a *notify.SlackAlerter
	require.NoError(t, a.Alert(t.Context(), domain.AnchorAlert{Kind: domain.AlertAnchorFailed, Record: testRecord(t)}))
}

func TestSlackAlerter_Alert(t *testing.T) {
	t.Parallel()

	t.Run("posts to configured channel", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{}
		a := notify.NewSlackAlerterWithAPI(api, "C-ALERTS")

		err := a.Alert(t.Context(), domain.AnchorAlert{Kind: domain.AlertAnchorFailed, Record: testRecord(t), Reason: "reverted"})

		require.NoError(t, err)
		assert.Equal(t, 1, api.calls)
		assert.Equal(t, "C-ALERTS", api.channel)
		assert.Len(t, api.opts, 2)
	})

	t.Run("wraps api error", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{err: errors.New("channel_not_found")}
		a := notify.NewSlackAlerterWithAPI(api, "C-ALERTS")

		err := a.Alert(t.Context(), domain.AnchorAlert{Kind: domain.AlertAnchorFailed, Record: testRecord(t)})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "notify.SlackAlerter.Alert")
		assert.Contains(t, err.Error(), "channel_not_found")
	})
}

func TestAlertText(t *testing.T) {
	t.Parallel()

	rec := testRecord(t)
	assert.Equal(t, "Anchoring failed for file file-9", notify.AlertText(domain.AnchorAlert{Kind: domain.AlertAnchorFailed, Record: rec}))
	assert.Equal(t, "Anchoring gave up for file file-9", notify.AlertText(domain.AnchorAlert{Kind: domain.AlertSweepGaveUp, Record: rec}))
}

func TestBuildAlertBlocks(t *testing.T) {
	t.Parallel()

	rec := testRecord(t)

	t.Run("with reason", func(t *testing.T) {
		t.Parallel()

		blocks := notify.BuildAlertBlocks(domain.AnchorAlert{Kind: domain.AlertAnchorFailed, Record: rec, Reason: "reverted"})
		require.Len(t, blocks, 2)

		details, ok := blocks[1].(*slacklib.SectionBlock)
		require.True(t, ok)
		require.Len(t, details.Fields, 5)
		assert.Contains(t, details.Fields[2].Text, rec.Digest)
		assert.Contains(t, details.Fields[4].Text, "reverted")
	})

	t.Run("without reason", func(t *testing.T) {
		t.Parallel()

		blocks := notify.BuildAlertBlocks(domain.AnchorAlert{Kind: domain.AlertSweepGaveUp, Record: rec})
		details, ok := blocks[1].(*slacklib.SectionBlock)
		require.True(t, ok)
		assert.Len(t, details.Fields, 4)

		header, ok := blocks[0].(*slacklib.SectionBlock)
		require.True(t, ok)
		assert.Contains(t, header.Text.Text, "gave up")
	})
}
