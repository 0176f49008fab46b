package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyReporter_SendsAtMidnight(t *testing.T) {
	stub, url := newDiscordStub(t)
	agg, clock := newTestAggregator(newFakeSource())

	history := NewRefreshHistory(openTestDB(t), clock, 7)
	history.Attach(agg)
	agg.Refresh(context.Background(), TriggerPoll)
	agg.Refresh(context.Background(), TriggerManual)

	webhook := NewWebhookService(clock)
	webhook.SetWebhookURL(url)
	reporter := NewDailyReporter(history, agg, webhook, clock, time.UTC)
	reporter.Start()
	t.Cleanup(reporter.Stop)

	require.Eventually(t, func() bool { return clock.Pending() == 1 }, time.Second, 5*time.Millisecond)
	clock.Advance(11*time.Hour + 29*time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, stub.titles(), "not midnight yet")

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return len(stub.titles()) == 1 }, time.Second, 5*time.Millisecond)

	embed := stub.embed(0)
	assert.Equal(t, "📊 Daily Dashboard Report (2025-03-10)", embed.Title)
	assert.Contains(t, embed.Description, "Requests: `30`")
	assert.Contains(t, embed.Description, "Peak Hour: `12:00 (20)`")
	assert.Contains(t, embed.Description, "Blocked IPs: `1`")
	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "2", embed.Fields[0].Value)
	assert.Equal(t, "2 / 0", embed.Fields[1].Value)
	assert.Equal(t, "100.0%", embed.Fields[2].Value)

	// Rescheduled for the next midnight.
	require.Eventually(t, func() bool { return clock.Pending() == 1 }, time.Second, 5*time.Millisecond)
}

func TestDailyReporter_DisabledWebhook(t *testing.T) {
	agg, clock := newTestAggregator(newFakeSource())
	history := NewRefreshHistory(openTestDB(t), clock, 7)
	reporter := NewDailyReporter(history, agg, NewWebhookService(clock), clock, time.UTC)

	assert.NoError(t, reporter.SendReport())
}

func TestDailyReporter_NextMidnight(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	reporter := NewDailyReporter(nil, nil, nil, nil, tokyo)

	// 20:00 UTC is already 05:00 the next day in JST.
	next := reporter.nextMidnight(time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, tokyo), next)

	exact := reporter.nextMidnight(time.Date(2025, 3, 12, 0, 0, 0, 0, tokyo))
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, tokyo), exact)
}
