package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cwatch-dashboard/backend/errors"
	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

// discordStub captures webhook payloads.
type discordStub struct {
	mu       sync.Mutex
	payloads []DiscordWebhookPayload
	status   int
}

func newDiscordStub(t *testing.T) (*discordStub, string) {
	t.Helper()
	stub := &discordStub{status: http.StatusNoContent}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload DiscordWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		stub.mu.Lock()
		stub.payloads = append(stub.payloads, payload)
		status := stub.status
		stub.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return stub, srv.URL
}

func (s *discordStub) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, 0, len(s.payloads))
	for _, p := range s.payloads {
		for _, e := range p.Embeds {
			titles = append(titles, e.Title)
		}
	}
	return titles
}

func (s *discordStub) embed(i int) DiscordEmbed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloads[i].Embeds[0]
}

func TestWebhookService_Disabled(t *testing.T) {
	w := NewWebhookService(nil)
	assert.False(t, w.IsEnabled())
	assert.NoError(t, w.SendBlockAlert("203.0.113.5", "DE"))
	assert.Error(t, w.SendTestAlert())
}

func TestWebhookService_SendStaleAlert(t *testing.T) {
	stub, url := newDiscordStub(t)
	clock := system.NewVirtualClock(aggNow)
	w := NewWebhookService(clock)
	w.SetWebhookURL(url)

	require.NoError(t, w.SendStaleAlert(3, "GET /stats: 502 Bad Gateway", aggNow.Add(-2*time.Minute)))

	require.Len(t, stub.titles(), 1)
	embed := stub.embed(0)
	assert.Contains(t, embed.Title, "Dashboard Data Stale")
	assert.Equal(t, ColorRed, embed.Color)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "3", embed.Fields[0].Value)
	assert.Equal(t, "2 minutes ago", embed.Fields[1].Value)
	assert.Equal(t, "GET /stats: 502 Bad Gateway", embed.Fields[2].Value)
	assert.Equal(t, "2025-03-10T12:30:00Z", embed.Timestamp)
}

func TestWebhookService_ErrorStatus(t *testing.T) {
	stub, url := newDiscordStub(t)
	stub.status = http.StatusTooManyRequests
	w := NewWebhookService(nil)
	w.SetWebhookURL(url)

	err := w.SendUnblockAlert("203.0.113.5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func newTestMonitor(t *testing.T, threshold int) (*StaleMonitor, *discordStub, *Aggregator, *fakeSource) {
	t.Helper()
	stub, url := newDiscordStub(t)
	src := newFakeSource()
	agg, clock := newTestAggregator(src)

	webhook := NewWebhookService(clock)
	webhook.SetWebhookURL(url)
	monitor := NewStaleMonitor(webhook, clock, threshold)
	monitor.Attach(agg)
	monitor.Start()
	t.Cleanup(monitor.Stop)
	return monitor, stub, agg, src
}

func TestStaleMonitor_AlertsOnceAfterThreshold(t *testing.T) {
	monitor, stub, agg, src := newTestMonitor(t, 3)
	ctx := context.Background()

	agg.Refresh(ctx, TriggerPoll)
	src.set(func(f *fakeSource) { f.fail["stats"] = errors.New(errors.KindUnavailable, "GET /stats: 502") })

	agg.Refresh(ctx, TriggerPoll)
	agg.Refresh(ctx, TriggerPoll)
	assert.Equal(t, 2, monitor.Failures())

	agg.Refresh(ctx, TriggerPoll)
	agg.Refresh(ctx, TriggerPoll)
	assert.Equal(t, 4, monitor.Failures())

	require.Eventually(t, func() bool { return len(stub.titles()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, stub.titles()[0], "Stale")
	assert.Equal(t, "3", stub.embed(0).Fields[0].Value)

	src.set(func(f *fakeSource) { delete(f.fail, "stats") })
	agg.Refresh(ctx, TriggerPoll)
	assert.Zero(t, monitor.Failures())

	require.Eventually(t, func() bool { return len(stub.titles()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, stub.titles()[1], "Recovered")

	// No duplicate alerts afterwards.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, stub.titles(), 2)
}

func TestStaleMonitor_NoRecoveryWithoutAlert(t *testing.T) {
	_, stub, agg, src := newTestMonitor(t, 3)
	ctx := context.Background()

	src.set(func(f *fakeSource) { f.fail["blocked"] = errors.New(errors.KindTimeout, "timeout") })
	agg.Refresh(ctx, TriggerPoll)
	src.set(func(f *fakeSource) { delete(f.fail, "blocked") })
	agg.Refresh(ctx, TriggerPoll)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, stub.titles())
}

func TestStaleMonitor_MutationAlerts(t *testing.T) {
	_, stub, agg, src := newTestMonitor(t, 3)
	src.set(func(f *fakeSource) {
		f.blocked = append(f.blocked, models.IPRecord{IP: "203.0.113.5", Country: "NL"})
	})

	agg.Block(context.Background(), "203.0.113.5")
	require.Eventually(t, func() bool { return len(stub.titles()) == 1 }, time.Second, 5*time.Millisecond)
	embed := stub.embed(0)
	assert.Contains(t, embed.Title, "IP Blocked")
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "NL", embed.Fields[1].Value)

	agg.Unblock(context.Background(), "203.0.113.5")
	require.Eventually(t, func() bool { return len(stub.titles()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, stub.titles()[1], "IP Unblocked")

	// Failed mutations are not announced.
	src.set(func(f *fakeSource) { f.mutateErr = errors.New(errors.KindNotFound, "unknown ip") })
	agg.Block(context.Background(), "192.0.2.9")
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, stub.titles(), 2)
}

func TestStaleMonitor_DisabledWebhookQueuesNothing(t *testing.T) {
	src := newFakeSource()
	agg, clock := newTestAggregator(src)
	monitor := NewStaleMonitor(NewWebhookService(clock), clock, 1)
	monitor.Attach(agg)

	src.set(func(f *fakeSource) { f.fail["stats"] = errors.New(errors.KindUnavailable, "down") })
	agg.Refresh(context.Background(), TriggerPoll)

	assert.Equal(t, 1, monitor.Failures())
	assert.Empty(t, monitor.alerts)
}
