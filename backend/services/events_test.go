package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cwatch-dashboard/backend/errors"
	"cwatch-dashboard/backend/system"
)

func TestEventLog_NewestFirstAndBounded(t *testing.T) {
	log := NewEventLog(system.NewVirtualClock(aggNow))

	for i := 0; i < maxEvents+5; i++ {
		log.Add(EventInfo, fmt.Sprintf("event %d", i))
	}

	events := log.Events()
	require.Len(t, events, maxEvents)
	assert.Equal(t, fmt.Sprintf("event %d", maxEvents+4), events[0].Message)
	assert.Equal(t, "event 5", events[maxEvents-1].Message)
	assert.Equal(t, "12:30:00", events[0].Time)

	// Callers get a copy.
	events[0].Message = "changed"
	assert.NotEqual(t, "changed", log.Events()[0].Message)
}

func TestEventLog_AttachTransitions(t *testing.T) {
	src := newFakeSource()
	agg, clock := newTestAggregator(src)
	log := NewEventLog(clock)
	log.Attach(agg)

	ctx := context.Background()
	agg.Refresh(ctx, TriggerPoll)
	assert.Empty(t, log.Events(), "fresh cycles are not logged")

	src.set(func(f *fakeSource) { f.fail["stats"] = errors.New(errors.KindUnavailable, "GET /stats: 502") })
	agg.Refresh(ctx, TriggerPoll)
	agg.Refresh(ctx, TriggerPoll)

	events := log.Events()
	require.Len(t, events, 1, "only the transition to stale is logged")
	assert.Equal(t, EventWarning, events[0].Type)
	assert.Contains(t, events[0].Message, "stale")

	src.set(func(f *fakeSource) { delete(f.fail, "stats") })
	agg.Refresh(ctx, TriggerPoll)

	events = log.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventSuccess, events[0].Type)
	assert.Contains(t, events[0].Message, "recovered")
}

func TestEventLog_AttachMutations(t *testing.T) {
	src := newFakeSource()
	agg, clock := newTestAggregator(src)
	log := NewEventLog(clock)
	log.Attach(agg)

	agg.Block(context.Background(), "203.0.113.5")
	agg.MarkSafe(context.Background(), "203.0.113.6")

	src.set(func(f *fakeSource) { f.mutateErr = errors.New(errors.KindValidation, "400 Bad Request") })
	agg.Unblock(context.Background(), "198.51.100.7")

	events := log.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventError, events[0].Type)
	assert.Contains(t, events[0].Message, "unblock 198.51.100.7 failed")
	assert.Equal(t, "Marked safe 203.0.113.6", events[1].Message)
	assert.Equal(t, "Blocked 203.0.113.5", events[2].Message)
}
