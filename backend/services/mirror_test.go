package services

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"cwatch-dashboard/backend/errors"
	"cwatch-dashboard/backend/models"
)

func newRedisMirrorForTest(t *testing.T, ttl time.Duration) *RedisMirror {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := rediscontainer.Run(ctx, "redis:7.2-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err, "container host")
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err, "container mapped port")

	mirror, err := NewRedisMirror(ctx, RedisMirrorConfig{
		Addr: net.JoinHostPort(host, port.Port()),
		TTL:  ttl,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })
	return mirror
}

func TestNewRedisMirror_RequiresAddr(t *testing.T) {
	_, err := NewRedisMirror(context.Background(), RedisMirrorConfig{})
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
}

func TestNewRedisMirror_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err = NewRedisMirror(ctx, RedisMirrorConfig{Addr: addr})
	require.Error(t, err)
}

func TestRedisMirror_LoadMissing(t *testing.T) {
	mirror := newRedisMirrorForTest(t, time.Minute)

	_, err := mirror.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))
}

func TestRedisMirror_AttachStoresCommittedState(t *testing.T) {
	mirror := newRedisMirrorForTest(t, time.Minute)
	agg, _ := newTestAggregator(newFakeSource())
	mirror.Attach(agg)

	agg.Refresh(context.Background(), TriggerPoll)

	state, err := mirror.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseReady, state.Phase)
	assert.Equal(t, uint64(1), state.Generation)
	assert.Len(t, state.Traffic, SeriesHours)
	require.Len(t, state.Blocked, 1)
	assert.Equal(t, "198.51.100.7", state.Blocked[0].IP)

	ttl, err := mirror.client.TTL(context.Background(), StateKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
