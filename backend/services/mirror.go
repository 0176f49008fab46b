package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cwatch-dashboard/backend/errors"
	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

const (
	// StateKey is where the committed view-state is mirrored.
	StateKey = "cwatch:dashboard:state"

	defaultMirrorTimeout  = 2 * time.Second
	defaultMirrorRetries  = 3
	defaultMirrorPoolSize = 4
)

// RedisMirrorConfig configures the Redis state mirror.
type RedisMirrorConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL of the mirrored key. Readers treat a missing key as "gateway down".
	TTL time.Duration
}

// RedisMirror copies every committed view-state into Redis so other
// processes can read the dashboard without polling the CWatch API.
type RedisMirror struct {
	client redis.UniversalClient
	ttl    time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewRedisMirror connects to Redis and verifies the connection.
func NewRedisMirror(ctx context.Context, cfg RedisMirrorConfig) (*RedisMirror, error) {
	if cfg.Addr == "" {
		return nil, errors.New(errors.KindValidation, "redis address is required")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     defaultMirrorPoolSize,
		MaxRetries:   defaultMirrorRetries,
		DialTimeout:  defaultMirrorTimeout,
		ReadTimeout:  defaultMirrorTimeout,
		WriteTimeout: defaultMirrorTimeout,
	})

	m := &RedisMirror{client: client, ttl: cfg.TTL}
	if err := m.pingWithRetry(ctx, defaultMirrorRetries); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.KindUnavailable, "redis ping failed")
	}
	return m, nil
}

func (m *RedisMirror) pingWithRetry(ctx context.Context, retries int) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		lastErr = m.client.Ping(ctx).Err()
		if lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
		}
	}
	return lastErr
}

// Attach writes the state after every fresh or stale refresh of agg, so
// readers of the mirror see the stale flag too.
func (m *RedisMirror) Attach(agg *Aggregator) {
	agg.OnRefresh(func(res RefreshResult, state models.ViewState) {
		if res.Outcome != models.OutcomeFresh && res.Outcome != models.OutcomeStale {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), defaultMirrorTimeout)
		defer cancel()
		if err := m.Store(ctx, state); err != nil {
			system.Warn("Failed to mirror dashboard state to redis: %v", err)
		}
	})
}

// Store writes state under StateKey.
func (m *RedisMirror) Store(ctx context.Context, state models.ViewState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal view state: %w", err)
	}
	return m.client.Set(ctx, StateKey, data, m.ttl).Err()
}

// Load reads the mirrored state. A missing key is KindNotFound.
func (m *RedisMirror) Load(ctx context.Context) (models.ViewState, error) {
	var state models.ViewState
	data, err := m.client.Get(ctx, StateKey).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return state, errors.New(errors.KindNotFound, "no dashboard state in redis")
	}
	if err != nil {
		return state, errors.WrapContext(err, errors.KindUnavailable, "read dashboard state")
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, errors.Wrap(err, errors.KindValidation, "decode dashboard state")
	}
	return state, nil
}

// Close closes the Redis client.
func (m *RedisMirror) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.client.Close()
	})
	return m.closeErr
}
