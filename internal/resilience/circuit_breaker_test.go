// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(ctx context.Context) error    { return ClassifyHTTPStatus(http.StatusServiceUnavailable, "") }
func succeeding(ctx context.Context) error { return nil }

// fakeClock is advanced by hand
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testBreaker(clock *fakeClock, failures, successes int) *CircuitBreaker {
	cfg := DefaultCircuitBreakerConfig("chat/completions test-model")
	cfg.FailureThreshold = failures
	cfg.SuccessThreshold = successes
	cfg.Timeout = time.Minute
	cfg.Now = clock.now
	return NewCircuitBreaker(cfg)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := testBreaker(clock, 2, 1)

	ctx := context.Background()
	assert.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateClosed, cb.State())
	assert.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateOpen, cb.State())

	clock.advance(20 * time.Second)
	err := cb.Execute(ctx, succeeding)
	require.Error(t, err)
	assert.True(t, IsCircuitBreakerError(err))
	assert.Contains(t, err.Error(), "chat/completions test-model is failing")
	assert.Contains(t, err.Error(), "40s")
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := testBreaker(clock, 2, 1)

	ctx := context.Background()
	_ = cb.Execute(ctx, failing)
	require.NoError(t, cb.Execute(ctx, succeeding))
	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_RejectedRequestsDoNotTrip(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := testBreaker(clock, 1, 1)

	for _, status := range []int{http.StatusUnauthorized, http.StatusBadRequest, http.StatusNotFound} {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return ClassifyHTTPStatus(status, "")
		})
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	var transitions []CircuitBreakerState
	clock := &fakeClock{t: time.Unix(0, 0)}
	cfg := DefaultCircuitBreakerConfig("embeddings m2-bert")
	cfg.FailureThreshold = 1
	cfg.SuccessThreshold = 2
	cfg.Timeout = time.Minute
	cfg.Now = clock.now
	cfg.OnStateChange = func(name string, from, to CircuitBreakerState) {
		assert.Equal(t, "embeddings m2-bert", name)
		transitions = append(transitions, to)
	}
	cb := NewCircuitBreaker(cfg)

	ctx := context.Background()
	_ = cb.Execute(ctx, failing)
	require.Equal(t, StateOpen, cb.State())

	clock.advance(time.Minute)
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []CircuitBreakerState{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := testBreaker(clock, 1, 1)

	ctx := context.Background()
	_ = cb.Execute(ctx, failing)
	clock.advance(time.Minute)
	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, succeeding)
	assert.True(t, IsCircuitBreakerError(err))
}

func TestCircuitBreaker_OneTrialAtATime(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := testBreaker(clock, 1, 1)

	ctx := context.Background()
	_ = cb.Execute(ctx, failing)
	clock.advance(time.Minute)

	var nested error
	err := cb.Execute(ctx, func(ctx context.Context) error {
		nested = cb.Execute(ctx, succeeding)
		return nil
	})
	require.NoError(t, err)
	require.Error(t, nested)
	assert.Contains(t, nested.Error(), "trial request is already in flight")
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakers_KeyedPerEndpoint(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var names []string
	set := NewBreakers(func(key string) CircuitBreakerConfig {
		names = append(names, key)
		cfg := DefaultCircuitBreakerConfig(key)
		cfg.FailureThreshold = 1
		cfg.Now = clock.now
		return cfg
	})

	chat := set.For("chat/completions model-a")
	assert.Same(t, chat, set.For("chat/completions model-a"))

	ctx := context.Background()
	_ = chat.Execute(ctx, failing)
	assert.Equal(t, StateOpen, chat.State())

	other := set.For("chat/completions model-b")
	assert.NotSame(t, chat, other)
	assert.NoError(t, other.Execute(ctx, succeeding))
	assert.NoError(t, set.For("embeddings model-a").Execute(ctx, succeeding))
	assert.Equal(t, []string{"chat/completions model-a", "chat/completions model-b", "embeddings model-a"}, names)
}

func TestRetryWithResult_StopsWhenBreakerOpens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := testBreaker(clock, 1, 1)

	calls := 0
	_, err := RetryWithResult(context.Background(), RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		Multiplier:      1.0,
	}, cb, func(ctx context.Context) (string, error) {
		calls++
		return "", ClassifyHTTPStatus(http.StatusBadGateway, "")
	})

	require.Error(t, err)
	assert.True(t, IsCircuitBreakerError(err))
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateOpen, cb.State())
}
