// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries      int                          // Retries after the first attempt
	InitialInterval time.Duration                // Delay before the first retry
	MaxInterval     time.Duration                // Cap on any single delay
	Multiplier      float64                      // Growth factor between delays
	MaxElapsedTime  time.Duration                // Give up when the next delay would pass this
	Jitter          bool                         // Add up to 25% random jitter
	OnRetry         func(attempt int, err error) // Called before each retry
}

// LLMRetryConfig returns the backoff used against model APIs. maxRetries
// comes from the llm.max_retries setting; negative values mean no retries.
func LLMRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:      max(maxRetries, 0),
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  2 * time.Minute,
		Jitter:          true,
	}
}

// delay is InitialInterval * Multiplier^(attempt-1), capped at MaxInterval
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialInterval)
	for i := 1; i < attempt; i++ {
		d *= c.Multiplier
	}
	if c.Jitter {
		d += d * 0.25 * rand.Float64()
	}
	out := time.Duration(d)
	if c.MaxInterval > 0 {
		out = min(out, c.MaxInterval)
	}
	return out
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func(ctx context.Context) error

// RetryWithBackoff runs operation until it succeeds, returns an error that
// ClassifyError marks as not retryable, or the retry budget runs out.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation RetryableOperation) error {
	var lastErr error
	start := time.Now()

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := config.delay(attempt)
			if config.MaxElapsedTime > 0 && time.Since(start)+wait > config.MaxElapsedTime {
				return lastErr
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}
		if !ClassifyError(lastErr).IsRetryable() {
			return lastErr
		}
	}
	return lastErr
}

// RetryWithResult retries fn like RetryWithBackoff and returns the value of
// the successful attempt. When cb is not nil every attempt goes through it,
// and an open breaker ends the retries.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	attempt := func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			result = v
		}
		return err
	}
	op := attempt
	if cb != nil {
		op = func(ctx context.Context) error { return cb.Execute(ctx, attempt) }
	}
	err := RetryWithBackoff(ctx, config, op)
	return result, err
}
