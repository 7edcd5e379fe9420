// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry runs a fallible step a bounded number of times with a fixed
// backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BackoffScale multiplies every backoff wait. Tests set it to 0 to avoid
// real sleeps.
var BackoffScale = 1.0

// ErrExhausted is wrapped by the error Do returns once every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds a retried step.
type Policy struct {
	// Attempts is the total number of tries, including the first (min 1).
	Attempts int

	// Backoff is the fixed wait between two attempts.
	Backoff time.Duration

	// Timeout bounds the whole loop, backoffs included. Zero means none.
	Timeout time.Duration
}

// Do calls fn until it succeeds, the attempts are used up, or ctx ends.
// fn receives the loop context (carrying Timeout) and the 1-based attempt
// number. onRetry, when non-nil, is called after each failed attempt that
// will be retried.
//
// The returned count is the number of times fn ran. When every attempt
// failed the error wraps both ErrExhausted and the last failure. When the
// context ends first the context error is returned, wrapped with the last
// failure if there was one.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error, onRetry func(attempt int, err error)) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, stopped(err, last)
		}

		last = fn(ctx, attempt)
		if last == nil {
			return attempt, nil
		}
		if attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, last)
		}

		wait := time.Duration(float64(p.Backoff) * BackoffScale)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, stopped(ctx.Err(), last)
		case <-timer.C:
		}
	}
	return attempts, fmt.Errorf("%w after %d attempt(s): %w", ErrExhausted, attempts, last)
}

func stopped(ctxErr, last error) error {
	if last == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (last failure: %w)", ctxErr, last)
}
