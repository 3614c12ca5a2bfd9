package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	// DefaultMaxAttempts is used when no attempt count is configured.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is multiplied by 2^attempt.
	DefaultBaseDelay = time.Second
	// DefaultMaxJitter bounds the random part of each delay.
	DefaultMaxJitter = time.Second
)

// ErrExhausted is the sentinel matched by ExhaustedRetriesError.
var ErrExhausted = errors.New("retries exhausted")

// ExhaustedRetriesError wraps the last error after every attempt failed.
// Its message contains the message of the last error.
type ExhaustedRetriesError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the last underlying error.
func (e *ExhaustedRetriesError) Unwrap() error { return e.Err }

// Is reports whether target is ErrExhausted.
func (e *ExhaustedRetriesError) Is(target error) bool { return target == ErrExhausted }

// Policy controls how often and how patiently an operation is retried.
// A Policy is immutable after construction and may be shared.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxJitter   time.Duration
	retryable   func(error) bool
	sleep       func(ctx context.Context, d time.Duration) error
	jitter      func(limit time.Duration) time.Duration
	onRetry     func(attempt int, err error, delay time.Duration)
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the total number of attempts, including the first.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the delay unit that is doubled per attempt.
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d >= 0 {
			p.baseDelay = d
		}
	}
}

// WithMaxJitter sets the upper bound of the random delay component.
func WithMaxJitter(d time.Duration) Option {
	return func(p *Policy) {
		if d >= 0 {
			p.maxJitter = d
		}
	}
}

// WithRetryable decides which errors are worth another attempt. Errors for
// which fn returns false are returned immediately, without wrapping.
func WithRetryable(fn func(error) bool) Option {
	return func(p *Policy) {
		p.retryable = fn
	}
}

// WithSleeper replaces the function used to wait between attempts.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Policy) {
		p.sleep = fn
	}
}

// WithJitterSource replaces the random jitter generator. fn must return a
// duration in [0, limit).
func WithJitterSource(fn func(limit time.Duration) time.Duration) Option {
	return func(p *Policy) {
		p.jitter = fn
	}
}

// WithOnRetry registers a hook called after a failed attempt, before the
// wait. It may be called from several goroutines at once.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(p *Policy) {
		p.onRetry = fn
	}
}

// NewPolicy returns a Policy with three attempts, a one second base delay
// and up to one second of jitter.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxJitter:   DefaultMaxJitter,
		retryable:   func(error) bool { return true },
		sleep:       sleepContext,
		jitter:      uniformJitter,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts returns the total number of attempts.
func (p *Policy) MaxAttempts() int { return p.maxAttempts }

// Delay returns the wait after attempt (1-indexed) has failed.
func (p *Policy) Delay(attempt int) time.Duration {
	d := p.baseDelay << attempt
	if p.maxJitter > 0 {
		d += p.jitter(p.maxJitter)
	}
	return d
}

// Do runs op until it succeeds or the attempts are used up.
func Do[T any](ctx context.Context, p *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	result, _, err := DoWithState(ctx, p, struct{}{},
		func(s struct{}) struct{} { return s },
		func(ctx context.Context, _ struct{}) (T, error) { return op(ctx) },
	)
	return result, err
}

// DoWithState runs op with state, and after each retryable failure waits
// and calls next to derive the state of the following attempt. It returns
// the result together with the state of the attempt that produced it.
//
// When the last attempt fails the error is an *ExhaustedRetriesError
// wrapping the final failure. Non-retryable errors and context errors are
// returned as they are.
func DoWithState[T, S any](ctx context.Context, p *Policy, state S, next func(S) S, op func(ctx context.Context, state S) (T, error)) (T, S, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, state, err
		}

		result, err := op(ctx, state)
		if err == nil {
			return result, state, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, state, ctxErr
		}
		if !p.retryable(err) {
			return zero, state, err
		}
		lastErr = err

		if attempt == p.maxAttempts {
			break
		}

		delay := p.Delay(attempt)
		if p.onRetry != nil {
			p.onRetry(attempt, err, delay)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return zero, state, err
		}
		state = next(state)
	}

	return zero, state, &ExhaustedRetriesError{Attempts: p.maxAttempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func uniformJitter(limit time.Duration) time.Duration {
	return rand.N(limit)
}
