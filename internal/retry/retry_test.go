package retry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/pagelens/internal/identity"
)

// recordingSleeper records requested waits without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.delays {
		total += d
	}
	return total
}

func noJitter(time.Duration) time.Duration { return 0 }

func TestPolicyDelay(t *testing.T) {
	t.Parallel()

	t.Run("doubles per attempt", func(t *testing.T) {
		t.Parallel()

		p := NewPolicy(WithJitterSource(noJitter))
		want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
		for i, w := range want {
			if got := p.Delay(i + 1); got != w {
				t.Errorf("Delay(%d) = %v, expected %v", i+1, got, w)
			}
		}
	})

	t.Run("jitter stays in range", func(t *testing.T) {
		t.Parallel()

		p := NewPolicy()
		for range 100 {
			d := p.Delay(1)
			if d < 2*time.Second || d >= 3*time.Second {
				t.Fatalf("Delay(1) = %v, expected within [2s, 3s)", d)
			}
		}
	})
}

func TestDoWithState(t *testing.T) {
	t.Parallel()

	errFlaky := errors.New("connection reset")

	t.Run("fails twice then succeeds with two rotations", func(t *testing.T) {
		t.Parallel()

		pool, err := identity.NewPool(
			[]string{"http://p1:8080", "http://p2:8080", "http://p3:8080"},
			[]string{"ua-1", "ua-2", "ua-3"},
		)
		if err != nil {
			t.Fatalf("failed to create pool: %v", err)
		}
		sleeper := &recordingSleeper{}
		p := NewPolicy(WithSleeper(sleeper.Sleep), WithJitterSource(noJitter))

		var seen []identity.Identity
		got, final, err := DoWithState(context.Background(), p, pool.First(), pool.Rotate,
			func(_ context.Context, id identity.Identity) (string, error) {
				seen = append(seen, id)
				if len(seen) < 3 {
					return "", errFlaky
				}
				return "<html></html>", nil
			})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "<html></html>" {
			t.Errorf("got %q", got)
		}
		if pool.ProxyRotations() != 2 || pool.UserAgentRotations() != 2 {
			t.Errorf("got %d/%d rotations, expected 2/2", pool.ProxyRotations(), pool.UserAgentRotations())
		}
		if final.ProxyIndex() != 2 || final.UserAgentIndex() != 2 {
			t.Errorf("final identity at %d/%d, expected 2/2", final.ProxyIndex(), final.UserAgentIndex())
		}
		if seen[0].Proxy != "http://p1:8080" || seen[1].Proxy != "http://p2:8080" || seen[2].Proxy != "http://p3:8080" {
			t.Errorf("unexpected identities: %v", seen)
		}
		if sleeper.Total() != 6*time.Second {
			t.Errorf("slept %v, expected 6s", sleeper.Total())
		}
	})

	t.Run("exhausts after max attempts", func(t *testing.T) {
		t.Parallel()

		sleeper := &recordingSleeper{}
		p := NewPolicy(WithMaxAttempts(3), WithSleeper(sleeper.Sleep))

		attempts := 0
		_, err := Do(context.Background(), p, func(context.Context) (int, error) {
			attempts++
			return 0, errFlaky
		})
		if attempts != 3 {
			t.Errorf("got %d attempts, expected 3", attempts)
		}
		if !errors.Is(err, ErrExhausted) {
			t.Fatalf("expected ErrExhausted, got %v", err)
		}
		if !errors.Is(err, errFlaky) {
			t.Errorf("expected the last error to be wrapped, got %v", err)
		}
		var exhausted *ExhaustedRetriesError
		if !errors.As(err, &exhausted) || exhausted.Attempts != 3 {
			t.Errorf("unexpected error value %#v", err)
		}
		if got := err.Error(); !strings.Contains(got, errFlaky.Error()) {
			t.Errorf("message %q does not contain %q", got, errFlaky.Error())
		}
		if sleeper.Total() < 6*time.Second {
			t.Errorf("slept %v, expected at least 6s", sleeper.Total())
		}
		if len(sleeper.delays) != 2 {
			t.Errorf("got %d waits, expected 2", len(sleeper.delays))
		}
	})

	t.Run("first attempt success never waits", func(t *testing.T) {
		t.Parallel()

		sleeper := &recordingSleeper{}
		p := NewPolicy(WithSleeper(sleeper.Sleep))
		got, err := Do(context.Background(), p, func(context.Context) (int, error) { return 7, nil })
		if err != nil || got != 7 {
			t.Fatalf("got %d, %v", got, err)
		}
		if len(sleeper.delays) != 0 {
			t.Errorf("unexpected waits %v", sleeper.delays)
		}
	})

	t.Run("non-retryable error is returned unwrapped", func(t *testing.T) {
		t.Parallel()

		errPermanent := errors.New("bad input")
		p := NewPolicy(
			WithSleeper((&recordingSleeper{}).Sleep),
			WithRetryable(func(err error) bool { return !errors.Is(err, errPermanent) }),
		)
		attempts := 0
		_, err := Do(context.Background(), p, func(context.Context) (int, error) {
			attempts++
			return 0, errPermanent
		})
		if attempts != 1 {
			t.Errorf("got %d attempts, expected 1", attempts)
		}
		if err != errPermanent { //nolint:errorlint // identity check intended
			t.Errorf("got %v, expected the original error", err)
		}
	})

	t.Run("cancellation during wait stops retrying", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		p := NewPolicy(WithSleeper(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}))
		attempts := 0
		_, err := Do(ctx, p, func(context.Context) (int, error) {
			attempts++
			return 0, errFlaky
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("got %d attempts, expected 1", attempts)
		}
	})

	t.Run("on retry hook sees each failure", func(t *testing.T) {
		t.Parallel()

		var attemptsSeen []int
		p := NewPolicy(
			WithMaxAttempts(4),
			WithSleeper((&recordingSleeper{}).Sleep),
			WithJitterSource(noJitter),
			WithOnRetry(func(attempt int, _ error, delay time.Duration) {
				attemptsSeen = append(attemptsSeen, attempt)
				if want := time.Second << attempt; delay != want {
					t.Errorf("attempt %d delay %v, expected %v", attempt, delay, want)
				}
			}),
		)
		_, _ = Do(context.Background(), p, func(context.Context) (int, error) { return 0, errFlaky })
		if len(attemptsSeen) != 3 || attemptsSeen[0] != 1 || attemptsSeen[2] != 3 {
			t.Errorf("hook saw attempts %v, expected [1 2 3]", attemptsSeen)
		}
	})
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
