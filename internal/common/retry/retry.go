package retry

import (
	"context"
	"time"

	"restaurant-system/internal/common/logger"
)

// Policy is a bounded retry with exponential backoff: the wait before
// attempt k+1 is Base * 2^(k-1), and nothing is waited after the last attempt.
// Constant waits Base every time instead.
type Policy struct {
	Attempts int
	Base     time.Duration
	Constant bool

	// Sleep waits for d or until ctx is done. Nil means a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
	Log   *logger.Logger
}

// Default is 3 attempts total with 1s, 2s between them.
func Default() Policy { return Policy{Attempts: 3, Base: time.Second} }

// Once runs the operation a single time. Used inside transactions, where the
// enclosing unit is what gets retried.
func Once() Policy { return Policy{Attempts: 1} }

// Fixed retries up to attempts times, waiting d between attempts.
func Fixed(attempts int, d time.Duration) Policy {
	return Policy{Attempts: attempts, Base: d, Constant: true}
}

// Delay returns the wait that follows failed attempt n (0-based).
func (p Policy) Delay(n int) time.Duration {
	if p.Constant {
		return p.Base
	}
	return p.Base * time.Duration(1<<n)
}

// Do runs op until it succeeds or the policy is exhausted. The last error is
// returned as is, never wrapped.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Value(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = wait
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if p.Log != nil {
			p.Log.Warn("operation_attempt_failed", err, map[string]any{"attempt": attempt + 1, "max_attempts": attempts})
		}
		if attempt == attempts-1 {
			break
		}
		if serr := sleep(ctx, p.Delay(attempt)); serr != nil {
			return zero, serr
		}
	}
	return zero, lastErr
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
