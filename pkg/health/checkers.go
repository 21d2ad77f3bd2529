package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// Pinger is anything with a connectivity probe, such as *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck wraps p.Ping.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// NonEmptyCheck fails when count reports zero items or an error. Used to keep
// an instance out of rotation until the offer store has been seeded.
func NonEmptyCheck(what string, count func(ctx context.Context) (int, error)) CheckFunc {
	return func(ctx context.Context) error {
		n, err := count(ctx)
		if err != nil {
			return errors.Wrapf(err, "count %s", what)
		}
		if n == 0 {
			return errors.Errorf("no %s loaded", what)
		}
		return nil
	}
}
