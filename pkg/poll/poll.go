// Package poll waits for remote asynchronous jobs to reach a terminal state.
//
// Remote providers (video transcoding, master-file export) expose status
// endpoints that converge eventually. Until waits on such a status with a
// fixed interval and a hard attempt budget, so a caller always gets an
// answer within MaxAttempts * Interval of wall clock.
package poll

import (
	"context"
	"errors"
	"time"
)

// Verdict is what a single status check reports back.
type Verdict int

const (
	// Pending means the job has not reached a terminal state yet; keep polling.
	Pending Verdict = iota
	// Ready means the predicate is satisfied and the payload is valid.
	Ready
	// Errored means the job reached a terminal failure state.
	Errored
)

// Status is the terminal outcome of a whole poll.
type Status int

const (
	StatusReady Status = iota
	StatusErrored
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusErrored:
		return "errored"
	default:
		return "timed_out"
	}
}

// ErrBudgetExhausted is carried by Result.Err when the attempt budget ran
// out before the predicate was satisfied.
var ErrBudgetExhausted = errors.New("poll: attempt budget exhausted")

// CheckFunc performs one status fetch. Returning Errored or a non-nil error
// stops the poll; returning Pending schedules another attempt after the
// configured interval. The payload is only meaningful alongside Ready.
type CheckFunc[T any] func(ctx context.Context, attempt int) (T, Verdict, error)

type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// Result is the discriminated outcome of Until.
type Result[T any] struct {
	Status  Status
	Payload T
	Err     error
}

// Until runs check every cfg.Interval until it reports Ready or Errored, the
// attempt budget is spent, or ctx is cancelled. The wait between attempts is
// a timer wait, never a spin, and cancellation interrupts it immediately.
func Until[T any](ctx context.Context, cfg Config, check CheckFunc[T]) Result[T] {
	var zero T

	if cfg.MaxAttempts <= 0 {
		return Result[T]{Status: StatusTimedOut, Err: ErrBudgetExhausted}
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		payload, verdict, err := check(ctx, attempt)
		if err != nil {
			return Result[T]{Status: StatusErrored, Err: err}
		}
		switch verdict {
		case Ready:
			return Result[T]{Status: StatusReady, Payload: payload}
		case Errored:
			return Result[T]{Status: StatusErrored, Err: errors.New("poll: remote job reported terminal error")}
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		if err := sleep(ctx, cfg.Interval); err != nil {
			return Result[T]{Status: StatusErrored, Err: err}
		}
	}

	return Result[T]{Status: StatusTimedOut, Payload: zero, Err: ErrBudgetExhausted}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
