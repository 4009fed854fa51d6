package classify

import (
	"context"
	"math/rand"
	"time"
)

// DefaultMaxAttempts is spec.md §4.6's default retry ceiling.
const DefaultMaxAttempts = 3

// jitterFraction is the "optional jitter ≤ 10%" from spec.md §4.6.
const jitterFraction = 0.10

// Recorder receives retry bookkeeping events, implemented by
// internal/stats.Session. A small local interface keeps this package free
// of a dependency on stats, since stats has no need to know about
// classify.
type Recorder interface {
	RecordRecoverableError(filename string)
	RecordSuccessfulRetry()
}

// Retrier runs an operation with the exponential-backoff retry policy
// described in spec.md §4.6.
type Retrier struct {
	MaxAttempts int
	Recorder    Recorder
	Sleep       func(context.Context, time.Duration) error
}

// NewRetrier builds a Retrier with spec.md §4.6's default attempt count.
// recorder may be nil, in which case retry events are simply not tallied.
func NewRetrier(maxAttempts int, recorder Recorder) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Retrier{
		MaxAttempts: maxAttempts,
		Recorder:    recorder,
		Sleep:       sleepWithCancellation,
	}
}

// Execute runs op up to MaxAttempts times per spec.md §4.6:
// classify failures, sleep with exponential backoff plus jitter on
// recoverable ones, and give up immediately on a non-recoverable
// classification or an exhausted attempt budget.
func (r *Retrier) Execute(ctx context.Context, filename string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 && r.Recorder != nil {
				r.Recorder.RecordSuccessfulRetry()
			}
			return nil
		}

		lastErr = err
		verdict := Classify(err)

		if !verdict.Recoverable || !verdict.RetryRecommended || attempt == r.MaxAttempts {
			return err
		}

		if r.Recorder != nil {
			r.Recorder.RecordRecoverableError(filename)
		}

		backoff := exponentialBackoff(verdict.SuggestedBackoffSeconds, attempt)
		if err := r.Sleep(ctx, backoff); err != nil {
			return err
		}
	}

	return lastErr
}

// exponentialBackoff computes backoff · 2^(attempt-1) plus up to 10%
// jitter, per spec.md §4.6.
func exponentialBackoff(baseSeconds float64, attempt int) time.Duration {
	multiplier := 1 << uint(attempt-1)
	seconds := baseSeconds * float64(multiplier)
	jitter := seconds * jitterFraction * rand.Float64()
	return time.Duration((seconds + jitter) * float64(time.Second))
}

// sleepWithCancellation sleeps for d, returning early with ctx.Err() if
// the context is cancelled mid-sleep (spec.md §4.6 "a session-wide
// cancellation signal ... aborts pending sleeps").
func sleepWithCancellation(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
