// package loader
//
// delivers batches to the destination with bounded retry, the executor
// never raises, it hands the outcome back for the orchestrator to fold in
package loader

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/baderkha/list-migrate/pkg/migrate/destination"
	"github.com/baderkha/list-migrate/pkg/migrate/schema"
)

// DefaultBackoff : base delay between attempts, grows linearly per attempt
const DefaultBackoff = 500 * time.Millisecond

// Outcome : what happened to one batch after retries were exhausted or it
// finally went through
type Outcome struct {
	Success  bool
	Attempts int
	LastErr  error
}

// Executor : retrying batch deliverer bound to one destination
type Executor struct {
	dest       destination.Destination
	retryCount int
	backoff    time.Duration
	timeout    time.Duration
	log        zerolog.Logger
}

func New(dest destination.Destination, retryCount int, log zerolog.Logger) *Executor {
	return &Executor{
		dest:       dest,
		retryCount: retryCount,
		backoff:    DefaultBackoff,
		log:        log,
	}
}

// WithBackoff : overrides the base backoff delay, mostly for tests
func (e *Executor) WithBackoff(d time.Duration) *Executor {
	e.backoff = d
	return e
}

// WithTimeout : caps each delivery attempt, a timed out attempt counts as
// a failed one and is eligible for retry
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	e.timeout = d
	return e
}

// Load : attempts the batch up to retryCount+1 times, same unmodified
// batch every attempt, linear backoff between attempts. Context
// cancellation or deadline ends retrying early with the last error kept.
func (e *Executor) Load(ctx context.Context, listName string, rows []schema.TransformedRow) Outcome {
	var out Outcome
	for attempt := 1; attempt <= e.retryCount+1; attempt++ {
		out.Attempts = attempt
		err := e.insertOnce(ctx, listName, rows)
		if err == nil {
			out.Success = true
			out.LastErr = nil
			return out
		}
		out.LastErr = err
		e.log.Warn().
			Str("list", listName).
			Int("attempt", attempt).
			Int("max_attempts", e.retryCount+1).
			Err(err).
			Msg("batch insert failed")
		if attempt > e.retryCount {
			break
		}
		select {
		case <-ctx.Done():
			out.LastErr = ctx.Err()
			return out
		case <-time.After(time.Duration(attempt) * e.backoff):
		}
	}
	return out
}

func (e *Executor) insertOnce(ctx context.Context, listName string, rows []schema.TransformedRow) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.dest.InsertItems(ctx, listName, rows)
}
