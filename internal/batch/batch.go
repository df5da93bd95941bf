// Package batch runs many independent operations with bounded concurrency,
// a per-item timeout and retry with exponential backoff for transient failures.
package batch

import (
	"context"
	stderrors "errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

// Config controls a batch run.
type Config struct {
	// Concurrency bounds the operations in flight.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Timeout bounds each attempt of one item (0 disables).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// InitialBackoff is the wait before the first retry; it doubles per retry
	// up to MaxBackoff.
	InitialBackoff time.Duration `json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

// DefaultConfig returns batch defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:    4,
		Timeout:        30 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// Result is the outcome of one item, at the item's input index.
type Result[T any] struct {
	Index    int
	Value    T
	Err      error
	Attempts int
	Duration time.Duration
}

// Run applies fn to every input. A failing item never cancels its siblings.
// Results are returned in input order. Run only returns early, with the
// remaining items failed, when ctx is done.
func Run[In, Out any](ctx context.Context, cfg Config, log *logger.Logger, inputs []In, fn func(ctx context.Context, in In) (Out, error)) []Result[Out] {
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithComponent("batch")

	results := make([]Result[Out], len(inputs))
	if len(inputs) == 0 {
		return results
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i := range inputs {
		g.Go(func() error {
			results[i] = runItem(ctx, cfg, i, inputs[i], fn)
			if results[i].Err != nil {
				log.WithContext(ctx).Warn("Batch item failed",
					"index", i,
					"attempts", results[i].Attempts,
					"code", errors.CodeOf(results[i].Err),
					"error", results[i].Err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func runItem[In, Out any](ctx context.Context, cfg Config, index int, in In, fn func(ctx context.Context, in In) (Out, error)) Result[Out] {
	start := time.Now()
	res := Result[Out]{Index: index}
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if res.Err == nil {
				res.Err = err
			}
			break
		}

		res.Attempts++
		res.Value, res.Err = attemptItem(ctx, cfg.Timeout, in, fn)
		if res.Err == nil || !errors.IsRetryable(res.Err) || attempt == cfg.MaxRetries {
			break
		}

		if !sleep(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, cfg.MaxBackoff)
	}

	res.Duration = time.Since(start)
	return res
}

// attemptItem runs one attempt under the per-item timeout. An attempt that
// exceeds its own deadline is reported as a TIMEOUT.
func attemptItem[In, Out any](ctx context.Context, timeout time.Duration, in In, fn func(ctx context.Context, in In) (Out, error)) (Out, error) {
	if timeout <= 0 {
		return fn(ctx, in)
	}

	itemCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := fn(itemCtx, in)
	if err != nil && ctx.Err() == nil && stderrors.Is(itemCtx.Err(), context.DeadlineExceeded) {
		if _, ok := errors.As(err); !ok {
			err = errors.Wrap(errors.CodeTimeout, "batch item timed out", err)
		}
	}
	return out, err
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if limit > 0 && next > limit {
		return limit
	}
	return next
}

// sleep waits for d or until ctx is done, reporting whether it slept fully.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
