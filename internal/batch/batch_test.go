package batch

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
	"github.com/ricesearch/rice-insight/internal/pkg/logger"
)

func fastConfig() Config {
	return Config{
		Concurrency:    3,
		Timeout:        time.Second,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestRun_OrderAndValues(t *testing.T) {
	inputs := []int{1, 2, 3, 4, 5}
	got := Run(context.Background(), fastConfig(), logger.New("error", "text"), inputs,
		func(ctx context.Context, in int) (int, error) { return in * in, nil })

	for i, r := range got {
		if r.Err != nil {
			t.Fatalf("item %d failed: %v", i, r.Err)
		}
		if r.Index != i || r.Value != inputs[i]*inputs[i] {
			t.Errorf("result %d = %+v", i, r)
		}
		if r.Attempts != 1 {
			t.Errorf("item %d attempts = %d, want 1", i, r.Attempts)
		}
	}
}

func TestRun_Empty(t *testing.T) {
	got := Run(context.Background(), fastConfig(), nil, []string{},
		func(ctx context.Context, in string) (string, error) { return in, nil })
	if len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestRun_ConcurrencyBound(t *testing.T) {
	var inFlight, peak int32
	cfg := fastConfig()
	cfg.Concurrency = 2

	Run(context.Background(), cfg, nil, make([]int, 8), func(ctx context.Context, _ int) (int, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return 0, nil
	})

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestRun_RetriesTransient(t *testing.T) {
	var calls int32
	got := Run(context.Background(), fastConfig(), nil, []string{"q"}, func(ctx context.Context, in string) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", errors.TransientError("embed", stderrors.New("connection reset"))
		}
		return "ok", nil
	})

	if got[0].Err != nil || got[0].Value != "ok" {
		t.Fatalf("expected success after retries, got %+v", got[0])
	}
	if got[0].Attempts != 3 {
		t.Errorf("attempts = %d, want 3", got[0].Attempts)
	}
}

func TestRun_NoRetryForPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"validation", errors.ValidationError("bad query")},
		{"not found", errors.NotFoundError("snapshot")},
		{"forbidden", errors.New(errors.CodeForbidden, "denied")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Run(context.Background(), fastConfig(), nil, []int{0}, func(ctx context.Context, _ int) (int, error) {
				return 0, tt.err
			})
			if got[0].Attempts != 1 {
				t.Errorf("attempts = %d, want 1", got[0].Attempts)
			}
			if errors.CodeOf(got[0].Err) != errors.CodeOf(tt.err) {
				t.Errorf("error = %v, want %v", got[0].Err, tt.err)
			}
		})
	}
}

func TestRun_TimeoutFailsOnlyThatItem(t *testing.T) {
	cfg := fastConfig()
	cfg.Timeout = 20 * time.Millisecond
	cfg.MaxRetries = 0

	got := Run(context.Background(), cfg, nil, []int{0, 1, 2}, func(ctx context.Context, in int) (int, error) {
		if in == 1 {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return in, nil
	})

	if errors.CodeOf(got[1].Err) != errors.CodeTimeout {
		t.Errorf("item 1 error = %v, want TIMEOUT", got[1].Err)
	}
	if got[0].Err != nil || got[2].Err != nil {
		t.Errorf("siblings must succeed: %v, %v", got[0].Err, got[2].Err)
	}
}

func TestRun_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := Run(ctx, fastConfig(), nil, []int{0, 1}, func(ctx context.Context, in int) (int, error) {
		return in, nil
	})
	for _, r := range got {
		if !stderrors.Is(r.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", r.Err)
		}
		if r.Attempts != 0 {
			t.Errorf("no attempt should run, got %d", r.Attempts)
		}
	}
}

func TestNextBackoff(t *testing.T) {
	if got := nextBackoff(100*time.Millisecond, time.Second); got != 200*time.Millisecond {
		t.Errorf("nextBackoff = %v, want 200ms", got)
	}
	if got := nextBackoff(800*time.Millisecond, time.Second); got != time.Second {
		t.Errorf("nextBackoff = %v, want capped 1s", got)
	}
}
