// Package bisect brackets a server's tick boundary by binary-searching
// over an artificial pre-probe delay. The round-trip time to a
// tick-driven server oscillates depending on where in the tick window a
// probe lands; shifting the landing point with a delay and bisecting on
// the observed round trip converges on the true min/max latency
// envelope.
//
// This is a hill-climbing heuristic, not a guaranteed-optimal search: it
// converges experimentally across trials rather than provably.
package bisect

import (
	"context"
	"time"

	"github.com/worldtick/worldtick/pkg/tick1/spec"
)

// Prober performs one timed probe exchange.
type Prober interface {
	Exchange(ctx context.Context) (time.Duration, error)
}

// Config configures a bisection run.
type Config struct {
	// Trials is the exact number of exchanges to run. Unlike the
	// sampler, a single aberrant sample never stops the run early.
	Trials int

	// Ceiling is the upper bound of the delay search window and the
	// bisection tie-break threshold. It must be larger than any real
	// tick length on the measured server. Defaults to
	// spec.DefaultBisectCeiling.
	Ceiling time.Duration

	// Sleep suspends before each probe. It exists so tests can script
	// the delay; when nil, a context-aware timer sleep is used.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Result holds the round-trip envelope observed during a run.
type Result struct {
	// Min and Max are the smallest and largest round trips observed.
	Min time.Duration
	Max time.Duration
	// Trials is the number of round-trip samples folded into Min/Max.
	Trials int
}

// Run performs cfg.Trials delayed exchanges, narrowing the delay bracket
// each time. The bracket invariant low <= high holds before and after
// every trial, with both bounds always within [0, Ceiling].
func Run(ctx context.Context, p Prober, cfg Config) (Result, error) {
	ceiling := cfg.Ceiling
	if ceiling == 0 {
		ceiling = spec.DefaultBisectCeiling
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	low, high := time.Duration(0), ceiling
	var res Result
	for i := 0; i < cfg.Trials; i++ {
		// The candidate delay models where in the tick window the next
		// probe will land.
		mid := (low + high) / 2
		if err := sleep(ctx, mid); err != nil {
			return Result{}, err
		}
		elapsed, err := p.Exchange(ctx)
		if err != nil {
			return Result{}, err
		}
		if elapsed < ceiling {
			low = mid
		} else {
			high = mid
		}
		if res.Trials == 0 || elapsed < res.Min {
			res.Min = elapsed
		}
		if elapsed > res.Max {
			res.Max = elapsed
		}
		res.Trials++
	}
	return res, nil
}

// sleepContext suspends for d without blocking past ctx's cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
