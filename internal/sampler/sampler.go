// Package sampler estimates a server's steady-state tick interval by
// sending back-to-back probes and measuring the difference between
// successive absolute response timestamps on one monotonic clock.
package sampler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/worldtick/worldtick/pkg/tick1/spec"
)

// Prober performs one timed probe exchange.
type Prober interface {
	Exchange(ctx context.Context) (time.Duration, error)
}

// Config configures a sampling run.
type Config struct {
	// Trials is the maximum number of exchanges to time.
	Trials int

	// AnomalousGap is the inter-response interval above which a sample
	// is considered corrupted (a local stall, not real tick behavior)
	// and the run stops early with partial results. Defaults to
	// spec.DefaultAnomalousGap.
	AnomalousGap time.Duration

	// Clock returns the elapsed time since the run's reference point.
	// It exists so tests can script timestamps; when nil, a wall clock
	// started at the beginning of the run is used. The caller must have
	// completed the alignment exchange immediately before Run so the
	// clock origin matches the server's cadence.
	Clock func() time.Duration
}

// Result holds the interval envelope observed during a run.
type Result struct {
	// Min and Max are the smallest and largest inter-response intervals
	// observed.
	Min time.Duration
	Max time.Duration
	// Intervals is the number of intervals folded into Min/Max. It can
	// be lower than the configured trial count when the run stopped on
	// an anomalous gap.
	Intervals int
}

// Run times up to cfg.Trials back-to-back exchanges and returns the
// min/max of the intervals between successive responses. An anomalous
// gap stops the run early without failing it; an exchange error fails
// the whole run.
func Run(ctx context.Context, p Prober, cfg Config) (Result, error) {
	gap := cfg.AnomalousGap
	if gap == 0 {
		gap = spec.DefaultAnomalousGap
	}
	clock := cfg.Clock
	if clock == nil {
		start := time.Now()
		clock = func() time.Duration { return time.Since(start) }
	}

	var res Result
	var prev time.Duration
	for i := 0; i < cfg.Trials; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if _, err := p.Exchange(ctx); err != nil {
			return Result{}, err
		}
		now := clock()
		interval := now - prev
		prev = now

		if interval > gap {
			log.Debug("anomalous gap, stopping early",
				"interval", interval, "trial", i+1)
			break
		}
		if res.Intervals == 0 || interval < res.Min {
			res.Min = interval
		}
		if interval > res.Max {
			res.Max = interval
		}
		res.Intervals++
	}
	return res, nil
}
