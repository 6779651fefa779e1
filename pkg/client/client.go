// Package client runs tick1 measurements concurrently against a set of
// game-world targets. Each target gets its own probe channel, its own
// timeout and its own failure boundary: a failing world never disturbs
// the measurement of its siblings.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/worldtick/worldtick/internal/bisect"
	"github.com/worldtick/worldtick/internal/probe"
	"github.com/worldtick/worldtick/internal/sampler"
	"github.com/worldtick/worldtick/pkg/tick1/model"
	"github.com/worldtick/worldtick/pkg/tick1/spec"
)

// Client is a tick1 measurement client.
type Client struct {
	config Config
}

// New returns a Client with the provided config. Zero-valued fields are
// replaced with the protocol defaults.
func New(config Config) *Client {
	if config.Port == 0 {
		config.Port = spec.DefaultPlainPort
	}
	if config.Trials == 0 {
		config.Trials = spec.DefaultTrials
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = spec.DefaultConnectTimeout
	}
	if config.Ceiling == 0 {
		config.Ceiling = spec.DefaultBisectCeiling
	}
	if config.AnomalousGap == 0 {
		config.AnomalousGap = spec.DefaultAnomalousGap
	}
	if config.Algorithm == "" {
		config.Algorithm = AlgorithmBisect
	}
	if config.Emitter == nil {
		config.Emitter = HumanReadable{}
	}
	if config.Dialer == nil {
		port, timeout := config.Port, config.ConnectTimeout
		config.Dialer = func(ctx context.Context, hostname string) (ProbeConn, error) {
			return probe.Dial(ctx, hostname, port, timeout)
		}
	}
	return &Client{config: config}
}

// Run measures every target concurrently and returns one outcome per
// target, success or sentinel failure. It blocks until the slowest
// target has completed or timed out. The order of the returned list is
// unspecified; sorting is the emitter's job.
func (c *Client) Run(ctx context.Context, targets []model.Target) []model.Outcome {
	outcomes := make([]model.Outcome, len(targets))
	wg := &sync.WaitGroup{}
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t model.Target) {
			defer wg.Done()
			outcomes[i] = c.measure(ctx, t)
		}(i, t)
	}
	wg.Wait()

	c.config.Emitter.OnSummary(outcomes)
	return outcomes
}

// measure runs one measurement against one target. Every failure is
// converted to the sentinel outcome here; nothing propagates to sibling
// targets.
func (c *Client) measure(ctx context.Context, t model.Target) model.Outcome {
	hostname := t.Hostname(c.config.Domain)
	c.config.Emitter.OnStart(hostname, t)

	conn, err := c.config.Dialer(ctx, hostname)
	if err != nil {
		c.config.Emitter.OnError(hostname, err)
		return model.FailedOutcome(t, err)
	}
	defer conn.Close()
	c.logChannelInfo(hostname, conn)

	// The first exchange aligns subsequent probes with the server's
	// processing cadence; its timing is discarded.
	if err := conn.Align(ctx); err != nil {
		c.config.Emitter.OnError(hostname, err)
		return model.FailedOutcome(t, err)
	}

	var min, max time.Duration
	var samples int
	switch c.config.Algorithm {
	case AlgorithmSample:
		res, err := sampler.Run(ctx, conn, sampler.Config{
			Trials:       c.config.Trials,
			AnomalousGap: c.config.AnomalousGap,
		})
		if err != nil {
			c.config.Emitter.OnError(hostname, err)
			return model.FailedOutcome(t, err)
		}
		min, max, samples = res.Min, res.Max, res.Intervals
	case AlgorithmBisect:
		res, err := bisect.Run(ctx, conn, bisect.Config{
			Trials:  c.config.Trials,
			Ceiling: c.config.Ceiling,
		})
		if err != nil {
			c.config.Emitter.OnError(hostname, err)
			return model.FailedOutcome(t, err)
		}
		min, max, samples = res.Min, res.Max, res.Trials
	default:
		err := fmt.Errorf("unknown algorithm: %s", c.config.Algorithm)
		c.config.Emitter.OnError(hostname, err)
		return model.FailedOutcome(t, err)
	}

	o := model.NewOutcome(t, min, max, samples)
	c.config.Emitter.OnOutcome(o)
	return o
}

// logChannelInfo emits connection diagnostics when the channel exposes
// them. Kernel data is informational only; reported latencies always
// come from application-level timing.
func (c *Client) logChannelInfo(hostname string, conn ProbeConn) {
	ch, ok := conn.(*probe.Channel)
	if !ok {
		return
	}
	if id, err := ch.UUID(); err == nil {
		c.config.Emitter.OnDebug(fmt.Sprintf("%s: connection %s", hostname, id))
	}
	if info, err := ch.KernelInfo(); err == nil {
		log.Debug("kernel TCP info", "hostname", hostname, "rtt", info.RTT,
			"rttvar", info.RTTVar)
	}
}
