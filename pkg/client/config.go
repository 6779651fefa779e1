package client

import (
	"context"
	"time"
)

// Algorithm selects the measurement algorithm run against each target.
type Algorithm string

const (
	// AlgorithmBisect binary-searches an artificial pre-probe delay to
	// bracket the tick boundary. This is the default.
	AlgorithmBisect Algorithm = "bisect"
	// AlgorithmSample hammers the target with back-to-back probes and
	// reports the envelope of inter-response intervals.
	AlgorithmSample Algorithm = "sample"
)

// Config is the configuration for a Client.
type Config struct {
	// Port is the target TCP port. The "secure" port changes the port
	// number only; no TLS handshake is performed on it.
	Port int

	// Trials is the number of timed exchanges per target.
	Trials int

	// ConnectTimeout bounds both connection establishment and each
	// subsequent exchange on a channel.
	ConnectTimeout time.Duration

	// Ceiling is the bisection's delay search ceiling.
	Ceiling time.Duration

	// AnomalousGap is the sampler's early-stop threshold.
	AnomalousGap time.Duration

	// Domain is an optional DNS suffix appended to world hostnames.
	Domain string

	// Algorithm selects bisection (default) or sampling.
	Algorithm Algorithm

	// Emitter is the interface used to emit per-target events and the
	// final summary. It can be overridden to provide a custom output.
	Emitter Emitter

	// Dialer opens the probe channel for a hostname. It can be
	// overridden in tests to supply scripted channels.
	Dialer DialFunc
}

// DialFunc opens a probe channel to the given hostname.
type DialFunc func(ctx context.Context, hostname string) (ProbeConn, error)

// ProbeConn is the channel a measurement runs on. probe.Channel
// implements it.
type ProbeConn interface {
	// Align performs the synchronization exchange whose timing is
	// discarded.
	Align(ctx context.Context) error
	// Exchange performs one timed probe exchange.
	Exchange(ctx context.Context) (time.Duration, error)
	// Close releases the connection. Safe to call on every exit path.
	Close() error
}
