// Package spec contains constants for the tick1 probe protocol.
package spec

import "time"

const (
	// ServiceName is the name of the tick1 measurement service.
	ServiceName = "worldtick/tick1"

	// ProbeByte is the opaque heartbeat byte sent to request a probe
	// response. Its value is fixed by the protocol and never varies.
	ProbeByte byte = 0x0A

	// ProbeResponseSize is the exact size of a probe response. The
	// response's content is not interpreted; only its arrival time
	// matters.
	ProbeResponseSize = 9

	// DefaultPlainPort is the well-known port for plain connections.
	DefaultPlainPort = 7171
	// DefaultSecurePort is the alternate "secure-indicator" port.
	// Selecting it changes the port number only: no TLS handshake is
	// performed by this protocol.
	DefaultSecurePort = 7172

	// DefaultConnectTimeout bounds connection establishment to a single
	// target.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultBisectCeiling is the upper bound of the bisection's delay
	// search window. It encodes the assumption that no real tick is
	// longer than this; tune it for servers with slower cycles.
	DefaultBisectCeiling = 600 * time.Millisecond

	// DefaultAnomalousGap is the inter-probe interval above which the
	// tick sampler considers a sample corrupted and stops early.
	DefaultAnomalousGap = 900 * time.Millisecond

	// DefaultTrials is the default number of timed exchanges per target.
	DefaultTrials = 10

	// ResultV1 is the monitor's v1 /result endpoint.
	ResultV1 = "/tick/v1/result"
	// WatchV1 is the monitor's v1 /watch endpoint.
	WatchV1 = "/tick/v1/watch"

	// DefaultMonitorInterval is the expected time between two monitor
	// measurement runs. Actual intervals are randomized around it.
	DefaultMonitorInterval = 60 * time.Second

	// DefaultRunCacheTTL is how long a completed run is kept in memory
	// before being archived to disk.
	DefaultRunCacheTTL = 1 * time.Hour
)
