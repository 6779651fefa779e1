// Package probe implements the tick1 probe channel: a single TCP
// connection to one game-world endpoint over which fixed-size heartbeat
// exchanges are timed.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/tcp-info/tcp"
	"github.com/worldtick/worldtick/internal/netx"
	"github.com/worldtick/worldtick/pkg/tick1/spec"
)

// ErrClosed is returned by Exchange after the channel has been closed or
// has observed an I/O failure.
var ErrClosed = errors.New("probe channel is closed")

// Channel owns one TCP connection to one target. It is created, used for
// exactly one measurement run, then torn down. A Channel is exclusively
// owned by a single goroutine: its probe buffer is not safe for
// concurrent use.
type Channel struct {
	hostname  string
	conn      net.Conn
	ioTimeout time.Duration

	// buf receives the probe response. Owned by this channel only; a
	// buffer shared across concurrent channels would be a data race.
	buf [spec.ProbeResponseSize]byte

	closeOnce sync.Once
	dead      bool
}

// Dial establishes a probe channel to hostname:port. The connection
// attempt is abandoned, not merely ignored, if it does not complete
// within timeout or if ctx is canceled first. The same timeout bounds
// each subsequent exchange on the channel.
func Dial(ctx context.Context, hostname string, port int, timeout time.Duration) (*Channel, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	addr := net.JoinHostPort(hostname, strconv.Itoa(port))
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	// Wrap the connection so kernel TCP_INFO and the socket UUID are
	// available where the platform supports them. On wrap failure the
	// raw connection still works for timing.
	if tc, ok := conn.(*net.TCPConn); ok {
		if mc, err := netx.FromTCPConn(tc); err == nil {
			conn = mc
		} else {
			log.Debug("cannot wrap connection", "hostname", hostname, "error", err)
		}
	}

	return &Channel{
		hostname:  hostname,
		conn:      conn,
		ioTimeout: timeout,
	}, nil
}

// Exchange writes the probe byte, blocks until the full probe response
// has been read, and returns the wall-clock elapsed time for that round
// trip. Any I/O error kills the channel: no further exchanges will
// succeed on it.
func (c *Channel) Exchange(ctx context.Context) (time.Duration, error) {
	if c.dead {
		return 0, ErrClosed
	}
	deadline := time.Now().Add(c.ioTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.dead = true
		return 0, fmt.Errorf("set deadline on %s: %w", c.hostname, err)
	}

	start := time.Now()
	if _, err := c.conn.Write([]byte{spec.ProbeByte}); err != nil {
		c.dead = true
		return 0, fmt.Errorf("probe write to %s: %w", c.hostname, err)
	}
	if _, err := io.ReadFull(c.conn, c.buf[:]); err != nil {
		c.dead = true
		return 0, fmt.Errorf("probe read from %s: %w", c.hostname, err)
	}
	return time.Since(start), nil
}

// Align performs the synchronization exchange that follows Dial. Its
// timing is discarded: it exists only to align subsequent probes with
// the server's processing cadence.
func (c *Channel) Align(ctx context.Context) error {
	_, err := c.Exchange(ctx)
	return err
}

// Hostname returns the hostname this channel was dialed to.
func (c *Channel) Hostname() string {
	return c.hostname
}

// KernelInfo returns the kernel's TCP_INFO struct for this flow, where
// supported. Callers use it for diagnostics only; all reported latencies
// come from application-level timing.
func (c *Channel) KernelInfo() (*tcp.LinuxTCPInfo, error) {
	if mc, ok := c.conn.(*netx.Conn); ok {
		return mc.Info()
	}
	return nil, errors.New("connection does not expose kernel info")
}

// UUID returns the unique identifier of the underlying connection, if
// available.
func (c *Channel) UUID() (string, error) {
	if mc, ok := c.conn.(*netx.Conn); ok {
		return mc.UUID()
	}
	return "", errors.New("connection does not expose a UUID")
}

// Close releases the connection. It is safe to call on every exit path
// and is a no-op after the first call.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.dead = true
		err = c.conn.Close()
	})
	return err
}
