package netx

import (
	"net"
	"os"
	"sync/atomic"
	"time"

	guuid "github.com/google/uuid"
	"github.com/m-lab/go/rtx"
	"github.com/m-lab/ndt-server/tcpinfox"
	"github.com/m-lab/tcp-info/tcp"
	"github.com/m-lab/uuid"
)

// Conn is an extended net.Conn that stores its open time, a duplicate of
// the underlying socket's file descriptor, and counters for read/written
// bytes.
type Conn struct {
	net.Conn

	fp           *os.File
	openTime     time.Time
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

// FromTCPConn wraps a TCP connection. On Linux, it duplicates the
// underlying file descriptor so the kernel's TCP_INFO struct can be read
// for this flow.
func FromTCPConn(tcpConn *net.TCPConn) (*Conn, error) {
	return fromTCPConn(tcpConn)
}

// Read reads from the underlying net.Conn and updates the read bytes counter.
func (c *Conn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	c.bytesRead.Add(uint64(n))
	return n, err
}

// Write writes to the underlying net.Conn and updates the written bytes counter.
func (c *Conn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	c.bytesWritten.Add(uint64(n))
	return n, err
}

// ByteCounters returns the read and written byte counters, in this order.
func (c *Conn) ByteCounters() (uint64, uint64) {
	return c.bytesRead.Load(), c.bytesWritten.Load()
}

// OpenTime returns the time this connection was dialed or accepted.
func (c *Conn) OpenTime() time.Time {
	return c.openTime
}

// Info returns the TCPInfo struct associated with the underlying socket.
// It returns tcpinfox.ErrNoSupport on platforms where TCP_INFO cannot be
// read.
func (c *Conn) Info() (*tcp.LinuxTCPInfo, error) {
	if c.fp == nil {
		return nil, tcpinfox.ErrNoSupport
	}
	return tcpinfox.GetTCPInfo(c.fp)
}

// UUID returns an M-Lab UUID. On platforms not supporting SO_COOKIE, it
// returns a google/uuid as a fallback. If the fallback fails, it panics.
func (c *Conn) UUID() (string, error) {
	if c.fp != nil {
		if id, err := uuid.FromFile(c.fp); err == nil {
			return id, nil
		}
	}
	gid, err := guuid.NewUUID()
	// NOTE: this could only fail when guuid.GetTime() fails.
	rtx.Must(err, "unable to fallback to uuid")
	return gid.String(), nil
}

// Close closes the underlying net.Conn and the duplicate file descriptor.
func (c *Conn) Close() error {
	return c.close()
}
