package netx

import (
	"net"
)

// Listener is a TCPListener whose accepted connections are wrapped in a
// netx.Conn, recording their accept time and byte counters.
type Listener struct {
	*net.TCPListener
}

// NewListener returns a netx.Listener.
func NewListener(l *net.TCPListener) *Listener {
	return &Listener{
		TCPListener: l,
	}
}

// Accept accepts a connection and returns a netx.Conn which includes the
// connection's accept time and read/write byte counters.
func (ln *Listener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	return fromTCPConn(tc)
}
