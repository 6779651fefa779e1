//go:build !linux
// +build !linux

package netx

import (
	"net"
	"time"
)

func fromTCPConn(tcpConn *net.TCPConn) (*Conn, error) {
	// On non-Linux systems TCP_INFO isn't supported and the file pointer
	// is not needed.
	return &Conn{
		Conn:     tcpConn,
		openTime: time.Now(),
	}, nil
}

func (c *Conn) close() error {
	return c.Conn.Close()
}
