// Package tickserver implements a simulated tick-driven game-world
// endpoint. It accepts TCP connections, buffers incoming probe bytes,
// and flushes one fixed-size response per pending probe at each tick
// boundary. It exists for local testing: probes against it observe the
// same boundary-dependent latency pattern as against a real world
// server.
package tickserver

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/worldtick/worldtick/internal/netx"
	"github.com/worldtick/worldtick/pkg/tick1/spec"
)

// Server simulates a game world with a fixed-length processing cycle.
type Server struct {
	tick time.Duration

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// New returns a Server with the given tick length.
func New(tick time.Duration) *Server {
	return &Server{tick: tick}
}

// Listen binds the server to addr (use "127.0.0.1:0" in tests) and
// returns the bound address.
func (s *Server) Listen(addr string) (net.Addr, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	tcpl, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ln = netx.NewListener(tcpl)
	s.mu.Unlock()
	return s.ln.Addr(), nil
}

// Serve accepts connections until ctx is canceled or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("tickserver: Serve called before Listen")
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		log.Debug("client connected", "addr", conn.RemoteAddr())
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Close stops accepting new connections. In-flight connections are torn
// down by their handlers when their peers disconnect or ctx is canceled.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

// handleConn buffers probe bytes from one client and answers them in
// batches, one batch per tick.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var pending atomic.Int64
	readerDone := make(chan struct{})

	go func() {
		defer close(readerDone)
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			pending.Add(int64(n))
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var tickNo uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-readerDone:
			return
		case <-ticker.C:
			tickNo++
			n := pending.Swap(0)
			if n == 0 {
				continue
			}
			// One response per pending probe, all flushed at the same
			// tick boundary. The payload carries the tick counter, but
			// clients never interpret it.
			resp := make([]byte, spec.ProbeResponseSize)
			resp[0] = spec.ProbeByte
			binary.BigEndian.PutUint64(resp[1:], tickNo)
			for i := int64(0); i < n; i++ {
				if _, err := conn.Write(resp); err != nil {
					log.Debug("write failed, dropping client",
						"addr", conn.RemoteAddr(), "error", err)
					return
				}
			}
		}
	}
}
