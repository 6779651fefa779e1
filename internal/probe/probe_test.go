package probe_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/m-lab/go/rtx"
	"github.com/worldtick/worldtick/internal/probe"
	"github.com/worldtick/worldtick/internal/tickserver"
)

func startServer(t *testing.T, tick time.Duration) (host string, port int, cancel context.CancelFunc) {
	t.Helper()
	srv := tickserver.New(tick)
	addr, err := srv.Listen("127.0.0.1:0")
	rtx.Must(err, "cannot listen")
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	host, portStr, err := net.SplitHostPort(addr.String())
	rtx.Must(err, "cannot split listen address")
	port, err = strconv.Atoi(portStr)
	rtx.Must(err, "cannot parse port")
	return host, port, cancel
}

func TestChannel_AlignAndExchange(t *testing.T) {
	tick := 20 * time.Millisecond
	host, port, cancel := startServer(t, tick)
	defer cancel()

	ch, err := probe.Dial(context.Background(), host, port, 5*time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer ch.Close()

	if err := ch.Align(context.Background()); err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	elapsed, err := ch.Exchange(context.Background())
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if elapsed <= 0 {
		t.Errorf("Exchange returned non-positive elapsed time %v", elapsed)
	}
	// A round trip to a tick-driven server cannot take much longer than
	// one full tick locally.
	if elapsed > 10*tick {
		t.Errorf("Exchange took %v, implausibly long for a %v tick", elapsed, tick)
	}
}

func TestDial_CanceledContext(t *testing.T) {
	host, port, cancel := startServer(t, 20*time.Millisecond)
	defer cancel()

	ctx, cancelDial := context.WithCancel(context.Background())
	cancelDial()
	if _, err := probe.Dial(ctx, host, port, 5*time.Second); err == nil {
		t.Errorf("Dial succeeded with canceled context")
	}
}

func TestDial_ConnectFailure(t *testing.T) {
	// Grab a free port and close the listener so the connect is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	rtx.Must(err, "cannot listen")
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	start := time.Now()
	_, err = probe.Dial(context.Background(), host, port, 2*time.Second)
	if err == nil {
		t.Fatalf("Dial succeeded against a closed port")
	}
	if time.Since(start) > 2*time.Second+500*time.Millisecond {
		t.Errorf("Dial took longer than the connect timeout")
	}
}

func TestExchange_UnresponsiveServer(t *testing.T) {
	// A listener that accepts but never responds: Exchange must fail
	// within the I/O timeout, not block forever.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	rtx.Must(err, "cannot listen")
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	timeout := 200 * time.Millisecond
	ch, err := probe.Dial(context.Background(), host, port, timeout)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer ch.Close()

	start := time.Now()
	if _, err := ch.Exchange(context.Background()); err == nil {
		t.Fatalf("Exchange succeeded against an unresponsive server")
	}
	if time.Since(start) > timeout+time.Second {
		t.Errorf("Exchange blocked past the I/O timeout")
	}

	// The channel is dead after an I/O failure.
	if _, err := ch.Exchange(context.Background()); err == nil {
		t.Errorf("Exchange succeeded on a dead channel")
	}
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	host, port, cancel := startServer(t, 20*time.Millisecond)
	defer cancel()

	ch, err := probe.Dial(context.Background(), host, port, 5*time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := ch.Exchange(context.Background()); err == nil {
		t.Errorf("Exchange succeeded on a closed channel")
	}
}
