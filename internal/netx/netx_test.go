package netx_test

import (
	"net"
	"testing"

	"github.com/m-lab/go/rtx"
	"github.com/worldtick/worldtick/internal/netx"
)

func dialAsync(t *testing.T, addr string) {
	go func() {
		// Because the socket already exists, Dial will block until Accept
		// is called below.
		c, err := net.Dial("tcp", addr)
		if err != nil {
			t.Errorf("unexpected failure to dial local conn: %v", err)
			return
		}
		// Wait until the primary test routine closes conn and returns.
		buf := make([]byte, 1)
		c.Read(buf)
		c.Close()
	}()
}

func TestListener_Accept(t *testing.T) {
	tcpl, err := net.ListenTCP("tcp", &net.TCPAddr{})
	rtx.Must(err, "failed to create listener")
	ln := netx.NewListener(tcpl)
	defer ln.Close()

	dialAsync(t, tcpl.Addr().String())

	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	defer conn.Close()

	mc, ok := conn.(*netx.Conn)
	if !ok {
		t.Fatalf("accepted conn is not a netx.Conn: %T", conn)
	}
	if mc.OpenTime().IsZero() {
		t.Errorf("accepted conn has zero open time")
	}
	id, err := mc.UUID()
	if err != nil || id == "" {
		t.Errorf("UUID() = %q, %v", id, err)
	}
}

func TestConn_ByteCounters(t *testing.T) {
	tcpl, err := net.ListenTCP("tcp", &net.TCPAddr{})
	rtx.Must(err, "failed to create listener")
	ln := netx.NewListener(tcpl)
	defer ln.Close()

	go func() {
		c, err := net.Dial("tcp", tcpl.Addr().String())
		if err != nil {
			t.Errorf("dial failed: %v", err)
			return
		}
		c.Write([]byte{1, 2, 3, 4})
		buf := make([]byte, 2)
		c.Read(buf)
		c.Close()
	}()

	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 4)
	n, err := conn.Read(buf)
	if err != nil || n != 4 {
		t.Fatalf("read returned %d, %v", n, err)
	}
	if _, err := conn.Write([]byte{5, 6}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	read, written := conn.(*netx.Conn).ByteCounters()
	if read != 4 || written != 2 {
		t.Errorf("ByteCounters() = %d, %d (expected 4, 2)", read, written)
	}
}
