// The worldtick-server command runs a simulated tick-driven game-world
// endpoint. It exists for local testing of the measurement client: it
// answers probe bytes with fixed-size responses flushed once per tick.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/rtx"
	"github.com/worldtick/worldtick/internal/tickserver"
)

var (
	flagListen = flag.String("listen", ":7171", "Listen address/port")
	flagTick   = flag.Duration("tick", 500*time.Millisecond,
		"Simulated server tick length")
	flagDebug = flag.Bool("debug", false, "Enable debug output")
)

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "failed to parse flags from env")

	if *flagDebug {
		log.SetLevel(log.DebugLevel)
	}

	srv := tickserver.New(*flagTick)
	addr, err := srv.Listen(*flagListen)
	rtx.Must(err, "failed to create listener")
	defer srv.Close()

	log.Info("world simulator listening", "addr", addr, "tick", *flagTick)
	rtx.Must(srv.Serve(context.Background()), "server failed")
}
