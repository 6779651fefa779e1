// The worldtick-client command measures the tick length and latency
// envelope of a list of game-world endpoints and prints a sorted report.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/rtx"
	"github.com/worldtick/worldtick/internal/targets"
	"github.com/worldtick/worldtick/pkg/client"
	"github.com/worldtick/worldtick/pkg/tick1/spec"
)

var (
	flagTargets = flag.String("targets", "worlds.txt",
		"File with one world per line: <identifier> <label>")
	flagTrials = flag.Int("trials", spec.DefaultTrials,
		"Number of timed exchanges per world")
	flagPort = flag.Int("port", 0,
		"Target port; overrides -secure when nonzero")
	flagSecure = flag.Bool("secure", false,
		"Use the secure-indicator port. This only selects the alternate port number; no TLS handshake is performed.")
	flagDomain = flag.String("domain", "",
		"DNS suffix appended to world hostnames")
	flagAlgorithm = flag.String("algorithm", string(client.AlgorithmBisect),
		"Measurement algorithm (bisect|sample)")
	flagConnectTimeout = flag.Duration("connect-timeout", spec.DefaultConnectTimeout,
		"Per-world connect and I/O timeout")
	flagCeiling = flag.Duration("ceiling", spec.DefaultBisectCeiling,
		"Bisection delay search ceiling; must exceed the longest real tick")
	flagGap = flag.Duration("anomalous-gap", spec.DefaultAnomalousGap,
		"Sampler early-stop threshold for implausibly large intervals")
	flagDebug = flag.Bool("debug", false, "Enable debug output")
)

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "failed to parse flags from env")

	if *flagDebug {
		log.SetLevel(log.DebugLevel)
	}

	worlds, err := targets.ParseFile(*flagTargets)
	rtx.Must(err, "cannot read targets file")
	if len(worlds) == 0 {
		log.Fatal("no valid targets found", "file", *flagTargets)
	}

	port := *flagPort
	if port == 0 {
		if *flagSecure {
			port = spec.DefaultSecurePort
		} else {
			port = spec.DefaultPlainPort
		}
	}

	c := client.New(client.Config{
		Port:           port,
		Trials:         *flagTrials,
		ConnectTimeout: *flagConnectTimeout,
		Ceiling:        *flagCeiling,
		AnomalousGap:   *flagGap,
		Domain:         *flagDomain,
		Algorithm:      client.Algorithm(*flagAlgorithm),
		Emitter:        client.HumanReadable{Debug: *flagDebug},
	})

	start := time.Now()
	c.Run(context.Background(), worlds)
	log.Debug("measurement complete", "worlds", len(worlds),
		"elapsed", time.Since(start))
}
