// The worldtick-monitor command measures a fixed set of game worlds on a
// randomized schedule and serves the latest results over HTTP.
package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/access/controller"
	"github.com/m-lab/access/token"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"
	"github.com/worldtick/worldtick/internal/monitor"
	"github.com/worldtick/worldtick/internal/targets"
	"github.com/worldtick/worldtick/pkg/client"
	"github.com/worldtick/worldtick/pkg/tick1/model"
	"github.com/worldtick/worldtick/pkg/tick1/spec"
)

var (
	flagListen = flag.String("listen", ":8080",
		"Listen address/port for the results API")
	flagTargets = flag.String("targets", "worlds.txt",
		"File with one world per line: <identifier> <label>")
	flagDataDir = flag.String("datadir", "./data",
		"Directory to store expired run archives in")
	flagInterval = flag.Duration("interval", spec.DefaultMonitorInterval,
		"Expected interval between measurement runs (randomized)")
	flagCacheTTL = flag.Duration("cache-ttl", spec.DefaultRunCacheTTL,
		"How long completed runs stay cached before archival")
	flagTrials = flag.Int("trials", spec.DefaultTrials,
		"Number of timed exchanges per world")
	flagPort = flag.Int("port", spec.DefaultPlainPort,
		"Target port on the measured worlds")
	flagDomain = flag.String("domain", "",
		"DNS suffix appended to world hostnames")
	tokenVerifyKey = flagx.FileBytesArray{}
	tokenVerify    bool
	tokenMachine   string

	// Context for the whole program.
	ctx, cancel = context.WithCancel(context.Background())
)

func init() {
	flag.Var(&tokenVerifyKey, "token.verify-key", "Public key for verifying access tokens")
	flag.BoolVar(&tokenVerify, "token.verify", false, "Verify access tokens")
	flag.StringVar(&tokenMachine, "token.machine", "", "Use given machine name to verify token claims")
}

// logEmitter routes measurement events to the structured logger instead
// of stdout.
type logEmitter struct{}

func (logEmitter) OnStart(hostname string, target model.Target) {
	log.Debug("measuring", "hostname", hostname, "label", target.Label)
}

func (logEmitter) OnOutcome(o model.Outcome) {
	log.Debug("outcome", "target", o.Target, "min", o.MinRTT, "max", o.MaxRTT)
}

func (logEmitter) OnError(hostname string, err error) {
	log.Info("measurement failed", "hostname", hostname, "error", err)
}

func (logEmitter) OnSummary(outcomes []model.Outcome) {}

func (logEmitter) OnDebug(msg string) {
	log.Debug(msg)
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "failed to parse flags from env")
	defer cancel()

	log.SetReportTimestamp(true)

	promSrv := prometheusx.MustServeMetrics()
	defer promSrv.Close()

	worlds, err := targets.ParseFile(*flagTargets)
	rtx.Must(err, "cannot read targets file")
	if len(worlds) == 0 {
		log.Fatal("no valid targets found", "file", *flagTargets)
	}

	v, err := token.NewVerifier(tokenVerifyKey.Get()...)
	if tokenVerify && err != nil {
		rtx.Must(err, "failed to load verifier")
	}
	paths := controller.Paths{
		spec.ResultV1: true,
		spec.WatchV1:  true,
	}
	acm, _ := controller.Setup(ctx, v, tokenVerify, tokenMachine, paths, paths)

	c := client.New(client.Config{
		Port:    *flagPort,
		Trials:  *flagTrials,
		Domain:  *flagDomain,
		Emitter: logEmitter{},
	})
	h := monitor.NewHandler(*flagDataDir, c, worlds, *flagCacheTTL)
	defer h.Stop()

	mux := http.NewServeMux()
	mux.Handle(spec.ResultV1, http.HandlerFunc(h.Result))
	mux.Handle(spec.WatchV1, http.HandlerFunc(h.Watch))
	srv := &http.Server{
		Addr:    *flagListen,
		Handler: acm.Then(mux),
		// NOTE: set absolute read and write timeouts for server
		// connections. This prevents clients, or middleboxes, from
		// opening a connection and holding it open indefinitely.
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	go func() {
		log.Info("about to listen for results requests", "endpoint", *flagListen)
		err := srv.ListenAndServe()
		rtx.Must(err, "could not start results server")
	}()
	defer srv.Close()

	// Run one measurement immediately so the results API has data, then
	// keep measuring on a randomized schedule.
	h.Measure(ctx)
	rtx.Must(h.Run(ctx, *flagInterval), "monitor loop failed")
}
