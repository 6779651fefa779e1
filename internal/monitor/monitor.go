// Package monitor runs recurring tick1 measurements against a fixed set
// of world targets and serves the latest results over HTTP.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jellydator/ttlcache/v3"
	"github.com/m-lab/go/memoryless"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/worldtick/worldtick/internal/persistence"
	"github.com/worldtick/worldtick/pkg/tick1/model"
)

var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worldtick_monitor_runs_total",
		Help: "Measurement runs started by the monitor.",
	})
	targetFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldtick_monitor_target_failures_total",
		Help: "Sentinel failure outcomes, by target.",
	}, []string{"target"})
)

// Runner runs one measurement over a set of targets. client.Client
// implements it.
type Runner interface {
	Run(ctx context.Context, targets []model.Target) []model.Outcome
}

// Handler measures on a randomized schedule and serves results. Expired
// runs are archived to disk on cache eviction.
type Handler struct {
	dataDir string
	runner  Runner
	targets []model.Target
	runs    *ttlcache.Cache[string, *model.ArchivalData]

	latestMu sync.Mutex
	latest   *model.ArchivalData

	subsMu sync.Mutex
	subs   map[chan []model.Outcome]struct{}
}

// NewHandler returns a monitor Handler. Completed runs stay cached for
// cacheTTL and are written to dir when they expire.
func NewHandler(dir string, runner Runner, targets []model.Target,
	cacheTTL time.Duration) *Handler {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *model.ArchivalData](cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *model.ArchivalData](),
	)
	cache.OnEviction(func(ctx context.Context,
		er ttlcache.EvictionReason,
		i *ttlcache.Item[string, *model.ArchivalData]) {
		archive := i.Value()
		log.Debug("run expired", "id", archive.UUID, "reason", er)
		_, err := persistence.WriteDataFile(dir, "tick1", "monitor",
			archive.UUID, archive)
		if err != nil {
			log.Error("failed to write run archive", "id", archive.UUID,
				"error", err)
		}
	})

	go cache.Start()
	return &Handler{
		dataDir: dir,
		runner:  runner,
		targets: targets,
		runs:    cache,
		subs:    map[chan []model.Outcome]struct{}{},
	}
}

// Run measures all targets repeatedly until ctx is canceled. Intervals
// are randomized around expected: fixed intervals could align with a
// cyclic behavior of the measured servers.
func (h *Handler) Run(ctx context.Context, expected time.Duration) error {
	return memoryless.Run(ctx, func() { h.Measure(ctx) }, memoryless.Config{
		Expected: expected,
		Min:      expected / 2,
		Max:      expected * 2,
	})
}

// Measure runs one measurement over all configured targets, caches the
// run and notifies watchers.
func (h *Handler) Measure(ctx context.Context) {
	runsTotal.Inc()
	archive := model.NewArchivalData(uuid.NewString())
	log.Info("measurement run starting", "id", archive.UUID,
		"targets", len(h.targets))

	archive.Outcomes = h.runner.Run(ctx, h.targets)
	archive.EndTime = time.Now()
	for _, o := range archive.Outcomes {
		if o.Failed() {
			targetFailures.WithLabelValues(o.Target).Inc()
		}
	}

	h.runs.Set(archive.UUID, archive, ttlcache.DefaultTTL)
	h.latestMu.Lock()
	h.latest = archive
	h.latestMu.Unlock()

	h.broadcast(archive.Outcomes)
}

// Stop stops the cache's cleanup goroutine.
func (h *Handler) Stop() {
	h.runs.Stop()
}

// Result returns the latest run as JSON. Possible status codes are:
// - 404 if no run has completed yet
// - 500 if the run JSON cannot be marshalled
func (h *Handler) Result(rw http.ResponseWriter, req *http.Request) {
	h.latestMu.Lock()
	latest := h.latest
	h.latestMu.Unlock()
	if latest == nil {
		rw.WriteHeader(http.StatusNotFound)
		return
	}

	b, err := json.Marshal(latest)
	if err != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	if _, err := rw.Write(b); err != nil {
		log.Debug("failed to write result response", "error", err)
	}
}

// Watch upgrades the connection to WebSocket and streams each run's
// outcomes as they complete, until the client disconnects.
func (h *Handler) Watch(rw http.ResponseWriter, req *http.Request) {
	u := websocket.Upgrader{
		// Allow cross-origin resource sharing.
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := u.Upgrade(rw, req, nil)
	if err != nil {
		log.Info("websocket upgrade failed", "source", req.RemoteAddr,
			"error", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// Drain the client side so control frames are processed and closes
	// are detected.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-req.Context().Done():
			return
		case outcomes := <-ch:
			if err := conn.WriteJSON(outcomes); err != nil {
				return
			}
		}
	}
}

func (h *Handler) subscribe() chan []model.Outcome {
	ch := make(chan []model.Outcome, 1)
	h.subsMu.Lock()
	h.subs[ch] = struct{}{}
	h.subsMu.Unlock()
	return ch
}

func (h *Handler) unsubscribe(ch chan []model.Outcome) {
	h.subsMu.Lock()
	delete(h.subs, ch)
	h.subsMu.Unlock()
}

// broadcast delivers outcomes to every watcher without blocking on slow
// ones: a watcher that hasn't consumed the previous run misses this one.
func (h *Handler) broadcast(outcomes []model.Outcome) {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- outcomes:
		default:
		}
	}
}
