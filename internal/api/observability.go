package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strings"
	"time"

	"tank-duel/internal/game"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-connection or per-IP labels)
var (
	// Relay metrics
	relayConnections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_connections_total",
		Help: "WebSocket connections by outcome",
	}, []string{"outcome"}) // Bounded: "accepted", "full", "upgrade_error"

	relayForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_forwarded_total",
		Help: "State patches forwarded to the other slot",
	})

	relayDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_frames_dropped_total",
		Help: "Inbound frames not forwarded",
	}, []string{"reason"})

	relaySlotsOccupied = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_slots_occupied",
		Help: "Number of held slots (0-2)",
	})

	// Client metrics
	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "duel_frame_duration_seconds",
		Help:    "Time spent in one simulation frame",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.016},
	})

	patchesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duel_patches_sent_total",
		Help: "Outgoing state patches",
	}, []string{"result"}) // Bounded: "sent", "dropped"

	inboundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duel_inbound_total",
		Help: "Transport items handled by kind",
	}, []string{"kind"})

	tankHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "duel_tank_health",
		Help: "Current tank health",
	}, []string{"side"}) // Bounded: "local", "remote"

	tankDeaths = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "duel_tank_deaths",
		Help: "Death counter per tank",
	}, []string{"side"})

	tankScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "duel_tank_score",
		Help: "Kills credited per tank",
	}, []string{"side"})

	opponentOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "duel_opponent_online",
		Help: "1 while the other slot is occupied",
	})

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_total",
		Help: "Total combat events logged",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Combat events dropped due to rate limiting or buffer full",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter",
	}, []string{"reason"}) // Bounded: "rate_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is path pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be localhost in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string

	// Handlers mounts extra debug routes, e.g. a live arena snapshot
	Handlers map[string]http.Handler
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// StartDebugServer starts the internal observability server
// CRITICAL: This MUST bind to localhost only to prevent pprof-based DoS
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled || cfg.ListenAddr == "" {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if !isLocalAddr(cfg.ListenAddr) {
		// Only allow external binding if explicitly enabled via env
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	for pattern, h := range cfg.Handlers {
		mux.Handle(pattern, h)
	}

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// isLocalAddr accepts loopback hosts on any port
func isLocalAddr(addr string) bool {
	for _, prefix := range []string{"127.0.0.1:", "localhost:", "[::1]:"} {
		if strings.HasPrefix(addr, prefix) {
			return true
		}
	}
	return false
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RelayMetrics reports hub activity to Prometheus
type RelayMetrics struct{}

// RecordConnection counts an accepted or rejected socket
func (RelayMetrics) RecordConnection(outcome string) {
	relayConnections.WithLabelValues(outcome).Inc()
}

// RecordForwarded counts a forwarded patch
func (RelayMetrics) RecordForwarded() {
	relayForwarded.Inc()
}

// RecordDropped counts an inbound frame that was not forwarded
func (RelayMetrics) RecordDropped(reason string) {
	relayDropped.WithLabelValues(reason).Inc()
}

// UpdateOccupancy sets the held slot gauge
func (RelayMetrics) UpdateOccupancy(count int) {
	relaySlotsOccupied.Set(float64(count))
}

// SessionMetrics reports one duel endpoint to Prometheus
type SessionMetrics struct{}

// RecordFrame records simulation frame timing
func (SessionMetrics) RecordFrame(d time.Duration) {
	frameDuration.Observe(d.Seconds())
}

// RecordPatchSent counts an outgoing patch
func (SessionMetrics) RecordPatchSent(dropped bool) {
	if dropped {
		patchesSent.WithLabelValues("dropped").Inc()
		return
	}
	patchesSent.WithLabelValues("sent").Inc()
}

// RecordInbound counts a transport item
func (SessionMetrics) RecordInbound(kind string) {
	inboundTotal.WithLabelValues(kind).Inc()
}

// UpdateDuel mirrors both tanks into gauges
func (SessionMetrics) UpdateDuel(local, remote game.TankState, online bool) {
	tankHealth.WithLabelValues("local").Set(float64(local.Health))
	tankHealth.WithLabelValues("remote").Set(float64(remote.Health))
	tankDeaths.WithLabelValues("local").Set(float64(local.Deaths))
	tankDeaths.WithLabelValues("remote").Set(float64(remote.Deaths))
	tankScore.WithLabelValues("local").Set(float64(local.Score))
	tankScore.WithLabelValues("remote").Set(float64(remote.Score))
	if online {
		opponentOnline.Set(1)
	} else {
		opponentOnline.Set(0)
	}
}

// UpdateEventLogStats mirrors the combat trace counters
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}
