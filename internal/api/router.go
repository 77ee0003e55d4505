package api

import (
	"net/http"
	"time"

	"tank-duel/internal/config"
	"tank-duel/internal/relay"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RelayInterface defines the relay methods used by the API.
// This interface enables mocking for tests without real sockets.
type RelayInterface interface {
	// Slots returns the live slot table
	Slots() *relay.SlotTable
	// HandleWebSocket runs one participant until it disconnects
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Relay:     relay.NewHub(config.DefaultRelay(), nil),
//	    Admission: api.AdmissionConfig{PollsPerSecond: 1000, PollBurst: 1000},
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Relay is the slot hub (required)
	Relay RelayInterface

	// Admission sets the per-IP request budget and socket allowance.
	// The zero value falls back to the relay defaults.
	Admission AdmissionConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If empty, any origin is allowed.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router
type routerHandlers struct {
	relay    RelayInterface
	requests *RequestLimiter
	sockets  *SocketGate
	started  time.Time
}

// NewRouter constructs the HTTP router with all middleware and routes.
// It starts no goroutines.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	admission := cfg.Admission
	if admission == (AdmissionConfig{}) {
		admission = AdmissionFromRelay(config.DefaultRelay())
	}
	h := &routerHandlers{
		relay:    cfg.Relay,
		requests: NewRequestLimiter(admission),
		sockets:  NewSocketGate(admission.ReconnectAllowance),
		started:  time.Now(),
	}

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	r.Use(h.requests.Middleware)

	corsOrigins := cfg.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/ws", h.handleWS)
	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/slots", h.handleGetSlots)
		r.Get("/stats", h.handleGetStats)
	})

	return r
}

// requestMetrics records latency per route pattern so label cardinality stays bounded
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
