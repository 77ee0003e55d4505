package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tank-duel/internal/config"
	"tank-duel/internal/relay"

	"golang.org/x/time/rate"
)

// AdmissionConfig bounds how hard one address may lean on the relay.
// A duel is two sockets and a handful of status polls, so the budgets are small.
type AdmissionConfig struct {
	PollsPerSecond     float64       // Requests per second per IP, upgrades included (0 = unlimited)
	PollBurst          int           // Both duelists reconnecting from one host at once
	ReconnectAllowance int           // Sockets per IP beyond the two slots
	IdleAfter          time.Duration // Per-IP buckets unused this long are swept
}

// AdmissionFromRelay derives admission budgets from the relay config
func AdmissionFromRelay(cfg config.RelayConfig) AdmissionConfig {
	return AdmissionConfig{
		PollsPerSecond:     cfg.PollRate,
		PollBurst:          cfg.PollBurst,
		ReconnectAllowance: cfg.ReconnectAllowance,
		IdleAfter:          10 * time.Minute,
	}
}

// LimiterStats is reported by /api/stats
type LimiterStats struct {
	Allowed  uint64 `json:"allowed"`
	Rejected uint64 `json:"rejected"`
	Tracked  int    `json:"tracked"` // Addresses currently holding state
}

type pollBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RequestLimiter throttles HTTP requests per client address. Stale buckets
// are swept during Allow, so there is no background goroutine to stop.
type RequestLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*pollBucket
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	lastSweep time.Time

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewRequestLimiter creates a limiter from cfg
func NewRequestLimiter(cfg AdmissionConfig) *RequestLimiter {
	burst := cfg.PollBurst
	if burst <= 0 {
		burst = 1
	}
	idle := cfg.IdleAfter
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	limit := rate.Limit(cfg.PollsPerSecond)
	if cfg.PollsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &RequestLimiter{
		buckets:   make(map[string]*pollBucket),
		limit:     limit,
		burst:     burst,
		idleAfter: idle,
		lastSweep: time.Now(),
	}
}

// Allow spends one token from ip's bucket at time now
func (l *RequestLimiter) Allow(ip string, now time.Time) bool {
	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idleAfter {
		l.sweep(now)
	}
	b, ok := l.buckets[ip]
	if !ok {
		b = &pollBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	ok = b.limiter.AllowN(now, 1)
	l.mu.Unlock()

	if ok {
		l.allowed.Add(1)
	} else {
		l.rejected.Add(1)
	}
	return ok
}

// sweep drops idle buckets. Caller holds mu.
func (l *RequestLimiter) sweep(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleAfter {
			delete(l.buckets, ip)
		}
	}
	l.lastSweep = now
}

// Middleware rejects over-budget requests with 429
func (l *RequestLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r), time.Now()) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			writeError(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stats returns counters for /api/stats
func (l *RequestLimiter) Stats() LimiterStats {
	l.mu.Lock()
	tracked := len(l.buckets)
	l.mu.Unlock()
	return LimiterStats{
		Allowed:  l.allowed.Load(),
		Rejected: l.rejected.Load(),
		Tracked:  tracked,
	}
}

// SocketGate caps live relay sockets per address. One host may hold both
// slots plus a few sockets that are still closing while their owner
// reconnects; anything beyond that is a reconnect loop gone wrong.
type SocketGate struct {
	mu    sync.Mutex
	live  map[string]int
	perIP int

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewSocketGate allows relay.SlotCount+allowance sockets per address
func NewSocketGate(allowance int) *SocketGate {
	if allowance < 0 {
		allowance = 0
	}
	return &SocketGate{
		live:  make(map[string]int),
		perIP: relay.SlotCount + allowance,
	}
}

// Enter admits a socket from ip. Every true result must be paired with Leave.
func (g *SocketGate) Enter(ip string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.live[ip] >= g.perIP {
		g.rejected.Add(1)
		return false
	}
	g.live[ip]++
	g.allowed.Add(1)
	return true
}

// Leave releases a socket admitted by Enter
func (g *SocketGate) Leave(ip string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch n := g.live[ip]; {
	case n > 1:
		g.live[ip] = n - 1
	case n == 1:
		delete(g.live, ip)
	}
}

// PerIP returns the socket cap per address
func (g *SocketGate) PerIP() int {
	return g.perIP
}

// Stats returns counters for /api/stats
func (g *SocketGate) Stats() LimiterStats {
	g.mu.Lock()
	tracked := len(g.live)
	g.mu.Unlock()
	return LimiterStats{
		Allowed:  g.allowed.Load(),
		Rejected: g.rejected.Load(),
		Tracked:  tracked,
	}
}

// clientIP returns the first forwarded hop, else the peer host.
// Forwarded headers are only trustworthy behind a proxy that sets them.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
