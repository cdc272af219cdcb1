package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gatherguru/server/internal/api/respond"
	"github.com/gatherguru/server/internal/config"
)

const rateLimitMessage = "Too many requests from this IP, please try again later."

// RateLimit applies a fixed-window limit per client address to /api/* paths.
// Within one window exactly MaxRequests requests pass; the next is rejected
// with 429 until the window rolls over. Counters live in memory with
// read-modify-write under a mutex and TTL-based cleanup.
func RateLimit(cfg config.RateLimitConfig, env string) func(http.Handler) http.Handler {
	store := newWindowStore(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter := store.allow(clientKey(r, cfg.TrustedProxyCIDRs))
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				respond.Error(w, r, http.StatusTooManyRequests, rateLimitMessage, nil, env)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type windowStore struct {
	mu          sync.Mutex
	windows     map[string]*windowEntry
	max         int
	window      time.Duration
	stopCleanup chan struct{}
}

type windowEntry struct {
	start time.Time
	count int
}

func newWindowStore(cfg config.RateLimitConfig) *windowStore {
	store := &windowStore{
		windows:     make(map[string]*windowEntry),
		max:         cfg.MaxRequests,
		window:      cfg.Window,
		stopCleanup: make(chan struct{}),
	}

	// Expired windows are garbage; drop them so the map does not grow
	// without bound under address churn.
	go store.cleanupLoop()

	return store
}

// allow increments the caller's counter and reports whether the request fits
// in the current window. When rejected it also reports how long until the
// window resets.
func (s *windowStore) allow(key string) (bool, time.Duration) {
	if s.max <= 0 {
		return true, 0
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.windows[key]
	if !ok || now.Sub(entry.start) >= s.window {
		s.windows[key] = &windowEntry{start: now, count: 1}
		return true, 0
	}

	if entry.count >= s.max {
		return false, s.window - now.Sub(entry.start)
	}
	entry.count++
	return true, 0
}

func (s *windowStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *windowStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.windows {
		if now.Sub(entry.start) >= s.window {
			delete(s.windows, key)
		}
	}
}

// clientKey extracts the client identifier for rate limiting. Forwarding
// headers are only honored when the direct peer is a trusted proxy, so
// clients cannot spoof their way past the limiter.
func clientKey(r *http.Request, trustedProxyCIDRs []string) string {
	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if isTrustedProxy(remoteIP, trustedProxyCIDRs) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			parts := strings.Split(forwarded, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
	}

	return remoteIP
}

func isTrustedProxy(ip string, trustedCIDRs []string) bool {
	if len(trustedCIDRs) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidrStr := range trustedCIDRs {
		_, cidr, err := net.ParseCIDR(cidrStr)
		if err != nil {
			continue
		}
		if cidr.Contains(parsedIP) {
			return true
		}
	}

	return false
}
