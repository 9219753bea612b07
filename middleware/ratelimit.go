package middleware

import (
	"net/http"
	"sync"

	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	"github.com/LukeR5776/LyricAnalyzer/stats"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// IPRateLimiter manages a token-bucket limiter per client IP
type IPRateLimiter struct {
	ips   map[string]*rate.Limiter
	mu    sync.Mutex
	rate  rate.Limit
	burst int
}

// NewIPRateLimiter creates a per-IP rate limiter
func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:   make(map[string]*rate.Limiter),
		rate:  r,
		burst: burst,
	}
}

// GetLimiter returns the limiter for an IP, creating it on first use
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(i.rate, i.burst)
		i.ips[ip] = limiter
	}
	return limiter
}

// Burst returns the configured burst limit
func (i *IPRateLimiter) Burst() int {
	return i.burst
}

// RateLimit wraps a handler with per-IP rate limiting. Requests carrying the
// configured API key in X-API-Key bypass the limiter entirely.
func RateLimit(next http.Handler, limiter *IPRateLimiter, apiKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-API-Key"); key != "" && apiKey != "" && key == apiKey {
			stats.Get().RecordRateLimit("bypass")
			w.Header().Set("X-RateLimit-Bypass", "true")
			next.ServeHTTP(w, r)
			return
		}

		if !limiter.GetLimiter(r.RemoteAddr).Allow() {
			stats.Get().RecordRateLimit("exceeded")
			log.Warnf("%s IP %s exceeded rate limit", logcolors.LogRateLimit, r.RemoteAddr)
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		stats.Get().RecordRateLimit("allowed")
		next.ServeHTTP(w, r)
	})
}
