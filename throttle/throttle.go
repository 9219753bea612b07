package throttle

import (
	"sync"
	"time"

	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	log "github.com/sirupsen/logrus"
)

// RequestThrottle enforces, per client key, a rolling request quota within a
// fixed window plus an absolute minimum gap between granted requests. Acquire
// blocks the calling goroutine until the request may proceed; waits for one
// key never block acquisitions for other keys.
type RequestThrottle struct {
	mu      sync.Mutex
	clients map[string]*clientState

	quota  int
	window time.Duration
	minGap time.Duration
}

// clientState is mutated only under its own lock, so a sleeping holder of
// one key does not serialize other keys.
type clientState struct {
	mu            sync.Mutex
	lastRequestAt time.Time
	windowStart   time.Time
	requestCount  int
}

// Options configures a RequestThrottle.
type Options struct {
	Quota  int           // requests allowed per window
	Window time.Duration // rolling window length
	MinGap time.Duration // minimum gap between granted requests
}

// New creates a RequestThrottle.
func New(opts Options) *RequestThrottle {
	if opts.Quota <= 0 {
		opts.Quota = 10
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	if opts.MinGap <= 0 {
		opts.MinGap = 100 * time.Millisecond
	}
	return &RequestThrottle{
		clients: make(map[string]*clientState),
		quota:   opts.Quota,
		window:  opts.Window,
		minGap:  opts.MinGap,
	}
}

func (t *RequestThrottle) state(clientKey string) *clientState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.clients[clientKey]
	if !ok {
		state = &clientState{}
		t.clients[clientKey] = state
	}
	return state
}

// Acquire blocks until a request for the client key is allowed, then records
// the grant. The window counter resets once a full window of wall-clock time
// has elapsed since the window started, not on a fixed clock boundary.
func (t *RequestThrottle) Acquire(clientKey string) {
	state := t.state(clientKey)

	state.mu.Lock()
	defer state.mu.Unlock()

	now := time.Now()

	if state.windowStart.IsZero() || now.Sub(state.windowStart) >= t.window {
		state.requestCount = 0
		state.windowStart = now
	}

	if state.requestCount >= t.quota {
		sleep := t.window - now.Sub(state.windowStart)
		if sleep > 0 {
			log.Infof("%s Quota reached for %s, sleeping %v", logcolors.LogThrottle, clientKey, sleep)
			time.Sleep(sleep)
		}
		state.requestCount = 0
		state.windowStart = time.Now()
	}

	if since := time.Since(state.lastRequestAt); !state.lastRequestAt.IsZero() && since < t.minGap {
		time.Sleep(t.minGap - since)
	}

	state.requestCount++
	state.lastRequestAt = time.Now()
}
