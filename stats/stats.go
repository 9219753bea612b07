package stats

import (
	"strings"
	"sync/atomic"
	"time"
)

// Stats holds all server statistics with atomic counters
type Stats struct {
	StartTime time.Time

	// Request counters
	TotalRequests   atomic.Int64
	LyricsRequests  atomic.Int64
	GeniusRequests  atomic.Int64
	SpotifyRequests atomic.Int64
	RatingsRequests atomic.Int64
	OtherRequests   atomic.Int64

	// Cache performance
	CacheHits   atomic.Int64
	CacheMisses atomic.Int64
	StaleHits   atomic.Int64

	// Rate limiting
	RateLimitAllowed  atomic.Int64
	RateLimitExceeded atomic.Int64
	RateLimitBypassed atomic.Int64

	// Matching engine
	MatchAttempts   atomic.Int64
	MatchEarlyExits atomic.Int64
	MatchBestEffort atomic.Int64
	MatchMisses     atomic.Int64

	// Lyrics retrieval
	ScrapeSuccesses atomic.Int64
	ScrapeFailures  atomic.Int64

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64
}

// Global stats instance
var global = &Stats{
	StartTime: time.Now(),
}

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request routed to an endpoint group
func (s *Stats) RecordRequest(path string) {
	s.TotalRequests.Add(1)
	switch {
	case strings.HasPrefix(path, "/api/lyrics"):
		s.LyricsRequests.Add(1)
	case strings.HasPrefix(path, "/api/genius"):
		s.GeniusRequests.Add(1)
	case strings.HasPrefix(path, "/api/spotify"), strings.HasPrefix(path, "/auth/spotify"):
		s.SpotifyRequests.Add(1)
	case strings.HasPrefix(path, "/api/ratings"):
		s.RatingsRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

func (s *Stats) RecordCacheHit()  { s.CacheHits.Add(1) }
func (s *Stats) RecordCacheMiss() { s.CacheMisses.Add(1) }
func (s *Stats) RecordStaleHit()  { s.StaleHits.Add(1) }

// RecordRateLimit records a rate limit decision
func (s *Stats) RecordRateLimit(outcome string) {
	switch outcome {
	case "allowed":
		s.RateLimitAllowed.Add(1)
	case "exceeded":
		s.RateLimitExceeded.Add(1)
	case "bypass":
		s.RateLimitBypassed.Add(1)
	}
}

// RecordMatch records the outcome of a full match attempt
func (s *Stats) RecordMatch(outcome string) {
	s.MatchAttempts.Add(1)
	switch outcome {
	case "early_exit":
		s.MatchEarlyExits.Add(1)
	case "best_effort":
		s.MatchBestEffort.Add(1)
	case "miss":
		s.MatchMisses.Add(1)
	}
}

func (s *Stats) RecordScrapeSuccess() { s.ScrapeSuccesses.Add(1) }
func (s *Stats) RecordScrapeFailure() { s.ScrapeFailures.Add(1) }

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// Snapshot is the JSON shape served by the /stats endpoint
type Snapshot struct {
	UptimeSeconds int64 `json:"uptime_seconds"`

	Requests struct {
		Total   int64 `json:"total"`
		Lyrics  int64 `json:"lyrics"`
		Genius  int64 `json:"genius"`
		Spotify int64 `json:"spotify"`
		Ratings int64 `json:"ratings"`
		Other   int64 `json:"other"`
	} `json:"requests"`

	Cache struct {
		Hits      int64   `json:"hits"`
		Misses    int64   `json:"misses"`
		StaleHits int64   `json:"stale_hits"`
		HitRate   float64 `json:"hit_rate_percent"`
	} `json:"cache"`

	RateLimit struct {
		Allowed  int64 `json:"allowed"`
		Exceeded int64 `json:"exceeded"`
		Bypassed int64 `json:"bypassed"`
	} `json:"rate_limit"`

	Matching struct {
		Attempts   int64 `json:"attempts"`
		EarlyExits int64 `json:"early_exits"`
		BestEffort int64 `json:"best_effort"`
		Misses     int64 `json:"misses"`
	} `json:"matching"`

	Scraping struct {
		Successes int64 `json:"successes"`
		Failures  int64 `json:"failures"`
	} `json:"scraping"`

	StatusCodes struct {
		Code2xx int64 `json:"2xx"`
		Code4xx int64 `json:"4xx"`
		Code5xx int64 `json:"5xx"`
	} `json:"status_codes"`
}

// GetSnapshot returns a point-in-time copy of all counters
func (s *Stats) GetSnapshot() Snapshot {
	var snap Snapshot
	snap.UptimeSeconds = int64(time.Since(s.StartTime).Seconds())

	snap.Requests.Total = s.TotalRequests.Load()
	snap.Requests.Lyrics = s.LyricsRequests.Load()
	snap.Requests.Genius = s.GeniusRequests.Load()
	snap.Requests.Spotify = s.SpotifyRequests.Load()
	snap.Requests.Ratings = s.RatingsRequests.Load()
	snap.Requests.Other = s.OtherRequests.Load()

	snap.Cache.Hits = s.CacheHits.Load()
	snap.Cache.Misses = s.CacheMisses.Load()
	snap.Cache.StaleHits = s.StaleHits.Load()
	if total := snap.Cache.Hits + snap.Cache.Misses; total > 0 {
		snap.Cache.HitRate = float64(snap.Cache.Hits) * 100 / float64(total)
	}

	snap.RateLimit.Allowed = s.RateLimitAllowed.Load()
	snap.RateLimit.Exceeded = s.RateLimitExceeded.Load()
	snap.RateLimit.Bypassed = s.RateLimitBypassed.Load()

	snap.Matching.Attempts = s.MatchAttempts.Load()
	snap.Matching.EarlyExits = s.MatchEarlyExits.Load()
	snap.Matching.BestEffort = s.MatchBestEffort.Load()
	snap.Matching.Misses = s.MatchMisses.Load()

	snap.Scraping.Successes = s.ScrapeSuccesses.Load()
	snap.Scraping.Failures = s.ScrapeFailures.Load()

	snap.StatusCodes.Code2xx = s.Status2xx.Load()
	snap.StatusCodes.Code4xx = s.Status4xx.Load()
	snap.StatusCodes.Code5xx = s.Status5xx.Load()

	return snap
}
