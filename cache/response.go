package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	"github.com/LukeR5776/LyricAnalyzer/stats"
	"github.com/LukeR5776/LyricAnalyzer/utils"
	log "github.com/sirupsen/logrus"
)

// Entry is a cached provider response. Entries are overwritten on every
// fresh fetch for the same key and purged once they are older than 2x TTL.
type Entry struct {
	Payload   []byte
	CreatedAt time.Time
}

// ResponseCache is a short-TTL cache of provider responses keyed by
// (clientKey, endpoint). Beyond plain get/put it knows the minimum interval
// between fresh fetches for a key, and serves the most recent stale payload
// when a fresh fetch would come too soon. This is what keeps a client polling
// "current track" every few seconds from re-issuing a live API call on every
// poll.
type ResponseCache struct {
	mu          sync.Mutex
	entries     map[string]Entry
	lastFetch   map[string]time.Time
	ttl         time.Duration
	minInterval time.Duration
	compression bool
}

// Options configures a ResponseCache.
type Options struct {
	TTL              time.Duration
	MinFetchInterval time.Duration
	Compression      bool
}

// New creates a ResponseCache.
func New(opts Options) *ResponseCache {
	if opts.TTL <= 0 {
		opts.TTL = 45 * time.Second
	}
	if opts.MinFetchInterval <= 0 {
		opts.MinFetchInterval = 5 * time.Second
	}
	return &ResponseCache{
		entries:     make(map[string]Entry),
		lastFetch:   make(map[string]time.Time),
		ttl:         opts.TTL,
		minInterval: opts.MinFetchInterval,
		compression: opts.Compression,
	}
}

func cacheKey(clientKey, endpoint string) string {
	return clientKey + ":" + endpoint
}

// Get returns the cached payload for the key while it is still within TTL.
func (c *ResponseCache) Get(clientKey, endpoint string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(cacheKey(clientKey, endpoint))
}

func (c *ResponseCache) getLocked(key string) ([]byte, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.CreatedAt) >= c.ttl {
		return nil, false
	}
	return c.decode(key, entry.Payload)
}

// Put stores a fresh payload for the key and records the fetch time used by
// ShouldSkip's interval check.
func (c *ResponseCache) Put(clientKey, endpoint string, payload []byte) {
	key := cacheKey(clientKey, endpoint)

	stored := payload
	if c.compression {
		compressed, err := utils.CompressBytes(payload)
		if err != nil {
			log.Errorf("%s Error compressing payload for %s: %v", logcolors.LogCache, key, err)
			return
		}
		stored = compressed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Payload: stored, CreatedAt: time.Now()}
	c.lastFetch[key] = time.Now()
	log.Debugf("%s Cached response for %s", logcolors.LogCache, key)
}

// PutJSON marshals v and stores it under the key.
func (c *ResponseCache) PutJSON(clientKey, endpoint string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Put(clientKey, endpoint, payload)
	return nil
}

// ShouldSkip reports whether a fresh fetch for the key should be skipped.
// A valid cache hit always skips. Otherwise, if the minimum fetch interval
// for the key has not elapsed, the most recent payload is returned even when
// expired rather than letting rapid polling hammer the provider. A throttled
// key with no payload at all does not skip.
func (c *ResponseCache) ShouldSkip(clientKey, endpoint string) (bool, []byte) {
	key := cacheKey(clientKey, endpoint)

	c.mu.Lock()
	defer c.mu.Unlock()

	if payload, ok := c.getLocked(key); ok {
		log.Debugf("%s Cache hit for %s", logcolors.LogCache, key)
		return true, payload
	}

	if last, ok := c.lastFetch[key]; ok && time.Since(last) < c.minInterval {
		if entry, ok := c.entries[key]; ok {
			log.Infof("%s Throttling fetch for %s, serving stale payload", logcolors.LogCacheSkip, key)
			if payload, ok := c.decode(key, entry.Payload); ok {
				stats.Get().RecordStaleHit()
				return true, payload
			}
		}
	}

	return false, nil
}

// ClearClient removes all entries belonging to a client key.
func (c *ResponseCache) ClearClient(clientKey string) {
	prefix := clientKey + ":"

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
			delete(c.lastFetch, key)
		}
	}
	log.Infof("%s Cleared cache for client %s", logcolors.LogCache, clientKey)
}

// Cleanup removes entries older than 2x TTL and returns how many were purged.
func (c *ResponseCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	purged := 0
	for key, entry := range c.entries {
		if time.Since(entry.CreatedAt) > 2*c.ttl {
			delete(c.entries, key)
			delete(c.lastFetch, key)
			purged++
		}
	}
	return purged
}

// StartCleanup runs Cleanup on the given interval until stop is closed.
func (c *ResponseCache) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	log.Infof("%s Starting cache cleanup loop (interval: %v)", logcolors.LogCacheClean, interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if purged := c.Cleanup(); purged > 0 {
					log.Debugf("%s Purged %d expired cache entries", logcolors.LogCacheClean, purged)
				}
			case <-stop:
				return
			}
		}
	}()
}

// Stats returns the number of entries and their total payload size in KB.
func (c *ResponseCache) Stats() (numKeys int, sizeInKB int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := 0
	for key, entry := range c.entries {
		numKeys++
		size += len(key) + len(entry.Payload)
	}
	return numKeys, size / 1024
}

// Dump returns a copy of all live entries, keyed by "clientKey:endpoint".
func (c *ResponseCache) Dump() map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	dump := make(map[string]Entry, len(c.entries))
	for key, entry := range c.entries {
		dump[key] = entry
	}
	return dump
}

func (c *ResponseCache) decode(key string, payload []byte) ([]byte, bool) {
	if !c.compression {
		return payload, true
	}
	decompressed, err := utils.DecompressBytes(payload)
	if err != nil {
		log.Errorf("%s Error decompressing payload for %s: %v", logcolors.LogCache, key, err)
		return nil, false
	}
	return decompressed, true
}
