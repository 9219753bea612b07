package genius

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/LukeR5776/LyricAnalyzer/cache"
	"github.com/LukeR5776/LyricAnalyzer/circuitbreaker"
	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	"github.com/LukeR5776/LyricAnalyzer/stats"
	"github.com/LukeR5776/LyricAnalyzer/throttle"
	log "github.com/sirupsen/logrus"
)

// throttleKey is the logical client id shared by all outbound API calls, so
// the per-minute quota is enforced across concurrent requests.
const throttleKey = "genius"

// maxPerPage is the provider's hard limit on search page size.
const maxPerPage = 50

// ErrRateLimited is returned once 429 retries are exhausted, so callers can
// tell provider pushback apart from an ordinary empty result.
var ErrRateLimited = errors.New("genius: rate limited")

// Client is a throttled, cached Genius API client. All calls go through the
// shared RequestThrottle and ResponseCache, and a circuit breaker guards
// against sustained provider outage.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	throttle    *throttle.RequestThrottle
	cache       *cache.ResponseCache
	breaker     *circuitbreaker.CircuitBreaker
	backoffBase time.Duration
	maxRetries  int
}

// Options configures a Client. Throttle and Cache are required collaborators;
// Breaker is optional.
type Options struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	Throttle    *throttle.RequestThrottle
	Cache       *cache.ResponseCache
	Breaker     *circuitbreaker.CircuitBreaker
	BackoffBase time.Duration
	MaxRetries  int
}

// NewClient creates a Genius API client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.genius.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}
	return &Client{
		baseURL:     opts.BaseURL,
		accessToken: opts.AccessToken,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		throttle:    opts.Throttle,
		cache:       opts.Cache,
		breaker:     opts.Breaker,
		backoffBase: opts.BackoffBase,
		maxRetries:  opts.MaxRetries,
	}
}

// Search queries the provider catalog and returns canonical song records.
// Provider and network failures yield an empty list plus the error; callers
// running multi-query match loops treat that as a recoverable miss.
func (c *Client) Search(query string, limit int) ([]SongRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("per_page", strconv.Itoa(limit))
	endpoint := "/search?" + params.Encode()

	body, err := c.fetch(endpoint)
	if err != nil {
		log.Errorf("%s Search failed for %q: %v", logcolors.LogGenius, query, err)
		return nil, err
	}

	var data searchResponse
	if err := json.Unmarshal(body, &data); err != nil {
		log.Errorf("%s Malformed search payload for %q: %v", logcolors.LogGenius, query, err)
		return nil, err
	}

	songs := make([]SongRecord, 0, len(data.Response.Hits))
	for _, hit := range data.Response.Hits {
		// Old API marks the result itself, new API marks the hit.
		if hit.Type != "song" && hit.Result.LegacyType != "song" {
			continue
		}
		songs = append(songs, hit.Result.toSongRecord())
	}

	log.Debugf("%s Parsed %d songs from %d hits for %q", logcolors.LogGenius, len(songs), len(data.Response.Hits), query)
	return songs, nil
}

// GetSongDetails fetches the full record for a song id. A missing song is an
// absence (nil, nil), not an error.
func (c *Client) GetSongDetails(songID int) (*SongDetails, error) {
	endpoint := fmt.Sprintf("/songs/%d", songID)

	body, err := c.fetch(endpoint)
	if err != nil {
		log.Errorf("%s Song detail fetch failed for %d: %v", logcolors.LogGenius, songID, err)
		return nil, err
	}

	var data songResponse
	if err := json.Unmarshal(body, &data); err != nil {
		log.Errorf("%s Malformed song payload for %d: %v", logcolors.LogGenius, songID, err)
		return nil, err
	}
	if data.Response.Song == nil {
		return nil, nil
	}

	return data.Response.Song.toSongDetails(), nil
}

// GetAnnotations fetches the referents for a song and flattens them into
// annotations. Line numbers stay at the -1 sentinel until aligned.
func (c *Client) GetAnnotations(songID int) ([]Annotation, error) {
	params := url.Values{}
	params.Set("song_id", strconv.Itoa(songID))
	params.Set("per_page", "50")
	params.Set("text_format", "html")
	endpoint := "/referents?" + params.Encode()

	body, err := c.fetch(endpoint)
	if err != nil {
		log.Errorf("%s Annotation fetch failed for %d: %v", logcolors.LogGenius, songID, err)
		return nil, err
	}

	var data referentsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		log.Errorf("%s Malformed referents payload for %d: %v", logcolors.LogGenius, songID, err)
		return nil, err
	}

	var annotations []Annotation
	for _, referent := range data.Response.Referents {
		for _, raw := range referent.Annotations {
			annotations = append(annotations, Annotation{
				ID:           raw.ID,
				BodyHTML:     raw.Body.HTML,
				Fragment:     referent.Fragment,
				RangeContent: referent.Range.Content,
				URL:          raw.URL,
				Verified:     raw.Verified,
				VotesTotal:   raw.VotesTotal,
				LineNumber:   -1,
			})
		}
	}
	return annotations, nil
}

// fetch serves the endpoint from cache when possible, otherwise issues a
// throttled request with bounded backoff and caches the fresh payload.
func (c *Client) fetch(endpoint string) ([]byte, error) {
	if c.cache != nil {
		if skip, payload := c.cache.ShouldSkip(throttleKey, endpoint); skip {
			stats.Get().RecordCacheHit()
			return payload, nil
		}
		stats.Get().RecordCacheMiss()
	}

	if c.breaker != nil && !c.breaker.Allow() {
		return nil, circuitbreaker.ErrCircuitOpen
	}

	var body []byte
	err := throttle.Backoff(c.backoffBase, c.maxRetries, func() (bool, error) {
		if c.throttle != nil {
			c.throttle.Acquire(throttleKey)
		}

		req, err := http.NewRequest(http.MethodGet, c.baseURL+endpoint, nil)
		if err != nil {
			return false, err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("User-Agent", "LyricsScraper/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Timeouts and transport errors count as transient.
			return true, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return true, ErrRateLimited
		}
		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("genius: unexpected status %d for %s", resp.StatusCode, endpoint)
		}

		body, err = io.ReadAll(resp.Body)
		return false, err
	})

	if c.breaker != nil {
		if err != nil {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Put(throttleKey, endpoint, body)
	}
	return body, nil
}

func (r rawResult) toSongRecord() SongRecord {
	return SongRecord{
		ID:            r.ID,
		Title:         r.Title,
		Artist:        r.PrimaryArtist.Name,
		URL:           r.URL,
		LyricsState:   r.LyricsState,
		ImageURL:      r.ImageURL,
		ReleaseDate:   r.ReleaseDate,
		Stats:         r.Stats,
		PrimaryArtist: r.PrimaryArtist,
	}
}

func (s *rawSong) toSongDetails() *SongDetails {
	details := &SongDetails{
		SongRecord:        s.rawResult.toSongRecord(),
		TitleWithFeatured: s.TitleWithFeatured,
		Path:              s.Path,
		FeaturedArtists:   s.FeaturedArtists,
		ProducerArtists:   s.ProducerArtists,
		WriterArtists:     s.WriterArtists,
	}
	// Plain text is the most reliable description format; fall back to HTML.
	if s.Description.Plain != "" {
		details.Description = s.Description.Plain
	} else {
		details.Description = s.Description.HTML
	}
	if s.Album != nil {
		details.Album = s.Album.Name
	}
	return details
}
