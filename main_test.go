package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LukeR5776/LyricAnalyzer/config"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
)

// stubGenius serves minimal catalog responses. The search hit points at
// lyricsURL so the pipeline can scrape a controlled page.
func stubGenius(t *testing.T, lyricsURL string, withHits bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search"):
			if !withHits {
				fmt.Fprint(w, `{"response":{"hits":[]}}`)
				return
			}
			fmt.Fprintf(w, `{"response":{"hits":[
				{"type":"song","result":{"id":42,"title":"Yesterday",
				"url":%q,"primary_artist":{"id":1,"name":"The Beatles"}}}
			]}}`, lyricsURL)
		case strings.HasPrefix(r.URL.Path, "/referents"):
			fmt.Fprint(w, `{"response":{"referents":[
				{"fragment":"Hello darkness","range":{"content":"Hello darkness"},
				"annotations":[{"id":1,"body":{"html":"<p>An opening line.</p>"},"votes_total":5}]}
			]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func stubLyricsPage(t *testing.T) *httptest.Server {
	t.Helper()
	page := `<html><body><div data-lyrics-container="true">[Verse 1]<br>` +
		`Hello darkness<br>My old friend, I've come to talk with you again` +
		`</div></body></html>`
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
}

// newTestRouter wires the service graph against stub servers and returns a
// configured router.
func newTestRouter(t *testing.T, geniusURL string) *mux.Router {
	t.Helper()

	cfg := config.Config{}
	cfg.Genius.BaseURL = geniusURL
	cfg.Genius.RequestsPerMinute = 100
	cfg.Genius.MinRequestGapMs = 1
	cfg.Genius.RequestTimeoutSecs = 5
	cfg.Genius.ScrapeTimeoutSecs = 5
	cfg.Genius.BackoffMaxRetries = 1
	cfg.Cache.TTLInSeconds = 45
	cfg.Cache.MinFetchIntervalSecs = 1
	cfg.CircuitBreaker.Threshold = 100
	cfg.CircuitBreaker.CooldownSecs = 1
	cfg.Ratings.DBPath = filepath.Join(t.TempDir(), "ratings.db")

	if err := setupServices(cfg); err != nil {
		t.Fatalf("Expected services to wire, got %v", err)
	}
	t.Cleanup(func() { ratingsStore.Close() })

	router := mux.NewRouter()
	setupRoutes(router)
	return router
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy status, got %q", resp.Status)
	}
}

func TestSearchLyricsPipeline(t *testing.T) {
	lyricsPage := stubLyricsPage(t)
	defer lyricsPage.Close()
	geniusStub := stubGenius(t, lyricsPage.URL, true)
	defer geniusStub.Close()

	router := newTestRouter(t, geniusStub.URL)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lyrics/search?artist=The+Beatles&title=Yesterday", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp LyricsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if resp.Song == nil || resp.Song.ID != 42 {
		t.Fatalf("Expected matched song 42, got %+v", resp.Song)
	}
	if resp.Score != 1.0 {
		t.Errorf("Expected perfect match score, got %f", resp.Score)
	}
	if !strings.HasPrefix(resp.Lyrics, "[Verse 1]\nHello darkness") {
		t.Errorf("Expected cleaned lyrics, got %q", resp.Lyrics)
	}
	if resp.AnnotationCount != 1 {
		t.Fatalf("Expected 1 annotation, got %d", resp.AnnotationCount)
	}
	if resp.Annotations[0].LineNumber != 2 {
		t.Errorf("Expected annotation aligned to line 2, got %d", resp.Annotations[0].LineNumber)
	}
	if resp.Annotations[0].LineMatchMethod != "matched" {
		t.Errorf("Expected method matched, got %q", resp.Annotations[0].LineMatchMethod)
	}
}

func TestSearchLyricsNoMatchIs404(t *testing.T) {
	geniusStub := stubGenius(t, "", false)
	defer geniusStub.Close()

	router := newTestRouter(t, geniusStub.URL)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lyrics/search?artist=Nobody&title=Nothing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for a clean miss, got %d", rec.Code)
	}
	var resp MatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if !resp.Success || resp.Matched {
		t.Errorf("Expected success=true matched=false, got %+v", resp)
	}
}

func TestSearchLyricsMissingParams(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lyrics/search?artist=Only", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without title, got %d", rec.Code)
	}
}

func TestGeniusSearchEndpoint(t *testing.T) {
	geniusStub := stubGenius(t, "http://example.invalid/song", true)
	defer geniusStub.Close()

	router := newTestRouter(t, geniusStub.URL)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/genius/search?q=yesterday", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Yesterday" {
		t.Errorf("Expected Yesterday result, got %+v", resp.Results)
	}
}

func TestRatingsRequireSession(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ratings", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without session cookie, got %d", rec.Code)
	}
}

func TestRatingsLifecycle(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "user1"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/ratings",
		`{"song":{"spotify_id":"sp1","title":"Yesterday","artist":"The Beatles"},"rating":8.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected rating saved, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodGet, "/api/ratings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected list, got %d", rec.Code)
	}
	var listResp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &listResp)
	if listResp.Count != 1 {
		t.Errorf("Expected 1 rating listed, got %d", listResp.Count)
	}

	rec = do(http.MethodGet, "/api/ratings/sp1", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected single rating, got %d", rec.Code)
	}

	rec = do(http.MethodGet, "/api/ratings/stats", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected stats, got %d", rec.Code)
	}

	rec = do(http.MethodDelete, "/api/ratings/sp1", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected delete, got %d", rec.Code)
	}
	rec = do(http.MethodGet, "/api/ratings/sp1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestRatingOutOfRangeRejected(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	req := httptest.NewRequest(http.MethodPost, "/api/ratings",
		strings.NewReader(`{"song":{"spotify_id":"sp1","title":"T","artist":"A"},"rating":11}`))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "user1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for rating 11, got %d", rec.Code)
	}
}

func TestCacheDumpTokenProtection(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	prev := conf.Server.CacheAccessToken
	conf.Server.CacheAccessToken = "secret"
	defer func() { conf.Server.CacheAccessToken = prev }()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cache", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	geniusCache.Put("client", "search", []byte(`{"hits":[]}`))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cache?token=secret", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", rec.Code)
	}
	var dump CacheDumpResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &dump); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if dump.NumberOfKeys != 1 {
		t.Errorf("Expected 1 cached key, got %d", dump.NumberOfKeys)
	}
	if _, ok := dump.Entries["client:search"]; !ok {
		t.Errorf("Expected dumped entry for client:search, got %v", dump.Entries)
	}
}

func TestAuthStatusWithoutSession(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/spotify/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp AuthStatusResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Authenticated {
		t.Error("Expected unauthenticated status without session")
	}
}

func TestSpotifyLoginReturnsAuthURL(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/spotify/login", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if resp.AuthURL == "" || resp.State == "" {
		t.Errorf("Expected auth URL and state, got %+v", resp)
	}
	if !strings.Contains(resp.AuthURL, resp.State) {
		t.Errorf("Expected state embedded in auth URL, got %q", resp.AuthURL)
	}
}

func TestSpotifyClaimHandsOverSession(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	sessionID := spotifyService.Sessions.Create(&oauth2.Token{AccessToken: "tok"})
	completedAuthMu.Lock()
	completedAuth["claim-state"] = pendingAuth{sessionID: sessionID, created: time.Now()}
	completedAuthMu.Unlock()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/spotify/claim",
		strings.NewReader(`{"state":"claim-state"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Success       bool `json:"success"`
		Authenticated bool `json:"authenticated"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || !resp.Authenticated {
		t.Errorf("Expected successful claim, got %s", rec.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != sessionID {
		t.Fatalf("Expected session cookie handed over, got %v", cookie)
	}

	// The state is single use.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/spotify/claim",
		strings.NewReader(`{"state":"claim-state"}`)))
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Authenticated {
		t.Error("Expected second claim of the same state rejected")
	}
}

func TestSpotifyClaimExpired(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	sessionID := spotifyService.Sessions.Create(&oauth2.Token{AccessToken: "tok"})
	completedAuthMu.Lock()
	completedAuth["old-state"] = pendingAuth{sessionID: sessionID, created: time.Now().Add(-11 * time.Minute)}
	completedAuthMu.Unlock()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/spotify/claim",
		strings.NewReader(`{"state":"old-state"}`)))

	var resp struct {
		Authenticated bool   `json:"authenticated"`
		Message       string `json:"message"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Authenticated {
		t.Error("Expected stale claim rejected")
	}
	if resp.Message != "Authentication expired" {
		t.Errorf("Expected expiry message, got %q", resp.Message)
	}
}

func TestSpotifyEndpointsRequireSession(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	paths := []string{
		"/api/spotify/playback-state",
		"/api/spotify/user-profile",
		"/api/spotify/search?q=yesterday",
	}
	for _, path := range paths {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for %s without session, got %d", path, rec.Code)
		}
	}
}

func TestSpotifySearchRequiresQuery(t *testing.T) {
	router := newTestRouter(t, "http://unused.invalid")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without q, got %d", rec.Code)
	}
}
