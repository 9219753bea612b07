package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/LukeR5776/LyricAnalyzer/cache"
	"golang.org/x/oauth2"
)

func newTestService(responseCache *cache.ResponseCache) *Service {
	svc := NewService(ServiceOptions{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost/callback",
		Cache:        responseCache,
	})
	return svc
}

func TestCurrentTrackRequiresSession(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.CurrentTrack(context.Background(), "missing")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
}

func TestCurrentTrackCachesSnapshot(t *testing.T) {
	responseCache := cache.New(cache.Options{TTL: time.Minute, MinFetchInterval: time.Minute})
	svc := newTestService(responseCache)

	calls := 0
	svc.nowPlaying = func(ctx context.Context, token *oauth2.Token) (*TrackInfo, error) {
		calls++
		return &TrackInfo{ID: "abc", Name: "Yesterday", Artists: []string{"The Beatles"}, IsPlaying: true}, nil
	}

	sessionID := svc.Sessions.Create(&oauth2.Token{AccessToken: "tok"})

	for i := 0; i < 3; i++ {
		info, err := svc.CurrentTrack(context.Background(), sessionID)
		if err != nil {
			t.Fatalf("Expected current track, got %v", err)
		}
		if info == nil || info.Name != "Yesterday" {
			t.Fatalf("Expected Yesterday, got %+v", info)
		}
	}

	if calls != 1 {
		t.Errorf("Expected 1 live call across rapid polls, got %d", calls)
	}
}

func TestCurrentTrackCachesNothingPlaying(t *testing.T) {
	responseCache := cache.New(cache.Options{TTL: time.Minute, MinFetchInterval: time.Minute})
	svc := newTestService(responseCache)

	calls := 0
	svc.nowPlaying = func(ctx context.Context, token *oauth2.Token) (*TrackInfo, error) {
		calls++
		return nil, nil
	}

	sessionID := svc.Sessions.Create(&oauth2.Token{AccessToken: "tok"})

	for i := 0; i < 2; i++ {
		info, err := svc.CurrentTrack(context.Background(), sessionID)
		if err != nil {
			t.Fatalf("Expected clean empty result, got %v", err)
		}
		if info != nil {
			t.Errorf("Expected nil for nothing playing, got %+v", info)
		}
	}

	if calls != 1 {
		t.Errorf("Expected the empty answer cached too, got %d live calls", calls)
	}
}

func TestLogoutDropsSessionAndCache(t *testing.T) {
	responseCache := cache.New(cache.Options{TTL: time.Minute, MinFetchInterval: time.Millisecond})
	svc := newTestService(responseCache)

	svc.nowPlaying = func(ctx context.Context, token *oauth2.Token) (*TrackInfo, error) {
		return &TrackInfo{ID: "abc", Name: "Yesterday"}, nil
	}

	sessionID := svc.Sessions.Create(&oauth2.Token{AccessToken: "tok"})
	if _, err := svc.CurrentTrack(context.Background(), sessionID); err != nil {
		t.Fatalf("Expected track before logout, got %v", err)
	}

	svc.Logout(sessionID)

	if _, ok := svc.Sessions.Token(sessionID); ok {
		t.Error("Expected session removed on logout")
	}
	if _, ok := responseCache.Get(sessionID, currentTrackEndpoint); ok {
		t.Error("Expected cached playback cleared on logout")
	}
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()

	id := store.Create(&oauth2.Token{AccessToken: "a"})
	if id == "" {
		t.Fatal("Expected non-empty session id")
	}
	other := store.Create(&oauth2.Token{AccessToken: "b"})
	if id == other {
		t.Error("Expected unique session ids")
	}

	token, ok := store.Token(id)
	if !ok || token.AccessToken != "a" {
		t.Errorf("Expected stored token, got %v %v", token, ok)
	}

	store.Update(id, &oauth2.Token{AccessToken: "a2"})
	if token, _ := store.Token(id); token.AccessToken != "a2" {
		t.Errorf("Expected updated token, got %q", token.AccessToken)
	}

	// Updating an unknown session must not create one.
	store.Update("ghost", &oauth2.Token{AccessToken: "x"})
	if _, ok := store.Token("ghost"); ok {
		t.Error("Expected no session created by Update on unknown id")
	}

	store.Delete(id)
	if _, ok := store.Token(id); ok {
		t.Error("Expected session deleted")
	}
}

func TestSessionExpired(t *testing.T) {
	store := NewSessionStore()

	fresh := store.Create(&oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)})
	stale := store.Create(&oauth2.Token{AccessToken: "b", Expiry: time.Now().Add(-time.Hour)})
	forever := store.Create(&oauth2.Token{AccessToken: "c"})

	if store.Expired(fresh) {
		t.Error("Expected fresh token not expired")
	}
	if !store.Expired(stale) {
		t.Error("Expected stale token expired")
	}
	if store.Expired(forever) {
		t.Error("Expected zero-expiry token never expired")
	}
	if !store.Expired("missing") {
		t.Error("Expected unknown session to count as expired")
	}
}

// rewriteTransport redirects every request to the stub server while keeping
// the original path, so provider calls can be served from httptest.
type rewriteTransport struct {
	target string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u, err := url.Parse(t.target)
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = u.Scheme
	req.URL.Host = u.Host
	return http.DefaultTransport.RoundTrip(req)
}

// stubContext routes all outbound HTTP (API and token endpoint alike)
// through the stub server.
func stubContext(srv *httptest.Server) context.Context {
	client := &http.Client{Transport: rewriteTransport{target: srv.URL}}
	return context.WithValue(context.Background(), oauth2.HTTPClient, client)
}

func TestPlaybackState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me/player" {
			t.Errorf("Expected /v1/me/player, got %s", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"device": {"id": "d1", "name": "Office Speaker", "type": "Computer", "volume_percent": 60},
			"shuffle_state": true,
			"repeat_state": "off",
			"is_playing": true,
			"progress_ms": 1234,
			"item": null
		}`)
	}))
	defer srv.Close()

	svc := newTestService(nil)
	sessionID := svc.Sessions.Create(&oauth2.Token{AccessToken: "tok"})

	playback, err := svc.PlaybackState(stubContext(srv), sessionID)
	if err != nil {
		t.Fatalf("Expected playback state, got %v", err)
	}
	if playback == nil {
		t.Fatal("Expected playback info, got nil")
	}
	if playback.Device.Name != "Office Speaker" || playback.Device.VolumePercent != 60 {
		t.Errorf("Expected device mapped, got %+v", playback.Device)
	}
	if !playback.ShuffleState || playback.RepeatState != "off" {
		t.Errorf("Expected shuffle on and repeat off, got %+v", playback)
	}
	if !playback.IsPlaying || playback.ProgressMs != 1234 {
		t.Errorf("Expected playing at 1234ms, got %+v", playback)
	}
}

func TestPlaybackStateRequiresSession(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.PlaybackState(context.Background(), "missing")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
}

func TestUserProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me" {
			t.Errorf("Expected /v1/me, got %s", r.URL.Path)
		}
		fmt.Fprint(w, `{
			"id": "user1",
			"display_name": "Luke",
			"email": "luke@example.com",
			"country": "US",
			"product": "premium",
			"followers": {"total": 7},
			"images": [{"url": "https://img.example/u.png", "height": 64, "width": 64}]
		}`)
	}))
	defer srv.Close()

	svc := newTestService(nil)
	sessionID := svc.Sessions.Create(&oauth2.Token{AccessToken: "tok"})

	user, err := svc.UserProfile(stubContext(srv), sessionID)
	if err != nil {
		t.Fatalf("Expected profile, got %v", err)
	}
	if user.ID != "user1" || user.DisplayName != "Luke" {
		t.Errorf("Expected user1/Luke, got %+v", user)
	}
	if user.Followers != 7 {
		t.Errorf("Expected 7 followers, got %d", user.Followers)
	}
	if len(user.Images) != 1 || user.Images[0].URL != "https://img.example/u.png" {
		t.Errorf("Expected one image mapped, got %+v", user.Images)
	}
}

func TestSearchTracks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Errorf("Expected /v1/search, got %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "yesterday" {
			t.Errorf("Expected query passthrough, got %q", q)
		}
		if limit := r.URL.Query().Get("limit"); limit != "50" {
			t.Errorf("Expected limit clamped to 50, got %q", limit)
		}
		fmt.Fprint(w, `{
			"tracks": {
				"items": [{
					"id": "t1",
					"name": "Yesterday",
					"artists": [{"id": "a1", "name": "The Beatles"}],
					"album": {"id": "al1", "name": "Help!"},
					"duration_ms": 125000,
					"popularity": 80,
					"preview_url": "https://p.example/t1",
					"external_urls": {"spotify": "https://open.example/t1"}
				}],
				"limit": 50,
				"total": 1
			}
		}`)
	}))
	defer srv.Close()

	svc := newTestService(nil)
	sessionID := svc.Sessions.Create(&oauth2.Token{AccessToken: "tok"})

	tracks, err := svc.SearchTracks(stubContext(srv), sessionID, "yesterday", 99)
	if err != nil {
		t.Fatalf("Expected search results, got %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("Expected 1 track, got %d", len(tracks))
	}
	track := tracks[0]
	if track.ID != "t1" || track.Name != "Yesterday" || track.Album != "Help!" {
		t.Errorf("Expected mapped track, got %+v", track)
	}
	if len(track.Artists) != 1 || track.Artists[0] != "The Beatles" {
		t.Errorf("Expected artist names flattened, got %v", track.Artists)
	}
	if track.DurationMs != 125000 || track.Popularity != 80 {
		t.Errorf("Expected duration and popularity mapped, got %+v", track)
	}
}

func TestExpiredTokenRefreshPersisted(t *testing.T) {
	refreshes := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"access_token": "fresh-token",
			"token_type": "Bearer",
			"refresh_token": "next-refresh",
			"expires_in": 3600
		}`)
	}))
	defer srv.Close()

	svc := newTestService(nil)
	sessionID := svc.Sessions.Create(&oauth2.Token{
		AccessToken:  "stale-token",
		RefreshToken: "first-refresh",
		Expiry:       time.Now().Add(-time.Hour),
	})

	svc.nowPlaying = func(ctx context.Context, token *oauth2.Token) (*TrackInfo, error) {
		if token.AccessToken != "fresh-token" {
			t.Errorf("Expected refreshed token used for the call, got %q", token.AccessToken)
		}
		return &TrackInfo{ID: "abc", Name: "Yesterday"}, nil
	}

	ctx := stubContext(srv)
	if _, err := svc.CurrentTrack(ctx, sessionID); err != nil {
		t.Fatalf("Expected track after refresh, got %v", err)
	}

	stored, ok := svc.Sessions.Token(sessionID)
	if !ok || stored.AccessToken != "fresh-token" {
		t.Fatalf("Expected refreshed token persisted, got %+v", stored)
	}

	// A second call must reuse the stored token instead of refreshing again.
	if _, err := svc.CurrentTrack(ctx, sessionID); err != nil {
		t.Fatalf("Expected second track fetch, got %v", err)
	}
	if refreshes != 1 {
		t.Errorf("Expected a single refresh round trip, got %d", refreshes)
	}
}
