package spotify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/LukeR5776/LyricAnalyzer/cache"
	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	log "github.com/sirupsen/logrus"
	spotifyclient "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// ErrNotAuthenticated is returned when a request carries no valid session.
var ErrNotAuthenticated = errors.New("spotify: not authenticated")

const currentTrackEndpoint = "current-track"

// TrackInfo is the playback snapshot served to clients.
type TrackInfo struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	DurationMs int      `json:"duration_ms"`
	ProgressMs int      `json:"progress_ms"`
	IsPlaying  bool     `json:"is_playing"`
}

// DeviceInfo describes the active playback device.
type DeviceInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	VolumePercent int    `json:"volume_percent"`
}

// PlaybackInfo is the full playback state beyond the current track.
type PlaybackInfo struct {
	Device       DeviceInfo `json:"device"`
	RepeatState  string     `json:"repeat_state"`
	ShuffleState bool       `json:"shuffle_state"`
	IsPlaying    bool       `json:"is_playing"`
	ProgressMs   int        `json:"progress_ms"`
}

// ImageInfo is a provider-hosted image reference.
type ImageInfo struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// UserProfile is the logged-in user's account summary.
type UserProfile struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email,omitempty"`
	Country     string      `json:"country,omitempty"`
	Followers   int         `json:"followers"`
	Images      []ImageInfo `json:"images"`
	Product     string      `json:"product,omitempty"`
}

// TrackResult is a catalog search hit.
type TrackResult struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []string          `json:"artists"`
	Album        string            `json:"album"`
	DurationMs   int               `json:"duration_ms"`
	Popularity   int               `json:"popularity"`
	PreviewURL   string            `json:"preview_url,omitempty"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// nowPlayingFunc fetches the currently playing track for a token. Swappable
// in tests.
type nowPlayingFunc func(ctx context.Context, token *oauth2.Token) (*TrackInfo, error)

// Service wraps the streaming provider's OAuth flow and playback polling.
// Current-track responses go through the shared ResponseCache so a client
// polling every few seconds does not hammer the provider.
type Service struct {
	auth       *spotifyauth.Authenticator
	Sessions   *SessionStore
	cache      *cache.ResponseCache
	nowPlaying nowPlayingFunc
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Cache        *cache.ResponseCache
}

// NewService creates a Spotify service using the authorization code flow
// with playback-read scopes.
func NewService(opts ServiceOptions) *Service {
	auth := spotifyauth.New(
		spotifyauth.WithClientID(opts.ClientID),
		spotifyauth.WithClientSecret(opts.ClientSecret),
		spotifyauth.WithRedirectURL(opts.RedirectURI),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeUserReadPlaybackState,
		),
	)
	s := &Service{
		auth:     auth,
		Sessions: NewSessionStore(),
		cache:    opts.Cache,
	}
	s.nowPlaying = s.fetchNowPlaying
	return s
}

// AuthURL builds the provider consent URL for a login attempt. The state
// value must be checked again on callback.
func (s *Service) AuthURL(state string) string {
	return s.auth.AuthURL(state)
}

// Exchange trades an authorization code for a token and opens a session.
func (s *Service) Exchange(ctx context.Context, code string) (string, error) {
	token, err := s.auth.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	id := s.Sessions.Create(token)
	log.Infof("%s Session opened, token expires %s", logcolors.LogAuth, token.Expiry.Format("15:04:05"))
	return id, nil
}

// Refresh forces a token refresh for a session and stores the new token.
func (s *Service) Refresh(ctx context.Context, sessionID string) error {
	token, ok := s.Sessions.Token(sessionID)
	if !ok {
		return ErrNotAuthenticated
	}
	fresh, err := s.auth.RefreshToken(ctx, token)
	if err != nil {
		return err
	}
	s.Sessions.Update(sessionID, fresh)
	log.Debugf("%s Token refreshed, new expiry %s", logcolors.LogAuth, fresh.Expiry.Format("15:04:05"))
	return nil
}

// freshToken returns the session's token, refreshing and persisting it
// first when it has expired.
func (s *Service) freshToken(ctx context.Context, sessionID string) (*oauth2.Token, error) {
	token, ok := s.Sessions.Token(sessionID)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if token.Valid() {
		return token, nil
	}
	fresh, err := s.auth.RefreshToken(ctx, token)
	if err != nil {
		return nil, err
	}
	s.Sessions.Update(sessionID, fresh)
	log.Debugf("%s Expired token refreshed, new expiry %s", logcolors.LogAuth, fresh.Expiry.Format("15:04:05"))
	return fresh, nil
}

// clientFor builds an authenticated API client for a session.
func (s *Service) clientFor(ctx context.Context, sessionID string) (*spotifyclient.Client, error) {
	token, err := s.freshToken(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return spotifyclient.New(s.auth.Client(ctx, token)), nil
}

// Logout drops a session and its cached playback state.
func (s *Service) Logout(sessionID string) {
	s.Sessions.Delete(sessionID)
	if s.cache != nil {
		s.cache.ClearClient(sessionID)
	}
}

// CurrentTrack returns the session's currently playing track, nil when
// nothing is playing. Responses are cached per session; within the cache's
// minimum fetch interval a stale snapshot is served instead of a live call.
func (s *Service) CurrentTrack(ctx context.Context, sessionID string) (*TrackInfo, error) {
	if _, ok := s.Sessions.Token(sessionID); !ok {
		return nil, ErrNotAuthenticated
	}

	if s.cache != nil {
		if skip, payload := s.cache.ShouldSkip(sessionID, currentTrackEndpoint); skip {
			var info TrackInfo
			if err := json.Unmarshal(payload, &info); err == nil {
				log.Debugf("%s Serving cached current track for session", logcolors.LogSpotify)
				if info.ID == "" {
					return nil, nil
				}
				return &info, nil
			}
		}
	}

	token, err := s.freshToken(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	info, err := s.nowPlaying(ctx, token)
	if err != nil {
		log.Errorf("%s Current track fetch failed: %v", logcolors.LogSpotify, err)
		return nil, err
	}

	if s.cache != nil {
		// An empty snapshot caches the "nothing playing" answer too.
		cached := info
		if cached == nil {
			cached = &TrackInfo{}
		}
		if err := s.cache.PutJSON(sessionID, currentTrackEndpoint, cached); err != nil {
			log.Warnf("%s Failed to cache current track: %v", logcolors.LogSpotify, err)
		}
	}
	return info, nil
}

// PlaybackState returns the session's full playback state, nil when no
// device is active.
func (s *Service) PlaybackState(ctx context.Context, sessionID string) (*PlaybackInfo, error) {
	client, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state, err := client.PlayerState(ctx)
	if err != nil {
		log.Errorf("%s Playback state fetch failed: %v", logcolors.LogSpotify, err)
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	return &PlaybackInfo{
		Device: DeviceInfo{
			ID:            string(state.Device.ID),
			Name:          state.Device.Name,
			Type:          state.Device.Type,
			VolumePercent: int(state.Device.Volume),
		},
		RepeatState:  state.RepeatState,
		ShuffleState: state.ShuffleState,
		IsPlaying:    state.Playing,
		ProgressMs:   int(state.Progress),
	}, nil
}

// UserProfile returns the logged-in user's account summary.
func (s *Service) UserProfile(ctx context.Context, sessionID string) (*UserProfile, error) {
	client, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	user, err := client.CurrentUser(ctx)
	if err != nil {
		log.Errorf("%s User profile fetch failed: %v", logcolors.LogSpotify, err)
		return nil, err
	}

	images := make([]ImageInfo, 0, len(user.Images))
	for _, img := range user.Images {
		images = append(images, ImageInfo{URL: img.URL, Height: int(img.Height), Width: int(img.Width)})
	}

	return &UserProfile{
		ID:          string(user.ID),
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Followers:   int(user.Followers.Count),
		Images:      images,
		Product:     user.Product,
	}, nil
}

// SearchTracks runs a track search on behalf of the session.
func (s *Service) SearchTracks(ctx context.Context, sessionID, query string, limit int) ([]TrackResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	client, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	results, err := client.Search(ctx, query, spotifyclient.SearchTypeTrack, spotifyclient.Limit(limit))
	if err != nil {
		log.Errorf("%s Track search failed: %v", logcolors.LogSpotify, err)
		return nil, err
	}
	if results == nil || results.Tracks == nil {
		return []TrackResult{}, nil
	}

	tracks := make([]TrackResult, 0, len(results.Tracks.Tracks))
	for _, track := range results.Tracks.Tracks {
		artists := make([]string, 0, len(track.Artists))
		for _, artist := range track.Artists {
			artists = append(artists, artist.Name)
		}
		tracks = append(tracks, TrackResult{
			ID:           string(track.ID),
			Name:         track.Name,
			Artists:      artists,
			Album:        track.Album.Name,
			DurationMs:   int(track.Duration),
			Popularity:   int(track.Popularity),
			PreviewURL:   track.PreviewURL,
			ExternalURLs: track.ExternalURLs,
		})
	}
	return tracks, nil
}

// fetchNowPlaying issues the live provider call.
func (s *Service) fetchNowPlaying(ctx context.Context, token *oauth2.Token) (*TrackInfo, error) {
	client := spotifyclient.New(s.auth.Client(ctx, token))
	playing, err := client.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, err
	}
	if playing == nil || playing.Item == nil {
		return nil, nil
	}

	artists := make([]string, 0, len(playing.Item.Artists))
	for _, artist := range playing.Item.Artists {
		artists = append(artists, artist.Name)
	}

	return &TrackInfo{
		ID:         string(playing.Item.ID),
		Name:       playing.Item.Name,
		Artists:    artists,
		Album:      playing.Item.Album.Name,
		DurationMs: int(playing.Item.Duration),
		ProgressMs: int(playing.Progress),
		IsPlaying:  playing.Playing,
	}, nil
}
