package main

import (
	"github.com/LukeR5776/LyricAnalyzer/cache"
	"github.com/LukeR5776/LyricAnalyzer/services/genius"
	"github.com/LukeR5776/LyricAnalyzer/services/spotify"
)

// sessionCookie carries the opaque session id issued after OAuth login.
const sessionCookie = "session_id"

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// MatchResponse is returned by the match endpoints.
type MatchResponse struct {
	Success bool               `json:"success"`
	Matched bool               `json:"matched"`
	Song    *genius.SongRecord `json:"song,omitempty"`
	Score   float64            `json:"score,omitempty"`
}

// LyricsResponse carries the full pipeline output for a track.
type LyricsResponse struct {
	Success         bool                `json:"success"`
	Track           *spotify.TrackInfo  `json:"track,omitempty"`
	Song            *genius.SongRecord  `json:"song,omitempty"`
	Score           float64             `json:"score,omitempty"`
	Lyrics          string              `json:"lyrics"`
	Annotations     []genius.Annotation `json:"annotations"`
	AnnotationCount int                 `json:"annotation_count"`
}

// SongDetailsResponse wraps a catalog song detail lookup.
type SongDetailsResponse struct {
	Success bool                `json:"success"`
	Song    *genius.SongDetails `json:"song"`
}

// SearchResponse wraps a raw catalog search.
type SearchResponse struct {
	Success bool                `json:"success"`
	Query   string              `json:"query"`
	Results []genius.SongRecord `json:"results"`
}

// AnnotationsResponse wraps a song's annotations.
type AnnotationsResponse struct {
	Success     bool                `json:"success"`
	Annotations []genius.Annotation `json:"annotations"`
	Count       int                 `json:"count"`
}

// CurrentTrackResponse wraps the playback snapshot.
type CurrentTrackResponse struct {
	Success bool               `json:"success"`
	Playing bool               `json:"playing"`
	Track   *spotify.TrackInfo `json:"track,omitempty"`
	Message string             `json:"message,omitempty"`
}

// LoginResponse hands the consent URL and state to the client.
type LoginResponse struct {
	Success bool   `json:"success"`
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// PlaybackStateResponse wraps the playback device state. The embedded
// fields are flattened into the envelope when playback is active.
type PlaybackStateResponse struct {
	Success bool   `json:"success"`
	Active  bool   `json:"active"`
	Message string `json:"message,omitempty"`
	*spotify.PlaybackInfo
}

// UserProfileResponse wraps the account summary.
type UserProfileResponse struct {
	Success bool                 `json:"success"`
	User    *spotify.UserProfile `json:"user"`
}

// SpotifySearchResponse wraps a streaming-catalog track search.
type SpotifySearchResponse struct {
	Success bool                  `json:"success"`
	Query   string                `json:"query"`
	Tracks  []spotify.TrackResult `json:"tracks"`
}

// AuthStatusResponse reports login state for the session.
type AuthStatusResponse struct {
	Success       bool `json:"success"`
	Authenticated bool `json:"authenticated"`
	TokenExpired  bool `json:"token_expired,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// CacheDumpResponse is returned by /cache.
type CacheDumpResponse struct {
	NumberOfKeys int                    `json:"number_of_keys"`
	SizeInKB     int                    `json:"size_in_kb"`
	Entries      map[string]cache.Entry `json:"entries"`
}
