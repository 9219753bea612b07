package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	"github.com/LukeR5776/LyricAnalyzer/services/genius"
	"github.com/LukeR5776/LyricAnalyzer/services/ratings"
	"github.com/LukeR5776/LyricAnalyzer/services/spotify"
	"github.com/LukeR5776/LyricAnalyzer/stats"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// oauthStates tracks outstanding login attempts so the callback can verify
// the state parameter. Single-use.
var (
	oauthStatesMu sync.Mutex
	oauthStates   = map[string]bool{}
)

func claimState(state string) bool {
	oauthStatesMu.Lock()
	defer oauthStatesMu.Unlock()
	if !oauthStates[state] {
		return false
	}
	delete(oauthStates, state)
	return true
}

// claimWindow bounds how long a completed browser login stays claimable by
// the desktop client.
const claimWindow = 10 * time.Minute

type pendingAuth struct {
	sessionID string
	created   time.Time
}

// completedAuth holds sessions finished in the browser until the desktop
// client claims them by state. The browser and the desktop app do not share
// cookies, so the state parameter is the handoff key.
var (
	completedAuthMu sync.Mutex
	completedAuth   = map[string]pendingAuth{}
)

func setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"help": "Use /api/lyrics/search?artist=&title= to match a track and fetch its lyrics and annotations. " +
			"Authenticate at /auth/spotify/login to use /api/lyrics/current against your playback.",
	})
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(HealthResponse{Status: "healthy", Service: "lyric-analyzer"})
}

func getStats(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(stats.Get().GetSnapshot())
}

func getCacheDump(w http.ResponseWriter, r *http.Request) {
	if token := conf.Server.CacheAccessToken; token != "" && r.URL.Query().Get("token") != token {
		Respond(w, r).Error(http.StatusUnauthorized, "Invalid cache access token")
		return
	}
	numKeys, sizeInKB := geniusCache.Stats()
	Respond(w, r).JSON(CacheDumpResponse{NumberOfKeys: numKeys, SizeInKB: sizeInKB, Entries: geniusCache.Dump()})
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"state":             geniusBreaker.State().String(),
		"failures":          geniusBreaker.Failures(),
		"seconds_until_try": int(geniusBreaker.TimeUntilRetry().Seconds()),
	})
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	geniusBreaker.Reset()
	Respond(w, r).JSON(map[string]interface{}{"success": true, "state": geniusBreaker.State().String()})
}

// searchLyrics runs the full pipeline for an explicit artist/title pair:
// match, scrape, clean, align.
func searchLyrics(w http.ResponseWriter, r *http.Request) {
	artist := r.URL.Query().Get("artist")
	title := r.URL.Query().Get("title")
	if artist == "" || title == "" {
		Respond(w, r).Error(http.StatusBadRequest, "artist and title query parameters are required")
		return
	}
	writeLyricsPipeline(w, r, artist, title, nil)
}

// currentLyrics runs the pipeline against the session's currently playing
// track.
func currentLyrics(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}

	track, err := spotifyService.CurrentTrack(r.Context(), sessionID)
	if err == spotify.ErrNotAuthenticated {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Failed to read current playback")
		return
	}
	if track == nil {
		Respond(w, r).Status(http.StatusNotFound, LyricsResponse{Success: true, Lyrics: "", Annotations: nil})
		return
	}

	artist := ""
	if len(track.Artists) > 0 {
		artist = track.Artists[0]
	}
	writeLyricsPipeline(w, r, artist, track.Name, track)
}

// lyricsBySongID skips matching and retrieves lyrics for a known catalog id.
func lyricsBySongID(w http.ResponseWriter, r *http.Request) {
	songID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid song id")
		return
	}

	details, err := geniusClient.GetSongDetails(songID)
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Failed to load song")
		return
	}
	if details == nil {
		Respond(w, r).Error(http.StatusNotFound, "Song not found")
		return
	}

	text := lyricsFetcher.Retrieve(details.Artist, details.Title, details.URL)
	if text == "" {
		Respond(w, r).Status(http.StatusNotFound, LyricsResponse{
			Success:     true,
			Song:        &details.SongRecord,
			Annotations: []genius.Annotation{},
		})
		return
	}

	aligned := alignAnnotations(songID, text)
	Respond(w, r).JSON(LyricsResponse{
		Success:         true,
		Song:            &details.SongRecord,
		Lyrics:          text,
		Annotations:     aligned,
		AnnotationCount: len(aligned),
	})
}

// writeLyricsPipeline is the shared match-retrieve-align flow.
func writeLyricsPipeline(w http.ResponseWriter, r *http.Request, artist, title string, track *spotify.TrackInfo) {
	best, err := matchSelector.FindBestMatch(artist, title)
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Catalog search failed")
		return
	}
	if best == nil {
		// A clean miss is a normal outcome, not a server error.
		Respond(w, r).Status(http.StatusNotFound, MatchResponse{Success: true, Matched: false})
		return
	}

	text := lyricsFetcher.Retrieve(artist, title, best.Song.URL)
	if text == "" {
		Respond(w, r).Status(http.StatusNotFound, LyricsResponse{
			Success: true,
			Track:   track,
			Song:    &best.Song,
			Score:   best.Score,
		})
		return
	}

	aligned := alignAnnotations(best.Song.ID, text)
	Respond(w, r).JSON(LyricsResponse{
		Success:         true,
		Track:           track,
		Song:            &best.Song,
		Score:           best.Score,
		Lyrics:          text,
		Annotations:     aligned,
		AnnotationCount: len(aligned),
	})
}

func geniusSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		Respond(w, r).Error(http.StatusBadRequest, "q query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := geniusClient.Search(query, limit)
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Catalog search failed")
		return
	}
	Respond(w, r).JSON(SearchResponse{Success: true, Query: query, Results: results})
}

func geniusSongDetails(w http.ResponseWriter, r *http.Request) {
	songID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid song id")
		return
	}

	details, err := geniusClient.GetSongDetails(songID)
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Failed to load song")
		return
	}
	if details == nil {
		Respond(w, r).Error(http.StatusNotFound, "Song not found")
		return
	}
	Respond(w, r).JSON(SongDetailsResponse{Success: true, Song: details})
}

func geniusSongAnnotations(w http.ResponseWriter, r *http.Request) {
	songID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid song id")
		return
	}

	songAnnotations, err := geniusClient.GetAnnotations(songID)
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Failed to load annotations")
		return
	}
	Respond(w, r).JSON(AnnotationsResponse{Success: true, Annotations: songAnnotations, Count: len(songAnnotations)})
}

// geniusMatchSpotify matches an arbitrary artist/title pair to a catalog
// song without fetching lyrics.
func geniusMatchSpotify(w http.ResponseWriter, r *http.Request) {
	artist := r.URL.Query().Get("artist")
	title := r.URL.Query().Get("title")
	if artist == "" || title == "" {
		Respond(w, r).Error(http.StatusBadRequest, "artist and title query parameters are required")
		return
	}

	best, err := matchSelector.FindBestMatch(artist, title)
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Catalog search failed")
		return
	}
	if best == nil {
		Respond(w, r).Status(http.StatusNotFound, MatchResponse{Success: true, Matched: false})
		return
	}
	Respond(w, r).JSON(MatchResponse{Success: true, Matched: true, Song: &best.Song, Score: best.Score})
}

// geniusLyrics returns cleaned lyric text only, with no matching metadata
// or annotations.
func geniusLyrics(w http.ResponseWriter, r *http.Request) {
	artist := r.URL.Query().Get("artist")
	title := r.URL.Query().Get("title")
	if artist == "" || title == "" {
		Respond(w, r).Error(http.StatusBadRequest, "artist and title query parameters are required")
		return
	}

	text := lyricsFetcher.Retrieve(artist, title, "")
	if text == "" {
		Respond(w, r).Error(http.StatusNotFound, "Lyrics not found")
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"success": true,
		"lyrics":  text,
		"artist":  artist,
		"title":   title,
	})
}

func getCurrentTrack(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}

	track, err := spotifyService.CurrentTrack(r.Context(), sessionID)
	if err == spotify.ErrNotAuthenticated {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Failed to read current playback")
		return
	}
	if track == nil {
		Respond(w, r).JSON(CurrentTrackResponse{Success: true, Playing: false, Message: "No track currently playing"})
		return
	}
	Respond(w, r).JSON(CurrentTrackResponse{Success: true, Playing: track.IsPlaying, Track: track})
}

func getPlaybackState(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}

	playback, err := spotifyService.PlaybackState(r.Context(), sessionID)
	if err == spotify.ErrNotAuthenticated {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Failed to read playback state")
		return
	}
	if playback == nil {
		Respond(w, r).JSON(PlaybackStateResponse{Success: true, Active: false, Message: "No active playback"})
		return
	}
	Respond(w, r).JSON(PlaybackStateResponse{Success: true, Active: true, PlaybackInfo: playback})
}

func getUserProfile(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}

	user, err := spotifyService.UserProfile(r.Context(), sessionID)
	if err == spotify.ErrNotAuthenticated {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Failed to load user profile")
		return
	}
	Respond(w, r).JSON(UserProfileResponse{Success: true, User: user})
}

func spotifyTrackSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		Respond(w, r).Error(http.StatusBadRequest, "q query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sessionID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}

	tracks, err := spotifyService.SearchTracks(r.Context(), sessionID, query, limit)
	if err == spotify.ErrNotAuthenticated {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}
	if err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Track search failed")
		return
	}
	Respond(w, r).JSON(SpotifySearchResponse{Success: true, Query: query, Tracks: tracks})
}

// spotifyLogin hands the consent URL and state to the client, which opens
// the URL in a browser and later claims the finished login by state.
func spotifyLogin(w http.ResponseWriter, r *http.Request) {
	state := newState()
	oauthStatesMu.Lock()
	oauthStates[state] = true
	oauthStatesMu.Unlock()
	Respond(w, r).JSON(LoginResponse{Success: true, AuthURL: spotifyService.AuthURL(state), State: state})
}

func spotifyCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if !claimState(state) {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		Respond(w, r).Error(http.StatusBadRequest, "Missing authorization code")
		return
	}

	sessionID, err := spotifyService.Exchange(r.Context(), code)
	if err != nil {
		log.Errorf("%s Token exchange failed: %v", logcolors.LogAuth, err)
		Respond(w, r).Error(http.StatusBadGateway, "Token exchange failed")
		return
	}

	// Park the session for the desktop client, which runs outside the
	// browser's cookie jar and claims it by state.
	completedAuthMu.Lock()
	completedAuth[state] = pendingAuth{sessionID: sessionID, created: time.Now()}
	completedAuthMu.Unlock()

	setSessionCookie(w, sessionID)

	if origin := conf.Server.FrontendOrigin; origin != "" {
		http.Redirect(w, r, origin, http.StatusFound)
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"success": true})
}

// spotifyExchange trades an authorization code straight for a session.
// Desktop clients that intercept the redirect themselves use this instead
// of the browser callback.
func spotifyExchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string `json:"code"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		Respond(w, r).Error(http.StatusBadRequest, "No authorization code provided")
		return
	}

	sessionID, err := spotifyService.Exchange(r.Context(), req.Code)
	if err != nil {
		log.Errorf("%s Token exchange failed: %v", logcolors.LogAuth, err)
		Respond(w, r).Error(http.StatusBadGateway, "Token exchange failed")
		return
	}
	setSessionCookie(w, sessionID)

	resp := map[string]interface{}{"success": true, "message": "Successfully authenticated with Spotify"}
	if token, ok := spotifyService.Sessions.Token(sessionID); ok && !token.Expiry.IsZero() {
		resp["expires_at"] = token.Expiry.Unix()
	}
	Respond(w, r).JSON(resp)
}

// spotifyClaim moves a browser-completed login onto the caller's session.
func spotifyClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.State == "" {
		Respond(w, r).Error(http.StatusBadRequest, "State parameter required")
		return
	}

	completedAuthMu.Lock()
	auth, ok := completedAuth[req.State]
	if ok {
		delete(completedAuth, req.State)
	}
	completedAuthMu.Unlock()

	if !ok {
		Respond(w, r).JSON(map[string]interface{}{
			"success":       false,
			"authenticated": false,
			"message":       "No completed authentication found for this state",
		})
		return
	}
	if time.Since(auth.created) > claimWindow {
		Respond(w, r).JSON(map[string]interface{}{
			"success":       false,
			"authenticated": false,
			"message":       "Authentication expired",
		})
		return
	}

	setSessionCookie(w, auth.sessionID)
	Respond(w, r).JSON(map[string]interface{}{
		"success":       true,
		"authenticated": true,
		"message":       "Authentication claimed successfully",
	})
}

func spotifyStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).JSON(AuthStatusResponse{Success: true, Authenticated: false})
		return
	}
	if _, exists := spotifyService.Sessions.Token(sessionID); !exists {
		Respond(w, r).JSON(AuthStatusResponse{Success: true, Authenticated: false})
		return
	}
	Respond(w, r).JSON(AuthStatusResponse{
		Success:       true,
		Authenticated: true,
		TokenExpired:  spotifyService.Sessions.Expired(sessionID),
	})
}

func spotifyRefresh(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated with Spotify")
		return
	}
	if err := spotifyService.Refresh(r.Context(), sessionID); err != nil {
		Respond(w, r).Error(http.StatusBadGateway, "Token refresh failed")
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"success": true})
}

func spotifyLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := sessionFrom(r); ok {
		spotifyService.Logout(sessionID)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	Respond(w, r).JSON(map[string]interface{}{"success": true})
}

// addRatingRequest is the POST /api/ratings body.
type addRatingRequest struct {
	Song   ratings.Song `json:"song"`
	Rating float64      `json:"rating"`
}

func addRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req addRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Respond(w, r).Error(http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := ratingsStore.Add(userID, req.Song, req.Rating)
	if err == ratings.ErrInvalidRating {
		Respond(w, r).Error(http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to save rating")
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"success": true, "rating": entry})
}

func listRatings(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated")
		return
	}

	entries, err := ratingsStore.List(userID, r.URL.Query().Get("sort"))
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to load ratings")
		return
	}
	if entries == nil {
		entries = []ratings.Entry{}
	}
	Respond(w, r).JSON(map[string]interface{}{"success": true, "ratings": entries, "count": len(entries)})
}

func getRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated")
		return
	}

	entry, err := ratingsStore.Get(userID, mux.Vars(r)["songId"])
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to load rating")
		return
	}
	if entry == nil {
		Respond(w, r).Error(http.StatusNotFound, "Rating not found")
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"success": true, "rating": entry})
}

func deleteRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated")
		return
	}

	deleted, err := ratingsStore.Delete(userID, mux.Vars(r)["songId"])
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to delete rating")
		return
	}
	if !deleted {
		Respond(w, r).Error(http.StatusNotFound, "Rating not found")
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"success": true})
}

func ratingStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionFrom(r)
	if !ok {
		Respond(w, r).Error(http.StatusUnauthorized, "Not authenticated")
		return
	}

	userStats, err := ratingsStore.UserStats(userID)
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "Failed to load stats")
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"success": true, "stats": userStats})
}

// sessionFrom extracts the session id from the request cookie.
func sessionFrom(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func newState() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
