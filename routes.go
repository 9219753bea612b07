package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// Lyrics pipeline endpoints
	router.HandleFunc("/api/lyrics/current", currentLyrics).Methods(http.MethodGet)
	router.HandleFunc("/api/lyrics/search", searchLyrics).Methods(http.MethodGet)
	router.HandleFunc("/api/lyrics/by-id/{id}", lyricsBySongID).Methods(http.MethodGet)

	// Raw catalog endpoints
	router.HandleFunc("/api/genius/search", geniusSearch).Methods(http.MethodGet)
	router.HandleFunc("/api/genius/song/{id}", geniusSongDetails).Methods(http.MethodGet)
	router.HandleFunc("/api/genius/song/{id}/annotations", geniusSongAnnotations).Methods(http.MethodGet)
	router.HandleFunc("/api/genius/match-spotify", geniusMatchSpotify).Methods(http.MethodGet)
	router.HandleFunc("/api/genius/lyrics", geniusLyrics).Methods(http.MethodGet)

	// Playback and account
	router.HandleFunc("/api/spotify/current-track", getCurrentTrack).Methods(http.MethodGet)
	router.HandleFunc("/api/spotify/playback-state", getPlaybackState).Methods(http.MethodGet)
	router.HandleFunc("/api/spotify/user-profile", getUserProfile).Methods(http.MethodGet)
	router.HandleFunc("/api/spotify/search", spotifyTrackSearch).Methods(http.MethodGet)

	// OAuth session lifecycle
	router.HandleFunc("/auth/spotify/login", spotifyLogin).Methods(http.MethodGet)
	router.HandleFunc("/auth/spotify/callback", spotifyCallback).Methods(http.MethodGet)
	router.HandleFunc("/auth/spotify/exchange", spotifyExchange).Methods(http.MethodPost)
	router.HandleFunc("/auth/spotify/claim", spotifyClaim).Methods(http.MethodPost)
	router.HandleFunc("/auth/spotify/status", spotifyStatus).Methods(http.MethodGet)
	router.HandleFunc("/auth/spotify/refresh", spotifyRefresh).Methods(http.MethodGet)
	router.HandleFunc("/auth/spotify/logout", spotifyLogout).Methods(http.MethodPost)

	// Ratings
	router.HandleFunc("/api/ratings", addRating).Methods(http.MethodPost)
	router.HandleFunc("/api/ratings", listRatings).Methods(http.MethodGet)
	router.HandleFunc("/api/ratings/stats", ratingStats).Methods(http.MethodGet)
	router.HandleFunc("/api/ratings/{songId}", getRating).Methods(http.MethodGet)
	router.HandleFunc("/api/ratings/{songId}", deleteRating).Methods(http.MethodDelete)

	// Ops endpoints
	router.HandleFunc("/health", getHealthStatus).Methods(http.MethodGet)
	router.HandleFunc("/stats", getStats).Methods(http.MethodGet)
	router.HandleFunc("/cache", getCacheDump).Methods(http.MethodGet)
	router.HandleFunc("/circuit-breaker", getCircuitBreakerStatus).Methods(http.MethodGet)
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreaker).Methods(http.MethodPost)

	// Help endpoint
	router.HandleFunc("/", helpHandler)
}
