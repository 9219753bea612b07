package main

import (
	"time"

	"github.com/LukeR5776/LyricAnalyzer/cache"
	"github.com/LukeR5776/LyricAnalyzer/circuitbreaker"
	"github.com/LukeR5776/LyricAnalyzer/config"
	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	"github.com/LukeR5776/LyricAnalyzer/services/annotations"
	"github.com/LukeR5776/LyricAnalyzer/services/genius"
	"github.com/LukeR5776/LyricAnalyzer/services/lyrics"
	"github.com/LukeR5776/LyricAnalyzer/services/match"
	"github.com/LukeR5776/LyricAnalyzer/services/ratings"
	"github.com/LukeR5776/LyricAnalyzer/services/spotify"
	"github.com/LukeR5776/LyricAnalyzer/throttle"
	log "github.com/sirupsen/logrus"
)

// Package-level services wired once at startup and shared by all handlers.
var (
	geniusCache    *cache.ResponseCache
	spotifyCache   *cache.ResponseCache
	geniusBreaker  *circuitbreaker.CircuitBreaker
	geniusClient   *genius.Client
	matchSelector  *match.Selector
	lyricsFetcher  *lyrics.Retriever
	spotifyService *spotify.Service
	ratingsStore   *ratings.Store
)

// setupServices builds the full service graph from configuration.
func setupServices(conf config.Config) error {
	geniusCache = cache.New(cache.Options{
		TTL:              time.Duration(conf.Cache.TTLInSeconds) * time.Second,
		MinFetchInterval: time.Duration(conf.Cache.MinFetchIntervalSecs) * time.Second,
		Compression:      conf.Cache.Compression,
	})
	spotifyCache = cache.New(cache.Options{
		TTL:              time.Duration(conf.Cache.TTLInSeconds) * time.Second,
		MinFetchInterval: time.Duration(conf.Cache.MinFetchIntervalSecs) * time.Second,
	})

	geniusBreaker = circuitbreaker.New(circuitbreaker.Config{
		Name:      "genius",
		Threshold: conf.CircuitBreaker.Threshold,
		Cooldown:  time.Duration(conf.CircuitBreaker.CooldownSecs) * time.Second,
	})

	geniusThrottle := throttle.New(throttle.Options{
		Quota:  conf.Genius.RequestsPerMinute,
		Window: time.Minute,
		MinGap: time.Duration(conf.Genius.MinRequestGapMs) * time.Millisecond,
	})

	geniusClient = genius.NewClient(genius.Options{
		BaseURL:     conf.Genius.BaseURL,
		AccessToken: conf.Genius.AccessToken,
		Timeout:     time.Duration(conf.Genius.RequestTimeoutSecs) * time.Second,
		Throttle:    geniusThrottle,
		Cache:       geniusCache,
		Breaker:     geniusBreaker,
		BackoffBase: time.Duration(conf.Genius.BackoffBaseMs) * time.Millisecond,
		MaxRetries:  conf.Genius.BackoffMaxRetries,
	})

	matchSelector = match.NewSelector(geniusClient, match.SelectorOptions{
		EarlyExitThreshold: conf.Matching.EarlyExitThreshold,
		AcceptFloor:        conf.Matching.AcceptFloor,
		SearchLimit:        conf.Matching.SearchLimit,
	})

	lyricsFetcher = lyrics.NewRetriever(lyrics.RetrieverOptions{
		Timeout:  time.Duration(conf.Genius.ScrapeTimeoutSecs) * time.Second,
		Searcher: geniusClient,
	})

	spotifyService = spotify.NewService(spotify.ServiceOptions{
		ClientID:     conf.Spotify.ClientID,
		ClientSecret: conf.Spotify.ClientSecret,
		RedirectURI:  conf.Spotify.RedirectURI,
		Cache:        spotifyCache,
	})

	store, err := ratings.Open(conf.Ratings.DBPath)
	if err != nil {
		return err
	}
	ratingsStore = store

	log.Infof("%s Services wired: genius quota %d/min, cache TTL %ds, breaker threshold %d",
		logcolors.LogServer, conf.Genius.RequestsPerMinute, conf.Cache.TTLInSeconds, conf.CircuitBreaker.Threshold)
	return nil
}

// alignAnnotations retrieves and aligns a song's annotations against the
// given lyrics. Failures degrade to an empty list.
func alignAnnotations(songID int, lyricText string) []genius.Annotation {
	songAnnotations, err := geniusClient.GetAnnotations(songID)
	if err != nil {
		log.Warnf("%s Annotations unavailable for song %d: %v", logcolors.LogAnnotations, songID, err)
		return []genius.Annotation{}
	}
	if lyricText == "" {
		return songAnnotations
	}
	return annotations.Align(lyricText, songAnnotations)
}
