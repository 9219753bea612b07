package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Server struct {
		Port                string `envconfig:"PORT" default:"5000"`
		FrontendOrigin      string `envconfig:"FRONTEND_ORIGIN" default:"http://localhost:3000"`
		RateLimitPerSecond  int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"5"`
		RateLimitBurstLimit int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"10"`
		APIKey              string `envconfig:"API_KEY" default:""`
		CacheAccessToken    string `envconfig:"CACHE_ACCESS_TOKEN" default:""`
	}

	Genius struct {
		AccessToken string `envconfig:"GENIUS_ACCESS_TOKEN" default:""`
		BaseURL     string `envconfig:"GENIUS_BASE_URL" default:"https://api.genius.com"`
		// Outbound throttle: rolling quota per window plus an absolute
		// minimum gap between granted requests.
		RequestsPerMinute  int `envconfig:"GENIUS_REQUESTS_PER_MINUTE" default:"10"`
		MinRequestGapMs    int `envconfig:"GENIUS_MIN_REQUEST_GAP_MS" default:"100"`
		RequestTimeoutSecs int `envconfig:"GENIUS_REQUEST_TIMEOUT_SECS" default:"10"`
		ScrapeTimeoutSecs  int `envconfig:"GENIUS_SCRAPE_TIMEOUT_SECS" default:"30"`
		BackoffBaseMs      int `envconfig:"GENIUS_BACKOFF_BASE_MS" default:"500"`
		BackoffMaxRetries  int `envconfig:"GENIUS_BACKOFF_MAX_RETRIES" default:"2"`
	}

	Spotify struct {
		ClientID     string `envconfig:"SPOTIFY_CLIENT_ID" default:""`
		ClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET" default:""`
		RedirectURI  string `envconfig:"SPOTIFY_REDIRECT_URI" default:"http://localhost:5000/auth/spotify/callback"`
	}

	Cache struct {
		TTLInSeconds             int  `envconfig:"RESPONSE_CACHE_TTL_IN_SECONDS" default:"45"`
		MinFetchIntervalSecs     int  `envconfig:"RESPONSE_CACHE_MIN_FETCH_INTERVAL_SECS" default:"5"`
		CleanupIntervalInSeconds int  `envconfig:"CACHE_CLEANUP_INTERVAL_IN_SECONDS" default:"60"`
		Compression              bool `envconfig:"FF_CACHE_COMPRESSION" default:"false"`
	}

	Matching struct {
		// Heuristic acceptance thresholds tuned against observed provider
		// data. Product decision, do not re-derive.
		EarlyExitThreshold float64 `envconfig:"MATCH_EARLY_EXIT_THRESHOLD" default:"0.6"`
		AcceptFloor        float64 `envconfig:"MATCH_ACCEPT_FLOOR" default:"0.4"`
		SearchLimit        int     `envconfig:"MATCH_SEARCH_LIMIT" default:"10"`
	}

	CircuitBreaker struct {
		Threshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`
		CooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"`
	}

	Ratings struct {
		DBPath string `envconfig:"RATINGS_DB_PATH" default:"data/ratings.db"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}
