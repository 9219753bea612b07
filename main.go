package main

import (
	"net/http"
	"os"
	"time"

	"github.com/LukeR5776/LyricAnalyzer/config"
	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	"github.com/LukeR5776/LyricAnalyzer/middleware"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var conf = config.Get()

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel) // Set to InfoLevel (change to DebugLevel for detailed logs)

	err := godotenv.Load()
	if err != nil {
		log.Warn("Error loading .env file, using environment variables")
	}
}

func main() {
	if err := setupServices(conf); err != nil {
		log.Fatalf("%s Failed to wire services: %v", logcolors.LogServer, err)
	}
	defer ratingsStore.Close()

	// Background sweep of expired cache entries.
	stop := make(chan struct{})
	defer close(stop)
	cleanupInterval := time.Duration(conf.Cache.CleanupIntervalInSeconds) * time.Second
	geniusCache.StartCleanup(cleanupInterval, stop)
	spotifyCache.StartCleanup(cleanupInterval, stop)

	router := mux.NewRouter()
	setupRoutes(router)

	allowedOrigins := []string{"http://localhost:3000"}
	if conf.Server.FrontendOrigin != "" {
		allowedOrigins = append(allowedOrigins, conf.Server.FrontendOrigin)
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key"},
		AllowCredentials: true,
	})

	limiter := middleware.NewIPRateLimiter(rate.Limit(conf.Server.RateLimitPerSecond), conf.Server.RateLimitBurstLimit)

	handler := c.Handler(middleware.Logging(middleware.RateLimit(router, limiter, conf.Server.APIKey)))

	port := os.Getenv("PORT")
	if port == "" {
		port = conf.Server.Port
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Infof("%s Listening on port %s", logcolors.LogServer, port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("%s Server stopped: %v", logcolors.LogServer, err)
	}
}
