package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Red    = "\033[31m"
)

// Cache and throttle log prefixes
const (
	LogCache      = Blue + "[Cache]" + Reset
	LogCacheSkip  = Cyan + "[Cache:Skip]" + Reset
	LogCacheClean = Blue + "[Cache:Cleanup]" + Reset
	LogThrottle   = Purple + "[Throttle]" + Reset
	LogBackoff    = Purple + "[Backoff]" + Reset
)

// Matching engine log prefixes
const (
	LogMatch     = Green + "[Match]" + Reset
	LogSearch    = Blue + "[Search]" + Reset
	LogScore     = Cyan + "[Score]" + Reset
	LogBestMatch = Green + "[BestMatch]" + Reset
)

// Lyrics retrieval log prefixes
const (
	LogLyrics      = Blue + "[Lyrics]" + Reset
	LogScrape      = Cyan + "[Scrape]" + Reset
	LogCleaner     = Cyan + "[Cleaner]" + Reset
	LogAnnotations = Blue + "[Annotations]" + Reset
)

// Provider client log prefixes
const (
	LogGenius  = Purple + "[Genius]" + Reset
	LogSpotify = Green + "[Spotify]" + Reset
	LogRatings = Blue + "[Ratings]" + Reset
)

// Server log prefixes
const (
	LogServer    = Green + "[Server]" + Reset
	LogConfig    = Cyan + "[Config]" + Reset
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogStats     = Blue + "[Stats]" + Reset
	LogAuth      = Purple + "[Auth]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}
