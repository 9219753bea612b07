package lyrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	"github.com/LukeR5776/LyricAnalyzer/services/genius"
	"github.com/LukeR5776/LyricAnalyzer/services/match"
	"github.com/LukeR5776/LyricAnalyzer/stats"
	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// lyricsContainerSelector marks the lyric blocks on a song page.
const lyricsContainerSelector = "div[data-lyrics-container='true']"

// minLyricsLength is the shortest plausible real lyric text. Anything at or
// below this is treated as a placeholder page.
const minLyricsLength = 50

// placeholderPhrases flag pages that carry no real lyrics.
var placeholderPhrases = []string{
	"visit genius.com",
	"go to genius.com",
	"view lyrics on genius",
	"lyrics not available",
	"instrumental",
}

// Searcher is the catalog lookup used for fallback retrieval.
type Searcher interface {
	Search(query string, limit int) ([]genius.SongRecord, error)
}

// Retriever fetches song pages and extracts cleaned lyric text.
type Retriever struct {
	httpClient *http.Client
	searcher   Searcher
}

// RetrieverOptions configures a Retriever. Searcher is optional; without it,
// only URL-based retrieval works.
type RetrieverOptions struct {
	Timeout  time.Duration
	Searcher Searcher
}

// NewRetriever creates a lyrics retriever.
func NewRetriever(opts RetrieverOptions) *Retriever {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Retriever{
		httpClient: &http.Client{Timeout: opts.Timeout},
		searcher:   opts.Searcher,
	}
}

// Retrieve returns cleaned lyric text for a track, or "" when none can be
// found. A known song URL is tried first since it targets the exact matched
// song; the search fallback could resolve to a different one. All scrape and
// search failures are soft: logged and treated as absence.
func (r *Retriever) Retrieve(artist, title, songURL string) string {
	if songURL != "" {
		if text := r.FromURL(songURL); text != "" {
			return text
		}
		log.Warnf("%s Direct retrieval failed for %s, falling back to search", logcolors.LogLyrics, songURL)
	}

	if r.searcher == nil {
		return ""
	}

	cleanTitle := match.CleanTitle(title)
	cleanArtist := match.CleanArtist(artist)
	queries := []string{cleanArtist + " " + cleanTitle, cleanTitle}
	for _, query := range queries {
		songs, err := r.searcher.Search(query, 5)
		if err != nil {
			log.Warnf("%s Fallback search %q failed: %v", logcolors.LogLyrics, query, err)
			continue
		}
		for _, song := range songs {
			if song.URL == "" {
				continue
			}
			if text := r.FromURL(song.URL); text != "" {
				log.Infof("%s Fallback retrieval hit %q by %q", logcolors.LogLyrics, song.Title, song.Artist)
				return text
			}
		}
	}

	log.Infof("%s No lyrics found for %q by %q", logcolors.LogLyrics, title, artist)
	return ""
}

// FromURL scrapes a song page and returns cleaned, validated lyric text, or
// "" when the page has no usable lyrics.
func (r *Retriever) FromURL(pageURL string) string {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		log.Errorf("%s Bad song URL %q: %v", logcolors.LogScrape, pageURL, err)
		return ""
	}
	// A browser-like UA keeps the page server from serving a bot shell.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Warnf("%s Fetch failed for %s: %v", logcolors.LogScrape, pageURL, err)
		stats.Get().RecordScrapeFailure()
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("%s Unexpected status %d for %s", logcolors.LogScrape, resp.StatusCode, pageURL)
		stats.Get().RecordScrapeFailure()
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Warnf("%s Unparseable page at %s: %v", logcolors.LogScrape, pageURL, err)
		stats.Get().RecordScrapeFailure()
		return ""
	}

	raw := ExtractContainers(doc)
	if raw == "" {
		// No container is an absence, not an error: instrumental pages
		// and layout changes both land here.
		log.Infof("%s No lyrics container at %s", logcolors.LogScrape, pageURL)
		stats.Get().RecordScrapeFailure()
		return ""
	}

	cleaned := Clean(raw)
	if !Valid(cleaned) {
		log.Warnf("%s Rejected placeholder content at %s (%d chars)", logcolors.LogScrape, pageURL, len(cleaned))
		stats.Get().RecordScrapeFailure()
		return ""
	}

	stats.Get().RecordScrapeSuccess()
	log.Debugf("%s Extracted %d chars from %s", logcolors.LogScrape, len(cleaned), pageURL)
	return cleaned
}

// ExtractContainers walks the lyric container elements of a parsed song page
// and flattens them to plain text, turning <br> and block boundaries into
// newlines.
func ExtractContainers(doc *goquery.Document) string {
	var sb strings.Builder
	doc.Find(lyricsContainerSelector).Each(func(i int, container *goquery.Selection) {
		if i > 0 {
			sb.WriteByte('\n')
		}
		container.Contents().Each(nodeText(&sb))
	})
	return sb.String()
}

func nodeText(sb *strings.Builder) func(int, *goquery.Selection) {
	return func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "br", "div":
			sb.WriteByte('\n')
		case "#text":
			sb.WriteString(s.Text())
		default:
			s.Contents().Each(nodeText(sb))
		}
	}
}

// Valid reports whether cleaned text looks like real lyrics rather than a
// placeholder page.
func Valid(text string) bool {
	if len(text) <= minLyricsLength {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range placeholderPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}
