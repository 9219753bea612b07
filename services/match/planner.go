package match

import (
	"fmt"
	"strings"

	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	log "github.com/sirupsen/logrus"
)

// titleSuffixes are release decorations that hurt catalog search. Matched
// case-insensitively; everything from the suffix onward is dropped.
var titleSuffixes = []string{
	" - Remastered",
	" (Remastered)",
	" - Original Mix",
	" (Original Mix)",
	" (Explicit)",
	" (Clean)",
	" [Explicit]",
	" [Clean]",
}

// featMarkers cut an artist string down to its primary artist.
var featMarkers = []string{" feat.", " ft.", " featuring"}

// leetSubs maps stylized digits back to letters. Order matters: substitutions
// apply left to right as listed.
var leetSubs = [][2]string{
	{"4", "a"},
	{"3", "e"},
	{"1", "l"},
	{"0", "o"},
	{"5", "s"},
	{"7", "t"},
}

// CleanTitle strips release decorations like "- Remastered 2009" so the
// search query matches the canonical song title.
func CleanTitle(title string) string {
	cleaned := title
	for _, suffix := range titleSuffixes {
		lower := strings.ToLower(cleaned)
		if idx := strings.Index(lower, strings.ToLower(suffix)); idx >= 0 {
			cleaned = cleaned[:idx]
		}
	}
	return strings.TrimSpace(cleaned)
}

// CleanArtist keeps only the primary artist, dropping featured credits.
func CleanArtist(artist string) string {
	cleaned := artist
	for _, marker := range featMarkers {
		lower := strings.ToLower(cleaned)
		if idx := strings.Index(lower, marker); idx >= 0 {
			cleaned = cleaned[:idx]
		}
	}
	return strings.TrimSpace(cleaned)
}

// NormalizeTitle lowercases a title after stripping release decorations.
// Digit substitutions never apply to titles, where digits are usually
// literal ("7 rings", "99 Problems").
func NormalizeTitle(title string) string {
	return strings.ToLower(CleanTitle(title))
}

// NormalizeArtist lowercases the primary artist and undoes common catalog
// stylings: leet digits become letters (only when a digit is actually
// present) and "&"/"+" become "and".
func NormalizeArtist(artist string) string {
	normalized := strings.ToLower(CleanArtist(artist))
	if strings.ContainsAny(normalized, "0123456789") {
		for _, sub := range leetSubs {
			normalized = strings.ReplaceAll(normalized, sub[0], sub[1])
		}
	}
	normalized = strings.ReplaceAll(normalized, "&", "and")
	normalized = strings.ReplaceAll(normalized, "+", "and")
	return strings.TrimSpace(normalized)
}

// PlanQueries builds the ordered list of search queries to try for a track.
// The raw fields lead; normalized variants follow as separate attempts so a
// styling fix never masks the as-released spelling. Duplicates are removed
// while preserving order.
func PlanQueries(artist, title string) []string {
	normTitle := NormalizeTitle(title)
	normArtist := NormalizeArtist(artist)

	candidates := []string{
		artist + " " + title,
		title + " " + artist,
		normArtist + " " + normTitle,
		normTitle + " " + normArtist,
		title,
		normTitle,
		fmt.Sprintf("%q %s", title, artist),
		artist + " - " + title,
	}

	seen := make(map[string]bool, len(candidates))
	queries := make([]string, 0, len(candidates))
	for _, query := range candidates {
		query = strings.TrimSpace(query)
		if query == "" || seen[query] {
			continue
		}
		seen[query] = true
		queries = append(queries, query)
	}

	log.Debugf("%s Planned %d queries for %q by %q", logcolors.LogSearch, len(queries), title, artist)
	return queries
}
