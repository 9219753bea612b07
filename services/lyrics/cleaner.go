package lyrics

import (
	"regexp"
	"strings"
)

// cleanerState tracks where we are in a scraped page's text. Pages interleave
// contributor counts, translation links, and crowd-sourced descriptions with
// the lyric block itself, with no machine-readable boundary between them.
type cleanerState int

const (
	beforeLyrics cleanerState = iota
	inDescription
	inLyrics
)

var contributorLine = regexp.MustCompile(`^\d+\s+contributors?`)

// boilerplateExact are lowercased lines dropped outright before lyrics start.
var boilerplateExact = map[string]bool{
	"translations":            true,
	"you might also like":     true,
	"embed":                   true,
	"about":                   true,
	"deutsch":                 true,
	"english":                 true,
	"español":                 true,
	"français":                true,
	"italiano":                true,
	"português":               true,
	"türkçe":                  true,
	"polski":                  true,
	"русский":                 true,
	"العربية":                 true,
	"日本語":                     true,
}

// Clean strips provider boilerplate from scraped lyric text. It walks the
// lines with a small state machine: everything before the first unambiguous
// content line or bracketed section header is metadata, description blocks
// opened by a quoted "describes" sentence are skipped until "read more", and
// once real lyrics begin every line passes through untouched.
func Clean(raw string) string {
	state := beforeLyrics
	var kept []string

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		switch state {
		case beforeLyrics:
			if trimmed == "" || isBoilerplate(lower) {
				continue
			}
			if isDescriptionOpener(trimmed, lower) {
				state = inDescription
				continue
			}
			if isSectionHeader(trimmed) {
				state = inLyrics
				kept = append(kept, trimmed)
				continue
			}
			if !startsWithDigit(trimmed) {
				state = inLyrics
				kept = append(kept, trimmed)
			}

		case inDescription:
			if isSectionHeader(trimmed) {
				state = inLyrics
				kept = append(kept, trimmed)
			} else if strings.Contains(lower, "read more") {
				state = beforeLyrics
			}

		case inLyrics:
			kept = append(kept, line)
		}
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isBoilerplate(lower string) bool {
	if boilerplateExact[lower] {
		return true
	}
	if contributorLine.MatchString(lower) {
		return true
	}
	if strings.Contains(lower, "read more") || strings.Contains(lower, "you might also like") {
		return true
	}
	// Page headers like "Yesterday Lyrics".
	if strings.HasSuffix(lower, " lyrics") {
		return true
	}
	return strings.HasSuffix(lower, " embed")
}

// isDescriptionOpener spots the start of a crowd-sourced description block,
// which reads like: "Yesterday" describes the narrator's longing for...
func isDescriptionOpener(trimmed, lower string) bool {
	return strings.ContainsAny(trimmed, `"“”`) && strings.Contains(lower, "describes")
}

func isSectionHeader(trimmed string) bool {
	return strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")
}

func startsWithDigit(trimmed string) bool {
	return trimmed[0] >= '0' && trimmed[0] <= '9'
}
