package match

import (
	"strings"

	"github.com/LukeR5776/LyricAnalyzer/services/genius"
)

// Weights for combining per-field similarity into a track score. Title
// carries most of the signal; artist disambiguates covers and tributes.
const (
	titleWeight  = 0.7
	artistWeight = 0.3
)

// strippedPunctuation is replaced with spaces before word-level comparison.
const strippedPunctuation = ",.!?()[]-_"

// StringSimilarity scores how alike two strings are on a 0.0 to 1.0 scale.
// Exact matches score 1.0 and substring containment 0.9; otherwise the score
// is word-set overlap with a small bonus for shared word prefixes, which
// catches inflections like "remaster"/"remastered".
func StringSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}

	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	intersection := 0
	for word := range wordsA {
		if wordsB[word] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	score := float64(intersection) / float64(union)

	score += prefixBonus(wordsA, wordsB)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Score rates how well a catalog candidate matches the target track.
func Score(candidate genius.SongRecord, targetTitle, targetArtist string) float64 {
	titleSim := StringSimilarity(candidate.Title, targetTitle)
	artistSim := StringSimilarity(candidate.Artist, targetArtist)
	return titleWeight*titleSim + artistWeight*artistSim
}

// wordSet splits text into unique words after flattening punctuation.
func wordSet(text string) map[string]bool {
	cleaned := text
	for _, ch := range strippedPunctuation {
		cleaned = strings.ReplaceAll(cleaned, string(ch), " ")
	}
	words := make(map[string]bool)
	for _, word := range strings.Fields(cleaned) {
		words[word] = true
	}
	return words
}

// prefixBonus rewards words that have a partner sharing a 3-character
// prefix on the other side. Each word counts at most once regardless of how
// many partners it has; each counted word is worth 0.1, capped at 0.2
// total. Short words are skipped since their prefixes collide too easily.
func prefixBonus(wordsA, wordsB map[string]bool) float64 {
	matched := 0
	for a := range wordsA {
		if len(a) <= 3 {
			continue
		}
		for b := range wordsB {
			if len(b) <= 3 {
				continue
			}
			if a[:3] == b[:3] {
				matched++
				break
			}
		}
	}
	bonus := float64(matched) * 0.1
	if bonus > 0.2 {
		bonus = 0.2
	}
	return bonus
}
