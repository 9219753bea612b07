package annotations

import (
	"strings"

	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	"github.com/LukeR5776/LyricAnalyzer/services/genius"
	log "github.com/sirupsen/logrus"
)

// Line match methods recorded on each annotation after alignment.
const (
	MethodMatched = "matched"
	MethodFailed  = "failed"
	MethodNoText  = "no_text"
)

// minSubstringLength guards the fuzzy tiers: very short fragments and lines
// match almost anything as substrings.
const minSubstringLength = 5

// Align assigns each annotation a 1-based line number within the lyrics.
// The structured range content is preferred over the raw fragment when both
// are present. Three tiers apply in order: exact line equality, annotation
// text contained in a line, and a line contained in the annotation text.
// Ties go to the earliest line. Unmatched annotations keep the -1 sentinel.
func Align(lyrics string, annotations []genius.Annotation) []genius.Annotation {
	lines := lyricLines(lyrics)

	matched := 0
	for i := range annotations {
		text := annotations[i].RangeContent
		if text == "" {
			text = annotations[i].Fragment
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			annotations[i].LineNumber = -1
			annotations[i].LineMatchMethod = MethodNoText
			continue
		}

		lineNumber := matchLine(lines, text)
		if lineNumber == -1 {
			annotations[i].LineNumber = -1
			annotations[i].LineMatchMethod = MethodFailed
			continue
		}
		annotations[i].LineNumber = lineNumber
		annotations[i].LineMatchMethod = MethodMatched
		matched++
	}

	log.Debugf("%s Aligned %d/%d annotations across %d lines",
		logcolors.LogAnnotations, matched, len(annotations), len(lines))
	return annotations
}

type numberedLine struct {
	number int
	text   string
}

// lyricLines lowers and trims the lyrics into non-blank lines, numbering
// them 1-based in lyric order.
func lyricLines(lyrics string) []numberedLine {
	raw := strings.Split(lyrics, "\n")
	lines := make([]numberedLine, 0, len(raw))
	number := 0
	for _, line := range raw {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		number++
		lines = append(lines, numberedLine{number: number, text: strings.ToLower(trimmed)})
	}
	return lines
}

func matchLine(lines []numberedLine, text string) int {
	for _, line := range lines {
		if line.text == text {
			return line.number
		}
	}
	if len(text) > minSubstringLength {
		for _, line := range lines {
			if strings.Contains(line.text, text) {
				return line.number
			}
		}
	}
	for _, line := range lines {
		if len(line.text) > minSubstringLength && strings.Contains(text, line.text) {
			return line.number
		}
	}
	return -1
}
