package match

import (
	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	"github.com/LukeR5776/LyricAnalyzer/services/genius"
	"github.com/LukeR5776/LyricAnalyzer/stats"
	log "github.com/sirupsen/logrus"
)

// Searcher is the catalog lookup the selector drives. Satisfied by
// *genius.Client.
type Searcher interface {
	Search(query string, limit int) ([]genius.SongRecord, error)
}

// Selector runs the planned queries against the catalog and picks the best
// scoring candidate.
type Selector struct {
	searcher           Searcher
	earlyExitThreshold float64
	acceptFloor        float64
	searchLimit        int
}

// SelectorOptions tunes candidate acceptance.
type SelectorOptions struct {
	EarlyExitThreshold float64
	AcceptFloor        float64
	SearchLimit        int
}

// NewSelector creates a Selector over the given catalog searcher.
func NewSelector(searcher Searcher, opts SelectorOptions) *Selector {
	if opts.EarlyExitThreshold <= 0 {
		opts.EarlyExitThreshold = 0.6
	}
	if opts.AcceptFloor <= 0 {
		opts.AcceptFloor = 0.4
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 10
	}
	return &Selector{
		searcher:           searcher,
		earlyExitThreshold: opts.EarlyExitThreshold,
		acceptFloor:        opts.AcceptFloor,
		searchLimit:        opts.SearchLimit,
	}
}

// Match is a selected catalog song plus its confidence score.
type Match struct {
	Song  genius.SongRecord `json:"song"`
	Score float64           `json:"score"`
}

// FindBestMatch runs the query plan for a track and returns the best
// candidate. Queries run in order; a candidate clearing the early exit
// threshold wins immediately without trying later queries. If no candidate
// clears it, the best seen is kept only when it clears the accept floor.
// A nil match with a nil error means the track has no acceptable candidate.
func (s *Selector) FindBestMatch(artist, title string) (*Match, error) {
	queries := PlanQueries(artist, title)

	var best *Match
	var lastErr error
	for _, query := range queries {
		songs, err := s.searcher.Search(query, s.searchLimit)
		if err != nil {
			// One failed query should not sink the whole plan.
			log.Warnf("%s Query %q failed: %v", logcolors.LogSearch, query, err)
			lastErr = err
			continue
		}

		for _, song := range songs {
			score := Score(song, title, artist)
			log.Debugf("%s %.3f for %q by %q", logcolors.LogScore, score, song.Title, song.Artist)
			if best == nil || score > best.Score {
				candidate := song
				best = &Match{Song: candidate, Score: score}
			}
		}

		if best != nil && best.Score > s.earlyExitThreshold {
			stats.Get().RecordMatch("early_exit")
			log.Infof("%s Early exit at %.3f: %q by %q (query %q)",
				logcolors.LogBestMatch, best.Score, best.Song.Title, best.Song.Artist, query)
			return best, nil
		}
	}

	if best != nil && best.Score > s.acceptFloor {
		stats.Get().RecordMatch("best_effort")
		log.Infof("%s Best effort at %.3f: %q by %q",
			logcolors.LogBestMatch, best.Score, best.Song.Title, best.Song.Artist)
		return best, nil
	}

	stats.Get().RecordMatch("miss")
	if best != nil {
		log.Infof("%s No match: best candidate %.3f below floor %.2f for %q by %q",
			logcolors.LogMatch, best.Score, s.acceptFloor, title, artist)
		return nil, nil
	}
	log.Infof("%s No candidates at all for %q by %q", logcolors.LogMatch, title, artist)
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}
