package ratings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/LukeR5776/LyricAnalyzer/logcolors"
	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const rootBucket = "ratings"

// ErrInvalidRating rejects out-of-range values.
var ErrInvalidRating = errors.New("ratings: rating must be between 0.0 and 10.0")

// Song is the track a rating applies to. SpotifyID is the storage key.
type Song struct {
	SpotifyID string `json:"spotify_id"`
	GeniusID  int    `json:"genius_id,omitempty"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Album     string `json:"album,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Entry is a stored rating. RatedAt survives re-rating; UpdatedAt moves.
type Entry struct {
	Rating    float64   `json:"rating"`
	Song      Song      `json:"song"`
	RatedAt   time.Time `json:"rated_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats summarizes a user's ratings.
type Stats struct {
	TotalRatings  int     `json:"total_ratings"`
	AverageRating float64 `json:"average_rating"`
	HighestRating float64 `json:"highest_rating"`
	LowestRating  float64 `json:"lowest_rating"`
}

// Store persists per-user song ratings in BoltDB, one nested bucket per
// user keyed by song id.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the ratings database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ratings directory: %v", err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open ratings database: %v", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ratings bucket: %v", err)
	}

	log.Infof("%s Ratings store opened at %s", logcolors.LogRatings, path)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add saves or updates a user's rating for a song and returns the stored
// entry. The original RatedAt is preserved on update.
func (s *Store) Add(userID string, song Song, rating float64) (*Entry, error) {
	if rating < 0.0 || rating > 10.0 {
		return nil, ErrInvalidRating
	}
	if song.SpotifyID == "" {
		return nil, errors.New("ratings: song id is required")
	}

	now := time.Now()
	entry := Entry{
		Rating:    rating,
		Song:      song,
		RatedAt:   now,
		UpdatedAt: now,
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		userBucket, err := tx.Bucket([]byte(rootBucket)).CreateBucketIfNotExists([]byte(userID))
		if err != nil {
			return err
		}

		if existing := userBucket.Get([]byte(song.SpotifyID)); existing != nil {
			var prev Entry
			if err := json.Unmarshal(existing, &prev); err == nil && !prev.RatedAt.IsZero() {
				entry.RatedAt = prev.RatedAt
			}
		}

		encoded, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return userBucket.Put([]byte(song.SpotifyID), encoded)
	})
	if err != nil {
		return nil, err
	}

	log.Infof("%s Saved rating %.1f for %q by user %s", logcolors.LogRatings, rating, song.Title, userID)
	return &entry, nil
}

// Get returns a user's rating for a song, nil when absent.
func (s *Store) Get(userID, songID string) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		userBucket := tx.Bucket([]byte(rootBucket)).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}
		raw := userBucket.Get([]byte(songID))
		if raw == nil {
			return nil
		}
		var decoded Entry
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return err
		}
		entry = &decoded
		return nil
	})
	return entry, err
}

// List returns all of a user's ratings sorted by "title", "artist",
// "rating" (descending), or "date" (most recently updated first). Unknown
// sort keys fall back to title order.
func (s *Store) List(userID, sortBy string) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		userBucket := tx.Bucket([]byte(rootBucket)).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}
		return userBucket.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Skipping corrupt rating %s for user %s: %v", logcolors.LogRatings, string(k), userID, err)
				return nil
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	switch sortBy {
	case "artist":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Song.Artist) < strings.ToLower(entries[j].Song.Artist)
		})
	case "rating":
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Rating > entries[j].Rating
		})
	case "date":
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
		})
	default:
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Song.Title) < strings.ToLower(entries[j].Song.Title)
		})
	}
	return entries, nil
}

// Delete removes a user's rating for a song, reporting whether one existed.
func (s *Store) Delete(userID, songID string) (bool, error) {
	deleted := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		userBucket := tx.Bucket([]byte(rootBucket)).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}
		if userBucket.Get([]byte(songID)) == nil {
			return nil
		}
		deleted = true
		return userBucket.Delete([]byte(songID))
	})
	if deleted {
		log.Infof("%s Deleted rating for song %s by user %s", logcolors.LogRatings, songID, userID)
	}
	return deleted, err
}

// UserStats aggregates a user's ratings. All zeros when the user has none.
func (s *Store) UserStats(userID string) (Stats, error) {
	entries, err := s.List(userID, "title")
	if err != nil {
		return Stats{}, err
	}
	if len(entries) == 0 {
		return Stats{}, nil
	}

	stats := Stats{
		TotalRatings:  len(entries),
		HighestRating: entries[0].Rating,
		LowestRating:  entries[0].Rating,
	}
	sum := 0.0
	for _, entry := range entries {
		sum += entry.Rating
		if entry.Rating > stats.HighestRating {
			stats.HighestRating = entry.Rating
		}
		if entry.Rating < stats.LowestRating {
			stats.LowestRating = entry.Rating
		}
	}
	// One decimal place, matching what clients display.
	stats.AverageRating = float64(int(sum/float64(len(entries))*10+0.5)) / 10
	return stats, nil
}
