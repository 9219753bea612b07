package stats

import "testing"

// TestRecordRequestBuckets tests path-based request classification.
func TestRecordRequestBuckets(t *testing.T) {
	s := &Stats{}

	s.RecordRequest("/api/lyrics/search")
	s.RecordRequest("/api/genius/search")
	s.RecordRequest("/api/spotify/current-track")
	s.RecordRequest("/auth/spotify/login")
	s.RecordRequest("/api/ratings")
	s.RecordRequest("/health")

	if got := s.TotalRequests.Load(); got != 6 {
		t.Errorf("Expected 6 total requests, got %d", got)
	}
	if got := s.LyricsRequests.Load(); got != 1 {
		t.Errorf("Expected 1 lyrics request, got %d", got)
	}
	if got := s.SpotifyRequests.Load(); got != 2 {
		t.Errorf("Expected 2 spotify requests, got %d", got)
	}
	if got := s.OtherRequests.Load(); got != 1 {
		t.Errorf("Expected 1 other request, got %d", got)
	}
}

// TestRecordMatchCountsAttempts tests that every outcome counts one attempt.
func TestRecordMatchCountsAttempts(t *testing.T) {
	s := &Stats{}

	s.RecordMatch("early_exit")
	s.RecordMatch("best_effort")
	s.RecordMatch("miss")

	if got := s.MatchAttempts.Load(); got != 3 {
		t.Errorf("Expected 3 match attempts, got %d", got)
	}
	if got := s.MatchEarlyExits.Load(); got != 1 {
		t.Errorf("Expected 1 early exit, got %d", got)
	}
	if got := s.MatchMisses.Load(); got != 1 {
		t.Errorf("Expected 1 miss, got %d", got)
	}
}

// TestSnapshotHitRate tests the cache hit rate calculation.
func TestSnapshotHitRate(t *testing.T) {
	s := &Stats{}

	s.RecordCacheHit()
	s.RecordCacheHit()
	s.RecordCacheHit()
	s.RecordCacheMiss()

	snap := s.GetSnapshot()
	if snap.Cache.HitRate != 75 {
		t.Errorf("Expected 75%% hit rate, got %v", snap.Cache.HitRate)
	}
}

// TestSnapshotZeroTrafficHitRate tests that an idle cache reports zero.
func TestSnapshotZeroTrafficHitRate(t *testing.T) {
	s := &Stats{}
	if rate := s.GetSnapshot().Cache.HitRate; rate != 0 {
		t.Errorf("Expected 0 hit rate with no traffic, got %v", rate)
	}
}

// TestRecordStatusCodeBuckets tests status code classification.
func TestRecordStatusCodeBuckets(t *testing.T) {
	s := &Stats{}

	s.RecordStatusCode(200)
	s.RecordStatusCode(404)
	s.RecordStatusCode(502)
	s.RecordStatusCode(302) // redirects are not counted

	snap := s.GetSnapshot()
	if snap.StatusCodes.Code2xx != 1 || snap.StatusCodes.Code4xx != 1 || snap.StatusCodes.Code5xx != 1 {
		t.Errorf("Expected one count per bucket, got %+v", snap.StatusCodes)
	}
}
