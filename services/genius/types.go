package genius

// ArtistRecord is the primary artist attached to a song hit
type ArtistRecord struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

// SongStats carries the provider's engagement counters for a song
type SongStats struct {
	PageViews int  `json:"pageviews"`
	Hot       bool `json:"hot"`
}

// SongRecord is a canonical song produced from raw provider search hits.
// Immutable once returned.
type SongRecord struct {
	ID            int          `json:"id"`
	Title         string       `json:"title"`
	Artist        string       `json:"artist"`
	URL           string       `json:"url"`
	LyricsState   string       `json:"lyrics_state"`
	ImageURL      string       `json:"song_art_image_url"`
	ReleaseDate   string       `json:"release_date_for_display"`
	Stats         SongStats    `json:"stats"`
	PrimaryArtist ArtistRecord `json:"primary_artist"`
}

// SongDetails is the full song record from the song-detail endpoint
type SongDetails struct {
	SongRecord
	TitleWithFeatured string         `json:"title_with_featured"`
	Path              string         `json:"path"`
	Description       string         `json:"description,omitempty"`
	Album             string         `json:"album,omitempty"`
	FeaturedArtists   []ArtistRecord `json:"featured_artists"`
	ProducerArtists   []ArtistRecord `json:"producer_artists"`
	WriterArtists     []ArtistRecord `json:"writer_artists"`
}

// Annotation is a crowd-sourced note tied to a text fragment of a song.
// LineNumber and LineMatchMethod stay at their sentinel values until the
// aligner maps the annotation onto cleaned lyrics.
type Annotation struct {
	ID              int    `json:"id"`
	BodyHTML        string `json:"body"`
	Fragment        string `json:"fragment"`
	RangeContent    string `json:"range_content,omitempty"`
	URL             string `json:"url"`
	Verified        bool   `json:"verified"`
	VotesTotal      int    `json:"votes_total"`
	LineNumber      int    `json:"line_number"`
	LineMatchMethod string `json:"line_match_method,omitempty"`
}

// Raw provider payload shapes. Only the fields the engine consumes are
// declared; everything else in the provider response is ignored.

type searchResponse struct {
	Response struct {
		Hits []searchHit `json:"hits"`
	} `json:"response"`
}

type searchHit struct {
	Type   string    `json:"type"`
	Result rawResult `json:"result"`
}

type rawResult struct {
	LegacyType    string       `json:"_type"`
	ID            int          `json:"id"`
	Title         string       `json:"title"`
	URL           string       `json:"url"`
	LyricsState   string       `json:"lyrics_state"`
	ImageURL      string       `json:"song_art_image_url"`
	ReleaseDate   string       `json:"release_date_for_display"`
	Stats         SongStats    `json:"stats"`
	PrimaryArtist ArtistRecord `json:"primary_artist"`
}

type songResponse struct {
	Response struct {
		Song *rawSong `json:"song"`
	} `json:"response"`
}

type rawSong struct {
	rawResult
	TitleWithFeatured string `json:"title_with_featured"`
	Path              string `json:"path"`
	Description       struct {
		Plain string `json:"plain"`
		HTML  string `json:"html"`
	} `json:"description"`
	Album *struct {
		Name string `json:"name"`
	} `json:"album"`
	FeaturedArtists []ArtistRecord `json:"featured_artists"`
	ProducerArtists []ArtistRecord `json:"producer_artists"`
	WriterArtists   []ArtistRecord `json:"writer_artists"`
}

type referentsResponse struct {
	Response struct {
		Referents []rawReferent `json:"referents"`
	} `json:"response"`
}

type rawReferent struct {
	Fragment string `json:"fragment"`
	Range    struct {
		Content string `json:"content"`
	} `json:"range"`
	Annotations []rawAnnotation `json:"annotations"`
}

type rawAnnotation struct {
	ID   int `json:"id"`
	Body struct {
		HTML string `json:"html"`
	} `json:"body"`
	URL        string `json:"url"`
	Verified   bool   `json:"verified"`
	VotesTotal int    `json:"votes_total"`
}
