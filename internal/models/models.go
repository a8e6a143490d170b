package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MediaKind identifies one of the three catalog kinds the cache is
// populated with. Each kind has its own upstream API, target size and
// ranking index.
type MediaKind string

const (
	KindMovie  MediaKind = "movie"
	KindTVShow MediaKind = "tvshow"
	KindBook   MediaKind = "book"
)

// Plural returns the kind name used in ranking keys and API responses.
func (k MediaKind) Plural() string {
	return string(k) + "s"
}

func (k MediaKind) Valid() bool {
	return k == KindMovie || k == KindTVShow || k == KindBook
}

// ParseKind accepts both singular and plural forms ("movie", "movies").
func ParseKind(s string) (MediaKind, bool) {
	k := MediaKind(strings.TrimSuffix(strings.ToLower(s), "s"))
	if !k.Valid() {
		return "", false
	}
	return k, true
}

// RecordKey is the cache key for a single enriched record, e.g. "movie:603".
func RecordKey(kind MediaKind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}

// RankingKey is the cache key for a kind's ordered ranking index.
func RankingKey(kind MediaKind) string {
	return fmt.Sprintf("popular_ranking:%s", kind.Plural())
}

// LegacyKey is the deprecated flat-blob key kept for backward-compatible
// reads. The population pipeline no longer writes it.
func LegacyKey(kind MediaKind) string {
	return fmt.Sprintf("popular_%s", kind.Plural())
}

// Movie is a raw movie candidate from the primary catalog's discover feed.
type Movie struct {
	TMDBID       int     `json:"tmdb_id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	GenreIDs     []int   `json:"genre_ids"`
}

// Year returns the release year, or 0 when the date is missing/unparseable.
func (m Movie) Year() int {
	return yearOf(m.ReleaseDate)
}

// TVShow is a raw series candidate from the primary catalog's discover feed.
type TVShow struct {
	TMDBID       int     `json:"tmdb_id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	GenreIDs     []int   `json:"genre_ids"`
}

func (s TVShow) Year() int {
	return yearOf(s.FirstAirDate)
}

// Book is a raw book candidate from the bestseller-list catalog, later
// filled in by the book-detail lookup. ISBN is the ISBN-13 used as cache id.
type Book struct {
	ISBN          string   `json:"isbn"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	PublishedDate string   `json:"published_date"`
	PageCount     int      `json:"page_count"`
	AverageRating float64  `json:"average_rating"`
	CoverURL      string   `json:"cover_url"`
	Publisher     string   `json:"publisher"`
	Categories    []string `json:"categories"`
}

// CastMember is a single credited cast entry from the detail payload.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
}

// Details is the extended payload fetched from the primary catalog for a
// single title. Absent entirely when the detail fetch failed.
type Details struct {
	Runtime    int          `json:"runtime,omitempty"`
	Tagline    string       `json:"tagline,omitempty"`
	Status     string       `json:"status,omitempty"`
	Genres     []string     `json:"genres,omitempty"`
	Cast       []CastMember `json:"cast,omitempty"`
	Directors  []string     `json:"directors,omitempty"`
	TrailerKey string       `json:"trailer_key,omitempty"`
	Seasons    int          `json:"seasons,omitempty"`
}

// CrossReference is the secondary-catalog match resolved by title+type+year.
// Absent when no key produced a positive match.
type CrossReference struct {
	IMDBID        string `json:"imdb_id"`
	ContentRating string `json:"content_rating,omitempty"`
	Runtime       string `json:"runtime,omitempty"`
	Awards        string `json:"awards,omitempty"`
}

// CacheRecord is implemented by every enriched record variant the cache
// writer can persist.
type CacheRecord interface {
	Kind() MediaKind
	CacheID() string
}

type EnrichedMovie struct {
	Movie
	Details        *Details        `json:"details,omitempty"`
	CrossReference *CrossReference `json:"cross_reference,omitempty"`
	DeepLink       *string         `json:"deep_link"`
}

func (EnrichedMovie) Kind() MediaKind { return KindMovie }

func (m EnrichedMovie) CacheID() string { return strconv.Itoa(m.TMDBID) }

type EnrichedTVShow struct {
	TVShow
	Details        *Details        `json:"details,omitempty"`
	CrossReference *CrossReference `json:"cross_reference,omitempty"`
	DeepLink       *string         `json:"deep_link"`
}

func (EnrichedTVShow) Kind() MediaKind { return KindTVShow }

func (s EnrichedTVShow) CacheID() string { return strconv.Itoa(s.TMDBID) }

type EnrichedBook struct {
	Book
	// Resolved is true when the detail lookup returned a non-empty result set.
	Resolved bool `json:"resolved"`
}

func (EnrichedBook) Kind() MediaKind { return KindBook }

func (b EnrichedBook) CacheID() string { return b.ISBN }

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
