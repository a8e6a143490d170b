package services

import (
	"strings"
)

// adultContentTerms is the fixed denylist for the content-suitability
// check. Matching is case-insensitive substring over title and overview;
// a single hit vetoes the item.
var adultContentTerms = []string{
	"erotic",
	"erotica",
	"porn",
	"xxx",
	"nude",
	"nudity",
	"kinky",
	"sultry",
	"hentai",
	"smut",
	"softcore",
	"hardcore",
	"stripper",
	"striptease",
	"seductive",
	"sensual",
	"adult film",
	"adult movie",
	"sexually explicit",
}

const (
	minRating    = 6.0
	minVoteCount = 10
)

// IsSuitable returns false when the title or overview contains any
// denylisted term. Books use this check alone.
func IsSuitable(title, overview string) bool {
	haystack := strings.ToLower(title) + " " + strings.ToLower(overview)
	for _, term := range adultContentTerms {
		if strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// MeetsQualityBar applies the popularity threshold for movies and TV shows.
func MeetsQualityBar(rating float64, voteCount int) bool {
	return rating >= minRating && voteCount >= minVoteCount
}

// IsAdmissible decides whether a movie/TV candidate enters the collection.
// Pure and deterministic: content suitability AND quality threshold.
func IsAdmissible(title, overview string, rating float64, voteCount int) bool {
	return IsSuitable(title, overview) && MeetsQualityBar(rating, voteCount)
}
