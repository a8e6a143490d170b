package enrich

import (
	"fmt"
	"strings"

	"github.com/mediarr/mediarr/internal/models"
)

const deepLinkBaseURL = "https://watch.plex.tv"

// Slugify lowercases the title and collapses every run of
// non-alphanumeric characters into a single hyphen.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// DeepLink derives the external watch-page URL from the title slug and
// the numeric suffix of the external identifier ("tt0133093" → "0133093").
// Returns nil when the slug or identifier yields nothing usable.
func DeepLink(kind models.MediaKind, title, externalID string) *string {
	slug := Slugify(title)
	digits := numericSuffix(externalID)
	if slug == "" || digits == "" {
		return nil
	}

	path := "movie"
	if kind == models.KindTVShow {
		path = "show"
	}
	link := fmt.Sprintf("%s/%s/%s-%s", deepLinkBaseURL, path, slug, digits)
	return &link
}

// numericSuffix returns the trailing digit run of id.
func numericSuffix(id string) string {
	end := len(id)
	start := end
	for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
		start--
	}
	return id[start:end]
}
