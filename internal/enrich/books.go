package enrich

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/mediarr/mediarr/internal/models"
	"github.com/mediarr/mediarr/internal/services"
)

// BookLookup is the book-detail surface keyed by ISBN.
type BookLookup interface {
	LookupISBN(ctx context.Context, apiKey, isbn string) (*services.BookVolume, error)
}

// BookEnricher fills bestseller-list candidates with volume details.
// Simpler than the movie/TV joiner: keys are tried in fixed order until
// one returns a non-empty result set.
type BookEnricher struct {
	lookup  BookLookup
	keys    []string
	limiter *rate.Limiter
}

func NewBookEnricher(lookup BookLookup, keys []string, delay time.Duration) *BookEnricher {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	copied := make([]string, len(keys))
	copy(copied, keys)
	return &BookEnricher{
		lookup:  lookup,
		keys:    copied,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Enrich resolves one book's volume details. A book no key can resolve
// keeps its list fields with Resolved false.
func (e *BookEnricher) Enrich(ctx context.Context, book models.Book) models.EnrichedBook {
	record := models.EnrichedBook{Book: book}

	keys := e.keys
	if len(keys) == 0 {
		// Google Books accepts unauthenticated volume queries at a
		// reduced quota.
		keys = []string{""}
	}
	for _, key := range keys {
		volume, err := e.lookup.LookupISBN(ctx, key, book.ISBN)
		if err != nil {
			log.Printf("⚠️ Enrich: book lookup for %s failed: %v", book.ISBN, err)
			continue
		}
		if volume == nil {
			continue
		}
		record.Book = mergeVolume(book, volume)
		record.Resolved = true
		break
	}

	if err := e.limiter.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("⚠️ Enrich: pacing interrupted: %v", err)
	}
	return record
}

// mergeVolume prefers volume fields, keeping list fields as fallback.
func mergeVolume(book models.Book, volume *services.BookVolume) models.Book {
	merged := book
	if volume.Title != "" {
		merged.Title = volume.Title
	}
	if len(volume.Authors) > 0 {
		merged.Authors = volume.Authors
	}
	if volume.Description != "" {
		merged.Description = volume.Description
	}
	merged.PublishedDate = volume.PublishedDate
	merged.PageCount = volume.PageCount
	merged.AverageRating = volume.AverageRating
	if volume.CoverURL != "" {
		merged.CoverURL = volume.CoverURL
	}
	if volume.Publisher != "" {
		merged.Publisher = volume.Publisher
	}
	merged.Categories = volume.Categories
	return merged
}
