// Package enrich joins base catalog candidates with primary-catalog
// detail payloads and secondary-catalog cross-references. Enrichment is
// strictly per-item: a failure degrades that item's record and never
// aborts the enclosing collection loop.
package enrich

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/mediarr/mediarr/internal/keypool"
	"github.com/mediarr/mediarr/internal/models"
)

// DetailFetcher is the primary catalog's detail surface.
type DetailFetcher interface {
	GetMovieDetails(ctx context.Context, tmdbID int) (*models.Details, error)
	GetTVShowDetails(ctx context.Context, tmdbID int) (*models.Details, error)
}

// CrossRefLookup is the secondary catalog's title+type+year surface.
// mediaType is "movie" or "series".
type CrossRefLookup interface {
	Lookup(ctx context.Context, apiKey, title, mediaType string, year int) (*models.CrossReference, error)
}

// Enricher joins one kind's candidates during a single population run.
// The key pool and circuit breaker live for the run only; the breaker
// bounds worst-case latency when the whole secondary catalog is dead by
// skipping lookups until its timeout elapses.
type Enricher struct {
	details  DetailFetcher
	crossRef CrossRefLookup
	keys     *keypool.Pool
	breaker  *gobreaker.CircuitBreaker[*models.CrossReference]
	limiter  *rate.Limiter
}

// New builds an enricher for one run. delay is the fixed inter-item
// pacing interval; zero or negative disables pacing.
func New(details DetailFetcher, crossRef CrossRefLookup, secondaryKeys []string, delay time.Duration) *Enricher {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Enricher{
		details:  details,
		crossRef: crossRef,
		keys:     keypool.New(secondaryKeys),
		breaker: gobreaker.NewCircuitBreaker[*models.CrossReference](gobreaker.Settings{
			Name:    "secondary-catalog",
			Timeout: 2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Keys exposes the pool's current key order. Used by tests.
func (e *Enricher) Keys() []string {
	return e.keys.Keys()
}

// EnrichMovie produces the enriched record for one admissible movie.
// Never fails: each join step degrades independently.
func (e *Enricher) EnrichMovie(ctx context.Context, movie models.Movie) models.EnrichedMovie {
	record := models.EnrichedMovie{Movie: movie}

	details, err := e.details.GetMovieDetails(ctx, movie.TMDBID)
	if err != nil {
		log.Printf("⚠️ Enrich: detail fetch for movie %d (%s) failed: %v", movie.TMDBID, movie.Title, err)
	} else {
		record.Details = details
	}

	if year := movie.Year(); year > 0 {
		record.CrossReference = e.lookupCrossRef(ctx, movie.Title, "movie", year)
	}
	if record.CrossReference != nil && record.CrossReference.IMDBID != "" {
		record.DeepLink = DeepLink(models.KindMovie, movie.Title, record.CrossReference.IMDBID)
	}

	e.pace(ctx)
	return record
}

// EnrichTVShow produces the enriched record for one admissible series.
func (e *Enricher) EnrichTVShow(ctx context.Context, show models.TVShow) models.EnrichedTVShow {
	record := models.EnrichedTVShow{TVShow: show}

	details, err := e.details.GetTVShowDetails(ctx, show.TMDBID)
	if err != nil {
		log.Printf("⚠️ Enrich: detail fetch for tvshow %d (%s) failed: %v", show.TMDBID, show.Name, err)
	} else {
		record.Details = details
	}

	if year := show.Year(); year > 0 {
		record.CrossReference = e.lookupCrossRef(ctx, show.Name, "series", year)
	}
	if record.CrossReference != nil && record.CrossReference.IMDBID != "" {
		record.DeepLink = DeepLink(models.KindTVShow, show.Name, record.CrossReference.IMDBID)
	}

	e.pace(ctx)
	return record
}

// lookupCrossRef runs the keyed lookup through the circuit breaker.
// Returns nil on no match, exhausted keys, or an open breaker.
func (e *Enricher) lookupCrossRef(ctx context.Context, title, mediaType string, year int) *models.CrossReference {
	ref, err := e.breaker.Execute(func() (*models.CrossReference, error) {
		var found *models.CrossReference
		err := e.keys.TryInOrder(func(key string) (bool, error) {
			match, lookupErr := e.crossRef.Lookup(ctx, key, title, mediaType, year)
			if lookupErr != nil {
				return false, lookupErr
			}
			if match == nil {
				return false, nil
			}
			found = match
			return true, nil
		})
		if err != nil {
			return nil, err
		}
		return found, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil
		}
		log.Printf("⚠️ Enrich: cross-reference lookup for %q (%d) failed: %v", title, year, err)
		return nil
	}
	return ref
}

// pace imposes the fixed inter-item delay after each enrichment call.
// Deliberate backpressure against upstream rate limits.
func (e *Enricher) pace(ctx context.Context) {
	if err := e.limiter.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("⚠️ Enrich: pacing interrupted: %v", err)
	}
}
