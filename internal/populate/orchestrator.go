// Package populate drives the cache-population pipeline: page-scan the
// upstream catalogs, filter by content policy, enrich sequentially, and
// hand the final ranked collection to the cache writer. Movies and books
// run concurrently; TV shows run afterward so they never contend with
// movies for the shared primary-catalog rate limit.
package populate

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mediarr/mediarr/internal/config"
	"github.com/mediarr/mediarr/internal/enrich"
	"github.com/mediarr/mediarr/internal/models"
	"github.com/mediarr/mediarr/internal/services"
)

// PrimaryCatalog is the primary catalog surface: popularity-sorted
// discover feeds plus per-title detail fetches.
type PrimaryCatalog interface {
	DiscoverMovies(ctx context.Context, page int) ([]models.Movie, error)
	DiscoverTVShows(ctx context.Context, page int) ([]models.TVShow, error)
	GetMovieDetails(ctx context.Context, tmdbID int) (*models.Details, error)
	GetTVShowDetails(ctx context.Context, tmdbID int) (*models.Details, error)
}

// BestsellerCatalog is the bestseller-list surface.
type BestsellerCatalog interface {
	BestsellerList(ctx context.Context, listName string) ([]models.Book, error)
}

// CacheWriter persists one kind's final collection.
type CacheWriter interface {
	Write(ctx context.Context, kind models.MediaKind, records []models.CacheRecord) error
}

// Notifier dispatches operator alerts on unrecoverable failures.
type Notifier interface {
	Notify(kind models.MediaKind, operation string, cause error)
}

// Result aggregates one full population sequence.
type Result struct {
	Movies          int
	TVShows         int
	Books           int
	TotalDuration   time.Duration
	TVShowsDuration time.Duration
}

// Orchestrator owns the per-kind pipelines. Catalog clients are shared
// across runs; key pools and enrichers are created fresh per run so no
// rotation state survives a run's scope.
type Orchestrator struct {
	cfg      *config.Config
	primary  PrimaryCatalog
	crossRef enrich.CrossRefLookup
	nyt      BestsellerCatalog
	books    enrich.BookLookup
	writer   CacheWriter
	notifier Notifier
	status   *Status
}

func NewOrchestrator(
	cfg *config.Config,
	primary PrimaryCatalog,
	crossRef enrich.CrossRefLookup,
	nyt BestsellerCatalog,
	books enrich.BookLookup,
	writer CacheWriter,
	notifier Notifier,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		primary:  primary,
		crossRef: crossRef,
		nyt:      nyt,
		books:    books,
		writer:   writer,
		notifier: notifier,
		status:   NewStatus(),
	}
}

// Status returns the per-kind run tracker.
func (o *Orchestrator) Status() *Status {
	return o.status
}

// RunAll executes the full population sequence: movies and books
// concurrently, then TV shows.
func (o *Orchestrator) RunAll(ctx context.Context) (*Result, error) {
	start := time.Now()
	log.Println("🎬 Population: starting full sequence (movies+books, then tvshows)")

	var movieCount, bookCount int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := o.PopulateMovies(gctx)
		movieCount = n
		return err
	})
	g.Go(func() error {
		n, err := o.PopulateBooks(gctx)
		bookCount = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tvStart := time.Now()
	tvCount, err := o.PopulateTVShows(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Movies:          movieCount,
		TVShows:         tvCount,
		Books:           bookCount,
		TotalDuration:   time.Since(start),
		TVShowsDuration: time.Since(tvStart),
	}
	log.Printf("✅ Population: sequence complete — %d movies, %d tvshows, %d books in %v",
		result.Movies, result.TVShows, result.Books, result.TotalDuration.Round(time.Millisecond))
	return result, nil
}

// PopulateMovies runs the movie pipeline to the configured target.
func (o *Orchestrator) PopulateMovies(ctx context.Context) (count int, err error) {
	start := time.Now()
	o.status.markRunning(models.KindMovie)
	defer func() { o.status.markComplete(models.KindMovie, count, time.Since(start), err) }()

	if err := o.cfg.Validate(); err != nil {
		return 0, o.fail(models.KindMovie, "configuration check", err)
	}
	if o.cfg.TMDBAPIKey == "" {
		return 0, o.fail(models.KindMovie, "configuration check", fmt.Errorf("TMDB_API_KEY is required"))
	}

	enricher := enrich.New(o.primary, o.crossRef, o.cfg.OMDBAPIKeys, o.cfg.EnrichDelay)
	seen := make(map[string]struct{})
	collected := make([]models.CacheRecord, 0, o.cfg.MovieTarget)
	filtered := 0

	for page := 1; page <= o.cfg.MaxScanPages && len(collected) < o.cfg.MovieTarget; page++ {
		if err := ctx.Err(); err != nil {
			return 0, o.fail(models.KindMovie, "scan cancelled", err)
		}

		candidates, pageErr := o.primary.DiscoverMovies(ctx, page)
		if pageErr != nil {
			log.Printf("⚠️ Population: movie scan page %d failed: %v", page, pageErr)
			continue
		}

		for _, movie := range candidates {
			if len(collected) >= o.cfg.MovieTarget {
				break
			}
			if err := ctx.Err(); err != nil {
				return 0, o.fail(models.KindMovie, "enrichment cancelled", err)
			}

			id := fmt.Sprintf("%d", movie.TMDBID)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			if !services.IsAdmissible(movie.Title, movie.Overview, movie.VoteAverage, movie.VoteCount) {
				filtered++
				continue
			}

			collected = append(collected, enricher.EnrichMovie(ctx, movie))
		}
	}

	log.Printf("🎬 Population: movies collected %d (filtered %d) in %v",
		len(collected), filtered, time.Since(start).Round(time.Millisecond))

	if err := o.writer.Write(ctx, models.KindMovie, collected); err != nil {
		return 0, o.fail(models.KindMovie, "cache write", err)
	}
	return len(collected), nil
}

// PopulateTVShows runs the TV pipeline to the configured target.
func (o *Orchestrator) PopulateTVShows(ctx context.Context) (count int, err error) {
	start := time.Now()
	o.status.markRunning(models.KindTVShow)
	defer func() { o.status.markComplete(models.KindTVShow, count, time.Since(start), err) }()

	if err := o.cfg.Validate(); err != nil {
		return 0, o.fail(models.KindTVShow, "configuration check", err)
	}
	if o.cfg.TMDBAPIKey == "" {
		return 0, o.fail(models.KindTVShow, "configuration check", fmt.Errorf("TMDB_API_KEY is required"))
	}

	enricher := enrich.New(o.primary, o.crossRef, o.cfg.OMDBAPIKeys, o.cfg.EnrichDelay)
	seen := make(map[string]struct{})
	collected := make([]models.CacheRecord, 0, o.cfg.TVShowTarget)
	filtered := 0

	for page := 1; page <= o.cfg.MaxScanPages && len(collected) < o.cfg.TVShowTarget; page++ {
		if err := ctx.Err(); err != nil {
			return 0, o.fail(models.KindTVShow, "scan cancelled", err)
		}

		candidates, pageErr := o.primary.DiscoverTVShows(ctx, page)
		if pageErr != nil {
			log.Printf("⚠️ Population: tvshow scan page %d failed: %v", page, pageErr)
			continue
		}

		for _, show := range candidates {
			if len(collected) >= o.cfg.TVShowTarget {
				break
			}
			if err := ctx.Err(); err != nil {
				return 0, o.fail(models.KindTVShow, "enrichment cancelled", err)
			}

			id := fmt.Sprintf("%d", show.TMDBID)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			if !services.IsAdmissible(show.Name, show.Overview, show.VoteAverage, show.VoteCount) {
				filtered++
				continue
			}

			collected = append(collected, enricher.EnrichTVShow(ctx, show))
		}
	}

	log.Printf("📺 Population: tvshows collected %d (filtered %d) in %v",
		len(collected), filtered, time.Since(start).Round(time.Millisecond))

	if err := o.writer.Write(ctx, models.KindTVShow, collected); err != nil {
		return 0, o.fail(models.KindTVShow, "cache write", err)
	}
	return len(collected), nil
}

// PopulateBooks scans the bestseller lists, enriches by ISBN, and
// truncates the collection to a multiple of the book page size.
func (o *Orchestrator) PopulateBooks(ctx context.Context) (count int, err error) {
	start := time.Now()
	o.status.markRunning(models.KindBook)
	defer func() { o.status.markComplete(models.KindBook, count, time.Since(start), err) }()

	if err := o.cfg.Validate(); err != nil {
		return 0, o.fail(models.KindBook, "configuration check", err)
	}
	if o.cfg.NYTAPIKey == "" {
		return 0, o.fail(models.KindBook, "configuration check", fmt.Errorf("NYT_API_KEY is required"))
	}

	enricher := enrich.NewBookEnricher(o.books, o.cfg.GoogleBooksAPIKeys, o.cfg.EnrichDelay)
	seen := make(map[string]struct{})
	collected := make([]models.CacheRecord, 0, 128)
	filtered := 0

	for _, listName := range services.DefaultBestsellerLists {
		if err := ctx.Err(); err != nil {
			return 0, o.fail(models.KindBook, "scan cancelled", err)
		}

		candidates, listErr := o.nyt.BestsellerList(ctx, listName)
		if listErr != nil {
			log.Printf("⚠️ Population: bestseller list %s failed: %v", listName, listErr)
			continue
		}

		for _, book := range candidates {
			if err := ctx.Err(); err != nil {
				return 0, o.fail(models.KindBook, "enrichment cancelled", err)
			}
			if book.ISBN == "" {
				continue
			}
			if _, dup := seen[book.ISBN]; dup {
				continue
			}
			seen[book.ISBN] = struct{}{}

			if !services.IsSuitable(book.Title, book.Description) {
				filtered++
				continue
			}

			record := enricher.Enrich(ctx, book)
			// Books have no vote-based quality bar; they must instead
			// resolve to a non-empty title.
			if record.Title == "" {
				filtered++
				continue
			}
			collected = append(collected, record)
		}
	}

	// Truncate to a full page multiple so client pagination never sees a
	// ragged final page; a sub-page collection is kept whole.
	if truncated := (len(collected) / o.cfg.BookPageSize) * o.cfg.BookPageSize; truncated > 0 {
		collected = collected[:truncated]
	}

	log.Printf("📚 Population: books collected %d (filtered %d) in %v",
		len(collected), filtered, time.Since(start).Round(time.Millisecond))

	if err := o.writer.Write(ctx, models.KindBook, collected); err != nil {
		return 0, o.fail(models.KindBook, "cache write", err)
	}
	return len(collected), nil
}

// fail reports an unrecoverable kind-level failure to the operator
// before surfacing it to the caller.
func (o *Orchestrator) fail(kind models.MediaKind, operation string, cause error) error {
	log.Printf("❌ Population: %s %s failed: %v", kind.Plural(), operation, cause)
	if o.notifier != nil {
		o.notifier.Notify(kind, operation, cause)
	}
	return fmt.Errorf("%s %s: %w", kind.Plural(), operation, cause)
}
