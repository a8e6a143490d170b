package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mediarr/mediarr/internal/models"
	"github.com/mediarr/mediarr/internal/populate"
	"github.com/mediarr/mediarr/internal/store"
)

// Populator is the trigger surface the HTTP handlers drive.
type Populator interface {
	RunAll(ctx context.Context) (*populate.Result, error)
	PopulateMovies(ctx context.Context) (int, error)
	PopulateTVShows(ctx context.Context) (int, error)
	PopulateBooks(ctx context.Context) (int, error)
	Status() *populate.Status
}

type Handler struct {
	cache     store.Store
	populator Populator
	jwtSecret string
}

// NewHandler builds the API handler. cache is the long-lived read
// connection; the population pipeline opens its own store connections
// per run.
func NewHandler(cache store.Store, populator Populator, jwtSecret string) *Handler {
	return &Handler{
		cache:     cache,
		populator: populator,
		jwtSecret: jwtSecret,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// RootHandler handles GET /
func (h *Handler) RootHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"name":    "Mediarr",
		"status":  "running",
		"version": "1.0",
	})
}

// HealthCheck handles GET /api/v1/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CacheQuery handles GET /api/v1/cache, dispatching on the type query
// parameter. Unrecognized types fall back to the legacy flat blobs.
func (h *Handler) CacheQuery(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("type") {
	case "ranking-range":
		h.rankingRange(w, r)
	case "fetch-by-ids":
		h.fetchByIDs(w, r)
	case "popular-rankings":
		h.popularRankings(w, r)
	default:
		h.legacyBlobs(w, r)
	}
}

// rankingRange serves cursor pagination over a kind's ranking index.
// An empty id list is the end-of-ranking signal, not an error.
func (h *Handler) rankingRange(w http.ResponseWriter, r *http.Request) {
	kind, ok := models.ParseKind(r.URL.Query().Get("mediaType"))
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown mediaType")
		return
	}
	start, err := strconv.ParseInt(r.URL.Query().Get("start"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start")
		return
	}
	end, err := strconv.ParseInt(r.URL.Query().Get("end"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid end")
		return
	}

	ids, err := h.cache.RankingRange(r.Context(), models.RankingKey(kind), start, end)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"ids":     ids,
	})
}

// fetchByIDs serves bulk record retrieval. Missing ids are silently
// omitted; callers reconcile counts themselves.
func (h *Handler) fetchByIDs(w http.ResponseWriter, r *http.Request) {
	kind, ok := models.ParseKind(r.URL.Query().Get("mediaType"))
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown mediaType")
		return
	}

	var keys []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			keys = append(keys, models.RecordKey(kind, id))
		}
	}
	if len(keys) == 0 {
		respondError(w, http.StatusBadRequest, "ids is required")
		return
	}

	values, err := h.cache.MGet(r.Context(), keys)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]json.RawMessage, 0, len(values))
	for _, value := range values {
		if value != nil {
			items = append(items, json.RawMessage(value))
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"items":   items,
	})
}

// popularRankings serves all three full ranking indices for initial
// page hydration.
func (h *Handler) popularRankings(w http.ResponseWriter, r *http.Request) {
	rankings := make(map[models.MediaKind][]string, 3)
	for _, kind := range []models.MediaKind{models.KindMovie, models.KindTVShow, models.KindBook} {
		ids, err := h.cache.RankingRange(r.Context(), models.RankingKey(kind), 0, -1)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if ids == nil {
			ids = []string{}
		}
		rankings[kind] = ids
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"movieRanking":  rankings[models.KindMovie],
		"tvShowRanking": rankings[models.KindTVShow],
		"bookRanking":   rankings[models.KindBook],
	})
}

// legacyBlobs serves the deprecated flat-list keys for old clients.
// The pipeline no longer writes these; absent keys read as null.
func (h *Handler) legacyBlobs(w http.ResponseWriter, r *http.Request) {
	blobs := make(map[string]json.RawMessage, 3)
	for _, kind := range []models.MediaKind{models.KindMovie, models.KindTVShow, models.KindBook} {
		data, err := h.cache.Get(r.Context(), models.LegacyKey(kind))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if data == nil {
			data = json.RawMessage("null")
		}
		blobs[kind.Plural()] = data
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"movies":  blobs["movies"],
		"tvshows": blobs["tvshows"],
		"books":   blobs["books"],
	})
}

type populationRequest struct {
	Action string `json:"action"`
}

// CronPopulate handles GET and POST /api/v1/cron/populate: GET runs the
// full sequence, POST scopes it to the requested action.
func (h *Handler) CronPopulate(w http.ResponseWriter, r *http.Request) {
	action := "populate-all"
	if r.Method == http.MethodPost {
		var req populationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondPopulationError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
		if req.Action != "" {
			action = req.Action
		}
	}
	h.runPopulation(w, r, action)
}

// ManualPopulate handles POST /api/v1/populate (operator-protected).
func (h *Handler) ManualPopulate(w http.ResponseWriter, r *http.Request) {
	var req populationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondPopulationError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	action := req.Action
	if action == "" {
		action = "populate-all"
	}
	h.runPopulation(w, r, action)
}

// PopulateStatus handles GET /api/v1/populate/status
func (h *Handler) PopulateStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"kinds":     h.populator.Status().Snapshot(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) runPopulation(w http.ResponseWriter, r *http.Request, action string) {
	ctx := r.Context()
	start := time.Now()

	var result *populate.Result
	var err error

	switch action {
	case "populate-all":
		result, err = h.populator.RunAll(ctx)
	case "populate-movies":
		var n int
		n, err = h.populator.PopulateMovies(ctx)
		result = &populate.Result{Movies: n, TotalDuration: time.Since(start)}
	case "populate-tvshows":
		var n int
		n, err = h.populator.PopulateTVShows(ctx)
		result = &populate.Result{TVShows: n, TotalDuration: time.Since(start), TVShowsDuration: time.Since(start)}
	case "populate-books":
		var n int
		n, err = h.populator.PopulateBooks(ctx)
		result = &populate.Result{Books: n, TotalDuration: time.Since(start)}
	default:
		h.respondPopulationError(w, http.StatusBadRequest, "unknown action "+action, nil)
		return
	}

	if err != nil {
		h.respondPopulationError(w, http.StatusInternalServerError, "population failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "population complete",
		"movies":          result.Movies,
		"tvshows":         result.TVShows,
		"books":           result.Books,
		"totalDuration":   result.TotalDuration.Round(time.Millisecond).String(),
		"tvShowsDuration": result.TVShowsDuration.Round(time.Millisecond).String(),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) respondPopulationError(w http.ResponseWriter, status int, message string, cause error) {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	respondJSON(w, status, map[string]interface{}{
		"error":     message,
		"details":   details,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
