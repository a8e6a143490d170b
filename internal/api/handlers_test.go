package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediarr/mediarr/internal/auth"
	"github.com/mediarr/mediarr/internal/populate"
	"github.com/mediarr/mediarr/internal/store"
)

type fakePopulator struct {
	result  *populate.Result
	err     error
	actions []string
	status  *populate.Status
}

func newFakePopulator() *fakePopulator {
	return &fakePopulator{
		result: &populate.Result{Movies: 240, TVShows: 240, Books: 80, TotalDuration: 3 * time.Minute, TVShowsDuration: time.Minute},
		status: populate.NewStatus(),
	}
}

func (f *fakePopulator) RunAll(ctx context.Context) (*populate.Result, error) {
	f.actions = append(f.actions, "all")
	return f.result, f.err
}

func (f *fakePopulator) PopulateMovies(ctx context.Context) (int, error) {
	f.actions = append(f.actions, "movies")
	return f.result.Movies, f.err
}

func (f *fakePopulator) PopulateTVShows(ctx context.Context) (int, error) {
	f.actions = append(f.actions, "tvshows")
	return f.result.TVShows, f.err
}

func (f *fakePopulator) PopulateBooks(ctx context.Context) (int, error) {
	f.actions = append(f.actions, "books")
	return f.result.Books, f.err
}

func (f *fakePopulator) Status() *populate.Status { return f.status }

func seededStore(t *testing.T, url string) store.Store {
	t.Helper()
	st, err := store.Open(url)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "movie:603", []byte(`{"tmdb_id":603,"title":"The Matrix"}`)))
	require.NoError(t, st.Set(ctx, "movie:604", []byte(`{"tmdb_id":604,"title":"The Matrix Reloaded"}`)))
	require.NoError(t, st.Set(ctx, "book:111", []byte(`{"isbn":"111","title":"A Book"}`)))
	require.NoError(t, st.ReplaceRanking(ctx, "popular_ranking:movies", []string{"603", "604"}))
	require.NoError(t, st.ReplaceRanking(ctx, "popular_ranking:books", []string{"111"}))
	return st
}

func newTestRouter(t *testing.T, url, secret string) (*fakePopulator, http.Handler) {
	t.Helper()
	populator := newFakePopulator()
	handler := NewHandler(seededStore(t, url), populator, secret)
	return populator, SetupRoutes(handler)
}

func doRequest(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	_, router := newTestRouter(t, "memory://api-health", "")
	w := doRequest(router, "GET", "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRankingRange(t *testing.T) {
	_, router := newTestRouter(t, "memory://api-ranking-range", "")
	w := doRequest(router, "GET", "/api/v1/cache?type=ranking-range&mediaType=movies&start=0&end=9", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool     `json:"success"`
		IDs     []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"603", "604"}, resp.IDs)
}

func TestRankingRangePastEnd(t *testing.T) {
	_, router := newTestRouter(t, "memory://api-ranking-past-end", "")
	w := doRequest(router, "GET", "/api/v1/cache?type=ranking-range&mediaType=movies&start=50&end=59", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.IDs, "past-the-end range is the pagination stop signal, not an error")
}

func TestRankingRangeBadParams(t *testing.T) {
	_, router := newTestRouter(t, "memory://api-ranking-bad", "")

	w := doRequest(router, "GET", "/api/v1/cache?type=ranking-range&mediaType=gadgets&start=0&end=9", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, "GET", "/api/v1/cache?type=ranking-range&mediaType=movies&start=x&end=9", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetchByIDs(t *testing.T) {
	_, router := newTestRouter(t, "memory://api-fetch-ids", "")
	w := doRequest(router, "GET", "/api/v1/cache?type=fetch-by-ids&mediaType=movies&ids=603,999,604", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool              `json:"success"`
		Items   []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Items, 2, "missing ids are omitted")
	assert.Contains(t, string(resp.Items[0]), "The Matrix")
}

func TestFetchByIDsRequiresIDs(t *testing.T) {
	_, router := newTestRouter(t, "memory://api-fetch-noids", "")
	w := doRequest(router, "GET", "/api/v1/cache?type=fetch-by-ids&mediaType=movies&ids=", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPopularRankings(t *testing.T) {
	_, router := newTestRouter(t, "memory://api-popular", "")
	w := doRequest(router, "GET", "/api/v1/cache?type=popular-rankings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		MovieRanking  []string `json:"movieRanking"`
		TVShowRanking []string `json:"tvShowRanking"`
		BookRanking   []string `json:"bookRanking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"603", "604"}, resp.MovieRanking)
	assert.Empty(t, resp.TVShowRanking)
	assert.Equal(t, []string{"111"}, resp.BookRanking)
}

func TestLegacyBlobsDefault(t *testing.T) {
	url := "memory://api-legacy"
	st, err := store.Open(url)
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), "popular_movies", []byte(`[{"title":"Old Shape"}]`)))

	populator := newFakePopulator()
	router := SetupRoutes(NewHandler(st, populator, ""))

	w := doRequest(router, "GET", "/api/v1/cache", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Movies  json.RawMessage `json:"movies"`
		TVShows json.RawMessage `json:"tvshows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, string(resp.Movies), "Old Shape")
	assert.Equal(t, "null", string(resp.TVShows), "absent legacy blob reads as null")
}

func TestCronPopulateGETRunsAll(t *testing.T) {
	populator, router := newTestRouter(t, "memory://api-cron-get", "")
	w := doRequest(router, "GET", "/api/v1/cron/populate", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"all"}, populator.actions)

	var resp struct {
		Message       string `json:"message"`
		Movies        int    `json:"movies"`
		TVShows       int    `json:"tvshows"`
		Books         int    `json:"books"`
		TotalDuration string `json:"totalDuration"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "population complete", resp.Message)
	assert.Equal(t, 240, resp.Movies)
	assert.Equal(t, 80, resp.Books)
	assert.Equal(t, "3m0s", resp.TotalDuration)
}

func TestCronPopulatePOSTScopedAction(t *testing.T) {
	populator, router := newTestRouter(t, "memory://api-cron-post", "")
	w := doRequest(router, "POST", "/api/v1/cron/populate", `{"action":"populate-books"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"books"}, populator.actions)
}

func TestCronPopulateUnknownAction(t *testing.T) {
	_, router := newTestRouter(t, "memory://api-cron-unknown", "")
	w := doRequest(router, "POST", "/api/v1/cron/populate", `{"action":"populate-songs"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCronPopulateFailureShape(t *testing.T) {
	populator, router := newTestRouter(t, "memory://api-cron-fail", "")
	populator.err = errors.New("tmdb unreachable")

	w := doRequest(router, "GET", "/api/v1/cron/populate", "", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp struct {
		Error     string `json:"error"`
		Details   string `json:"details"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "population failed", resp.Error)
	assert.Contains(t, resp.Details, "tmdb unreachable")
	assert.NotEmpty(t, resp.Timestamp)
}

func TestManualPopulateRequiresBearer(t *testing.T) {
	_, router := newTestRouter(t, "memory://api-manual-nobearer", "")
	w := doRequest(router, "POST", "/api/v1/populate", `{"action":"populate-all"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestManualPopulateAnyTokenWithoutSecret(t *testing.T) {
	populator, router := newTestRouter(t, "memory://api-manual-anytoken", "")
	w := doRequest(router, "POST", "/api/v1/populate", `{"action":"populate-movies"}`,
		map[string]string{"Authorization": "Bearer whatever"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"movies"}, populator.actions)
}

func TestManualPopulateValidatesSignedToken(t *testing.T) {
	const secret = "test-secret"
	populator, router := newTestRouter(t, "memory://api-manual-jwt", secret)

	w := doRequest(router, "POST", "/api/v1/populate", `{"action":"populate-all"}`,
		map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, populator.actions)

	token, err := auth.GenerateToken(secret, "ops", time.Hour)
	require.NoError(t, err)

	w = doRequest(router, "POST", "/api/v1/populate", `{"action":"populate-all"}`,
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"all"}, populator.actions)
}

func TestPopulateStatus(t *testing.T) {
	_, router := newTestRouter(t, "memory://api-status", "")
	w := doRequest(router, "GET", "/api/v1/populate/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Kinds     []populate.KindStatus `json:"kinds"`
		Timestamp string                `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Timestamp)
}
