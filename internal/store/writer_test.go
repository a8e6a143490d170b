package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediarr/mediarr/internal/models"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) Notify(kind models.MediaKind, operation string, cause error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, string(kind)+"/"+operation)
}

func enrichedMovie(id int, title string) models.CacheRecord {
	return models.EnrichedMovie{Movie: models.Movie{TMDBID: id, Title: title}}
}

func TestWriterWritesRecordsAndRanking(t *testing.T) {
	ctx := context.Background()
	writer := NewWriter("memory://writer-basic", "", nil)

	records := []models.CacheRecord{
		enrichedMovie(603, "The Matrix"),
		enrichedMovie(604, "The Matrix Reloaded"),
		enrichedMovie(605, "The Matrix Revolutions"),
	}
	require.NoError(t, writer.Write(ctx, models.KindMovie, records))

	st, err := Open("memory://writer-basic")
	require.NoError(t, err)

	data, err := st.Get(ctx, "movie:603")
	require.NoError(t, err)
	assert.Contains(t, string(data), "The Matrix")

	ranking, err := st.RankingRange(ctx, "popular_ranking:movies", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"603", "604", "605"}, ranking, "ranking preserves collection order")
}

func TestWriterMirrorsBackupByteIdentically(t *testing.T) {
	ctx := context.Background()
	writer := NewWriter("memory://writer-primary", "memory://writer-backup", nil)

	require.NoError(t, writer.Write(ctx, models.KindMovie, []models.CacheRecord{
		enrichedMovie(603, "The Matrix"),
	}))

	primary, err := Open("memory://writer-primary")
	require.NoError(t, err)
	backup, err := Open("memory://writer-backup")
	require.NoError(t, err)

	p, err := primary.Get(ctx, "movie:603")
	require.NoError(t, err)
	b, err := backup.Get(ctx, "movie:603")
	require.NoError(t, err)
	assert.Equal(t, p, b)

	pr, err := primary.RankingRange(ctx, "popular_ranking:movies", 0, -1)
	require.NoError(t, err)
	br, err := backup.RankingRange(ctx, "popular_ranking:movies", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, pr, br)
}

func TestWriterBackupFailureIsReportedNotFatal(t *testing.T) {
	notifier := &recordingNotifier{}
	writer := NewWriter("memory://writer-backup-fail", "bogus://nowhere", notifier)

	err := writer.Write(context.Background(), models.KindBook, []models.CacheRecord{
		models.EnrichedBook{Book: models.Book{ISBN: "111", Title: "A Book"}},
	})

	assert.NoError(t, err, "backup failure never fails the write")
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "book/backup store mirror", notifier.calls[0])

	// Primary write still landed.
	st, openErr := Open("memory://writer-backup-fail")
	require.NoError(t, openErr)
	_, getErr := st.Get(context.Background(), "book:111")
	assert.NoError(t, getErr)
}

func TestWriterPrimaryFailureIsFatal(t *testing.T) {
	writer := NewWriter("bogus://nowhere", "", nil)

	err := writer.Write(context.Background(), models.KindMovie, []models.CacheRecord{
		enrichedMovie(1, "x"),
	})
	assert.Error(t, err)
}

func TestWriterReplacesStaleRanking(t *testing.T) {
	ctx := context.Background()
	writer := NewWriter("memory://writer-replace", "", nil)

	require.NoError(t, writer.Write(ctx, models.KindMovie, []models.CacheRecord{
		enrichedMovie(1, "a"), enrichedMovie(2, "b"),
	}))
	require.NoError(t, writer.Write(ctx, models.KindMovie, []models.CacheRecord{
		enrichedMovie(3, "c"),
	}))

	st, err := Open("memory://writer-replace")
	require.NoError(t, err)
	ranking, err := st.RankingRange(ctx, "popular_ranking:movies", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, ranking)
}

type unserializableRecord struct {
	Ch chan int `json:"ch"`
}

func (unserializableRecord) Kind() models.MediaKind { return models.KindMovie }
func (unserializableRecord) CacheID() string        { return "bad" }

func TestWriterSkipsUnserializableRecord(t *testing.T) {
	ctx := context.Background()
	writer := NewWriter("memory://writer-skip", "", nil)

	err := writer.Write(ctx, models.KindMovie, []models.CacheRecord{
		enrichedMovie(1, "good"),
		unserializableRecord{},
	})
	require.NoError(t, err)

	st, err := Open("memory://writer-skip")
	require.NoError(t, err)
	ranking, err := st.RankingRange(ctx, "popular_ranking:movies", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ranking, "bad record is dropped from the ranking too")
}

func TestWriterEmptyBatch(t *testing.T) {
	ctx := context.Background()
	writer := NewWriter("memory://writer-empty", "", nil)

	require.NoError(t, writer.Write(ctx, models.KindTVShow, nil))

	st, err := Open("memory://writer-empty")
	require.NoError(t, err)
	ranking, err := st.RankingRange(ctx, "popular_ranking:tvshows", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, ranking)
}
