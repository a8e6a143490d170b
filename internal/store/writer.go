package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mediarr/mediarr/internal/models"
)

// Notifier dispatches an operator alert for a pipeline failure.
// Implementations must never block the pipeline on delivery.
type Notifier interface {
	Notify(kind models.MediaKind, operation string, cause error)
}

// Writer persists a population run's final collection: every record
// under its kind-scoped key, then a full replacement of the kind's
// ranking index. The sequence runs against the primary store and is then
// mirrored byte-identically to the backup store. The primary is
// authoritative; a backup failure is logged and reported but never fails
// the write. There is no cross-item atomicity: a crash mid-write leaves
// a partially updated kind until the next run overwrites it.
type Writer struct {
	primaryURL string
	backupURL  string
	notifier   Notifier
}

// NewWriter builds a writer over the two store URLs. backupURL may be
// empty to disable mirroring. notifier may be nil.
func NewWriter(primaryURL, backupURL string, notifier Notifier) *Writer {
	return &Writer{
		primaryURL: primaryURL,
		backupURL:  backupURL,
		notifier:   notifier,
	}
}

type serializedRecord struct {
	key     string
	payload []byte
}

// Write persists records for one kind. Connections are opened for this
// call and closed before it returns, including on error paths.
func (w *Writer) Write(ctx context.Context, kind models.MediaKind, records []models.CacheRecord) error {
	// Serialize once so the backup mirror is byte-identical to the
	// primary. A record that cannot be serialized is skipped, never
	// fatal to the batch.
	serialized := make([]serializedRecord, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			log.Printf("⚠️ Cache writer: skipping unserializable %s record %s: %v", kind, record.CacheID(), err)
			continue
		}
		serialized = append(serialized, serializedRecord{
			key:     models.RecordKey(kind, record.CacheID()),
			payload: payload,
		})
		ids = append(ids, record.CacheID())
	}

	primary, err := Open(w.primaryURL)
	if err != nil {
		return fmt.Errorf("failed to open primary store: %w", err)
	}
	defer primary.Close()

	if err := writeAll(ctx, primary, kind, serialized, ids); err != nil {
		return fmt.Errorf("primary store write for %s failed: %w", kind.Plural(), err)
	}
	log.Printf("💾 Cache writer: wrote %d %s records to primary store", len(serialized), kind)

	if w.backupURL == "" {
		return nil
	}

	backup, err := Open(w.backupURL)
	if err != nil {
		w.reportBackupFailure(kind, err)
		return nil
	}
	defer backup.Close()

	if err := writeAll(ctx, backup, kind, serialized, ids); err != nil {
		w.reportBackupFailure(kind, err)
		return nil
	}
	log.Printf("💾 Cache writer: mirrored %d %s records to backup store", len(serialized), kind)

	return nil
}

func writeAll(ctx context.Context, st Store, kind models.MediaKind, records []serializedRecord, ids []string) error {
	for _, record := range records {
		if err := st.Set(ctx, record.key, record.payload); err != nil {
			return err
		}
	}
	return st.ReplaceRanking(ctx, models.RankingKey(kind), ids)
}

func (w *Writer) reportBackupFailure(kind models.MediaKind, err error) {
	log.Printf("⚠️ Cache writer: backup store mirror for %s failed: %v", kind.Plural(), err)
	if w.notifier != nil {
		w.notifier.Notify(kind, "backup store mirror", err)
	}
}
