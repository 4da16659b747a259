package s3blob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// SnapshotArchiver writes every refreshed catalog snapshot to object
// storage, partitioned by capture date:
//
//	snapshots/2025/07/15/catalog-1752576000.json
//
// Archives are retained history; the hot copy lives in the cache.
type SnapshotArchiver struct {
	writer domain.BlobWriter
}

// NewSnapshotArchiver creates a new SnapshotArchiver using the given writer.
func NewSnapshotArchiver(w domain.BlobWriter) *SnapshotArchiver {
	return &SnapshotArchiver{writer: w}
}

// ArchiveSnapshot serializes the snapshot to JSON and uploads it under a
// date-partitioned key.
func (a *SnapshotArchiver) ArchiveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("s3blob: marshal snapshot: %w", err)
	}

	key := snapshotKey(snap.CapturedAt)
	if err := a.writer.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive snapshot: %w", err)
	}
	return nil
}

func snapshotKey(capturedAt time.Time) string {
	t := capturedAt.UTC()
	return fmt.Sprintf("snapshots/%s/catalog-%d.json", t.Format("2006/01/02"), t.Unix())
}
