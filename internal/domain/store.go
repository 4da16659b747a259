package domain

import "context"

// FetchRunStore persists the audit trail of catalog refreshes.
type FetchRunStore interface {
	RecordRun(ctx context.Context, run *FetchRun) error
	RecentRuns(ctx context.Context, limit int) ([]FetchRun, error)
}

// BlobWriter writes opaque payloads to durable object storage.
type BlobWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
