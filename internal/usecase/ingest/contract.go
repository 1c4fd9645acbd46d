package ingest

import (
	"context"

	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

// RecordStore persists the manual record.
type RecordStore interface {
	Create(ctx context.Context, rec *domrec.Record) error
}

// Synthesizer distills a record into a bookmark.
type Synthesizer interface {
	Create(ctx context.Context, rec *domrec.Record) (*dombm.Bookmark, error)
}

// Indexer embeds and stores a bookmark point.
type Indexer interface {
	Upsert(ctx context.Context, b *dombm.Bookmark) error
}
