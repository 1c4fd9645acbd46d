package index

import (
	"context"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
)

// VectorStore is the point storage the indexer writes to.
type VectorStore interface {
	Upsert(ctx context.Context, b *dombm.Bookmark, vec []float32) error
	Delete(ctx context.Context, bookmarkID string) error
	Exists(ctx context.Context, bookmarkID string) (bool, error)
	// Count returns the number of points of src; empty src counts all.
	Count(ctx context.Context, src domain.Source) (int, error)
}

// BookmarkStore lists the bookmarks to index.
type BookmarkStore interface {
	List(ctx context.Context) ([]*dombm.Bookmark, error)
}
