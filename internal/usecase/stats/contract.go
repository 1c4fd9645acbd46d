package stats

import (
	"context"

	"github.com/kailas-cloud/lodrag/internal/domain"
	"github.com/kailas-cloud/lodrag/internal/usecase/index"
)

// RecordCounter counts raw records per source.
type RecordCounter interface {
	Count(ctx context.Context, src domain.Source) (int, error)
}

// BookmarkCounter counts stored bookmarks.
type BookmarkCounter interface {
	Count(ctx context.Context) (int, error)
}

// IndexStats reports point counts of the vector collection.
type IndexStats interface {
	Stats(ctx context.Context) index.Stats
}
