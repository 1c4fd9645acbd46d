package bookmark

import (
	"context"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

// RecordStore is the raw record access the synthesizer needs.
type RecordStore interface {
	ListPending(ctx context.Context) ([]*domrec.Record, error)
	MarkBookmarked(ctx context.Context, src domain.Source, id string) error
	Path(src domain.Source, id string) string
}

// BookmarkStore persists bookmarks with exclusive create semantics.
type BookmarkStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, b *dombm.Bookmark) error
}
