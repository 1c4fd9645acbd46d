package retrieve

import (
	"context"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

// VectorSearcher finds bookmarks near a query vector. Hits below minScore are never returned.
type VectorSearcher interface {
	Search(ctx context.Context, vec []float32, k int, minScore float64, src domain.Source) ([]dombm.Hit, error)
}

// RecordLoader resolves a bookmark's content path to its raw record.
type RecordLoader interface {
	GetByPath(ctx context.Context, path string) (*domrec.Record, error)
}
