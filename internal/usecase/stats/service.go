package stats

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	"github.com/kailas-cloud/lodrag/internal/usecase/index"
)

// Report is the collection status across the pipeline stages.
type Report struct {
	RawPosts  map[string]int `json:"raw_posts"`
	Bookmarks int            `json:"bookmarks"`
	Index     index.Stats    `json:"vector_store"`
}

// Service builds collection reports.
type Service struct {
	records   RecordCounter
	bookmarks BookmarkCounter
	index     IndexStats
	logger    *zap.Logger
}

// New creates a Service. idx can be nil when the vector store is unavailable.
func New(records RecordCounter, bookmarks BookmarkCounter, idx IndexStats, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{records: records, bookmarks: bookmarks, index: idx, logger: logger}
}

// GetReport counts records, bookmarks and indexed points. A failing counter
// reports zero and is logged.
func (s *Service) GetReport(ctx context.Context) Report {
	r := Report{
		RawPosts: make(map[string]int, len(domain.Sources())),
		Index:    index.Stats{PerSource: map[string]int{}},
	}

	for _, src := range domain.Sources() {
		n, err := s.records.Count(ctx, src)
		if err != nil {
			s.logger.Warn("Record count failed", zap.String("source", src.String()), zap.Error(err))
		}
		r.RawPosts[src.String()] = n
	}

	n, err := s.bookmarks.Count(ctx)
	if err != nil {
		s.logger.Warn("Bookmark count failed", zap.Error(err))
	}
	r.Bookmarks = n

	if s.index != nil {
		r.Index = s.index.Stats(ctx)
	}
	return r
}
