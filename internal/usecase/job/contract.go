package job

import (
	"context"

	"github.com/kailas-cloud/lodrag/internal/domain"
	"github.com/kailas-cloud/lodrag/internal/usecase/bookmark"
	"github.com/kailas-cloud/lodrag/internal/usecase/crawl"
	"github.com/kailas-cloud/lodrag/internal/usecase/index"
)

// Crawler runs one source's crawl loops.
type Crawler interface {
	Source() domain.Source
	CrawlFull(ctx context.Context, pages int) (crawl.Stats, error)
	CrawlIncremental(ctx context.Context) (crawl.Stats, error)
}

// Synthesizer turns pending records into bookmarks.
type Synthesizer interface {
	CreateAll(ctx context.Context) (bookmark.Stats, error)
}

// Indexer pushes unindexed bookmarks into the vector store.
type Indexer interface {
	ProcessAll(ctx context.Context) (index.RunStats, error)
}

// Notifier delivers operator messages. Failures are never escalated.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
