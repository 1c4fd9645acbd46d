package chi

import (
	"context"

	"github.com/kailas-cloud/lodrag/internal/domain"
	"github.com/kailas-cloud/lodrag/internal/domain/answer"
	healthuc "github.com/kailas-cloud/lodrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/lodrag/internal/usecase/ingest"
	jobuc "github.com/kailas-cloud/lodrag/internal/usecase/job"
	statsuc "github.com/kailas-cloud/lodrag/internal/usecase/stats"
)

// Asker answers questions from the bookmark index.
type Asker interface {
	Ask(ctx context.Context, question string, src domain.Source) (answer.Answer, error)
}

// Ingester adds a manual post.
type Ingester interface {
	Add(ctx context.Context, in ingestuc.Input) (*ingestuc.Result, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// StatsReader reports collection counts.
type StatsReader interface {
	GetReport(ctx context.Context) statsuc.Report
}

// CrawlRunner runs an operator-triggered crawl.
type CrawlRunner interface {
	Crawl(ctx context.Context, sources []domain.Source, pages int) (*jobuc.Report, error)
}
