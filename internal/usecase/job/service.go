package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	"github.com/kailas-cloud/lodrag/internal/metrics"
	"github.com/kailas-cloud/lodrag/internal/usecase/bookmark"
	"github.com/kailas-cloud/lodrag/internal/usecase/crawl"
	"github.com/kailas-cloud/lodrag/internal/usecase/index"
)

// ErrBusy is returned when another job holds the runner.
var ErrBusy = errors.New("another job is running")

// Kind names a job shape.
type Kind string

const (
	// KindIncremental crawls new posts, then catches up.
	KindIncremental Kind = "incremental"
	// KindCatchUp synthesizes and indexes whatever is pending, without crawling.
	KindCatchUp Kind = "catchup"
	// KindFull recrawls every configured page, catches up and notifies.
	KindFull Kind = "full"
	// KindManual is an operator-triggered full-shape crawl without the completion notice.
	KindManual Kind = "manual"
)

// ParseKind validates a job name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindIncremental, KindCatchUp, KindFull:
		return k, nil
	default:
		return "", fmt.Errorf("unknown job %q", s)
	}
}

// Report collects per-stage counters of one run.
type Report struct {
	Kind        Kind                   `json:"kind"`
	Crawl       map[string]crawl.Stats `json:"crawl,omitempty"`
	CrawlErrors map[string]string      `json:"crawl_errors,omitempty"`
	Bookmarks   bookmark.Stats         `json:"bookmarks"`
	Index       index.RunStats         `json:"index"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  time.Time              `json:"finished_at"`
}

func newReport(kind Kind) *Report {
	return &Report{
		Kind:        kind,
		Crawl:       map[string]crawl.Stats{},
		CrawlErrors: map[string]string{},
		StartedAt:   time.Now().UTC(),
	}
}

// CrawlNew returns the number of new posts crawled from src.
func (r *Report) CrawlNew(src domain.Source) int {
	return r.Crawl[src.String()].New
}

// Service runs the pipeline jobs. At most one job runs at a time.
type Service struct {
	crawlers  []Crawler
	fullPages map[domain.Source]int
	synth     Synthesizer
	indexer   Indexer
	notifier  Notifier
	mu        sync.Mutex
	logger    *zap.Logger
}

// New creates the job runner. fullPages holds the page depth of a full crawl per source.
func New(
	crawlers []Crawler, fullPages map[domain.Source]int,
	synth Synthesizer, indexer Indexer, notifier Notifier, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		crawlers:  crawlers,
		fullPages: fullPages,
		synth:     synth,
		indexer:   indexer,
		notifier:  notifier,
		logger:    logger,
	}
}

// Run executes kind unless another job is running, in which case it returns ErrBusy.
func (s *Service) Run(ctx context.Context, kind Kind) (*Report, error) {
	switch kind {
	case KindIncremental:
		return s.exclusive(kind, func() *Report { return s.incremental(ctx) })
	case KindCatchUp:
		return s.exclusive(kind, func() *Report { return s.catchUp(ctx, newReport(kind)) })
	case KindFull:
		return s.exclusive(kind, func() *Report { return s.full(ctx) })
	default:
		return nil, fmt.Errorf("unknown job %q", kind)
	}
}

// Crawl runs an operator-triggered full-shape crawl of the given sources
// (all when empty) to pages deep, then catches up.
func (s *Service) Crawl(ctx context.Context, sources []domain.Source, pages int) (*Report, error) {
	return s.exclusive(KindManual, func() *Report {
		r := newReport(KindManual)
		want := make(map[domain.Source]bool, len(sources))
		for _, src := range sources {
			want[src] = true
		}
		for _, c := range s.crawlers {
			if len(want) > 0 && !want[c.Source()] {
				continue
			}
			st, err := c.CrawlFull(ctx, pages)
			s.recordCrawl(ctx, r, c.Source(), st, err)
		}
		return s.catchUp(ctx, r)
	})
}

func (s *Service) exclusive(kind Kind, fn func() *Report) (*Report, error) {
	if !s.mu.TryLock() {
		s.logger.Warn("Job skipped: still running", zap.String("job", string(kind)))
		metrics.JobRunsTotal.WithLabelValues(string(kind), "skipped").Inc()
		return nil, ErrBusy
	}
	defer s.mu.Unlock()

	s.logger.Info("Job started", zap.String("job", string(kind)))
	r := fn()
	r.FinishedAt = time.Now().UTC()
	metrics.JobRunsTotal.WithLabelValues(string(kind), "completed").Inc()
	s.logger.Info("Job finished",
		zap.String("job", string(kind)),
		zap.Any("crawl", r.Crawl),
		zap.Int("bookmarks_created", r.Bookmarks.Created),
		zap.Int("indexed", r.Index.Saved),
		zap.Duration("took", r.FinishedAt.Sub(r.StartedAt)))
	return r, nil
}

func (s *Service) incremental(ctx context.Context) *Report {
	r := newReport(KindIncremental)
	for _, c := range s.crawlers {
		st, err := c.CrawlIncremental(ctx)
		s.recordCrawl(ctx, r, c.Source(), st, err)
	}
	return s.catchUp(ctx, r)
}

func (s *Service) full(ctx context.Context) *Report {
	r := newReport(KindFull)
	for _, c := range s.crawlers {
		st, err := c.CrawlFull(ctx, s.fullPages[c.Source()])
		s.recordCrawl(ctx, r, c.Source(), st, err)
	}
	s.catchUp(ctx, r)

	msg := crawlCompleteMessage(
		r.CrawlNew(domain.SourceLodNexon), r.CrawlNew(domain.SourceNaverCafe), r.Bookmarks.Created)
	s.notify(ctx, msg)
	return r
}

// catchUp synthesizes pending records and indexes unindexed bookmarks.
func (s *Service) catchUp(ctx context.Context, r *Report) *Report {
	bs, err := s.synth.CreateAll(ctx)
	if err != nil {
		s.logger.Error("Bookmark stage failed", zap.Error(err))
	}
	r.Bookmarks = bs

	is, err := s.indexer.ProcessAll(ctx)
	if err != nil {
		s.logger.Error("Index stage failed", zap.Error(err))
	}
	r.Index = is
	return r
}

// recordCrawl stores a source's outcome. Session problems skip the source
// without failing the job; an expired session also alerts the operator.
func (s *Service) recordCrawl(ctx context.Context, r *Report, src domain.Source, st crawl.Stats, err error) {
	r.Crawl[src.String()] = st
	if err == nil {
		return
	}
	r.CrawlErrors[src.String()] = err.Error()

	log := s.logger.With(zap.String("source", src.String()))
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		log.Warn("Session expired, source skipped")
		s.notify(ctx, sessionExpiredMessage)
	case errors.Is(err, domain.ErrCredentialMissing):
		log.Warn("Session file missing, source skipped", zap.Error(err))
	default:
		log.Error("Crawl failed", zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, msg string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn("Notification failed", zap.Error(err))
	}
}
