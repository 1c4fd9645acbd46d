package job

import (
	"context"
	"sync"

	"github.com/kailas-cloud/lodrag/internal/domain"
	"github.com/kailas-cloud/lodrag/internal/usecase/bookmark"
	"github.com/kailas-cloud/lodrag/internal/usecase/crawl"
	"github.com/kailas-cloud/lodrag/internal/usecase/index"
)

type mockCrawler struct {
	src       domain.Source
	stats     crawl.Stats
	err       error
	fullPages []int
	incCalls  int
	started   chan struct{}
	block     chan struct{}
}

func (m *mockCrawler) Source() domain.Source { return m.src }

func (m *mockCrawler) CrawlFull(_ context.Context, pages int) (crawl.Stats, error) {
	m.fullPages = append(m.fullPages, pages)
	if m.started != nil {
		close(m.started)
	}
	if m.block != nil {
		<-m.block
	}
	return m.stats, m.err
}

func (m *mockCrawler) CrawlIncremental(_ context.Context) (crawl.Stats, error) {
	m.incCalls++
	return m.stats, m.err
}

type mockSynth struct {
	stats bookmark.Stats
	calls int
}

func (m *mockSynth) CreateAll(_ context.Context) (bookmark.Stats, error) {
	m.calls++
	return m.stats, nil
}

type mockIndexer struct {
	stats index.RunStats
	calls int
}

func (m *mockIndexer) ProcessAll(_ context.Context) (index.RunStats, error) {
	m.calls++
	return m.stats, nil
}

type mockNotifier struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return m.err
}

type fixture struct {
	lod, cafe *mockCrawler
	synth     *mockSynth
	indexer   *mockIndexer
	notifier  *mockNotifier
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		lod:      &mockCrawler{src: domain.SourceLodNexon, stats: crawl.Stats{New: 2, Skipped: 1}},
		cafe:     &mockCrawler{src: domain.SourceNaverCafe, stats: crawl.Stats{New: 4}},
		synth:    &mockSynth{stats: bookmark.Stats{Created: 5, Total: 6, Failed: 1}},
		indexer:  &mockIndexer{stats: index.RunStats{Saved: 5}},
		notifier: &mockNotifier{},
	}
	f.svc = New([]Crawler{f.lod, f.cafe},
		map[domain.Source]int{domain.SourceLodNexon: 20, domain.SourceNaverCafe: 10},
		f.synth, f.indexer, f.notifier, nil)
	return f
}
