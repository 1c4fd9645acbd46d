package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/lodrag/internal/domain"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

// fakeSource serves fixed listing pages per board.
type fakeSource struct {
	boards  []domrec.Board
	pages   map[string][][]domrec.Candidate // board ID -> pages
	openErr error
	listErr error
	detail  func(c domrec.Candidate) (*domrec.Record, error)

	opened  int
	closed  int
	fetched []string
}

func (f *fakeSource) Name() domain.Source { return domain.SourceLodNexon }

func (f *fakeSource) Open(_ context.Context) error {
	f.opened++
	return f.openErr
}

func (f *fakeSource) Boards() []domrec.Board { return f.boards }

func (f *fakeSource) ListCandidates(_ context.Context, b domrec.Board, page int) ([]domrec.Candidate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	pages := f.pages[b.ID]
	if page < 1 || page > len(pages) {
		return nil, nil
	}
	return pages[page-1], nil
}

func (f *fakeSource) FetchDetail(_ context.Context, c domrec.Candidate) (*domrec.Record, error) {
	f.fetched = append(f.fetched, c.ExternalID)
	if f.detail != nil {
		return f.detail(c)
	}
	return &domrec.Record{ID: c.ExternalID, Source: domain.SourceLodNexon, Title: c.Title, Content: "본문"}, nil
}

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

// memRecords is an in-memory RecordStore keyed by record ID.
type memRecords struct {
	mu   sync.Mutex
	recs map[string]*domrec.Record
}

func newMemRecords(ids ...string) *memRecords {
	m := &memRecords{recs: map[string]*domrec.Record{}}
	for _, id := range ids {
		m.recs[id] = &domrec.Record{ID: id}
	}
	return m
}

func (m *memRecords) Exists(_ context.Context, _ domain.Source, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.recs[id]
	return ok, nil
}

func (m *memRecords) Create(_ context.Context, rec *domrec.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.recs[rec.ID] = rec
	return nil
}

func cands(ids ...string) []domrec.Candidate {
	out := make([]domrec.Candidate, len(ids))
	for i, id := range ids {
		out[i] = domrec.Candidate{ExternalID: id, Title: "t" + id}
	}
	return out
}

func newTestService(src Source, recs RecordStore) (*Service, *int) {
	svc := New(src, recs, Delay{Min: time.Second, Max: 2 * time.Second}, nil)
	sleeps := new(int)
	svc.sleep = func(ctx context.Context, _ time.Duration) error {
		*sleeps++
		return ctx.Err()
	}
	return svc, sleeps
}
