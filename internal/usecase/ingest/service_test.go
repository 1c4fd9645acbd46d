package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

type memRecords struct {
	saved []*domrec.Record
	err   error
}

func (m *memRecords) Create(_ context.Context, rec *domrec.Record) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, rec)
	return nil
}

type fakeSynth struct {
	err  error
	none bool
}

func (f *fakeSynth) Create(_ context.Context, rec *domrec.Record) (*dombm.Bookmark, error) {
	if f.err != nil || f.none {
		return nil, f.err
	}
	return &dombm.Bookmark{ID: dombm.ID(rec.Source, rec.ID), Title: rec.Title}, nil
}

type fakeIndexer struct {
	upserted []string
	err      error
}

func (f *fakeIndexer) Upsert(_ context.Context, b *dombm.Bookmark) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, b.ID)
	return nil
}

func newTestService(r *memRecords, s *fakeSynth, i *fakeIndexer) *Service {
	svc := New(r, s, i, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC) }
	return svc
}

func validInput() Input {
	return Input{
		Source:    domain.SourceLodNexon,
		Title:     "정령사 스킬 정리",
		Content:   "본문",
		URL:       "https://example.com/1",
		BoardName: "공략",
	}
}

func TestAdd(t *testing.T) {
	recs, idx := &memRecords{}, &fakeIndexer{}
	svc := newTestService(recs, &fakeSynth{}, idx)

	res, err := svc.Add(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.RecordID, "manual_") || !res.Indexed {
		t.Errorf("result = %+v", res)
	}
	if res.BookmarkID != "lod_nexon_"+res.RecordID {
		t.Errorf("bookmark id = %s", res.BookmarkID)
	}

	rec := recs.saved[0]
	if rec.Author != "수동입력" || rec.Date != "2026.03.07" || rec.BookmarkCreated {
		t.Errorf("record = %+v", rec)
	}
	if len(idx.upserted) != 1 {
		t.Errorf("upserted = %v", idx.upserted)
	}
}

func TestAdd_UniqueIDs(t *testing.T) {
	recs := &memRecords{}
	svc := newTestService(recs, &fakeSynth{}, &fakeIndexer{})

	a, _ := svc.Add(context.Background(), validInput())
	b, _ := svc.Add(context.Background(), validInput())
	if a.RecordID == b.RecordID {
		t.Error("ids must differ within the same instant")
	}
}

func TestAdd_Validation(t *testing.T) {
	svc := newTestService(&memRecords{}, &fakeSynth{}, &fakeIndexer{})

	in := validInput()
	in.Source = "reddit"
	if _, err := svc.Add(context.Background(), in); !errors.Is(err, domain.ErrInvalidSource) {
		t.Errorf("expected ErrInvalidSource, got %v", err)
	}

	in = validInput()
	in.Title = "  "
	if _, err := svc.Add(context.Background(), in); err == nil {
		t.Error("expected title error")
	}
}

func TestAdd_SynthesisFailure(t *testing.T) {
	idx := &fakeIndexer{}
	svc := newTestService(&memRecords{}, &fakeSynth{err: domain.ErrContentTooShort}, idx)

	_, err := svc.Add(context.Background(), validInput())
	if !errors.Is(err, ErrBookmarkNotCreated) || !errors.Is(err, domain.ErrContentTooShort) {
		t.Errorf("unexpected error %v", err)
	}
	if len(idx.upserted) != 0 {
		t.Error("nothing must be indexed")
	}

	svc = newTestService(&memRecords{}, &fakeSynth{none: true}, idx)
	if _, err := svc.Add(context.Background(), validInput()); !errors.Is(err, ErrBookmarkNotCreated) {
		t.Errorf("unexpected error %v", err)
	}
}

func TestAdd_IndexFailureIsSoft(t *testing.T) {
	svc := newTestService(&memRecords{}, &fakeSynth{}, &fakeIndexer{err: errors.New("store down")})

	res, err := svc.Add(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed {
		t.Error("expected Indexed=false")
	}
}

func TestAdd_RecordStoreFailure(t *testing.T) {
	svc := newTestService(&memRecords{err: errors.New("disk full")}, &fakeSynth{}, &fakeIndexer{})
	if _, err := svc.Add(context.Background(), validInput()); err == nil {
		t.Error("expected error")
	}
}
