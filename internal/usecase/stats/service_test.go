package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/lodrag/internal/domain"
	"github.com/kailas-cloud/lodrag/internal/usecase/index"
)

// --- Mocks ---

type mockRecords struct {
	counts map[domain.Source]int
	err    error
}

func (m *mockRecords) Count(_ context.Context, src domain.Source) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.counts[src], nil
}

type mockBookmarks struct {
	n   int
	err error
}

func (m *mockBookmarks) Count(_ context.Context) (int, error) { return m.n, m.err }

type mockIndex struct{}

func (mockIndex) Stats(_ context.Context) index.Stats {
	return index.Stats{Total: 5, PerSource: map[string]int{"lod_nexon": 5, "naver_cafe": 0}}
}

// --- Tests ---

func TestGetReport(t *testing.T) {
	svc := New(
		&mockRecords{counts: map[domain.Source]int{domain.SourceLodNexon: 12, domain.SourceNaverCafe: 3}},
		&mockBookmarks{n: 9},
		mockIndex{},
		nil,
	)
	r := svc.GetReport(context.Background())

	if r.RawPosts["lod_nexon"] != 12 || r.RawPosts["naver_cafe"] != 3 {
		t.Errorf("raw posts = %v", r.RawPosts)
	}
	if r.Bookmarks != 9 {
		t.Errorf("bookmarks = %d", r.Bookmarks)
	}
	if r.Index.Total != 5 {
		t.Errorf("index = %+v", r.Index)
	}
}

func TestGetReport_FailingCountersReportZero(t *testing.T) {
	svc := New(&mockRecords{err: errors.New("eio")}, &mockBookmarks{err: errors.New("eio")}, nil, nil)
	r := svc.GetReport(context.Background())

	if len(r.RawPosts) != 2 || r.RawPosts["lod_nexon"] != 0 {
		t.Errorf("raw posts = %v", r.RawPosts)
	}
	if r.Bookmarks != 0 || r.Index.Total != 0 || r.Index.PerSource == nil {
		t.Errorf("report = %+v", r)
	}
}
