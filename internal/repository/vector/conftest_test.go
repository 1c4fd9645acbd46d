package vector

import (
	"context"
	"testing"

	"github.com/kailas-cloud/lodrag/internal/db"
	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	delFn         func(ctx context.Context, key string) error
	existsFn      func(ctx context.Context, key string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index string, filters []db.TagFilter) (int, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index string, filters []db.TagFilter) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, filters)
	}
	return 0, nil
}

const testDim = 4

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, Config{
		IndexName:   "lod_bookmarks",
		KeyPrefix:   "lodrag:",
		Dimensions:  testDim,
		HNSWM:       16,
		EFConstruct: 200,
	})
	return repo, ms
}

func testBookmark() *dombm.Bookmark {
	return &dombm.Bookmark{
		ID:                "lod_nexon_1",
		Title:             "전사 스킬",
		Summary:           "요약",
		Keywords:          []string{"전사", "스킬"},
		ImageDescriptions: []string{"스킬 트리 캡처"},
		Source:            domain.SourceLodNexon,
		BoardName:         "공략",
		Date:              "2024.05.01",
		URL:               "https://example.com/1",
		ContentPath:       "data/lod_nexon/1.json",
	}
}
