package bookmark

import (
	"context"
	"sync"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

type mockRecords struct {
	pending  []*domrec.Record
	listErr  error
	markErr  error
	marked   []string
	markedMu sync.Mutex
}

func (m *mockRecords) ListPending(_ context.Context) ([]*domrec.Record, error) {
	return m.pending, m.listErr
}

func (m *mockRecords) MarkBookmarked(_ context.Context, src domain.Source, id string) error {
	m.markedMu.Lock()
	defer m.markedMu.Unlock()
	m.marked = append(m.marked, dombm.ID(src, id))
	return m.markErr
}

func (m *mockRecords) Path(src domain.Source, id string) string {
	return "./data/" + src.String() + "/" + id + ".json"
}

type memBookmarks struct {
	items     map[string]*dombm.Bookmark
	existsErr error
}

func newMemBookmarks(ids ...string) *memBookmarks {
	m := &memBookmarks{items: map[string]*dombm.Bookmark{}}
	for _, id := range ids {
		m.items[id] = &dombm.Bookmark{ID: id}
	}
	return m
}

func (m *memBookmarks) Exists(_ context.Context, id string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.items[id]
	return ok, nil
}

func (m *memBookmarks) Create(_ context.Context, b *dombm.Bookmark) error {
	if _, ok := m.items[b.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.items[b.ID] = b
	return nil
}

// mockCompleter records requests and answers through fn.
type mockCompleter struct {
	fn   func(req domain.CompletionRequest) (string, error)
	reqs []domain.CompletionRequest
}

func (m *mockCompleter) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	m.reqs = append(m.reqs, req)
	if m.fn != nil {
		return m.fn(req)
	}
	return validJSON, nil
}

const validJSON = `{"summary":"전사 2차 전직 퀘스트 요약","keywords":["전사","전직"],"category_tags":["퀘스트","직업정보"]}`

func testConfig() Config {
	return Config{
		MinContentChars: 20,
		MaxContentChars: 4000,
		Temperature:     0.3,
		MaxTokensVision: 800,
		MaxTokensText:   500,
		ImagesEnabled:   true,
		MaxImages:       5,
	}
}

func sampleRecord(id, content string) *domrec.Record {
	return &domrec.Record{
		ID:        id,
		Source:    domain.SourceLodNexon,
		Title:     "전사 전직 가이드",
		BoardName: "현자의 마을",
		Date:      "2024.05.01",
		Views:     10,
		URL:       "https://lod.example/Community/game/" + id,
		Content:   content,
	}
}

const longContent = "전사 2차 전직은 레벨 50부터 가능하며 성직자의 도움이 필요합니다. 퀘스트는 세 단계로 나뉩니다."
