package index

import (
	"context"
	"errors"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
)

// memVectors keys points by PointID, like the real store keys hashes.
type memVectors struct {
	points   map[string]*dombm.Bookmark
	vecs     map[string][]float32
	upsertFn func(b *dombm.Bookmark) error
	countErr error
	failAt   int // Count call number that fails with countErr; 0 fails every call
	counts   int
	existErr error
}

func newMemVectors() *memVectors {
	return &memVectors{points: map[string]*dombm.Bookmark{}, vecs: map[string][]float32{}}
}

func (m *memVectors) Upsert(_ context.Context, b *dombm.Bookmark, vec []float32) error {
	if m.upsertFn != nil {
		if err := m.upsertFn(b); err != nil {
			return err
		}
	}
	id := dombm.PointID(b.ID)
	m.points[id] = b
	m.vecs[id] = vec
	return nil
}

func (m *memVectors) Delete(_ context.Context, bookmarkID string) error {
	delete(m.points, dombm.PointID(bookmarkID))
	return nil
}

func (m *memVectors) Exists(_ context.Context, bookmarkID string) (bool, error) {
	if m.existErr != nil {
		return false, m.existErr
	}
	_, ok := m.points[dombm.PointID(bookmarkID)]
	return ok, nil
}

func (m *memVectors) Count(_ context.Context, src domain.Source) (int, error) {
	m.counts++
	if m.countErr != nil && (m.failAt == 0 || m.counts == m.failAt) {
		return 0, m.countErr
	}
	n := 0
	for _, b := range m.points {
		if src == "" || b.Source == src {
			n++
		}
	}
	return n, nil
}

type memBookmarks struct {
	items []*dombm.Bookmark
	err   error
}

func (m *memBookmarks) List(_ context.Context) ([]*dombm.Bookmark, error) {
	return m.items, m.err
}

type mockEmbedder struct {
	fn    func(text string) (domain.EmbeddingResult, error)
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.texts = append(m.texts, text)
	if m.fn != nil {
		return m.fn(text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}, nil
}

var errEmbed = errors.New("embedding provider down")

func bm(id string, src domain.Source) *dombm.Bookmark {
	return &dombm.Bookmark{ID: id, Source: src, Title: "제목 " + id, Summary: "요약 " + id}
}
