package retrieve

import (
	"context"

	"github.com/kailas-cloud/lodrag/internal/domain"
	"github.com/kailas-cloud/lodrag/internal/domain/answer"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

// mockSearcher applies minScore and k to a fixed hit list, like the store does.
type mockSearcher struct {
	hits    []dombm.Hit
	err     error
	lastSrc domain.Source
	lastMin float64
}

func (m *mockSearcher) Search(_ context.Context, _ []float32, k int, minScore float64, src domain.Source) ([]dombm.Hit, error) {
	m.lastSrc, m.lastMin = src, minScore
	if m.err != nil {
		return nil, m.err
	}
	var out []dombm.Hit
	for _, h := range m.hits {
		if h.Score < minScore {
			continue
		}
		if src != "" && h.Bookmark.Source != src {
			continue
		}
		out = append(out, h)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

type memRecords map[string]*domrec.Record

func (m memRecords) GetByPath(_ context.Context, path string) (*domrec.Record, error) {
	if r, ok := m[path]; ok {
		return r, nil
	}
	return nil, domain.ErrRecordNotFound
}

type mockCompleter struct {
	fn   func(req domain.CompletionRequest) (string, error)
	reqs []domain.CompletionRequest
}

func (m *mockCompleter) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	m.reqs = append(m.reqs, req)
	if m.fn != nil {
		return m.fn(req)
	}
	return "전사는 레벨 50에 전직합니다.", nil
}

func testConfig() Config {
	return Config{
		TopK:             3,
		ScoreThreshold:   0.35,
		Cutoffs:          answer.DefaultCutoffs(),
		MaxAnswerChars:   300,
		ContextChars:     3000,
		Temperature:      0.3,
		MaxTokens:        500,
		ImagesEnabled:    true,
		MaxImagesPerPost: 3,
		MaxImagesTotal:   6,
	}
}

func hit(id string, score float64) dombm.Hit {
	return dombm.Hit{
		Bookmark: dombm.Bookmark{
			ID:          "lod_nexon_" + id,
			Title:       "제목 " + id,
			Summary:     "요약 " + id,
			Source:      domain.SourceLodNexon,
			BoardName:   "현자의 마을",
			Date:        "2024.05.01",
			URL:         "https://lod.example/" + id,
			ContentPath: "data/lod_nexon/" + id + ".json",
		},
		Score: score,
	}
}

func hitList(hs ...dombm.Hit) []dombm.Hit { return hs }
