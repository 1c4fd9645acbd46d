package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/db"
	"github.com/kailas-cloud/lodrag/internal/domain"
)

func TestEmbed_MissThenLRUHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2},
		PromptTokens: 5,
		TotalTokens:  5,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	var setKey string
	var setTTL time.Duration
	ms.setFn = func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
		setKey, setTTL = key, ttl
		return nil
	}

	res, err := ce.Embed(context.Background(), "질문")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalTokens != 5 {
		t.Errorf("expected TotalTokens=5 on miss, got %d", res.TotalTokens)
	}
	if !strings.HasPrefix(setKey, "lodrag:emb_cache:") || setTTL != time.Hour {
		t.Errorf("store write key=%s ttl=%v", setKey, setTTL)
	}

	ms.getFn = func(context.Context, string) ([]byte, error) {
		t.Error("LRU hit must not reach the store")
		return nil, db.ErrKeyNotFound
	}
	res, err = ce.Embed(context.Background(), "질문")
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalTokens != 0 || len(res.Embedding) != 2 {
		t.Errorf("expected cached result with zero tokens, got %+v", res)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestEmbed_KVHitFillsLRU(t *testing.T) {
	inner := &mockEmbedder{}
	ce, ms := newTestCachedEmbedder(t, inner)

	cached := vectorToCacheBytes([]float32{0.9, 0.8})
	gets := 0
	ms.getFn = func(context.Context, string) ([]byte, error) {
		gets++
		return cached, nil
	}

	for range 2 {
		res, err := ce.Embed(context.Background(), "q")
		if err != nil {
			t.Fatal(err)
		}
		if res.Embedding[0] != 0.9 {
			t.Errorf("embedding = %v", res.Embedding)
		}
	}
	if gets != 1 {
		t.Errorf("store gets = %d, want 1", gets)
	}
	if inner.calls != 0 {
		t.Errorf("inner called %d times", inner.calls)
	}
	if ce.Len() != 1 {
		t.Errorf("lru len = %d", ce.Len())
	}
}

func TestEmbed_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(context.Context, string) ([]byte, error) { return nil, errors.New("conn refused") }
	ms.setFn = func(context.Context, string, []byte, time.Duration) error { return errors.New("conn refused") }

	res, err := ce.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("store failures must not fail Embed: %v", err)
	}
	if len(res.Embedding) != 1 {
		t.Errorf("embedding = %v", res.Embedding)
	}
}

func TestEmbed_CorruptCacheIgnored(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(context.Context, string) ([]byte, error) { return []byte{1, 2, 3}, nil }

	if _, err := ce.Embed(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("expected inner call on corrupt cache")
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	ce, _ := newTestCachedEmbedder(t, inner)

	_, err := ce.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if ce.Len() != 0 {
		t.Error("failures must not be cached")
	}
}

func TestEmbed_LRUOnly(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce := New(inner, nil, Options{Size: 2, TTL: time.Minute}, nil, nil)

	_, _ = ce.Embed(context.Background(), "q")
	_, _ = ce.Embed(context.Background(), "q")
	if inner.calls != 1 {
		t.Errorf("inner calls = %d", inner.calls)
	}
}

func TestEmbed_ModelIsPartOfKey(t *testing.T) {
	a := New(&mockEmbedder{}, nil, Options{Model: "a"}, nil, nil)
	b := New(&mockEmbedder{}, nil, Options{Model: "b"}, nil, nil)
	if a.cacheKey("q") == b.cacheKey("q") {
		t.Error("different models must produce different keys")
	}
}

func TestEmbed_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"tier", "result"})
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce := New(inner, &mockKVStore{}, Options{TTL: time.Minute}, counter, zap.NewNop())

	_, _ = ce.Embed(context.Background(), "q")
	_, _ = ce.Embed(context.Background(), "q")

	if got := testutil.ToFloat64(counter.WithLabelValues("lru", "miss")); got != 1 {
		t.Errorf("lru miss = %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("lru", "hit")); got != 1 {
		t.Errorf("lru hit = %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("kv", "miss")); got != 1 {
		t.Errorf("kv miss = %v", got)
	}
}
