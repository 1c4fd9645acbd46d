package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/lodrag/internal/db"
	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
)

// store is the consumer interface for the vector collection (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string, filters []db.TagFilter) (int, error)
}

// Config describes the collection layout.
type Config struct {
	IndexName   string
	KeyPrefix   string
	Dimensions  int
	HNSWM       int
	EFConstruct int
}

// Repo stores bookmark points in a HASH-backed FT index, one key per point id.
type Repo struct {
	store store
	cfg   Config
}

// New creates a vector repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the collection index when missing. Returns true if created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return false, nil
	}

	def, err := db.NewIndex(r.cfg.IndexName).
		Prefix(r.pointPrefix()).
		Tag(fieldSource).
		Tag(fieldBookmarkID).
		VectorHNSW(fieldVector, r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSWM, r.cfg.EFConstruct).
		Build()
	if err != nil {
		return false, fmt.Errorf("build index %s: %w", r.cfg.IndexName, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return true, nil
}

// Upsert writes the point for a bookmark, replacing any previous one.
func (r *Repo) Upsert(ctx context.Context, b *dombm.Bookmark, vec []float32) error {
	if b.ID == "" {
		return fmt.Errorf("bookmark id is required")
	}
	if r.cfg.Dimensions > 0 && len(vec) != r.cfg.Dimensions {
		return fmt.Errorf("vector dimension %d, index expects %d", len(vec), r.cfg.Dimensions)
	}

	key := r.pointKey(b.ID)
	if err := r.store.HSet(ctx, key, buildHashFields(b, vec)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Delete removes the point of a bookmark. Deleting a missing point is not an error.
func (r *Repo) Delete(ctx context.Context, bookmarkID string) error {
	key := r.pointKey(bookmarkID)
	if err := r.store.Del(ctx, key); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a bookmark has a point.
func (r *Repo) Exists(ctx context.Context, bookmarkID string) (bool, error) {
	key := r.pointKey(bookmarkID)
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return ok, nil
}

// Search returns up to k hits with similarity >= minScore, best first.
// An empty source searches every source.
func (r *Repo) Search(
	ctx context.Context, vec []float32, k int, minScore float64, src domain.Source,
) ([]dombm.Hit, error) {
	q := &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		VectorField:  fieldVector,
		Filters:      sourceFilter(src),
		Vector:       vec,
		K:            k,
		ReturnFields: payloadFields,
		MinScore:     minScore,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.cfg.IndexName, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]dombm.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, dombm.Hit{Bookmark: parsePayload(e.Fields), Score: e.Score})
	}
	return hits, nil
}

// Count returns the number of points, optionally restricted to one source.
func (r *Repo) Count(ctx context.Context, src domain.Source) (int, error) {
	n, err := r.store.SearchCount(ctx, r.cfg.IndexName, sourceFilter(src))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.cfg.IndexName, err)
	}
	return n, nil
}

// PointKey exposes the storage key of a bookmark point.
func (r *Repo) PointKey(bookmarkID string) string {
	return r.pointKey(bookmarkID)
}

func (r *Repo) pointPrefix() string {
	return r.cfg.KeyPrefix + "bookmarks:"
}

func (r *Repo) pointKey(bookmarkID string) string {
	return r.pointPrefix() + dombm.PointID(bookmarkID)
}

func sourceFilter(src domain.Source) []db.TagFilter {
	if strings.TrimSpace(string(src)) == "" {
		return nil
	}
	return []db.TagFilter{{Field: fieldSource, Value: string(src)}}
}
