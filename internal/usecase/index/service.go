package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
	"github.com/kailas-cloud/lodrag/internal/metrics"
)

// Stats reports the number of indexed points, total and per source.
type Stats struct {
	Total     int            `json:"total_bookmarks"`
	PerSource map[string]int `json:"per_source"`
}

// RunStats counts the outcome of a ProcessAll pass.
type RunStats struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Service embeds bookmarks and keeps the vector index in sync with the bookmark store.
type Service struct {
	vectors   VectorStore
	bookmarks BookmarkStore
	embed     domain.Embedder
	logger    *zap.Logger
}

// New creates an indexer.
func New(vectors VectorStore, bookmarks BookmarkStore, embed domain.Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{vectors: vectors, bookmarks: bookmarks, embed: embed, logger: logger}
}

// ComposeText renders the labeled text that is embedded for a bookmark.
// Empty fields are left out.
func ComposeText(b *dombm.Bookmark) string {
	var sb strings.Builder
	line := func(label, value string) {
		if value = strings.TrimSpace(value); value == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(value)
	}

	line("제목", b.Title)
	line("요약", b.Summary)
	line("키워드", strings.Join(b.Keywords, ", "))
	line("카테고리", strings.Join(b.CategoryTags, ", "))
	line("게시판", b.BoardName)
	line("이미지 내용", strings.Join(b.ImageDescriptions, " / "))
	return sb.String()
}

// Upsert embeds b and overwrites its point.
func (s *Service) Upsert(ctx context.Context, b *dombm.Bookmark) error {
	if b.ID == "" {
		return errors.New("bookmark id is required")
	}
	res, err := s.embed.Embed(ctx, ComposeText(b))
	if err != nil {
		return fmt.Errorf("embed %s: %w", b.ID, err)
	}
	if err := s.vectors.Upsert(ctx, b, res.Embedding); err != nil {
		return fmt.Errorf("upsert %s: %w", b.ID, err)
	}
	s.logger.Debug("Bookmark indexed", zap.String("bookmark_id", b.ID), zap.String("point_id", dombm.PointID(b.ID)))
	return nil
}

// Delete removes the point of bookmarkID. Deleting an absent point succeeds.
func (s *Service) Delete(ctx context.Context, bookmarkID string) error {
	if err := s.vectors.Delete(ctx, bookmarkID); err != nil {
		return fmt.Errorf("delete %s: %w", bookmarkID, err)
	}
	s.logger.Info("Bookmark removed from index", zap.String("bookmark_id", bookmarkID))
	return nil
}

// IsIndexed reports whether bookmarkID has a point. Store errors read as false.
func (s *Service) IsIndexed(ctx context.Context, bookmarkID string) bool {
	ok, err := s.vectors.Exists(ctx, bookmarkID)
	if err != nil {
		s.logger.Warn("Index existence check failed", zap.String("bookmark_id", bookmarkID), zap.Error(err))
		return false
	}
	return ok
}

// Stats counts points per source. Any store failure yields zeroed stats.
func (s *Service) Stats(ctx context.Context) Stats {
	total, err := s.vectors.Count(ctx, "")
	if err != nil {
		s.logger.Error("Failed to read index stats", zap.Error(err))
		return zeroStats()
	}

	st := Stats{Total: total, PerSource: make(map[string]int, len(domain.Sources()))}
	for _, src := range domain.Sources() {
		n, err := s.vectors.Count(ctx, src)
		if err != nil {
			s.logger.Error("Failed to count source points", zap.String("source", src.String()), zap.Error(err))
			return zeroStats()
		}
		st.PerSource[src.String()] = n
	}
	return st
}

func zeroStats() Stats {
	st := Stats{PerSource: make(map[string]int, len(domain.Sources()))}
	for _, src := range domain.Sources() {
		st.PerSource[src.String()] = 0
	}
	return st
}

// ProcessAll indexes every stored bookmark that has no point yet.
func (s *Service) ProcessAll(ctx context.Context) (RunStats, error) {
	bookmarks, err := s.bookmarks.List(ctx)
	if err != nil {
		return RunStats{}, fmt.Errorf("list bookmarks: %w", err)
	}

	var st RunStats
	for _, b := range bookmarks {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if s.IsIndexed(ctx, b.ID) {
			st.Skipped++
			s.count("skipped")
			continue
		}
		if err := s.Upsert(ctx, b); err != nil {
			s.logger.Error("Indexing failed", zap.String("bookmark_id", b.ID), zap.Error(err))
			st.Failed++
			s.count("failed")
			continue
		}
		st.Saved++
		s.count("saved")
	}

	s.logger.Info("Index pass finished",
		zap.Int("saved", st.Saved), zap.Int("skipped", st.Skipped), zap.Int("failed", st.Failed))
	return st, nil
}

func (s *Service) count(result string) {
	metrics.IndexItemsTotal.WithLabelValues(result).Inc()
}
