// Package ingest adds operator-supplied posts to the pipeline in one pass.
package ingest

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

const (
	idPrefix     = "manual_"
	manualAuthor = "수동입력"
	dateLayout   = "2006.01.02"
)

// ErrBookmarkNotCreated is returned when the record was stored but no bookmark came out of it.
var ErrBookmarkNotCreated = errors.New("bookmark not created")

// Input is a manually entered post.
type Input struct {
	Source    domain.Source
	Title     string
	Content   string
	URL       string
	BoardName string
}

// Result identifies what Add produced.
type Result struct {
	RecordID   string
	BookmarkID string
	Indexed    bool
}

// Service stores a manual record, synthesizes its bookmark and indexes it.
type Service struct {
	records RecordStore
	synth   Synthesizer
	indexer Indexer
	now     func() time.Time
	logger  *zap.Logger
}

// New creates the manual ingest service.
func New(records RecordStore, synth Synthesizer, indexer Indexer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		records: records,
		synth:   synth,
		indexer: indexer,
		now:     time.Now,
		logger:  logger,
	}
}

// Add runs the full pipeline for one post. An index failure is logged and
// reported through Result.Indexed; the next catch-up retries it.
func (s *Service) Add(ctx context.Context, in Input) (*Result, error) {
	if _, err := domain.ParseSource(string(in.Source)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}

	now := s.now()
	rec := &domrec.Record{
		ID:        idPrefix + newID(now),
		Source:    in.Source,
		Title:     in.Title,
		Author:    manualAuthor,
		Date:      now.Format(dateLayout),
		Content:   in.Content,
		URL:       in.URL,
		BoardName: in.BoardName,
		CrawledAt: now.UTC(),
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store manual record: %w", err)
	}
	log := s.logger.With(zap.String("source", rec.Source.String()), zap.String("record_id", rec.ID))

	b, err := s.synth.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBookmarkNotCreated, err)
	}
	if b == nil {
		return nil, ErrBookmarkNotCreated
	}

	res := &Result{RecordID: rec.ID, BookmarkID: b.ID}
	if err := s.indexer.Upsert(ctx, b); err != nil {
		log.Warn("Manual bookmark not indexed", zap.Error(err))
		return res, nil
	}
	res.Indexed = true
	log.Info("Manual post added", zap.String("bookmark_id", b.ID))
	return res, nil
}

func newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0)).String()
}
