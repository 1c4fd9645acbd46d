package crawl

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
	"github.com/kailas-cloud/lodrag/internal/metrics"
)

// Stats counts crawl outcomes. Failed extractions are counted as skipped.
type Stats struct {
	New     int `json:"new"`
	Skipped int `json:"skipped"`
}

// Delay is the jitter window applied before every detail fetch.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// Service runs the crawl loops for one source.
type Service struct {
	src     Source
	records RecordStore
	delay   Delay
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *zap.Logger
}

// New creates a crawl service.
func New(src Source, records RecordStore, delay Delay, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		src:     src,
		records: records,
		delay:   delay,
		sleep:   sleepCtx,
		logger:  logger.With(zap.String("source", src.Name().String())),
	}
}

// Source returns the source this service crawls.
func (s *Service) Source() domain.Source {
	return s.src.Name()
}

// CrawlFull walks up to pages listing pages of every board and stores every
// post not yet on disk. A board ends at its first empty page.
func (s *Service) CrawlFull(ctx context.Context, pages int) (Stats, error) {
	var st Stats
	if err := s.src.Open(ctx); err != nil {
		return st, fmt.Errorf("open %s: %w", s.src.Name(), err)
	}
	defer s.closeSource()

	for _, board := range s.src.Boards() {
		for page := 1; page <= pages; page++ {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			cands := s.list(ctx, board, page)
			if len(cands) == 0 {
				s.logger.Info("Empty listing page, board done",
					zap.String("board", board.Name), zap.Int("page", page))
				break
			}
			for _, c := range cands {
				if err := s.processCandidate(ctx, c, &st); err != nil {
					return st, err
				}
			}
			if err := s.pause(ctx); err != nil {
				return st, err
			}
		}
	}

	s.logger.Info("Full crawl finished", zap.Int("new", st.New), zap.Int("skipped", st.Skipped))
	return st, nil
}

// CrawlIncremental reads only the first listing page of every board and stops
// a board at the first post already on disk.
//
// This relies on listings being reverse-chronological and never backfilled:
// everything after a known post is assumed known too. Sources that reorder or
// backfill need CrawlFull.
func (s *Service) CrawlIncremental(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.src.Open(ctx); err != nil {
		return st, fmt.Errorf("open %s: %w", s.src.Name(), err)
	}
	defer s.closeSource()

	for _, board := range s.src.Boards() {
		for _, c := range s.list(ctx, board, 1) {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			exists, err := s.records.Exists(ctx, s.src.Name(), c.ExternalID)
			if err != nil {
				s.logger.Warn("Existence check failed", zap.String("id", c.ExternalID), zap.Error(err))
				st.Skipped++
				continue
			}
			if exists {
				s.logger.Debug("Reached known post, board done",
					zap.String("board", board.Name), zap.String("id", c.ExternalID))
				st.Skipped++
				s.count("skipped")
				break
			}
			if err := s.fetchAndStore(ctx, c, &st); err != nil {
				return st, err
			}
		}
	}

	s.logger.Info("Incremental crawl finished", zap.Int("new", st.New), zap.Int("skipped", st.Skipped))
	return st, nil
}

func (s *Service) list(ctx context.Context, board domrec.Board, page int) []domrec.Candidate {
	cands, err := s.src.ListCandidates(ctx, board, page)
	if err != nil {
		s.logger.Error("Listing failed", zap.String("board", board.Name), zap.Int("page", page), zap.Error(err))
		return nil
	}
	s.logger.Info("Listing page", zap.String("board", board.Name), zap.Int("page", page), zap.Int("found", len(cands)))
	return cands
}

// processCandidate skips known posts without a request, otherwise fetches and stores.
// Only context cancellation is returned as an error.
func (s *Service) processCandidate(ctx context.Context, c domrec.Candidate, st *Stats) error {
	exists, err := s.records.Exists(ctx, s.src.Name(), c.ExternalID)
	if err != nil {
		s.logger.Warn("Existence check failed", zap.String("id", c.ExternalID), zap.Error(err))
	}
	if exists || err != nil {
		st.Skipped++
		s.count("skipped")
		return nil
	}
	return s.fetchAndStore(ctx, c, st)
}

func (s *Service) fetchAndStore(ctx context.Context, c domrec.Candidate, st *Stats) error {
	if err := s.pause(ctx); err != nil {
		return err
	}

	rec, err := s.src.FetchDetail(ctx, c)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("Detail fetch failed", zap.String("id", c.ExternalID), zap.Error(err))
		st.Skipped++
		s.count("failed")
		return nil
	}
	if rec == nil {
		st.Skipped++
		s.count("skipped")
		return nil
	}

	if err := s.records.Create(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			st.Skipped++
			s.count("skipped")
			return nil
		}
		s.logger.Error("Failed to store record", zap.String("id", rec.ID), zap.Error(err))
		st.Skipped++
		s.count("failed")
		return nil
	}

	s.logger.Info("Record stored", zap.String("id", rec.ID), zap.String("title", rec.Title))
	st.New++
	s.count("new")
	return nil
}

func (s *Service) pause(ctx context.Context) error {
	return s.sleep(ctx, jitter(s.delay))
}

func (s *Service) closeSource() {
	if err := s.src.Close(); err != nil {
		s.logger.Warn("Failed to close source", zap.Error(err))
	}
}

func (s *Service) count(result string) {
	metrics.CrawlItemsTotal.WithLabelValues(s.src.Name().String(), result).Inc()
}

func jitter(d Delay) time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + rand.N(d.Max-d.Min+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
