package bookmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
	"github.com/kailas-cloud/lodrag/internal/metrics"
	imageuc "github.com/kailas-cloud/lodrag/internal/usecase/image"
)

// Config holds synthesizer settings.
type Config struct {
	MinContentChars int
	MaxContentChars int
	Temperature     float32
	MaxTokensVision int
	MaxTokensText   int
	ImagesEnabled   bool
	MaxImages       int
}

// Stats counts the outcome of a CreateAll pass.
type Stats struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Service distills raw records into bookmarks.
type Service struct {
	records   RecordStore
	bookmarks BookmarkStore
	llm       domain.Completer
	cfg       Config
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a bookmark synthesizer.
func New(records RecordStore, bookmarks BookmarkStore, llm domain.Completer, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		records:   records,
		bookmarks: bookmarks,
		llm:       llm,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// synthesis is the JSON object the model is asked to return.
type synthesis struct {
	Summary           string   `json:"summary"`
	Keywords          []string `json:"keywords"`
	CategoryTags      []string `json:"category_tags"`
	ImageDescriptions []string `json:"image_descriptions"`
}

// Create builds and stores the bookmark of rec.
// It returns (nil, nil) when the bookmark already exists, healing a stale
// BookmarkCreated flag on the way.
func (s *Service) Create(ctx context.Context, rec *domrec.Record) (*dombm.Bookmark, error) {
	id := dombm.ID(rec.Source, rec.ID)
	log := s.logger.With(zap.String("bookmark_id", id))

	exists, err := s.bookmarks.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check bookmark %s: %w", id, err)
	}
	if exists {
		s.heal(ctx, rec, log)
		return nil, nil
	}

	content := rec.TrimmedContent()
	if utf8.RuneCountInString(content) < s.cfg.MinContentChars {
		return nil, fmt.Errorf("%s (%d chars): %w", id, utf8.RuneCountInString(content), domain.ErrContentTooShort)
	}
	content = truncateRunes(content, s.cfg.MaxContentChars)

	out, err := s.synthesize(ctx, rec, content, log)
	if err != nil {
		return nil, err
	}

	b := &dombm.Bookmark{
		ID:                id,
		Title:             rec.Title,
		Summary:           out.Summary,
		Keywords:          nonEmpty(out.Keywords),
		CategoryTags:      dombm.NormalizeCategories(nonEmpty(out.CategoryTags)),
		ImageDescriptions: nonEmpty(out.ImageDescriptions),
		Source:            rec.Source,
		BoardName:         rec.BoardName,
		Date:              rec.Date,
		Views:             rec.Views,
		URL:               rec.URL,
		ContentPath:       s.records.Path(rec.Source, rec.ID),
		CreatedAt:         s.now(),
	}

	if err := s.bookmarks.Create(ctx, b); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.heal(ctx, rec, log)
			return nil, nil
		}
		return nil, fmt.Errorf("store bookmark %s: %w", id, err)
	}

	// The bookmark file is authoritative; a failed flag flip is healed on the next pass.
	if err := s.records.MarkBookmarked(ctx, rec.Source, rec.ID); err != nil {
		log.Error("Failed to flag record as bookmarked", zap.Error(err))
	}

	log.Info("Bookmark created", zap.String("title", b.Title), zap.Int("images", len(b.ImageDescriptions)))
	return b, nil
}

// CreateAll synthesizes bookmarks for every pending record of every source.
func (s *Service) CreateAll(ctx context.Context) (Stats, error) {
	pending, err := s.records.ListPending(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list pending records: %w", err)
	}

	st := Stats{Total: len(pending)}
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		b, err := s.Create(ctx, rec)
		switch {
		case errors.Is(err, domain.ErrContentTooShort):
			s.logger.Warn("Record content too short", zap.String("id", rec.ID), zap.Error(err))
			st.Skipped++
			s.count("skipped")
		case err != nil:
			s.logger.Error("Bookmark synthesis failed",
				zap.String("source", rec.Source.String()), zap.String("id", rec.ID), zap.Error(err))
			st.Failed++
			s.count("failed")
		case b == nil:
			st.Skipped++
			s.count("skipped")
		default:
			st.Created++
			s.count("created")
		}
	}

	s.logger.Info("Bookmark pass finished",
		zap.Int("created", st.Created), zap.Int("skipped", st.Skipped),
		zap.Int("failed", st.Failed), zap.Int("total", st.Total))
	return st, nil
}

// synthesize tries a vision call when images are available and falls back to
// a single text-only call on any vision failure.
func (s *Service) synthesize(ctx context.Context, rec *domrec.Record, content string, log *zap.Logger) (*synthesis, error) {
	var images []domain.InlineImage
	if s.cfg.ImagesEnabled && len(rec.Images) > 0 {
		for _, e := range imageuc.ToBase64(rec.Images, s.cfg.MaxImages, log) {
			images = append(images, domain.InlineImage{Base64: e.Base64, MimeType: e.MimeType})
		}
	}

	if len(images) > 0 {
		out, err := s.call(ctx, rec, content, images)
		if err == nil {
			return out, nil
		}
		log.Warn("Vision synthesis failed, retrying text-only", zap.Int("images", len(images)), zap.Error(err))
	}
	return s.call(ctx, rec, content, nil)
}

func (s *Service) call(ctx context.Context, rec *domrec.Record, content string, images []domain.InlineImage) (*synthesis, error) {
	vision := len(images) > 0
	req := domain.CompletionRequest{
		Prompt:      buildPrompt(vision, rec.Title, rec.BoardName, content),
		JSONOutput:  true,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokensText,
	}
	if vision {
		req.Images = images
		req.ImageDetail = domain.ImageDetailLow
		req.MaxTokens = s.cfg.MaxTokensVision
	}

	raw, err := s.llm.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return parseSynthesis(raw)
}

func parseSynthesis(raw string) (*synthesis, error) {
	raw = stripCodeFence(raw)
	var out synthesis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedOutput, err)
	}
	out.Summary = strings.TrimSpace(out.Summary)
	if out.Summary == "" {
		return nil, fmt.Errorf("%w: empty summary", domain.ErrMalformedOutput)
	}
	return &out, nil
}

func (s *Service) heal(ctx context.Context, rec *domrec.Record, log *zap.Logger) {
	if rec.BookmarkCreated {
		log.Debug("Bookmark already exists")
		return
	}
	if err := s.records.MarkBookmarked(ctx, rec.Source, rec.ID); err != nil {
		log.Warn("Failed to heal bookmark flag", zap.Error(err))
		return
	}
	log.Info("Healed stale bookmark flag")
}

func (s *Service) count(result string) {
	metrics.BookmarkItemsTotal.WithLabelValues(result).Inc()
}

// stripCodeFence removes a ```json ... ``` wrapper some providers add despite JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
