package retrieve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	"github.com/kailas-cloud/lodrag/internal/domain/answer"
	dombm "github.com/kailas-cloud/lodrag/internal/domain/bookmark"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
	"github.com/kailas-cloud/lodrag/internal/metrics"
	imageuc "github.com/kailas-cloud/lodrag/internal/usecase/image"
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

const (
	systemPromptTemplate = `당신은 어둠의전설 게임 전문 도우미입니다.
아래에 제공되는 게시글 내용을 꼼꼼히 읽고 사용자 질문에 답변해주세요.
게시글에 없는 내용은 절대 추측하지 마세요.
답변은 핵심만, %d자 이내로 간결하게 작성하세요.
게임 고유 용어(직업명, 스킬명, 아이템명 등)는 그대로 사용하세요.`

	postSeparator = "\n────────────\n"
)

// Config holds retriever settings.
type Config struct {
	TopK             int
	ScoreThreshold   float64
	Cutoffs          answer.Cutoffs
	MaxAnswerChars   int
	ContextChars     int
	Temperature      float32
	MaxTokens        int
	ImagesEnabled    bool
	MaxImagesPerPost int
	MaxImagesTotal   int
}

// Service answers questions in two stages: bookmark search, then synthesis
// over the original posts.
type Service struct {
	embed   domain.Embedder
	vectors VectorSearcher
	records RecordLoader
	llm     domain.Completer
	cfg     Config
	logger  *zap.Logger
}

// New creates a retriever.
func New(
	embed domain.Embedder, vectors VectorSearcher, records RecordLoader,
	llm domain.Completer, cfg Config, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embed: embed, vectors: vectors, records: records, llm: llm, cfg: cfg, logger: logger}
}

// SearchBookmarks is the first stage: up to TopK bookmarks scoring at least
// ScoreThreshold, best first. An empty src searches every source.
func (s *Service) SearchBookmarks(ctx context.Context, question string, src domain.Source) ([]dombm.Hit, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	res, err := s.embed.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	hits, err := s.vectors.Search(ctx, res.Embedding, s.cfg.TopK, s.cfg.ScoreThreshold, src)
	if err != nil {
		return nil, fmt.Errorf("search bookmarks: %w", err)
	}
	return hits, nil
}

// Ask answers question from the retrieved posts. Nothing relevant yields the
// fixed not-found answer without a completion call; a failed completion keeps
// the sources and reports the fixed failure message.
func (s *Service) Ask(ctx context.Context, question string, src domain.Source) (answer.Answer, error) {
	hits, err := s.SearchBookmarks(ctx, question, src)
	if err != nil {
		return answer.Answer{}, err
	}
	if len(hits) == 0 {
		s.countAnswer(answer.NotFound)
		return answer.NotFoundAnswer(), nil
	}

	confidence := s.cfg.Cutoffs.Classify(hits[0].Score)
	if confidence == answer.NotFound {
		s.countAnswer(answer.NotFound)
		return answer.NotFoundAnswer(), nil
	}

	contextText, images := s.buildContext(ctx, hits)
	text := s.generate(ctx, question, contextText, images)

	sources := make([]answer.Source, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, answer.Source{
			Title:     h.Bookmark.Title,
			URL:       h.Bookmark.URL,
			BoardName: h.Bookmark.BoardName,
			Date:      h.Bookmark.Date,
			Score:     answer.RoundScore(h.Score),
		})
	}

	s.countAnswer(confidence)
	s.logger.Info("Question answered",
		zap.String("confidence", string(confidence)),
		zap.Float64("top_score", hits[0].Score),
		zap.Int("sources", len(sources)),
		zap.Int("images", len(images)))
	return answer.Answer{Answer: text, Sources: sources, Confidence: confidence}, nil
}

// buildContext renders one block per hit from the raw record, falling back to
// the bookmark summary, and gathers the images to attach.
func (s *Service) buildContext(ctx context.Context, hits []dombm.Hit) (string, []domrec.Image) {
	parts := make([]string, 0, len(hits))
	var images []domrec.Image

	for i, h := range hits {
		b := h.Bookmark
		rec := s.loadRecord(ctx, b)

		content := ""
		if rec != nil {
			content = rec.TrimmedContent()
		}
		if content == "" {
			content = b.Summary
		}
		if s.cfg.ContextChars > 0 && utf8.RuneCountInString(content) > s.cfg.ContextChars {
			content = string([]rune(content)[:s.cfg.ContextChars]) + "..."
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "[게시글 %d] %s | %s\n", i+1, b.BoardName, b.Date)
		fmt.Fprintf(&sb, "제목: %s\n", b.Title)
		fmt.Fprintf(&sb, "내용: %s", content)
		if len(b.ImageDescriptions) > 0 {
			sb.WriteString("\n이미지 설명: " + strings.Join(b.ImageDescriptions, " / "))
		}
		fmt.Fprintf(&sb, "\n출처: %s", b.URL)
		parts = append(parts, sb.String())

		if rec != nil && s.cfg.ImagesEnabled {
			remaining := s.cfg.MaxImagesTotal - len(images)
			if n := min(s.cfg.MaxImagesPerPost, remaining, len(rec.Images)); n > 0 {
				images = append(images, rec.Images[:n]...)
			}
		}
	}
	return strings.Join(parts, postSeparator), images
}

func (s *Service) loadRecord(ctx context.Context, b dombm.Bookmark) *domrec.Record {
	if b.ContentPath == "" {
		return nil
	}
	rec, err := s.records.GetByPath(ctx, b.ContentPath)
	if err != nil {
		s.logger.Warn("Original post unavailable, using summary",
			zap.String("bookmark_id", b.ID), zap.String("path", b.ContentPath), zap.Error(err))
		return nil
	}
	return rec
}

// generate tries a vision call when images load and falls back to text-only once.
func (s *Service) generate(ctx context.Context, question, contextText string, images []domrec.Image) string {
	req := domain.CompletionRequest{
		System:      fmt.Sprintf(systemPromptTemplate, s.cfg.MaxAnswerChars),
		Prompt:      "참고 게시글:\n" + contextText + postSeparator + "사용자 질문: " + question,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}

	if len(images) > 0 {
		vision := req
		for _, e := range imageuc.ToBase64(images, 0, s.logger) {
			vision.Images = append(vision.Images, domain.InlineImage{Base64: e.Base64, MimeType: e.MimeType})
		}
		if len(vision.Images) > 0 {
			vision.ImageDetail = domain.ImageDetailAuto
			out, err := s.llm.Complete(ctx, vision)
			if err == nil {
				return out
			}
			s.logger.Warn("Vision answer failed, retrying text-only", zap.Error(err))
		}
	}

	out, err := s.llm.Complete(ctx, req)
	if err != nil {
		s.logger.Error("Answer generation failed", zap.Error(err))
		return answer.FailureMessage
	}
	return out
}

func (s *Service) countAnswer(c answer.Confidence) {
	metrics.AnswersTotal.WithLabelValues(string(c)).Inc()
}
