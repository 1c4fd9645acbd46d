package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	logpkg "github.com/kailas-cloud/lodrag/internal/logger"
	healthuc "github.com/kailas-cloud/lodrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/lodrag/internal/usecase/ingest"
	jobuc "github.com/kailas-cloud/lodrag/internal/usecase/job"
	retrieveuc "github.com/kailas-cloud/lodrag/internal/usecase/retrieve"
)

const (
	defaultCrawlPages = 5
	maxCrawlPages     = 100
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the query, ingest and admin endpoints.
type Server struct {
	asker         Asker
	ingest        Ingester
	health        HealthChecker
	stats         StatsReader
	crawler       CrawlRunner
	adminKey      string
	background    context.Context
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. background bounds crawls started by POST /crawl.
func NewServer(
	background context.Context,
	asker Asker,
	ingest Ingester,
	health HealthChecker,
	stats StatsReader,
	crawler CrawlRunner,
	adminKey string,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		asker:      asker,
		ingest:     ingest,
		health:     health,
		stats:      stats,
		crawler:    crawler,
		adminKey:   adminKey,
		background: background,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(retrieveuc.ErrEmptyQuestion, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidSource, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrContentTooShort, http.StatusUnprocessableEntity, ErrorCodeUnprocessable),
		sentinelHandler(ingestuc.ErrBookmarkNotCreated, http.StatusUnprocessableEntity, ErrorCodeUnprocessable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeProviderError),
		sentinelHandler(domain.ErrCompletionProviderError, http.StatusBadGateway, ErrorCodeProviderError),
		sentinelHandler(jobuc.ErrBusy, http.StatusConflict, ErrorCodeConflict),
	}
	return s
}

// Register mounts the routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/search", s.Search)
	r.Post("/add", s.Add)
	r.Get("/health", s.HealthCheck)
	r.Get("/stats", s.Stats)
	r.With(AdminKeyMiddleware(s.adminKey)).Post("/crawl", s.Crawl)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "검색어를 입력해주세요")
		return
	}

	var src domain.Source
	if req.SourceFilter != "" {
		parsed, err := domain.ParseSource(req.SourceFilter)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
			return
		}
		src = parsed
	}

	ans, err := s.asker.Ask(r.Context(), query, src)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

// Add handles POST /add.
func (s *Server) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	src, err := domain.ParseSource(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "source는 lod_nexon 또는 naver_cafe")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "title and content are required")
		return
	}

	res, err := s.ingest.Add(r.Context(), ingestuc.Input{
		Source:    src,
		Title:     req.Title,
		Content:   req.Content,
		URL:       req.SourceURL,
		BoardName: req.BoardName,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, addResponse{Success: true, BookmarkID: res.BookmarkID, Indexed: res.Indexed})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
		Stats:  report.Index,
	})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.GetReport(r.Context()))
}

// Crawl handles POST /crawl. The crawl runs in the background; the response
// only acknowledges that it was started.
func (s *Server) Crawl(w http.ResponseWriter, r *http.Request) {
	req := crawlRequest{Source: "all", Pages: defaultCrawlPages}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	sources, err := crawlSources(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}
	pages := req.Pages
	if pages <= 0 {
		pages = defaultCrawlPages
	}
	pages = min(pages, maxCrawlPages)

	go func() {
		rep, err := s.crawler.Crawl(s.background, sources, pages)
		if err != nil {
			s.logger.Warn("Manual crawl not run", zap.Error(err))
			return
		}
		s.logger.Info("Manual crawl finished",
			zap.Int("lod_new", rep.CrawlNew(domain.SourceLodNexon)),
			zap.Int("cafe_new", rep.CrawlNew(domain.SourceNaverCafe)),
			zap.Int("bookmarks_created", rep.Bookmarks.Created))
	}()

	writeJSON(w, http.StatusAccepted, crawlResponse{Message: "크롤링 작업 시작됨 (백그라운드 실행)"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// crawlSources maps the admin source selector to sources; nil means all.
func crawlSources(sel string) ([]domain.Source, error) {
	switch sel {
	case "", "all":
		return nil, nil
	case "lod", string(domain.SourceLodNexon):
		return []domain.Source{domain.SourceLodNexon}, nil
	case "cafe", string(domain.SourceNaverCafe):
		return []domain.Source{domain.SourceNaverCafe}, nil
	default:
		return nil, errors.New("source must be all, lod or cafe")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		retrieveuc.ErrEmptyQuestion,
		domain.ErrInvalidSource,
		domain.ErrContentTooShort,
		ingestuc.ErrBookmarkNotCreated,
		domain.ErrEmbeddingProviderError,
		domain.ErrCompletionProviderError,
		jobuc.ErrBusy,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
