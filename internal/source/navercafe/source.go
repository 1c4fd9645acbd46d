// Package navercafe crawls an authenticated Naver cafe. Boards and articles are
// rendered client-side and the article body usually lives in a sub-frame, so
// pages are driven through a real browser seeded with a saved session.
package navercafe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	domimg "github.com/kailas-cloud/lodrag/internal/domain/image"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
	"github.com/kailas-cloud/lodrag/internal/source/htmltext"
)

const (
	articleLinkSelector = "a.article"
	minContentRunes     = 10
	imageReferer        = "https://cafe.naver.com/"
)

var (
	articleIDPattern = regexp.MustCompile(`/articles/(\d+)`)

	contentSelectors = []string{
		".ArticleContentBox", ".se-viewer", ".se-main-container", "#postViewArea", ".article_viewer",
	}
	titleSelectors  = []string{".title_text", ".article_header .title", ".ArticleTitle"}
	authorSelectors = []string{".profile_info .nickname", ".WriterInfo .nick", ".nickname"}
	dateSelectors   = []string{".article_info .date", ".WriterInfo .date", ".date"}
	viewSelectors   = []string{".article_info .count", ".WriterInfo .count", ".count"}
	imageSelector   = ".se-image img, .se-module-image img, .se-viewer img, #postViewArea img"
)

// Page is the browser surface the crawler drives (consumer interface).
type Page interface {
	Goto(ctx context.Context, url string, idle bool, timeout time.Duration) error
	WaitFor(selector string, timeout time.Duration) error
	HTML() (string, error)
	FrameHTML() []string
	FetchDataURL(ctx context.Context, url string) (string, error)
	Close() error
}

// LaunchFunc opens a browser page seeded with the session at sessionPath.
type LaunchFunc func(ctx context.Context, sessionPath string) (Page, error)

// ImageDownloader stores the images of a post (consumer interface).
type ImageDownloader interface {
	Enabled() bool
	DownloadAll(ctx context.Context, cands []domimg.Candidate, dir string,
		headers map[string]string, fallback domimg.BrowserFetcher) []domrec.Image
}

// Config holds source settings.
type Config struct {
	BaseURL           string
	CafeID            string
	SessionPath       string
	Boards            []domrec.Board
	UserAgent         string
	NavigationTimeout time.Duration
	ListWait          time.Duration
	// Settle is the pause after an article loads so sub-frames can render.
	Settle    time.Duration
	ImagesDir string
}

// Source crawls the cafe. Open must succeed before any listing or detail call.
type Source struct {
	cfg    Config
	launch LaunchFunc
	images ImageDownloader
	page   Page
	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

// New creates the source. images may be nil to skip image download.
func New(cfg Config, launch LaunchFunc, images ImageDownloader, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Source{
		cfg:    cfg,
		launch: launch,
		images: images,
		sleep:  sleepCtx,
		logger: logger.With(zap.String("source", domain.SourceNaverCafe.String())),
	}
}

// Name returns the source identifier.
func (s *Source) Name() domain.Source { return domain.SourceNaverCafe }

// Boards returns the configured boards.
func (s *Source) Boards() []domrec.Board { return s.cfg.Boards }

// Open launches the browser with the saved session and probes the first board.
// It fails with domain.ErrCredentialMissing when the session file is absent and
// domain.ErrSessionExpired when the probe shows no articles.
func (s *Source) Open(ctx context.Context) error {
	if _, err := os.Stat(s.cfg.SessionPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("session file %s: %w", s.cfg.SessionPath, domain.ErrCredentialMissing)
		}
		return fmt.Errorf("stat session file: %w", err)
	}
	if len(s.cfg.Boards) == 0 {
		return errors.New("no boards configured")
	}

	page, err := s.launch(ctx, s.cfg.SessionPath)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	s.page = page

	probe := s.listURL(s.cfg.Boards[0], 1)
	if err := page.Goto(ctx, probe, false, s.cfg.NavigationTimeout); err != nil {
		s.closePage()
		return fmt.Errorf("session probe: %w", err)
	}
	if err := page.WaitFor(articleLinkSelector, s.cfg.ListWait); err != nil {
		s.closePage()
		s.logger.Warn("Session probe found no articles", zap.Error(err))
		return domain.ErrSessionExpired
	}

	s.logger.Info("Session verified")
	return nil
}

// Close releases the browser. Safe to call when Open failed.
func (s *Source) Close() error {
	if s.page == nil {
		return nil
	}
	err := s.page.Close()
	s.page = nil
	return err
}

// ListCandidates reads one board listing page. A page that never renders an
// article link is reported as empty.
func (s *Source) ListCandidates(ctx context.Context, board domrec.Board, page int) ([]domrec.Candidate, error) {
	if s.page == nil {
		return nil, errors.New("source not open")
	}
	if err := s.page.Goto(ctx, s.listURL(board, page), false, s.cfg.NavigationTimeout); err != nil {
		return nil, err
	}
	if err := s.page.WaitFor(articleLinkSelector, s.cfg.ListWait); err != nil {
		s.logger.Warn("No articles on listing page", zap.String("board", board.Name), zap.Int("page", page))
		return nil, nil
	}

	html, err := s.page.HTML()
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	var out []domrec.Candidate
	doc.Find(articleLinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := articleIDPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		title := htmltext.FirstText(a, ".article_title", ".inner_list .title")
		if title == "" {
			title = strings.TrimSpace(a.Text())
		}
		out = append(out, domrec.Candidate{
			ExternalID: m[1],
			Title:      title,
			URL:        s.articleURL(m[1], board),
			Board:      board,
		})
	})
	return out, nil
}

// FetchDetail renders one article and extracts it from the first document
// (top page, then sub-frames in order) holding a non-empty content container.
// Missing or near-empty content yields (nil, nil).
func (s *Source) FetchDetail(ctx context.Context, c domrec.Candidate) (*domrec.Record, error) {
	if s.page == nil {
		return nil, errors.New("source not open")
	}
	detailURL := s.articleURL(c.ExternalID, c.Board)
	if err := s.page.Goto(ctx, detailURL, true, s.cfg.NavigationTimeout); err != nil {
		return nil, err
	}
	if err := s.sleep(ctx, s.cfg.Settle); err != nil {
		return nil, err
	}

	doc, body := s.findContent()
	if doc == nil {
		s.logger.Warn("Article content container not found", zap.String("id", c.ExternalID))
		return nil, nil
	}

	content := htmltext.Text(body)
	if utf8.RuneCountInString(content) < minContentRunes {
		s.logger.Warn("Article content too short", zap.String("id", c.ExternalID))
		return nil, nil
	}

	var images []domrec.Image
	if s.images != nil && s.images.Enabled() {
		images = s.images.DownloadAll(ctx, imageCandidates(doc), filepath.Join(s.cfg.ImagesDir, c.ExternalID),
			map[string]string{"Referer": imageReferer, "User-Agent": s.cfg.UserAgent}, s.page)
	}

	title := htmltext.FirstText(doc.Selection, titleSelectors...)
	if title == "" {
		title = c.Title
	}

	return &domrec.Record{
		ID:        c.ExternalID,
		Source:    domain.SourceNaverCafe,
		Title:     title,
		Author:    htmltext.FirstText(doc.Selection, authorSelectors...),
		Date:      htmltext.FirstText(doc.Selection, dateSelectors...),
		Views:     htmltext.Count(htmltext.FirstText(doc.Selection, viewSelectors...)),
		Content:   content,
		Images:    images,
		URL:       detailURL,
		BoardName: c.Board.Name,
		MenuID:    c.Board.ID,
		CrawledAt: time.Now().UTC(),
	}, nil
}

// findContent returns the first document and container holding non-blank text
// under a content selector.
func (s *Source) findContent() (*goquery.Document, *goquery.Selection) {
	var docs []string
	if html, err := s.page.HTML(); err == nil {
		docs = append(docs, html)
	} else {
		s.logger.Debug("Main document unavailable", zap.Error(err))
	}
	docs = append(docs, s.page.FrameHTML()...)

	for _, html := range docs {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			continue
		}
		for _, sel := range contentSelectors {
			var found *goquery.Selection
			doc.Find(sel).EachWithBreak(func(_ int, m *goquery.Selection) bool {
				if strings.TrimSpace(m.Text()) == "" {
					return true
				}
				found = m
				return false
			})
			if found != nil {
				return doc, found
			}
		}
	}
	return nil, nil
}

func imageCandidates(doc *goquery.Document) []domimg.Candidate {
	var out []domimg.Candidate
	doc.Find(imageSelector).Each(func(_ int, img *goquery.Selection) {
		src := htmltext.Attr(img, "src", "data-lazy-src", "data-src")
		if !strings.HasPrefix(src, "http") {
			return
		}
		out = append(out, domimg.Candidate{
			URL:    src,
			Width:  htmltext.IntAttr(img, "width"),
			Height: htmltext.IntAttr(img, "height"),
		})
	})
	return out
}

func (s *Source) closePage() {
	if err := s.Close(); err != nil {
		s.logger.Warn("Failed to close browser", zap.Error(err))
	}
}

func (s *Source) listURL(board domrec.Board, page int) string {
	return fmt.Sprintf("%s/cafes/%s/menus/%s?page=%d", s.cfg.BaseURL, s.cfg.CafeID, board.ID, page)
}

func (s *Source) articleURL(id string, board domrec.Board) string {
	return fmt.Sprintf("%s/cafes/%s/articles/%s?menuid=%s", s.cfg.BaseURL, s.cfg.CafeID, id, board.ID)
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
