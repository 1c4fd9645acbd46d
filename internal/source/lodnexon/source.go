// Package lodnexon crawls the public community board of the official game site.
// Pages are server-rendered, so plain HTTP and goquery are enough.
package lodnexon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
	domimg "github.com/kailas-cloud/lodrag/internal/domain/image"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
	"github.com/kailas-cloud/lodrag/internal/source/htmltext"
)

const listPath = "/Community/game"

var postIDPattern = regexp.MustCompile(`/Community/game/(\d+)`)

// ImageDownloader stores the images of a post (consumer interface).
type ImageDownloader interface {
	Enabled() bool
	DownloadAll(ctx context.Context, cands []domimg.Candidate, dir string,
		headers map[string]string, fallback domimg.BrowserFetcher) []domrec.Image
}

// Config holds source settings.
type Config struct {
	BaseURL   string
	BoardName string
	UserAgent string
	Timeout   time.Duration
	// ImagesDir is the per-source image root; each post gets a subdirectory.
	ImagesDir string
}

// Source crawls the board over plain HTTP.
type Source struct {
	cfg    Config
	client *http.Client
	images ImageDownloader
	logger *zap.Logger
}

// New creates the source. images may be nil to skip image download.
func New(cfg Config, images ImageDownloader, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Source{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		images: images,
		logger: logger.With(zap.String("source", domain.SourceLodNexon.String())),
	}
}

// Name returns the source identifier.
func (s *Source) Name() domain.Source { return domain.SourceLodNexon }

// Open is a no-op: the board needs no session.
func (s *Source) Open(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Source) Close() error { return nil }

// Boards returns the single crawled board.
func (s *Source) Boards() []domrec.Board {
	return []domrec.Board{{Name: s.cfg.BoardName}}
}

// ListCandidates parses one listing page.
func (s *Source) ListCandidates(ctx context.Context, board domrec.Board, page int) ([]domrec.Candidate, error) {
	q := url.Values{}
	q.Set("SearchBoard", "1")
	q.Set("Category2", "1")
	q.Set("Page", strconv.Itoa(page))

	doc, err := s.get(ctx, s.cfg.BaseURL+listPath+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("list page %d: %w", page, err)
	}

	var out []domrec.Candidate
	doc.Find("ul.community_s1 > li > a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := postIDPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		out = append(out, domrec.Candidate{
			ExternalID: m[1],
			Title:      strings.TrimSpace(a.Text()),
			URL:        s.absolute(href),
			Board:      board,
		})
	})
	return out, nil
}

// FetchDetail downloads and extracts one post. A page without a body
// container yields (nil, nil).
func (s *Source) FetchDetail(ctx context.Context, c domrec.Candidate) (*domrec.Record, error) {
	detailURL := c.URL
	if detailURL == "" {
		detailURL = fmt.Sprintf("%s%s/%s?SearchBoard=1", s.cfg.BaseURL, listPath, c.ExternalID)
	}

	doc, err := s.get(ctx, detailURL)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", c.ExternalID, err)
	}

	body := doc.Find(".board_text").First()
	if body.Length() == 0 {
		s.logger.Warn("Post body container not found", zap.String("id", c.ExternalID))
		return nil, nil
	}

	var images []domrec.Image
	if s.images != nil && s.images.Enabled() {
		images = s.images.DownloadAll(ctx, s.imageCandidates(body),
			filepath.Join(s.cfg.ImagesDir, c.ExternalID),
			map[string]string{"User-Agent": s.cfg.UserAgent}, nil)
	}

	title := c.Title
	if title == "" {
		title = htmltext.FirstText(doc.Selection, ".board_title", ".board_subject", "h2.title")
	}

	return &domrec.Record{
		ID:        c.ExternalID,
		Source:    domain.SourceLodNexon,
		Title:     title,
		Author:    htmltext.FirstText(doc.Selection, ".board_info .nick", ".board_info .name"),
		Date:      htmltext.FirstText(doc.Selection, ".board_info .date", ".board_info .time"),
		Views:     htmltext.Count(htmltext.FirstText(doc.Selection, ".board_info .view", ".board_info .hit")),
		Content:   htmltext.Text(body),
		Images:    images,
		URL:       detailURL,
		BoardName: s.cfg.BoardName,
		CrawledAt: time.Now().UTC(),
	}, nil
}

func (s *Source) imageCandidates(body *goquery.Selection) []domimg.Candidate {
	var out []domimg.Candidate
	body.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := htmltext.Attr(img, "src", "data-src")
		switch {
		case strings.HasPrefix(src, "/"):
			src = s.cfg.BaseURL + src
		case !strings.HasPrefix(src, "http"):
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

func (s *Source) absolute(href string) string {
	if strings.HasPrefix(href, "/") {
		return s.cfg.BaseURL + href
	}
	return href
}

func (s *Source) get(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("request %s: status %d", target, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
