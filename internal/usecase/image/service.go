package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	domimg "github.com/kailas-cloud/lodrag/internal/domain/image"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

// ErrRejected signals a response that is not an acceptable image.
var ErrRejected = errors.New("image rejected")

// Config holds image pipeline limits.
type Config struct {
	Enabled      bool
	MaxPerPost   int
	MinSizeBytes int64
	MaxSizeBytes int64
	Timeout      time.Duration
}

// Service downloads post images and loads them for vision requests.
type Service struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates the image pipeline.
func New(cfg Config, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Enabled reports whether image handling is switched on.
func (s *Service) Enabled() bool {
	return s.cfg.Enabled
}

// Filter applies FilterCandidates with the configured per-post cap.
func (s *Service) Filter(cands []domimg.Candidate) []domimg.Candidate {
	return FilterCandidates(cands, s.cfg.MaxPerPost)
}

// DownloadAll filters candidates and downloads the survivors into dir as
// img_001.<ext>, img_002.<ext>, ... Failed downloads are logged and skipped.
func (s *Service) DownloadAll(
	ctx context.Context, cands []domimg.Candidate, dir string,
	headers map[string]string, fallback domimg.BrowserFetcher,
) []domrec.Image {
	if !s.cfg.Enabled {
		return nil
	}
	filtered := s.Filter(cands)
	out := make([]domrec.Image, 0, len(filtered))
	for i, c := range filtered {
		if ctx.Err() != nil {
			break
		}
		img, err := s.Download(ctx, c.URL, dir, fmt.Sprintf("img_%03d", i+1), headers, fallback)
		if err != nil {
			s.logger.Debug("Image download failed", zap.String("url", c.URL), zap.Error(err))
			continue
		}
		out = append(out, *img)
	}
	if len(out) > 0 {
		s.logger.Info("Images downloaded", zap.String("dir", dir), zap.Int("count", len(out)))
	}
	return out
}

// Download fetches url directly and, when that fails and fallback is set,
// through the browser. baseName gets an extension from the URL or, failing
// that, from the response MIME type.
func (s *Service) Download(
	ctx context.Context, url, dir, baseName string,
	headers map[string]string, fallback domimg.BrowserFetcher,
) (*domrec.Image, error) {
	data, mime, err := s.fetchDirect(ctx, url, headers)
	if err != nil && fallback != nil {
		s.logger.Debug("Direct image download failed, trying browser", zap.String("url", url), zap.Error(err))
		data, mime, err = s.fetchViaBrowser(ctx, url, fallback)
	}
	if err != nil {
		return nil, err
	}

	ext := ExtFromURL(url)
	if _, ok := allowedExt[ext]; !ok {
		ext = extFromMime(mime)
	}
	filename := baseName + "." + ext

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	localPath := filepath.Join(dir, filename)
	if err := os.WriteFile(localPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", localPath, err)
	}

	return &domrec.Image{
		Filename:    filename,
		OriginalURL: url,
		LocalPath:   localPath,
		SizeBytes:   int64(len(data)),
	}, nil
}

func (s *Service) fetchDirect(ctx context.Context, url string, headers map[string]string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("get %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("status %d: %w", resp.StatusCode, ErrRejected)
	}
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		return nil, "", fmt.Errorf("content-type %q: %w", mime, ErrRejected)
	}

	limit := s.cfg.MaxSizeBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if err := s.checkSize(len(data)); err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

func (s *Service) fetchViaBrowser(
	ctx context.Context, url string, fetcher domimg.BrowserFetcher,
) ([]byte, string, error) {
	dataURL, err := fetcher.FetchDataURL(ctx, url)
	if err != nil {
		return nil, "", fmt.Errorf("browser fetch: %w", err)
	}
	data, mime, err := DecodeDataURL(dataURL)
	if err != nil {
		return nil, "", err
	}
	if err := s.checkSize(len(data)); err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

func (s *Service) checkSize(n int) error {
	size := int64(n)
	if size < s.cfg.MinSizeBytes {
		return fmt.Errorf("too small (%d bytes): %w", size, ErrRejected)
	}
	if s.cfg.MaxSizeBytes > 0 && size > s.cfg.MaxSizeBytes {
		return fmt.Errorf("too large (%d bytes): %w", size, ErrRejected)
	}
	return nil
}

// DecodeDataURL parses "data:<mime>;base64,<payload>".
func DecodeDataURL(s string) ([]byte, string, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, "", fmt.Errorf("not a data url: %w", ErrRejected)
	}
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, "", fmt.Errorf("data url is not base64: %w", ErrRejected)
	}
	mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if mime != "" && !strings.HasPrefix(mime, "image/") {
		return nil, "", fmt.Errorf("data url mime %q: %w", mime, ErrRejected)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data url: %w", err)
	}
	return data, mime, nil
}

// ToBase64 loads up to maxCount images from disk. Missing or unreadable files are skipped.
func ToBase64(images []domrec.Image, maxCount int, logger *zap.Logger) []domimg.Encoded {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxCount > 0 && len(images) > maxCount {
		images = images[:maxCount]
	}

	out := make([]domimg.Encoded, 0, len(images))
	for _, img := range images {
		if img.LocalPath == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Clean(img.LocalPath))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Warn("Failed to read image", zap.String("path", img.LocalPath), zap.Error(err))
			}
			continue
		}
		name := img.Filename
		if name == "" {
			name = filepath.Base(img.LocalPath)
		}
		out = append(out, domimg.Encoded{
			Base64:   base64.StdEncoding.EncodeToString(data),
			MimeType: MimeFromPath(img.LocalPath),
			Filename: name,
		})
	}
	return out
}
