// Package gemini adapts the Google Gen AI SDK to the completion and embedding contracts.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/lodrag/internal/domain"
	"github.com/kailas-cloud/lodrag/internal/metrics"
)

const provider = "gemini"

// Config holds Gemini API settings.
type Config struct {
	APIKey     string
	BaseURL    string // overrides the API endpoint, used by tests
	Model      string
	Dimensions int
	Timeout    time.Duration
	Logger     *zap.Logger
}

func newClient(ctx context.Context, cfg *Config) (*genai.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// Completer implements domain.Completer on top of GenerateContent.
type Completer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewCompleter creates a Gemini completion provider.
func NewCompleter(ctx context.Context, cfg *Config) (*Completer, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{client: client, model: cfg.Model, timeout: cfg.Timeout, logger: logger}, nil
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	mode := "text"
	if len(req.Images) > 0 {
		mode = "vision"
	}

	parts, err := buildParts(&req)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		buildConfig(&req),
	)
	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(provider, c.model, mode, "error").Inc()
		c.logger.Warn("Completion request failed",
			zap.String("mode", mode), zap.Duration("duration", duration), zap.Error(err))
		return "", fmt.Errorf("gemini generate: %v: %w", err, domain.ErrCompletionProviderError)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		metrics.CompletionRequestsTotal.WithLabelValues(provider, c.model, mode, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrCompletionProviderError)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(provider, c.model, mode, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(provider, c.model, mode).Observe(duration.Seconds())
	if u := resp.UsageMetadata; u != nil {
		metrics.CompletionTokensTotal.WithLabelValues(provider, c.model, "prompt").Add(float64(u.PromptTokenCount))
		metrics.CompletionTokensTotal.WithLabelValues(provider, c.model, "completion").
			Add(float64(u.CandidatesTokenCount))
	}
	return text, nil
}

func buildParts(req *domain.CompletionRequest) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(req.Images)+1)
	parts = append(parts, &genai.Part{Text: req.Prompt})
	for i, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img.Base64)
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", i, err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: img.MimeType, Data: data}})
	}
	return parts, nil
}

func buildConfig(req *domain.CompletionRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](req.Temperature),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens) //nolint:gosec // bounded by config
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.JSONOutput {
		cfg.ResponseMIMEType = "application/json"
	}
	if len(req.Images) > 0 && req.ImageDetail == domain.ImageDetailLow {
		cfg.MediaResolution = genai.MediaResolutionLow
	}
	return cfg
}

// Embedder implements domain.Embedder on top of EmbedContent.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewEmbedder creates a Gemini embedding provider.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{client: client, model: cfg.Model, dimensions: cfg.Dimensions, logger: logger}, nil
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var cfg *genai.EmbedContentConfig
	if e.dimensions > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr[int32](int32(e.dimensions))} //nolint:gosec
	}

	start := time.Now()
	resp, err := e.client.Models.EmbedContent(
		ctx,
		e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		cfg,
	)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.model, "api_error").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("gemini embed: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, e.model, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("no embedding values returned: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, e.model).Observe(duration.Seconds())
	return domain.EmbeddingResult{Embedding: resp.Embeddings[0].Values}, nil
}
