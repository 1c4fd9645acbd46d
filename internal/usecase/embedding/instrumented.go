// Package embedding decorates provider embedders with logging, usage accounting and
// a dimension guard so a misconfigured model never writes into the index.
package embedding

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/domain"
)

// Role distinguishes document and query traffic in logs.
type Role string

// Embedding roles.
const (
	RoleDocument Role = "document"
	RoleQuery    Role = "query"
)

// InstrumentedEmbedder wraps Embedder with logging and token accounting.
// Transport metrics (requests, duration, tokens) are recorded in the provider transports.
type InstrumentedEmbedder struct {
	inner      domain.Embedder
	role       Role
	dimensions int
	logger     *zap.Logger

	calls  atomic.Int64
	tokens atomic.Int64
}

// NewInstrumentedEmbedder wraps an embedder. dimensions <= 0 disables the dimension guard.
func NewInstrumentedEmbedder(inner domain.Embedder, role Role, dimensions int, logger *zap.Logger) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:      inner,
		role:       role,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Embed delegates to the inner embedder and records usage.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("role", string(p.role)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed %s: %w", p.role, err)
	}

	if p.dimensions > 0 && len(result.Embedding) != p.dimensions {
		p.logger.Error("Embedding dimension mismatch",
			zap.String("role", string(p.role)),
			zap.Int("expected", p.dimensions),
			zap.Int("actual", len(result.Embedding)),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("%w: got %d dimensions, want %d",
			domain.ErrEmbeddingProviderError, len(result.Embedding), p.dimensions)
	}

	p.calls.Add(1)
	p.tokens.Add(int64(result.TotalTokens))

	p.logger.Debug("Embedding request completed",
		zap.String("role", string(p.role)),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// Usage returns the number of successful calls and tokens consumed since construction.
func (p *InstrumentedEmbedder) Usage() (calls, tokens int64) {
	return p.calls.Load(), p.tokens.Load()
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding health: %w", err)
	}
	return nil
}
