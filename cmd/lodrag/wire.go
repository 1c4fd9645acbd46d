package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/config"
	dbRedis "github.com/kailas-cloud/lodrag/internal/db/redis"
	"github.com/kailas-cloud/lodrag/internal/domain"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
	logpkg "github.com/kailas-cloud/lodrag/internal/logger"
	"github.com/kailas-cloud/lodrag/internal/metrics"
	bookmarkrepo "github.com/kailas-cloud/lodrag/internal/repository/bookmark"
	"github.com/kailas-cloud/lodrag/internal/repository/embcache"
	recordrepo "github.com/kailas-cloud/lodrag/internal/repository/record"
	vectorrepo "github.com/kailas-cloud/lodrag/internal/repository/vector"
	"github.com/kailas-cloud/lodrag/internal/source/lodnexon"
	"github.com/kailas-cloud/lodrag/internal/source/navercafe"
	geminiTransport "github.com/kailas-cloud/lodrag/internal/transport/gemini"
	"github.com/kailas-cloud/lodrag/internal/transport/notify"
	openaiTransport "github.com/kailas-cloud/lodrag/internal/transport/openai"
	"github.com/kailas-cloud/lodrag/internal/transport/playwright"
	bookmarkuc "github.com/kailas-cloud/lodrag/internal/usecase/bookmark"
	crawluc "github.com/kailas-cloud/lodrag/internal/usecase/crawl"
	embeddinguc "github.com/kailas-cloud/lodrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/lodrag/internal/usecase/health"
	imageuc "github.com/kailas-cloud/lodrag/internal/usecase/image"
	indexuc "github.com/kailas-cloud/lodrag/internal/usecase/index"
	ingestuc "github.com/kailas-cloud/lodrag/internal/usecase/ingest"
	jobuc "github.com/kailas-cloud/lodrag/internal/usecase/job"
	retrieveuc "github.com/kailas-cloud/lodrag/internal/usecase/retrieve"
	statsuc "github.com/kailas-cloud/lodrag/internal/usecase/stats"
)

// container is the composition root shared by every command.
type container struct {
	cfg    config.Config
	logger *zap.Logger

	store     *dbRedis.Store
	records   *recordrepo.Repo
	bookmarks *bookmarkrepo.Repo
	vectors   *vectorrepo.Repo

	docEmbedder   *embeddinguc.InstrumentedEmbedder
	queryEmbedder *embeddinguc.InstrumentedEmbedder
	completer     domain.Completer

	crawlers  map[domain.Source]*crawluc.Service
	synth     *bookmarkuc.Service
	indexer   *indexuc.Service
	retriever *retrieveuc.Service
	ingest    *ingestuc.Service
	health    *healthuc.Service
	stats     *statsuc.Service
	jobs      *jobuc.Service
}

// newContainer connects to the vector store, ensures the index and builds
// every service. Close releases the store.
func newContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*container, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("vector store not ready: %w", err)
	}
	logger.Info("Connected to vector store", zap.Strings("addrs", cfg.Database.Addrs))

	metrics.RegisterProviderMetrics()
	metrics.RegisterPipelineMetrics()

	c := &container{cfg: cfg, logger: logger, store: store}

	c.vectors = vectorrepo.New(store, vectorrepo.Config{
		IndexName:   cfg.Index.Name,
		KeyPrefix:   cfg.Storage.KeyPrefix,
		Dimensions:  cfg.Embedding.Dimensions,
		HNSWM:       cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	created, err := c.vectors.EnsureIndex(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}
	if created {
		logger.Info("Vector index created", zap.String("index", cfg.Index.Name))
	}

	c.records = recordrepo.New(cfg.Storage.DataDir, logpkg.Component(logger, "records"))
	c.bookmarks = bookmarkrepo.New(cfg.Storage.BookmarksDir(), logpkg.Component(logger, "bookmarks"))

	if err := c.buildProviders(ctx); err != nil {
		store.Close()
		return nil, err
	}
	c.buildServices()
	return c, nil
}

// Close releases the vector store connection.
func (c *container) Close() {
	c.store.Close()
}

func (c *container) buildProviders(ctx context.Context) error {
	cfg := c.cfg

	base, err := buildEmbedder(ctx, cfg.Embedding, c.logger)
	if err != nil {
		return err
	}
	embLog := logpkg.Component(c.logger, "embedding")
	c.docEmbedder = embeddinguc.NewInstrumentedEmbedder(base, embeddinguc.RoleDocument, cfg.Embedding.Dimensions, embLog)
	cached := embcache.New(base, c.store, embcache.Options{
		KeyPrefix: cfg.Storage.KeyPrefix,
		Model:     cfg.Embedding.Model,
		Size:      cfg.Embedding.CacheSize,
		TTL:       time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
	}, metrics.EmbeddingCacheTotal, logpkg.Component(c.logger, "embcache"))
	c.queryEmbedder = embeddinguc.NewInstrumentedEmbedder(cached, embeddinguc.RoleQuery, cfg.Embedding.Dimensions, embLog)

	c.completer, err = buildCompleter(ctx, cfg.Completion, c.logger)
	if err != nil {
		return err
	}
	c.logger.Info("Providers created",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("completion_provider", cfg.Completion.Provider),
		zap.String("completion_model", cfg.Completion.Model),
	)
	return nil
}

func (c *container) buildServices() {
	cfg := c.cfg
	log := c.logger

	images := imageuc.New(imageuc.Config{
		Enabled:      cfg.Images.IsEnabled(),
		MaxPerPost:   cfg.Images.MaxPerPost,
		MinSizeBytes: int64(cfg.Images.MinSizeKB) * 1024,
		MaxSizeBytes: int64(cfg.Images.MaxSizeMB) * 1024 * 1024,
		Timeout:      time.Duration(cfg.Images.DownloadTimeoutSec) * time.Second,
	}, logpkg.Component(log, "images"))

	c.crawlers = map[domain.Source]*crawluc.Service{
		domain.SourceLodNexon:  c.lodCrawler(images),
		domain.SourceNaverCafe: c.cafeCrawler(images),
	}

	c.synth = bookmarkuc.New(c.records, c.bookmarks, c.completer, bookmarkuc.Config{
		MinContentChars: cfg.Bookmark.MinContentChars,
		MaxContentChars: cfg.Bookmark.MaxContentChars,
		Temperature:     cfg.Bookmark.Temperature,
		MaxTokensVision: cfg.Bookmark.MaxTokensVision,
		MaxTokensText:   cfg.Bookmark.MaxTokensText,
		ImagesEnabled:   cfg.Images.IsEnabled(),
		MaxImages:       cfg.Images.MaxForBookmark,
	}, logpkg.Component(log, "bookmark"))

	c.indexer = indexuc.New(c.vectors, c.bookmarks, c.docEmbedder, logpkg.Component(log, "index"))

	c.retriever = retrieveuc.New(c.queryEmbedder, c.vectors, c.records, c.completer, retrieveuc.Config{
		TopK:             cfg.Retrieval.TopK,
		ScoreThreshold:   cfg.Retrieval.ScoreThreshold,
		Cutoffs:          cfg.Retrieval.AnswerCutoffs(),
		MaxAnswerChars:   cfg.Retrieval.MaxAnswerChars,
		ContextChars:     cfg.Retrieval.ContextChars,
		Temperature:      cfg.Retrieval.Temperature,
		MaxTokens:        cfg.Retrieval.MaxTokens,
		ImagesEnabled:    cfg.Images.IsEnabled(),
		MaxImagesPerPost: cfg.Images.MaxPerPostAnswer,
		MaxImagesTotal:   cfg.Images.MaxForAnswer,
	}, logpkg.Component(log, "retrieve"))

	c.ingest = ingestuc.New(c.records, c.synth, c.indexer, logpkg.Component(log, "ingest"))
	c.health = healthuc.New(c.store, c.docEmbedder, providerChecker(c.completer), c.indexer)
	c.stats = statsuc.New(c.records, c.bookmarks, c.indexer, logpkg.Component(log, "stats"))

	// Pass a nil interface, not a typed nil pointer, when notifications are off.
	var notifier jobuc.Notifier
	if cfg.Notify.URL != "" {
		notifier = notify.NewIris(notify.Config{
			URL:     cfg.Notify.URL,
			Room:    cfg.Notify.Room,
			Timeout: time.Duration(cfg.Notify.TimeoutSec) * time.Second,
		}, logpkg.Component(log, "notify"))
	}

	crawlers := make([]jobuc.Crawler, 0, len(c.crawlers))
	for _, src := range domain.Sources() {
		crawlers = append(crawlers, c.crawlers[src])
	}
	c.jobs = jobuc.New(crawlers, map[domain.Source]int{
		domain.SourceLodNexon:  cfg.Crawl.LodNexon.FullPages,
		domain.SourceNaverCafe: cfg.Crawl.NaverCafe.FullPages,
	}, c.synth, c.indexer, notifier, logpkg.Component(log, "job"))
}

func (c *container) lodCrawler(images *imageuc.Service) *crawluc.Service {
	cfg := c.cfg.Crawl.LodNexon
	log := logpkg.Component(c.logger, "crawl").With(zap.String("source", domain.SourceLodNexon.String()))

	src := lodnexon.New(lodnexon.Config{
		BaseURL:   cfg.BaseURL,
		BoardName: cfg.BoardName,
		UserAgent: c.cfg.Crawl.UserAgent,
		Timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
		ImagesDir: filepath.Join(c.cfg.Storage.ImagesDir(), domain.SourceLodNexon.String()),
	}, images, log)

	return crawluc.New(src, c.records, crawluc.Delay{
		Min: time.Duration(cfg.MinDelayMs) * time.Millisecond,
		Max: time.Duration(cfg.MaxDelayMs) * time.Millisecond,
	}, log)
}

func (c *container) cafeCrawler(images *imageuc.Service) *crawluc.Service {
	cfg := c.cfg.Crawl.NaverCafe
	log := logpkg.Component(c.logger, "crawl").With(zap.String("source", domain.SourceNaverCafe.String()))

	boards := make([]domrec.Board, 0, len(cfg.Boards))
	for _, b := range cfg.Boards {
		boards = append(boards, domrec.Board{ID: b.MenuID, Name: b.Name})
	}

	userAgent := c.cfg.Crawl.UserAgent
	launch := func(ctx context.Context, sessionPath string) (navercafe.Page, error) {
		b, err := playwright.Launch(ctx, playwright.Options{
			StorageStatePath: sessionPath,
			UserAgent:        userAgent,
			Headless:         !cfg.Headful,
			Logger:           log,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	src := navercafe.New(navercafe.Config{
		BaseURL:           cfg.BaseURL,
		CafeID:            cfg.CafeID,
		SessionPath:       cfg.SessionPath,
		Boards:            boards,
		UserAgent:         userAgent,
		NavigationTimeout: time.Duration(cfg.NavigationTimeoutSec) * time.Second,
		ListWait:          time.Duration(cfg.ListWaitSec) * time.Second,
		Settle:            time.Duration(cfg.SettleSec) * time.Second,
		ImagesDir:         filepath.Join(c.cfg.Storage.ImagesDir(), domain.SourceNaverCafe.String()),
	}, launch, images, log)

	return crawluc.New(src, c.records, crawluc.Delay{
		Min: time.Duration(cfg.MinDelayMs) * time.Millisecond,
		Max: time.Duration(cfg.MaxDelayMs) * time.Millisecond,
	}, log)
}

func buildEmbedder(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (domain.Embedder, error) {
	log := logpkg.Component(logger, "embedding")
	switch cfg.Provider {
	case "gemini":
		e, err := geminiTransport.NewEmbedder(ctx, &geminiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Logger:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		return e, nil
	default:
		return openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     log,
		}), nil
	}
}

func buildCompleter(ctx context.Context, cfg config.CompletionConfig, logger *zap.Logger) (domain.Completer, error) {
	log := logpkg.Component(logger, "completion")
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	switch cfg.Provider {
	case "gemini":
		c, err := geminiTransport.NewCompleter(ctx, &geminiTransport.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
			Logger:  log,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini completer: %w", err)
		}
		return c, nil
	default:
		return openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: cfg.Provider,
			Timeout:  timeout,
			Logger:   log,
		}), nil
	}
}

// providerChecker returns p as a health checker, or nil when the provider has no probe.
func providerChecker(p any) healthuc.ProviderChecker {
	if hc, ok := p.(domain.HealthChecker); ok {
		return hc
	}
	return nil
}
