package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/lodrag/internal/domain/answer"
)

// Config holds the lodrag configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Completion CompletionConfig `yaml:"completion"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Index      IndexConfig      `yaml:"index"`
	Storage    StorageConfig    `yaml:"storage"`
	Crawl      CrawlConfig      `yaml:"crawl"`
	Images     ImagesConfig     `yaml:"images"`
	Bookmark   BookmarkConfig   `yaml:"bookmark"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Notify     NotifyConfig     `yaml:"notify"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys  []string `yaml:"api_keys"`
	AdminKey string   `yaml:"admin_key"` // required by POST /crawl; empty disables the endpoint
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CompletionConfig holds chat completion provider settings.
type CompletionConfig struct {
	Provider   string `yaml:"provider"` // openai (default), gemini
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // openai (default), gemini
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	CacheSize   int    `yaml:"cache_size"`    // in-process LRU entries for query embeddings
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // TTL for both cache tiers
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds on-disk and key layout settings.
type StorageConfig struct {
	DataDir   string `yaml:"data_dir"`
	KeyPrefix string `yaml:"key_prefix"`
}

// RecordsDir returns the raw record directory of a source.
func (s StorageConfig) RecordsDir(source string) string {
	return filepath.Join(s.DataDir, source)
}

// BookmarksDir returns the bookmark directory.
func (s StorageConfig) BookmarksDir() string {
	return filepath.Join(s.DataDir, "bookmarks")
}

// ImagesDir returns the root image directory.
func (s StorageConfig) ImagesDir() string {
	return filepath.Join(s.DataDir, "images")
}

// CrawlConfig holds per-source crawler settings.
type CrawlConfig struct {
	UserAgent string          `yaml:"user_agent"`
	LodNexon  LodNexonConfig  `yaml:"lod_nexon"`
	NaverCafe NaverCafeConfig `yaml:"naver_cafe"`
}

// LodNexonConfig holds static board crawler settings.
type LodNexonConfig struct {
	BaseURL    string `yaml:"base_url"`
	BoardName  string `yaml:"board_name"`
	MinDelayMs int    `yaml:"min_delay_ms"`
	MaxDelayMs int    `yaml:"max_delay_ms"`
	FullPages  int    `yaml:"full_pages"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// BoardConfig names one cafe board.
type BoardConfig struct {
	MenuID string `yaml:"menu_id"`
	Name   string `yaml:"name"`
}

// NaverCafeConfig holds authenticated cafe crawler settings.
type NaverCafeConfig struct {
	BaseURL              string        `yaml:"base_url"`
	CafeID               string        `yaml:"cafe_id"`
	SessionPath          string        `yaml:"session_path"`
	Boards               []BoardConfig `yaml:"boards"`
	MinDelayMs           int           `yaml:"min_delay_ms"`
	MaxDelayMs           int           `yaml:"max_delay_ms"`
	FullPages            int           `yaml:"full_pages"`
	NavigationTimeoutSec int           `yaml:"navigation_timeout_sec"`
	ListWaitSec          int           `yaml:"list_wait_sec"`
	SettleSec            int           `yaml:"settle_sec"`
	Headful              bool          `yaml:"headful"`
}

// ImagesConfig holds image pipeline settings.
type ImagesConfig struct {
	Enabled            *bool `yaml:"enabled"`
	MaxPerPost         int   `yaml:"max_per_post"`
	MinSizeKB          int   `yaml:"min_size_kb"`
	MaxSizeMB          int   `yaml:"max_size_mb"`
	MaxForBookmark     int   `yaml:"max_for_bookmark"`
	MaxForAnswer       int   `yaml:"max_for_answer"`
	MaxPerPostAnswer   int   `yaml:"max_per_post_answer"`
	DownloadTimeoutSec int   `yaml:"download_timeout_sec"`
}

// IsEnabled reports whether images are downloaded and sent to vision models.
func (c ImagesConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// BookmarkConfig holds synthesizer settings.
type BookmarkConfig struct {
	MinContentChars int     `yaml:"min_content_chars"`
	MaxContentChars int     `yaml:"max_content_chars"`
	Temperature     float32 `yaml:"temperature"`
	MaxTokensVision int     `yaml:"max_tokens_vision"`
	MaxTokensText   int     `yaml:"max_tokens_text"`
}

// CutoffsConfig holds confidence tier boundaries.
type CutoffsConfig struct {
	Low    float64 `yaml:"low"`
	Medium float64 `yaml:"medium"`
	High   float64 `yaml:"high"`
}

// RetrievalConfig holds retriever settings.
type RetrievalConfig struct {
	TopK           int           `yaml:"top_k"`
	ScoreThreshold float64       `yaml:"score_threshold"`
	Cutoffs        CutoffsConfig `yaml:"cutoffs"`
	MaxAnswerChars int           `yaml:"max_answer_chars"`
	ContextChars   int           `yaml:"context_chars"`
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
}

// AnswerCutoffs converts the config into domain cutoffs.
func (r RetrievalConfig) AnswerCutoffs() answer.Cutoffs {
	return answer.Cutoffs{Low: r.Cutoffs.Low, Medium: r.Cutoffs.Medium, High: r.Cutoffs.High}
}

// NotifyConfig holds operator notification settings.
type NotifyConfig struct {
	URL        string `yaml:"url"`
	Room       string `yaml:"room"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// ScheduleConfig holds cron specs of the three job shapes. Empty spec disables the job.
type ScheduleConfig struct {
	Incremental string `yaml:"incremental"`
	CatchUp     string `yaml:"catch_up"`
	Full        string `yaml:"full"`
	Timezone    string `yaml:"timezone"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
//
//nolint:gocyclo,cyclop // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Completion.Provider == "" {
		c.Completion.Provider = "openai"
	}
	if c.Completion.Model == "" {
		c.Completion.Model = "gpt-4o-mini"
	}
	if c.Completion.TimeoutSec <= 0 {
		c.Completion.TimeoutSec = 60
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = 1000
	}
	if c.Embedding.CacheTTLSec <= 0 {
		c.Embedding.CacheTTLSec = 24 * 3600
	}

	if c.Index.Name == "" {
		c.Index.Name = "lod_bookmarks"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./data"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "lodrag:"
	}

	c.applyCrawlDefaults()
	c.applyPipelineDefaults()

	if c.Notify.TimeoutSec <= 0 {
		c.Notify.TimeoutSec = 10
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Asia/Seoul"
	}
}

func (c *Config) applyCrawlDefaults() {
	if c.Crawl.UserAgent == "" {
		c.Crawl.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}

	lod := &c.Crawl.LodNexon
	if lod.BaseURL == "" {
		lod.BaseURL = "https://lod.nexon.com"
	}
	if lod.BoardName == "" {
		lod.BoardName = "현자의 마을"
	}
	if lod.MinDelayMs <= 0 {
		lod.MinDelayMs = 1000
	}
	if lod.MaxDelayMs <= 0 {
		lod.MaxDelayMs = 3000
	}
	if lod.FullPages <= 0 {
		lod.FullPages = 20
	}
	if lod.TimeoutSec <= 0 {
		lod.TimeoutSec = 15
	}

	cafe := &c.Crawl.NaverCafe
	if cafe.BaseURL == "" {
		cafe.BaseURL = "https://cafe.naver.com/f-e"
	}
	if cafe.CafeID == "" {
		cafe.CafeID = "13434008"
	}
	if cafe.SessionPath == "" {
		cafe.SessionPath = "./data/naver_cookies.json"
	}
	if len(cafe.Boards) == 0 {
		cafe.Boards = []BoardConfig{
			{MenuID: "12", Name: "팁과 정보"},
			{MenuID: "11", Name: "퀘스트 공략"},
			{MenuID: "131", Name: "아이템 정보"},
			{MenuID: "132", Name: "스킬 정보"},
		}
	}
	if cafe.MinDelayMs <= 0 {
		cafe.MinDelayMs = 3000
	}
	if cafe.MaxDelayMs <= 0 {
		cafe.MaxDelayMs = 5000
	}
	if cafe.FullPages <= 0 {
		cafe.FullPages = 10
	}
	if cafe.NavigationTimeoutSec <= 0 {
		cafe.NavigationTimeoutSec = 30
	}
	if cafe.ListWaitSec <= 0 {
		cafe.ListWaitSec = 10
	}
	if cafe.SettleSec <= 0 {
		cafe.SettleSec = 3
	}
}

func (c *Config) applyPipelineDefaults() {
	img := &c.Images
	if img.MaxPerPost <= 0 {
		img.MaxPerPost = 10
	}
	if img.MinSizeKB <= 0 {
		img.MinSizeKB = 5
	}
	if img.MaxSizeMB <= 0 {
		img.MaxSizeMB = 10
	}
	if img.MaxForBookmark <= 0 {
		img.MaxForBookmark = 5
	}
	if img.MaxForAnswer <= 0 {
		img.MaxForAnswer = 6
	}
	if img.MaxPerPostAnswer <= 0 {
		img.MaxPerPostAnswer = 3
	}
	if img.DownloadTimeoutSec <= 0 {
		img.DownloadTimeoutSec = 15
	}

	bm := &c.Bookmark
	if bm.MinContentChars <= 0 {
		bm.MinContentChars = 20
	}
	if bm.MaxContentChars <= 0 {
		bm.MaxContentChars = 4000
	}
	if bm.Temperature <= 0 {
		bm.Temperature = 0.3
	}
	if bm.MaxTokensVision <= 0 {
		bm.MaxTokensVision = 800
	}
	if bm.MaxTokensText <= 0 {
		bm.MaxTokensText = 500
	}

	r := &c.Retrieval
	if r.TopK <= 0 {
		r.TopK = 3
	}
	if r.ScoreThreshold <= 0 {
		r.ScoreThreshold = 0.35
	}
	if r.Cutoffs == (CutoffsConfig{}) {
		d := answer.DefaultCutoffs()
		r.Cutoffs = CutoffsConfig{Low: d.Low, Medium: d.Medium, High: d.High}
	}
	if r.MaxAnswerChars <= 0 {
		r.MaxAnswerChars = 300
	}
	if r.ContextChars <= 0 {
		r.ContextChars = 3000
	}
	if r.Temperature <= 0 {
		r.Temperature = 0.3
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = 500
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	for name, p := range map[string]string{
		"completion.provider": c.Completion.Provider,
		"embedding.provider":  c.Embedding.Provider,
	} {
		if p != "openai" && p != "gemini" {
			return fmt.Errorf("%s must be \"openai\" or \"gemini\", got %q", name, p)
		}
	}
	if c.Crawl.LodNexon.MinDelayMs > c.Crawl.LodNexon.MaxDelayMs {
		return fmt.Errorf("crawl.lod_nexon.min_delay_ms must not exceed max_delay_ms")
	}
	if c.Crawl.NaverCafe.MinDelayMs > c.Crawl.NaverCafe.MaxDelayMs {
		return fmt.Errorf("crawl.naver_cafe.min_delay_ms must not exceed max_delay_ms")
	}
	if c.Images.MinSizeKB*1024 >= c.Images.MaxSizeMB*1024*1024 {
		return fmt.Errorf("images.min_size_kb must be below images.max_size_mb")
	}
	if err := c.Retrieval.AnswerCutoffs().Validate(c.Retrieval.ScoreThreshold); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests and go run from subdirectories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
