package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config is the full application configuration, loaded from TOML with
// MANDATE_* environment overrides applied on top.
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Logging     LoggingConfig    `toml:"logging"`
	Storage     StorageConfig    `toml:"storage"`
	Scraper     ScraperConfig    `toml:"scraper"`
	Downloader  DownloaderConfig `toml:"downloader"`
	Extractor   ExtractorConfig  `toml:"extractor"`
	Metadata    MetadataConfig   `toml:"metadata"`
	Blob        BlobConfig       `toml:"blob"`
	Embedding   EmbeddingConfig  `toml:"embedding"`
	Vector      VectorConfig     `toml:"vector"`
	Retrieval   RetrievalConfig  `toml:"retrieval"`
	Chat        ChatConfig       `toml:"chat"`
	ExternalDB  ExternalDBConfig `toml:"external_db"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	LLM         LLMConfig        `toml:"llm"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
}

type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	ReadTimeout  string `toml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout"`
	IdleTimeout  string `toml:"idle_timeout"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`
	Output []string `toml:"output"`
}

type StorageConfig struct {
	BadgerPath string `toml:"badger_path"`
	InMemory   bool   `toml:"in_memory"`
}

type ScraperConfig struct {
	MaxConcurrentJobs     int    `toml:"max_concurrent_jobs"`
	InterPageDelay        string `toml:"inter_page_delay"`
	InterDocumentDelay    string `toml:"inter_document_delay"`
	DeleteWithoutMetadata bool   `toml:"delete_without_metadata"`
	RenderTimeout         string `toml:"render_timeout"`
	JobRetention          string `toml:"job_retention"`
}

type DownloaderConfig struct {
	RequestTimeout string `toml:"request_timeout"`
	MaxAttempts    int    `toml:"max_attempts"`
	MaxBodySize    int64  `toml:"max_body_size"`
	MaxRedirects   int    `toml:"max_redirects"`
}

type ExtractorConfig struct {
	MinCharsPerPage int    `toml:"min_chars_per_page"`
	OCREndpoint     string `toml:"ocr_endpoint"`
}

type MetadataConfig struct {
	MaxChars      int    `toml:"max_chars"`
	MinTitleLen   int    `toml:"min_title_len"`
	MinSummaryLen int    `toml:"min_summary_len"`
	MinKeywords   int    `toml:"min_keywords"`
	QualityGate   bool   `toml:"quality_gate"`
	PrimaryModel  string `toml:"primary_model"`
	FallbackModel string `toml:"fallback_model"`
}

type BlobConfig struct {
	Dir           string `toml:"dir"`
	PublicBaseURL string `toml:"public_base_url"`
}

type EmbeddingConfig struct {
	CanonicalDimension int    `toml:"canonical_dimension"`
	NativeDimension    int    `toml:"native_dimension"`
	Model              string `toml:"model"`
	Workers            int    `toml:"workers"`
	MaxLazyPerQuery    int    `toml:"max_lazy_per_query"`
}

type VectorConfig struct {
	QdrantAddr string `toml:"qdrant_addr"`
	Collection string `toml:"collection"`
}

type RetrievalConfig struct {
	CandidateLimit int     `toml:"candidate_limit"`
	TopK           int     `toml:"top_k"`
	Alpha          float64 `toml:"alpha"`
	RerankModel    string  `toml:"rerank_model"`
}

type ChatConfig struct {
	Model            string `toml:"model"`
	MaxContextChunks int    `toml:"max_context_chunks"`
}

type ExternalDBConfig struct {
	EncryptionKey string `toml:"encryption_key"`
	SyncSchedule  string `toml:"sync_schedule"`
	QueryTimeout  string `toml:"query_timeout"`
}

type SchedulerConfig struct {
	Enabled bool `toml:"enabled"`
}

type LLMConfig struct {
	DefaultProvider string `toml:"default_provider"`
	Timeout         string `toml:"timeout"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
}

// NewDefaultConfig returns the configuration defaults used when no TOML
// file is supplied.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8085,
			ReadTimeout:  "30s",
			WriteTimeout: "60s",
			IdleTimeout:  "120s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"console", "file"},
		},
		Storage: StorageConfig{
			BadgerPath: "./data/mandate",
		},
		Scraper: ScraperConfig{
			MaxConcurrentJobs:  3,
			InterPageDelay:     "1s",
			InterDocumentDelay: "200ms",
			RenderTimeout:      "45s",
			JobRetention:       "168h",
		},
		Downloader: DownloaderConfig{
			RequestTimeout: "30s",
			MaxAttempts:    3,
			MaxBodySize:    100 * 1024 * 1024,
			MaxRedirects:   5,
		},
		Extractor: ExtractorConfig{
			MinCharsPerPage: 50,
		},
		Metadata: MetadataConfig{
			MaxChars:      8000,
			MinTitleLen:   4,
			MinSummaryLen: 20,
			MinKeywords:   3,
			QualityGate:   true,
		},
		Blob: BlobConfig{
			Dir:           "./data/blobs",
			PublicBaseURL: "http://localhost:8085/blobs",
		},
		Embedding: EmbeddingConfig{
			CanonicalDimension: 1024,
			NativeDimension:    768,
			Model:              "gemini-embedding-001",
			Workers:            5,
			MaxLazyPerQuery:    3,
		},
		Vector: VectorConfig{
			QdrantAddr: "localhost:6334",
			Collection: "mandate_chunks",
		},
		Retrieval: RetrievalConfig{
			CandidateLimit: 20,
			TopK:           5,
			Alpha:          0.7,
		},
		Chat: ChatConfig{
			MaxContextChunks: 8,
		},
		ExternalDB: ExternalDBConfig{
			SyncSchedule: "0 2 * * *",
			QueryTimeout: "120s",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Timeout:         "60s",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.2,
			MaxTokens:   8192,
			Timeout:     "60s",
		},
	}
}

// LoadFromFile loads configuration from a TOML file, falling back to
// defaults for absent keys, then applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks cross-field constraints. Fails fast when the native
// embedding dimension exceeds the canonical one, since those vectors
// could never be padded into the index.
func (c *Config) Validate() error {
	if c.Embedding.CanonicalDimension <= 0 {
		return fmt.Errorf("embedding canonical dimension must be positive")
	}
	if c.Embedding.NativeDimension > c.Embedding.CanonicalDimension {
		return fmt.Errorf("embedding native dimension (%d) exceeds canonical dimension (%d)",
			c.Embedding.NativeDimension, c.Embedding.CanonicalDimension)
	}
	if c.ExternalDB.SyncSchedule != "" {
		if err := ValidateSchedule(c.ExternalDB.SyncSchedule); err != nil {
			return fmt.Errorf("invalid external sync schedule: %w", err)
		}
	}
	return nil
}

// ValidateSchedule checks a cron expression with the standard 5-field parser.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

// applyEnvOverrides applies MANDATE_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MANDATE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("MANDATE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("MANDATE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("MANDATE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MANDATE_LOG_OUTPUT"); output != "" {
		parts := strings.Split(output, ",")
		outputs := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				outputs = append(outputs, p)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if badgerPath := os.Getenv("MANDATE_BADGER_PATH"); badgerPath != "" {
		config.Storage.BadgerPath = badgerPath
	}

	if dir := os.Getenv("MANDATE_BLOB_DIR"); dir != "" {
		config.Blob.Dir = dir
	}
	if baseURL := os.Getenv("MANDATE_BLOB_PUBLIC_URL"); baseURL != "" {
		config.Blob.PublicBaseURL = baseURL
	}

	if addr := os.Getenv("MANDATE_QDRANT_ADDR"); addr != "" {
		config.Vector.QdrantAddr = addr
	}
	if collection := os.Getenv("MANDATE_QDRANT_COLLECTION"); collection != "" {
		config.Vector.Collection = collection
	}

	if dim := os.Getenv("MANDATE_EMBED_DIMENSION"); dim != "" {
		if d, err := strconv.Atoi(dim); err == nil {
			config.Embedding.CanonicalDimension = d
		}
	}
	if dim := os.Getenv("MANDATE_EMBED_NATIVE_DIMENSION"); dim != "" {
		if d, err := strconv.Atoi(dim); err == nil {
			config.Embedding.NativeDimension = d
		}
	}

	if key := os.Getenv("MANDATE_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("MANDATE_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if provider := os.Getenv("MANDATE_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = provider
	}

	if key := os.Getenv("MANDATE_ENCRYPTION_KEY"); key != "" {
		config.ExternalDB.EncryptionKey = key
	}

	if deleteFlag := os.Getenv("MANDATE_DELETE_WITHOUT_METADATA"); deleteFlag != "" {
		if b, err := strconv.ParseBool(deleteFlag); err == nil {
			config.Scraper.DeleteWithoutMetadata = b
		}
	}
}
