package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"doc-distill/internal/chunker"
)

// Config holds runtime configuration for the CLI, gateway and worker.
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "text" or "json"
	LogFile   string `env:"LOG_FILE"`                     // empty writes to stderr

	// LLM
	LLMProvider   string        `env:"LLM_PROVIDER" envDefault:"ollama"` // "ollama", "openai" or "anthropic"
	LLMModel      string        `env:"LLM_MODEL" envDefault:"mistral"`
	OllamaHost    string        `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	AnthropicKey  string        `env:"ANTHROPIC_API_KEY"`
	LLMTimeout    time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	LLMMaxRetries int           `env:"LLM_MAX_RETRIES" envDefault:"0"`
	LLMRetryBase  time.Duration `env:"LLM_RETRY_BASE" envDefault:"500ms"`

	// Pipelines
	GraphInputLimit int    `env:"GRAPH_INPUT_LIMIT" envDefault:"5000"`
	GraphChunked    bool   `env:"GRAPH_CHUNKED" envDefault:"false"`
	ChunkSize       int    `env:"CHUNK_SIZE" envDefault:"4000"`
	ChunkOverlap    int    `env:"CHUNK_OVERLAP" envDefault:"400"`
	Concurrency     int    `env:"CONCURRENCY" envDefault:"1"`
	OutputDir       string `env:"OUTPUT_DIR" envDefault:"raggraph"`
	SummaryPDF      string `env:"SUMMARY_PDF" envDefault:"summary.pdf"`
	PDFFontPath     string `env:"PDF_FONT_PATH"`
	GraphFontPath   string `env:"GRAPH_FONT_PATH"`
	DisplayGraph    bool   `env:"DISPLAY_GRAPH" envDefault:"false"`

	// Cache
	CacheProvider string        `env:"CACHE_PROVIDER" envDefault:"none"` // "none", "memory" or "redis"
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"none"` // "none", "sqlite" or "postgres"
	DBURL         string `env:"DB_URL"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"data/runs.db"`

	// Graph sink
	GraphSink     string `env:"GRAPH_SINK" envDefault:"none"` // "none" or "neo4j"
	Neo4jURI      string `env:"NEO4J_URI"`
	Neo4jUsername string `env:"NEO4J_USERNAME" envDefault:"neo4j"`
	Neo4jPassword string `env:"NEO4J_PASSWORD"`

	// Services
	Port          int    `env:"PORT" envDefault:"8080"`
	QueueURL      string `env:"QUEUE_URL"`
	DataDir       string `env:"DATA_DIR" envDefault:"data"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes
}

// Load reads a .env file when present, then environment variables with defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse env: %w", err)
	}
	return cfg, nil
}

// ChunkOptions returns the chunker settings.
func (c Config) ChunkOptions() chunker.Options {
	return chunker.Options{MaxChars: c.ChunkSize, Overlap: c.ChunkOverlap}
}

// Validate rejects settings no pipeline can run with.
func (c Config) Validate() error {
	if err := c.ChunkOptions().Validate(); err != nil {
		return err
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}
	if c.LLMMaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must not be negative, got %d", c.LLMMaxRetries)
	}
	if c.GraphInputLimit < 0 {
		return fmt.Errorf("GRAPH_INPUT_LIMIT must not be negative, got %d", c.GraphInputLimit)
	}
	if err := oneOf("LLM_PROVIDER", c.LLMProvider, "ollama", "openai", "anthropic"); err != nil {
		return err
	}
	if err := oneOf("CACHE_PROVIDER", c.CacheProvider, "none", "memory", "redis"); err != nil {
		return err
	}
	if err := oneOf("STORE_PROVIDER", c.StoreProvider, "none", "sqlite", "postgres"); err != nil {
		return err
	}
	if err := oneOf("GRAPH_SINK", c.GraphSink, "none", "neo4j"); err != nil {
		return err
	}
	return oneOf("LOG_FORMAT", c.LogFormat, "text", "json")
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %q (valid options: %s)", name, value, strings.Join(allowed, ", "))
}
