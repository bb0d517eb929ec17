package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"doc-distill/internal/cache"
	"doc-distill/internal/config"
	"doc-distill/internal/graph"
	"doc-distill/internal/graphstore"
	"doc-distill/internal/llm"
	"doc-distill/internal/logger"
	"doc-distill/internal/pipeline"
	"doc-distill/internal/queue"
	"doc-distill/internal/store"
	"doc-distill/internal/writer"
)

// Need selects the optional components Build wires.
type Need uint8

const (
	// NeedModel builds the LLM client, reply cache and graph sink.
	NeedModel Need = 1 << iota
	// NeedQueue connects to NATS.
	NeedQueue
)

// Deps bundles common runtime dependencies for the CLI and services.
// Store is nil when STORE_PROVIDER=none.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Model  *llm.Invoker
	Cache  cache.Cache
	Store  store.Store
	Sink   graphstore.Sink
	Queue  queue.Queue

	nc     *nats.Conn
	pinger llm.Pinger
}

// Build wires shared components from an already loaded config.
func Build(ctx context.Context, cfg config.Config, need Need) (*Deps, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := NewLogger(cfg)
	d := &Deps{Config: cfg, Log: log, Sink: graphstore.NoopSink{}}

	st, err := buildStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	d.Store = st

	if need&NeedModel != 0 {
		client, err := buildLLM(cfg, log)
		if err != nil {
			d.Close(ctx)
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		c, err := buildCache(cfg, log)
		if err != nil {
			d.Close(ctx)
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		d.Cache = c
		if p, ok := client.(llm.Pinger); ok {
			d.pinger = p
		}
		d.Model = llm.NewInvoker(client, c, log, llm.InvokerOptions{
			Timeout:    cfg.LLMTimeout,
			MaxRetries: cfg.LLMMaxRetries,
			RetryBase:  cfg.LLMRetryBase,
			CacheTTL:   cfg.CacheTTL,
		})
		sink, err := buildSink(ctx, cfg, log)
		if err != nil {
			d.Close(ctx)
			return nil, fmt.Errorf("failed to initialize graph sink: %w", err)
		}
		d.Sink = sink
	}

	if need&NeedQueue != 0 {
		if cfg.QueueURL == "" {
			d.Close(ctx)
			return nil, errors.New("QUEUE_URL is required")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			d.Close(ctx)
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		d.nc = nc
		d.Queue = queue.NewNATS(log, nc)
	}
	return d, nil
}

// NewLogger builds the process logger from config.
func NewLogger(cfg config.Config) *slog.Logger {
	return logger.NewWithOptions(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
}

// QueueHealthy reports whether the NATS connection is usable.
func (d *Deps) QueueHealthy(context.Context) error {
	if d.nc == nil || !d.nc.IsConnected() {
		return errors.New("nats not connected")
	}
	return nil
}

// ModelHealthy pings the model backend when the client supports it (Ollama).
// Other providers always report healthy.
func (d *Deps) ModelHealthy(ctx context.Context) error {
	if d.pinger == nil {
		return nil
	}
	return d.pinger.Ping(ctx)
}

// PipelineDeps returns the collaborators for graph and summary pipelines.
func (d *Deps) PipelineDeps(r pipeline.Reporter) pipeline.Deps {
	pd := pipeline.Deps{
		Store:    d.Store,
		Sink:     d.Sink,
		Log:      d.Log,
		Reporter: r,
	}
	if d.Model != nil {
		pd.Model = d.Model
	}
	return pd
}

// Close releases every wired component. Errors are logged.
func (d *Deps) Close(ctx context.Context) {
	if d.nc != nil {
		d.nc.Close()
	}
	if d.Sink != nil {
		if err := d.Sink.Close(ctx); err != nil {
			d.Log.Warn("close graph sink", "err", err)
		}
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.Log.Warn("close cache", "err", err)
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Log.Warn("close store", "err", err)
		}
	}
}

// PipelineOptions maps config onto pipeline settings.
func PipelineOptions(cfg config.Config) pipeline.Options {
	pdf := writer.DefaultPDFOptions()
	pdf.FontPath = cfg.PDFFontPath
	render := graph.DefaultRenderOptions()
	render.FontPath = cfg.GraphFontPath
	return pipeline.Options{
		OutputDir:       cfg.OutputDir,
		SummaryPath:     SummaryPath(cfg),
		Chunking:        cfg.ChunkOptions(),
		Concurrency:     cfg.Concurrency,
		GraphInputLimit: cfg.GraphInputLimit,
		GraphChunked:    cfg.GraphChunked,
		Render:          render,
		PDF:             pdf,
		Display:         cfg.DisplayGraph,
	}
}

// RunOutputDir is where queued runs write their artifacts.
func RunOutputDir(cfg config.Config, runID uuid.UUID) string {
	return filepath.Join(cfg.OutputDir, runID.String())
}

// SummaryPath places a bare SUMMARY_PDF file name inside OUTPUT_DIR. Paths with a
// directory component are used as given.
func SummaryPath(cfg config.Config) string {
	name := cfg.SummaryPDF
	if name == "" {
		name = "summary.pdf"
	}
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(cfg.OutputDir, name)
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, errors.New("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	case "sqlite":
		db, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		log.Info("using SQLite store", "path", db.Path())
		return db, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: none, sqlite, postgres)", cfg.StoreProvider)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "ollama", "":
		client, err := llm.NewOllamaClient(cfg.OllamaHost, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		log.Info("using Ollama LLM client", "host", cfg.OllamaHost, "model", client.Model())
		return client, nil
	case "openai":
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, openai.ChatModel(cfg.LLMModel))
		if err != nil {
			return nil, fmt.Errorf("OPENAI_API_KEY or OPENAI_BASE_URL is required when LLM_PROVIDER=openai: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", client.Model())
		return client, nil
	case "anthropic":
		client, err := llm.NewAnthropicClient(cfg.AnthropicKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		log.Info("using Anthropic LLM client", "model", client.Model())
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: ollama, openai, anthropic)", cfg.LLMProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		log.Info("using Redis reply cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return c, nil
	case "memory":
		log.Info("using in-memory reply cache")
		return cache.NewMemoryCache(), nil
	default:
		return cache.NewNoOpCache(), nil
	}
}

func buildSink(ctx context.Context, cfg config.Config, log *slog.Logger) (graphstore.Sink, error) {
	switch cfg.GraphSink {
	case "neo4j":
		if cfg.Neo4jURI == "" {
			return nil, errors.New("NEO4J_URI is required when GRAPH_SINK=neo4j")
		}
		driver, err := graphstore.NewNeo4jDriver(ctx, cfg.Neo4jURI, cfg.Neo4jUsername, cfg.Neo4jPassword)
		if err != nil {
			return nil, err
		}
		sink, err := graphstore.NewNeo4jSink(driver)
		if err != nil {
			return nil, err
		}
		log.Info("syncing graphs to Neo4j", "uri", cfg.Neo4jURI)
		return sink, nil
	default:
		return graphstore.NoopSink{}, nil
	}
}
