package wire

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sevigo/goframe/embeddings"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/canteen-sync/internal/config"
	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/dishsync"
	"github.com/sevigo/canteen-sync/internal/embedding"
	"github.com/sevigo/canteen-sync/internal/logger"
	"github.com/sevigo/canteen-sync/internal/queue"
	"github.com/sevigo/canteen-sync/internal/reviewstats"
	"github.com/sevigo/canteen-sync/internal/storage"
)

// newOllamaHTTPClient creates an HTTP client with longer timeouts for Ollama
// requests. Embedding a batch of dish descriptions can take a while.
func newOllamaHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableKeepAlives:   false,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   5 * time.Minute,
	}
}

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	switch cfg.Logging.Output {
	case "stderr":
		return os.Stderr
	case "file":
		f, _ := os.OpenFile("canteen-sync.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		return f
	default:
		return os.Stdout
	}
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return cfg.Database
}

func provideEmbeddingConfig(cfg *config.Config) config.EmbeddingConfig {
	return cfg.Embedding
}

func provideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.CacheDB,
	})
}

func provideEmbedder(cfg *config.Config, logger *slog.Logger) (embeddings.Embedder, error) {
	embedderLLM, err := ollama.New(
		ollama.WithServerURL(cfg.Embedding.OllamaHost),
		ollama.WithModel(cfg.Embedding.EmbedderModelName),
		ollama.WithHTTPClient(newOllamaHTTPClient()),
		ollama.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder LLM: %w", err)
	}
	return embeddings.NewEmbedder(embedderLLM)
}

func provideVectorStore(cfg *config.Config, embedder embeddings.Embedder, logger *slog.Logger) storage.VectorStore {
	return storage.NewQdrantVectorStore(cfg.Embedding.QdrantHost, embedder, logger)
}

// provideRegistry wires every pipeline's handlers into one shared registry;
// the queue backend dispatches by queue name and job type.
func provideRegistry(
	ds *dishsync.Handler,
	rs *reviewstats.Handler,
	em *embedding.Handler,
) *queue.Registry {
	registry := queue.NewRegistry()
	ds.Register(registry)
	rs.Register(registry)
	em.Register(registry)
	return registry
}

func provideInspector(backend queue.Backend) core.QueueInspector {
	return backend
}

func provideBackend(cfg *config.Config, registry *queue.Registry, logger *slog.Logger) (queue.Backend, error) {
	switch cfg.Queue.Backend {
	case config.BackendMemory:
		return queue.NewMemory(registry, cfg.Queue.Concurrency, logger), nil
	case config.BackendRedis:
		return queue.NewAsynq(cfg.Redis.Addr, registry, logger), nil
	default:
		return nil, fmt.Errorf("unsupported queue backend: %s", cfg.Queue.Backend)
	}
}

func provideWorker(cfg *config.Config, registry *queue.Registry, logger *slog.Logger) *queue.AsynqWorker {
	return queue.NewAsynqWorker(cfg.Redis.Addr, cfg.Queue.Concurrency, registry, logger)
}

func provideQueueTuning(cfg *config.Config, logger *slog.Logger) (*config.QueueTuning, error) {
	tuning, err := config.LoadQueueTuning(cfg.Queue.TuningFile)
	if errors.Is(err, config.ErrTuningNotFound) {
		logger.Debug("no queue tuning file, using pipeline defaults", "path", cfg.Queue.TuningFile)
		return tuning, nil
	}
	if err != nil {
		return nil, err
	}
	logger.Info("loaded queue tuning overrides", "path", cfg.Queue.TuningFile)
	return tuning, nil
}

func provideDishSyncService(
	cfg *config.Config,
	backend queue.Backend,
	handler *dishsync.Handler,
	tuning *config.QueueTuning,
	logger *slog.Logger,
) dishsync.Service {
	opts := tuning.Apply(dishsync.QueueName, dishsync.DefaultOptions())
	return dishsync.NewService(cfg.Mode, backend, handler, opts, logger)
}

func provideReviewStatsService(
	cfg *config.Config,
	backend queue.Backend,
	handler *reviewstats.Handler,
	tuning *config.QueueTuning,
	logger *slog.Logger,
) reviewstats.Service {
	opts := tuning.Apply(reviewstats.QueueName, reviewstats.DefaultOptions())
	return reviewstats.NewService(cfg.Mode, backend, handler, opts, logger)
}

func provideEmbeddingService(
	cfg *config.Config,
	backend queue.Backend,
	refresher embedding.Refresher,
	tuning *config.QueueTuning,
	logger *slog.Logger,
) embedding.Service {
	opts := tuning.Apply(embedding.QueueName, embedding.DefaultOptions())
	return embedding.NewService(cfg.Mode, backend, refresher, opts, logger)
}
