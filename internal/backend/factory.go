package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/ports"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// Factory builds backends, logging what it wires.
type Factory struct {
	logger *slog.Logger
}

// NewFactory returns a factory logging to logger, or to the slog default
// when nil.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateBackend opens the configured store and wires the service around it.
// An unreachable broker is logged and skipped rather than failing startup.
func (f *Factory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   ports.Store
		tracker ports.SyncTracker
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store, tracker = repo, repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	}

	svc := services.NewTransactionService(store, f.publisher(ctx, config), newMemo(config))
	return &Result{
		Service: svc,
		Store:   store,
		Tracker: tracker,
		Cleanup: svc.Close,
	}, nil
}

func (f *Factory) publisher(ctx context.Context, config Config) services.EventPublisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "AMQP unavailable, continuing without change events", "error", err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
	return client
}

// newMemo returns nil when neither a TTL nor a size is configured, which
// leaves the service on its default memo.
func newMemo(config Config) *analytics.Memo {
	switch {
	case config.AnalyticsCacheSize > 0:
		return analytics.NewMemo(cache.NewLRU[analytics.Snapshot](config.AnalyticsCacheSize, config.AnalyticsCacheTTL))
	case config.AnalyticsCacheTTL > 0:
		return analytics.NewMemo(cache.NewTTL[analytics.Snapshot](config.AnalyticsCacheTTL, 2*config.AnalyticsCacheTTL))
	}
	return nil
}
