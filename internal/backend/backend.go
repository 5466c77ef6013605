// Package backend assembles the transaction service from configuration:
// a store, an optional event publisher and the analytics memo.
package backend

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/ports"
	"fintrack/internal/services"
)

// Kind names a storage implementation.
type Kind string

const (
	SQLiteBackend Kind = "sqlite"
	MemoryBackend Kind = "memory"
)

// Kinds lists the supported storage implementations.
var Kinds = []Kind{SQLiteBackend, MemoryBackend}

func (k Kind) Valid() bool {
	return slices.Contains(Kinds, k)
}

// Config selects and parameterises a backend.
type Config struct {
	Type         Kind
	SQLiteDBPath string

	// Change events are published only when AMQPURL is set.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// AnalyticsCacheTTL of zero uses the memo default. A positive
	// AnalyticsCacheSize bounds the memo with an LRU instead of go-cache.
	AnalyticsCacheTTL  time.Duration
	AnalyticsCacheSize int
}

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, errors.New("app config is nil")
	}
	bc := Config{
		Type:               Kind(c.DataBackend),
		SQLiteDBPath:       c.SQLiteDBPath,
		AMQPURL:            c.AMQPURL,
		AMQPExchange:       c.AMQPExchange,
		AMQPQueue:          c.AMQPQueue,
		AnalyticsCacheTTL:  c.AnalyticsCacheTTL,
		AnalyticsCacheSize: c.AnalyticsCacheSize,
	}
	if err := bc.Validate(); err != nil {
		return Config{}, err
	}
	return bc, nil
}

func (c Config) Validate() error {
	switch {
	case !c.Type.Valid():
		return fmt.Errorf("invalid backend type %q: must be one of %v", c.Type, Kinds)
	case c.Type == SQLiteBackend && c.SQLiteDBPath == "":
		return errors.New("SQLite database path is required for sqlite backend")
	}
	return nil
}

// Result is an assembled backend. Cleanup releases the store and publisher.
type Result struct {
	Service *services.TransactionService
	Store   ports.Store
	// Tracker is nil when the store does not record sync state.
	Tracker ports.SyncTracker
	Cleanup func() error
}
