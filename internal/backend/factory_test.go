package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/core"
)

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantTracker bool
		wantErr     bool
	}{
		{name: "memory", config: Config{Type: MemoryBackend}},
		{name: "memory with cache ttl", config: Config{Type: MemoryBackend, AnalyticsCacheTTL: time.Minute}},
		{name: "memory with bounded cache", config: Config{Type: MemoryBackend, AnalyticsCacheSize: 16}},
		{name: "sqlite", config: Config{Type: SQLiteBackend}, wantTracker: true},
		{name: "sqlite without path", config: Config{Type: SQLiteBackend, SQLiteDBPath: ""}, wantErr: true},
		{name: "unknown", config: Config{Type: "sheets"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			if tt.name == "sqlite" {
				cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "fintrack.db")
			}

			res, err := NewFactory(nil).CreateBackend(context.Background(), cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			t.Cleanup(func() {
				if err := res.Cleanup(); err != nil {
					t.Errorf("cleanup: %v", err)
				}
			})

			if (res.Tracker != nil) != tt.wantTracker {
				t.Fatalf("tracker presence = %v, want %v", res.Tracker != nil, tt.wantTracker)
			}

			g, err := res.Service.CreatePaymentGroup(context.Background(), core.PaymentGroupInput{User: "u1", Name: "Wallet"})
			if err != nil || g.ID == "" {
				t.Fatalf("service should be usable, got %+v err=%v", g, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:       "sqlite",
		SQLiteDBPath:      "/tmp/x.db",
		AMQPURL:           "amqp://localhost/",
		AMQPExchange:      "fintrack",
		AMQPQueue:         "sync",
		AnalyticsCacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" || cfg.AMQPQueue != "sync" || cfg.AnalyticsCacheTTL != time.Minute {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestKinds(t *testing.T) {
	for _, k := range []Kind{"sqlite", "memory"} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("sheets").Valid() {
		t.Fatal("sheets is an export target, not a backend")
	}
}
