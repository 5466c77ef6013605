package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

type fakeStore struct {
	txs map[string]core.Transaction
}

func (s *fakeStore) ListTransactions(context.Context, string) ([]core.Transaction, error) {
	return nil, nil
}

func (s *fakeStore) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.NotFound("Transaction", id)
	}
	return tx, nil
}

type fakeTracker struct {
	pending []string
	synced  map[string]time.Time
}

func (t *fakeTracker) PendingSync(_ context.Context, limit int) ([]string, error) {
	if len(t.pending) > limit {
		return t.pending[:limit], nil
	}
	return t.pending, nil
}

func (t *fakeTracker) MarkSynced(_ context.Context, id string, at time.Time) error {
	t.synced[id] = at
	return nil
}

type fakeExporter struct {
	mu       sync.Mutex
	upserted []string
	deleted  []string
	failOn   string
}

func (e *fakeExporter) UpsertTransaction(_ context.Context, tx core.Transaction) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tx.ID == e.failOn {
		return "", errors.New("quota exceeded")
	}
	e.upserted = append(e.upserted, tx.ID)
	return "Transactions!A2", nil
}

func (e *fakeExporter) DeleteTransaction(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = append(e.deleted, id)
	return nil
}

func newWorker() (*SyncWorker, *fakeStore, *fakeTracker, *fakeExporter) {
	store := &fakeStore{txs: map[string]core.Transaction{
		"t1": {ID: "t1", Name: "Lunch", Amount: core.Money{Cents: 900}},
		"t2": {ID: "t2", Name: "Rent", Amount: core.Money{Cents: 90000}},
	}}
	tracker := &fakeTracker{synced: map[string]time.Time{}}
	exporter := &fakeExporter{}
	return NewSyncWorker(store, tracker, exporter, 10), store, tracker, exporter
}

func TestHandleEvent(t *testing.T) {
	w, _, tracker, exporter := newWorker()
	ctx := context.Background()

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent("t1", "u1", amqp.ActionCreated)); err != nil {
		t.Fatalf("created: %v", err)
	}
	if len(exporter.upserted) != 1 || exporter.upserted[0] != "t1" {
		t.Fatalf("expected t1 upserted, got %v", exporter.upserted)
	}
	if _, ok := tracker.synced["t1"]; !ok {
		t.Fatal("t1 should be marked synced")
	}

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent("t1", "u1", amqp.ActionDeleted)); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent("gone", "u1", amqp.ActionUpdated)); err != nil {
		t.Fatalf("update of a missing row: %v", err)
	}
	if len(exporter.deleted) != 2 || exporter.deleted[1] != "gone" {
		t.Fatalf("expected both rows deleted, got %v", exporter.deleted)
	}

	exporter.failOn = "t2"
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent("t2", "u1", amqp.ActionUpdated)); err == nil {
		t.Fatal("exporter failure should be returned so the message is requeued")
	}
	if _, ok := tracker.synced["t2"]; ok {
		t.Fatal("failed sync must not be marked synced")
	}
}

func TestProcessPending(t *testing.T) {
	w, _, tracker, exporter := newWorker()
	tracker.pending = []string{"t1", "missing", "t2"}

	synced, err := w.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if synced != 2 || len(exporter.upserted) != 2 {
		t.Fatalf("expected two synced rows, got %d (%v)", synced, exporter.upserted)
	}

	noTracker := NewSyncWorker(&fakeStore{}, nil, exporter, 0)
	if n, err := noTracker.ProcessPending(context.Background()); n != 0 || err != nil {
		t.Fatalf("without a tracker nothing should happen, got %d %v", n, err)
	}
	if err := noTracker.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
}

type countingSyncer struct{ calls int32 }

func (c *countingSyncer) ProcessPending(context.Context) (int, error) {
	atomic.AddInt32(&c.calls, 1)
	return 0, nil
}

func TestProcessorLifecycle(t *testing.T) {
	syncer := &countingSyncer{}
	p := NewProcessor(syncer, ProcessorConfig{PollInterval: 10 * time.Millisecond})
	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Fatal("second Start should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&syncer.calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&syncer.calls) == 0 {
		t.Fatal("processor never ran a pass")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatal("processor should be stopped")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop when not running: %v", err)
	}
}

func TestDefaultProcessorConfig(t *testing.T) {
	p := NewProcessor(&countingSyncer{}, ProcessorConfig{})
	if p.config.PollInterval != 30*time.Second {
		t.Fatalf("expected default poll interval, got %v", p.config.PollInterval)
	}
}
