package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// SyncWorker mirrors transactions from the store into the spreadsheet.
type SyncWorker struct {
	store     ports.TransactionReader
	tracker   ports.SyncTracker
	exporter  ports.TransactionExporter
	batchSize int
}

// NewSyncWorker builds a worker. tracker may be nil when the store does not
// remember sync state; pending resyncs are then skipped.
func NewSyncWorker(store ports.TransactionReader, tracker ports.SyncTracker, exporter ports.TransactionExporter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		tracker:   tracker,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single transaction event from AMQP
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"id", event.ID,
		"action", event.Action,
		"version", event.Version)

	if event.Action == amqp.ActionDeleted {
		return w.deleteRow(ctx, event.ID)
	}

	tx, err := w.store.GetTransaction(ctx, event.ID)
	if core.IsNotFound(err) {
		// Deleted before we got to it; make sure no stale row survives.
		slog.InfoContext(ctx, "Transaction no longer exists, removing sheet row", "id", event.ID)
		return w.deleteRow(ctx, event.ID)
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.syncTransaction(ctx, tx)
}

// ProcessPending syncs transactions the store still marks as pending. It is a
// backup for lost AMQP messages and returns how many rows were synced.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger pending pass when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	if w.tracker == nil {
		return 0, nil
	}
	ids, err := w.tracker.PendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(ids))

	synced := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		tx, err := w.store.GetTransaction(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", id, "error", err)
			continue
		}
		if err := w.syncTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", id, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

func (w *SyncWorker) syncTransaction(ctx context.Context, tx core.Transaction) error {
	ref, err := w.exporter.UpsertTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("upsert to sheets: %w", err)
	}

	if w.tracker != nil {
		if err := w.tracker.MarkSynced(ctx, tx.ID, time.Now()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark as synced", "id", tx.ID, "error", err)
			// Don't return error here - the sync actually worked
		}
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", tx.ID,
		"sheets_ref", ref,
		"amount_cents", tx.Amount.Cents)

	return nil
}

func (w *SyncWorker) deleteRow(ctx context.Context, id string) error {
	if err := w.exporter.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete from sheets: %w", err)
	}
	slog.InfoContext(ctx, "Successfully deleted transaction row", "id", id)
	return nil
}
