// Package ports declares the collaborator interfaces the core consumes.
package ports

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionReader lists and fetches transactions.
	TransactionReader interface {
		// ListTransactions returns the user's transactions, newest first, with
		// group and method resolved to {id, name}.
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	}

	// TransactionWriter creates, updates and deletes transactions. Unknown ids
	// yield a *core.NotFoundError.
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	TransactionStore interface {
		TransactionReader
		TransactionWriter
	}

	// MethodSource returns the payment methods of one group.
	MethodSource interface {
		MethodsForGroup(ctx context.Context, groupID string) ([]core.PaymentMethod, error)
	}

	PaymentGroupReader interface {
		MethodSource
		ListPaymentGroups(ctx context.Context, userID string) ([]core.PaymentGroup, error)
		GetPaymentGroup(ctx context.Context, id string) (core.PaymentGroup, error)
		GetPaymentMethod(ctx context.Context, id string) (core.PaymentMethod, error)
	}

	PaymentGroupWriter interface {
		CreatePaymentGroup(ctx context.Context, in core.PaymentGroupInput) (core.PaymentGroup, error)
		// CreatePaymentMethod stores the method and appends it to its group.
		CreatePaymentMethod(ctx context.Context, in core.PaymentMethodInput) (core.PaymentMethod, error)
	}

	PaymentGroupStore interface {
		PaymentGroupReader
		PaymentGroupWriter
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionStore
		PaymentGroupStore
	}

	// SyncTracker is implemented by stores that remember which transactions
	// still need to be mirrored to the spreadsheet.
	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]string, error)
		MarkSynced(ctx context.Context, id string, at time.Time) error
	}

	// TransactionExporter mirrors transactions into an external sheet.
	TransactionExporter interface {
		UpsertTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
		DeleteTransaction(ctx context.Context, id string) error
	}
)
