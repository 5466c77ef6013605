package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/ports"
)

// RecentLimit is how many transactions the dashboard shows.
const RecentLimit = 5

// EventPublisher sends transaction change events.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
}

// TransactionService orchestrates transaction and payment group operations
// across the store, the analytics memo and the event publisher.
type TransactionService struct {
	store     ports.Store
	publisher EventPublisher
	memo      *analytics.Memo
}

// NewTransactionService wires the service. publisher may be nil, in which case
// no change events are sent. memo may be nil for an uncached one.
func NewTransactionService(store ports.Store, publisher EventPublisher, memo *analytics.Memo) *TransactionService {
	if memo == nil {
		memo = analytics.NewMemo(nil)
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		memo:      memo,
	}
}

// Store exposes the backing store, e.g. for a form controller.
func (s *TransactionService) Store() ports.Store {
	return s.store
}

// List returns the user's transactions narrowed by c, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, c filter.Criteria) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return c.Apply(txs), nil
}

// Get returns a transaction owned by userID. Transactions of other users are
// reported as not found.
func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.User != userID {
		return core.Transaction{}, core.NotFound("Transaction", id)
	}
	return tx, nil
}

// CreateTransaction saves a transaction and publishes a created event.
func (s *TransactionService) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	tx, err := s.store.CreateTransaction(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, tx.ID, tx.User, amqp.ActionCreated)
	return tx, nil
}

// UpdateTransaction applies patch to a transaction owned by userID.
func (s *TransactionService) UpdateTransaction(ctx context.Context, userID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.store.UpdateTransaction(ctx, id, patch)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, tx.ID, tx.User, amqp.ActionUpdated)
	return tx, nil
}

// DeleteTransaction removes a transaction owned by userID.
func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, userID, amqp.ActionDeleted)
	return nil
}

// Analytics aggregates the user's transactions after filtering.
func (s *TransactionService) Analytics(ctx context.Context, userID string, c filter.Criteria) (analytics.Snapshot, error) {
	txs, err := s.List(ctx, userID, c)
	if err != nil {
		return analytics.Snapshot{}, err
	}
	return s.memo.Snapshot(txs), nil
}

// Dashboard is the landing page payload.
type Dashboard struct {
	Analytics analytics.Snapshot  `json:"analytics"`
	Groups    []core.PaymentGroup `json:"paymentGroups"`
	Recent    []core.Transaction  `json:"recentTransactions"`
}

// Dashboard loads transactions and payment groups concurrently.
func (s *TransactionService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	var (
		txs    []core.Transaction
		groups []core.PaymentGroup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		groups, err = s.store.ListPaymentGroups(gctx, userID)
		if err != nil {
			return fmt.Errorf("list payment groups: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	recent := txs
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	return Dashboard{
		Analytics: s.memo.Snapshot(txs),
		Groups:    groups,
		Recent:    append([]core.Transaction{}, recent...),
	}, nil
}

func (s *TransactionService) ListPaymentGroups(ctx context.Context, userID string) ([]core.PaymentGroup, error) {
	groups, err := s.store.ListPaymentGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list payment groups: %w", err)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

// PaymentGroup returns a group owned by userID together with its methods,
// redacted for display.
func (s *TransactionService) PaymentGroup(ctx context.Context, userID, id string) (core.PaymentGroup, []core.PaymentMethod, error) {
	g, err := s.store.GetPaymentGroup(ctx, id)
	if err != nil {
		return core.PaymentGroup{}, nil, err
	}
	if g.User != userID {
		return core.PaymentGroup{}, nil, core.NotFound("Group", id)
	}
	methods, err := s.store.MethodsForGroup(ctx, id)
	if err != nil {
		return core.PaymentGroup{}, nil, err
	}
	return g, redactAll(methods), nil
}

func (s *TransactionService) CreatePaymentGroup(ctx context.Context, in core.PaymentGroupInput) (core.PaymentGroup, error) {
	return s.store.CreatePaymentGroup(ctx, in)
}

// CreatePaymentMethod adds a method to one of the user's groups. The returned
// method is redacted.
func (s *TransactionService) CreatePaymentMethod(ctx context.Context, in core.PaymentMethodInput) (core.PaymentMethod, error) {
	m, err := s.store.CreatePaymentMethod(ctx, in)
	if err != nil {
		return core.PaymentMethod{}, err
	}
	return m.Redacted(), nil
}

func (s *TransactionService) publish(ctx context.Context, id, user string, action amqp.Action) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping transaction event",
			"id", id, "action", action)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(id, user, action)); err != nil {
		// The write already succeeded; the worker picks the row up on its next resync.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", id, "action", action, "error", err)
	}
}

func redactAll(methods []core.PaymentMethod) []core.PaymentMethod {
	out := make([]core.PaymentMethod, len(methods))
	for i, m := range methods {
		out[i] = m.Redacted()
	}
	return out
}

// Close closes the store and the publisher when they hold resources.
func (s *TransactionService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}

// Writer returns a TransactionWriter bound to userID. Writes go through the
// service so ownership checks and change events apply.
func (s *TransactionService) Writer(userID string) ports.TransactionWriter {
	return userWriter{svc: s, user: userID}
}

type userWriter struct {
	svc  *TransactionService
	user string
}

func (w userWriter) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	in.User = w.user
	return w.svc.CreateTransaction(ctx, in)
}

func (w userWriter) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	return w.svc.UpdateTransaction(ctx, w.user, id, patch)
}

func (w userWriter) DeleteTransaction(ctx context.Context, id string) error {
	return w.svc.DeleteTransaction(ctx, w.user, id)
}
