package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

const dateLayout = time.RFC3339

var (
	_ ports.Store       = (*SQLiteRepository)(nil)
	_ ports.SyncTracker = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const selectTransaction = `
SELECT t.id, t.user_id, t.group_id, COALESCE(g.name, ''), t.method_id, COALESCE(m.name, ''),
       t.name, t.amount_cents, t.category, t.type, t.occurred_at, t.notes
FROM transactions t
LEFT JOIN payment_groups g ON g.id = t.group_id
LEFT JOIN payment_methods m ON m.id = t.method_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx         core.Transaction
		typ, date  string
		amountCent int64
	)
	err := row.Scan(&tx.ID, &tx.User, &tx.PaymentGroup.ID, &tx.PaymentGroup.Name,
		&tx.PaymentMethod.ID, &tx.PaymentMethod.Name, &tx.Name, &amountCent,
		&tx.Category, &typ, &date, &tx.Notes)
	if err != nil {
		return core.Transaction{}, err
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	tx.Date = core.Date{Time: t}
	tx.Type = core.TxType(typ)
	tx.Amount = core.Money{Cents: amountCent}
	return tx, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE t.user_id = ? ORDER BY t.occurred_at DESC, t.rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return r.getTransaction(ctx, r.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) getTransaction(ctx context.Context, q querier, id string) (core.Transaction, error) {
	tx, err := scanTransaction(q.QueryRowContext(ctx, selectTransaction+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFound("Transaction", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback()

	group, method, err := r.lookupPair(ctx, dbtx, in.User, in.PaymentGroup, in.PaymentMethod)
	if err != nil {
		return core.Transaction{}, err
	}

	tx := in.Build(uuid.NewString(), group.Ref(), method.Ref())
	_, err = dbtx.ExecContext(ctx, `
INSERT INTO transactions (id, user_id, group_id, method_id, name, amount_cents, category, type, occurred_at, notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.User, tx.PaymentGroup.ID, tx.PaymentMethod.ID, tx.Name, tx.Amount.Cents,
		tx.Category, string(tx.Type), tx.Date.UTC().Format(dateLayout), tx.Notes)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if err := dbtx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"amount_cents", tx.Amount.Cents,
		"type", tx.Type)

	return tx, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	if err := patch.Validate(); err != nil {
		return core.Transaction{}, err
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback()

	tx, err := r.getTransaction(ctx, dbtx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if patch.PaymentGroup != nil {
		group, method, err := r.lookupPair(ctx, dbtx, tx.User, *patch.PaymentGroup, *patch.PaymentMethod)
		if err != nil {
			return core.Transaction{}, err
		}
		tx.PaymentGroup, tx.PaymentMethod = group.Ref(), method.Ref()
	}
	patch.Apply(&tx)

	_, err = dbtx.ExecContext(ctx, `
UPDATE transactions
SET group_id = ?, method_id = ?, name = ?, amount_cents = ?, category = ?, type = ?, occurred_at = ?, notes = ?,
    version = version + 1, sync_state = 'pending'
WHERE id = ?`,
		tx.PaymentGroup.ID, tx.PaymentMethod.ID, tx.Name, tx.Amount.Cents, tx.Category,
		string(tx.Type), tx.Date.UTC().Format(dateLayout), tx.Notes, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := dbtx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.NotFound("Transaction", id)
	}
	return nil
}

func (r *SQLiteRepository) ListPaymentGroups(ctx context.Context, userID string) ([]core.PaymentGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT g.id, g.user_id, g.name, g.description, COALESCE(m.id, '')
FROM payment_groups g
LEFT JOIN payment_methods m ON m.group_id = g.id
WHERE g.user_id = ?
ORDER BY g.name, m.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list payment groups: %w", err)
	}
	defer rows.Close()

	out := make([]core.PaymentGroup, 0)
	index := make(map[string]int)
	for rows.Next() {
		var g core.PaymentGroup
		var methodID string
		if err := rows.Scan(&g.ID, &g.User, &g.Name, &g.Description, &methodID); err != nil {
			return nil, fmt.Errorf("scan payment group: %w", err)
		}
		i, ok := index[g.ID]
		if !ok {
			g.Methods = []string{}
			out = append(out, g)
			i = len(out) - 1
			index[g.ID] = i
		}
		if methodID != "" {
			out[i].Methods = append(out[i].Methods, methodID)
		}
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetPaymentGroup(ctx context.Context, id string) (core.PaymentGroup, error) {
	return r.getPaymentGroup(ctx, r.db, id)
}

type queryer interface {
	querier
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SQLiteRepository) getPaymentGroup(ctx context.Context, q queryer, id string) (core.PaymentGroup, error) {
	g := core.PaymentGroup{Methods: []string{}}
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, name, description FROM payment_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.User, &g.Name, &g.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentGroup{}, core.NotFound("Group", id)
	}
	if err != nil {
		return core.PaymentGroup{}, fmt.Errorf("get payment group: %w", err)
	}

	rows, err := q.QueryContext(ctx, `SELECT id FROM payment_methods WHERE group_id = ? ORDER BY rowid`, id)
	if err != nil {
		return core.PaymentGroup{}, fmt.Errorf("list group methods: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mid string
		if err := rows.Scan(&mid); err != nil {
			return core.PaymentGroup{}, fmt.Errorf("scan method id: %w", err)
		}
		g.Methods = append(g.Methods, mid)
	}
	return g, rows.Err()
}

const selectMethod = `SELECT id, user_id, group_id, name, kind, active, details FROM payment_methods`

func scanMethod(row rowScanner) (core.PaymentMethod, error) {
	var (
		m       core.PaymentMethod
		kind    string
		active  int
		details string
	)
	if err := row.Scan(&m.ID, &m.User, &m.Group, &m.Name, &kind, &active, &details); err != nil {
		return core.PaymentMethod{}, err
	}
	m.Kind = core.MethodKind(kind)
	m.Active = active != 0
	if err := json.Unmarshal([]byte(details), &m.Details); err != nil {
		return core.PaymentMethod{}, fmt.Errorf("decode method details: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) GetPaymentMethod(ctx context.Context, id string) (core.PaymentMethod, error) {
	return r.getPaymentMethod(ctx, r.db, id)
}

func (r *SQLiteRepository) getPaymentMethod(ctx context.Context, q querier, id string) (core.PaymentMethod, error) {
	m, err := scanMethod(q.QueryRowContext(ctx, selectMethod+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentMethod{}, core.NotFound("Payment method", id)
	}
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("get payment method: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) MethodsForGroup(ctx context.Context, groupID string) ([]core.PaymentMethod, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM payment_groups WHERE id = ?`, groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("Group", groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("check group: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, selectMethod+` WHERE group_id = ? ORDER BY rowid`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list methods: %w", err)
	}
	defer rows.Close()

	out := make([]core.PaymentMethod, 0)
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan method: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreatePaymentGroup(ctx context.Context, in core.PaymentGroupInput) (core.PaymentGroup, error) {
	if err := in.Validate(); err != nil {
		return core.PaymentGroup{}, err
	}
	g := core.PaymentGroup{
		ID:          uuid.NewString(),
		User:        in.User,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Methods:     []string{},
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_groups (id, user_id, name, description) VALUES (?, ?, ?, ?)`,
		g.ID, g.User, g.Name, g.Description)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.PaymentGroup{}, &core.ValidationError{Field: "name", Message: "Payment group already exists"}
		}
		return core.PaymentGroup{}, fmt.Errorf("insert payment group: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) CreatePaymentMethod(ctx context.Context, in core.PaymentMethodInput) (core.PaymentMethod, error) {
	if err := in.Validate(); err != nil {
		return core.PaymentMethod{}, err
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback()

	var owner string
	err = dbtx.QueryRowContext(ctx, `SELECT user_id FROM payment_groups WHERE id = ?`, in.Group).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != in.User) {
		return core.PaymentMethod{}, core.NotFound("Group", in.Group)
	}
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("check group: %w", err)
	}

	m := in.Build(uuid.NewString())
	details, err := json.Marshal(m.Details)
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("encode method details: %w", err)
	}
	active := 0
	if m.Active {
		active = 1
	}
	_, err = dbtx.ExecContext(ctx,
		`INSERT INTO payment_methods (id, user_id, group_id, name, kind, active, details) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.User, m.Group, m.Name, string(m.Kind), active, string(details))
	if err != nil {
		return core.PaymentMethod{}, fmt.Errorf("insert payment method: %w", err)
	}
	if err := dbtx.Commit(); err != nil {
		return core.PaymentMethod{}, fmt.Errorf("commit: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) lookupPair(ctx context.Context, q queryer, user, groupID, methodID string) (core.PaymentGroup, core.PaymentMethod, error) {
	g, err := r.getPaymentGroup(ctx, q, groupID)
	if core.IsNotFound(err) {
		return core.PaymentGroup{}, core.PaymentMethod{}, &core.ValidationError{Field: "paymentGroup", Message: "Payment group not found"}
	}
	if err != nil {
		return core.PaymentGroup{}, core.PaymentMethod{}, err
	}
	m, err := r.getPaymentMethod(ctx, q, methodID)
	if core.IsNotFound(err) {
		return core.PaymentGroup{}, core.PaymentMethod{}, &core.ValidationError{Field: "paymentMethod", Message: "Payment method not found"}
	}
	if err != nil {
		return core.PaymentGroup{}, core.PaymentMethod{}, err
	}
	if err := core.CheckMethodInGroup(user, g, m); err != nil {
		return core.PaymentGroup{}, core.PaymentMethod{}, err
	}
	return g, m, nil
}

// PendingSync returns ids of transactions not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM transactions WHERE sync_state = 'pending' ORDER BY rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_state = 'synced', synced_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}
