// Package memory is a process-local store used for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	seq     int64
	txs     map[string]storedTx
	groups  map[string]*core.PaymentGroup
	methods map[string]core.PaymentMethod
}

// storedTx keeps ids only; names are resolved on read so renames show up.
type storedTx struct {
	tx    core.Transaction
	order int64
}

func New() *Store {
	return &Store{
		txs:     make(map[string]storedTx),
		groups:  make(map[string]*core.PaymentGroup),
		methods: make(map[string]core.PaymentMethod),
	}
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]storedTx, 0)
	for _, st := range s.txs {
		if st.tx.User == userID {
			rows = append(rows, st)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].tx.Date.Equal(rows[j].tx.Date.Time) {
			return rows[i].tx.Date.After(rows[j].tx.Date.Time)
		}
		return rows[i].order > rows[j].order
	})

	out := make([]core.Transaction, 0, len(rows))
	for _, st := range rows {
		out = append(out, s.resolve(st.tx))
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.NotFound("Transaction", id)
	}
	return s.resolve(st.tx), nil
}

func (s *Store) CreateTransaction(_ context.Context, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	group, method, err := s.lookupPair(in.User, in.PaymentGroup, in.PaymentMethod)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := in.Build(uuid.NewString(), group.Ref(), method.Ref())
	s.seq++
	s.txs[tx.ID] = storedTx{tx: tx, order: s.seq}
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	if err := patch.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.NotFound("Transaction", id)
	}
	tx := st.tx
	if patch.PaymentGroup != nil {
		group, method, err := s.lookupPair(tx.User, *patch.PaymentGroup, *patch.PaymentMethod)
		if err != nil {
			return core.Transaction{}, err
		}
		tx.PaymentGroup, tx.PaymentMethod = group.Ref(), method.Ref()
	}
	patch.Apply(&tx)
	st.tx = tx
	s.txs[id] = st
	return s.resolve(tx), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return core.NotFound("Transaction", id)
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) ListPaymentGroups(_ context.Context, userID string) ([]core.PaymentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PaymentGroup, 0)
	for _, g := range s.groups {
		if g.User == userID {
			out = append(out, copyGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetPaymentGroup(_ context.Context, id string) (core.PaymentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return core.PaymentGroup{}, core.NotFound("Group", id)
	}
	return copyGroup(g), nil
}

func (s *Store) GetPaymentMethod(_ context.Context, id string) (core.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.methods[id]
	if !ok {
		return core.PaymentMethod{}, core.NotFound("Payment method", id)
	}
	return m, nil
}

// MethodsForGroup returns the group's methods in the order they were added.
func (s *Store) MethodsForGroup(_ context.Context, groupID string) ([]core.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, core.NotFound("Group", groupID)
	}
	out := make([]core.PaymentMethod, 0, len(g.Methods))
	for _, id := range g.Methods {
		if m, ok := s.methods[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) CreatePaymentGroup(_ context.Context, in core.PaymentGroupInput) (core.PaymentGroup, error) {
	if err := in.Validate(); err != nil {
		return core.PaymentGroup{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.TrimSpace(in.Name)
	for _, g := range s.groups {
		if g.User == in.User && strings.EqualFold(g.Name, name) {
			return core.PaymentGroup{}, &core.ValidationError{Field: "name", Message: "Payment group already exists"}
		}
	}
	g := &core.PaymentGroup{
		ID:          uuid.NewString(),
		User:        in.User,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Methods:     []string{},
	}
	s.groups[g.ID] = g
	return copyGroup(g), nil
}

func (s *Store) CreatePaymentMethod(_ context.Context, in core.PaymentMethodInput) (core.PaymentMethod, error) {
	if err := in.Validate(); err != nil {
		return core.PaymentMethod{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[in.Group]
	if !ok || g.User != in.User {
		return core.PaymentMethod{}, core.NotFound("Group", in.Group)
	}
	m := in.Build(uuid.NewString())
	s.methods[m.ID] = m
	g.Methods = append(g.Methods, m.ID)
	return m, nil
}

// lookupPair must be called with s.mu held.
func (s *Store) lookupPair(user, groupID, methodID string) (core.PaymentGroup, core.PaymentMethod, error) {
	g, ok := s.groups[groupID]
	if !ok {
		return core.PaymentGroup{}, core.PaymentMethod{}, &core.ValidationError{Field: "paymentGroup", Message: "Payment group not found"}
	}
	m, ok := s.methods[methodID]
	if !ok {
		return core.PaymentGroup{}, core.PaymentMethod{}, &core.ValidationError{Field: "paymentMethod", Message: "Payment method not found"}
	}
	if err := core.CheckMethodInGroup(user, *g, m); err != nil {
		return core.PaymentGroup{}, core.PaymentMethod{}, err
	}
	return *g, m, nil
}

// resolve must be called with s.mu held.
func (s *Store) resolve(tx core.Transaction) core.Transaction {
	if g, ok := s.groups[tx.PaymentGroup.ID]; ok {
		tx.PaymentGroup.Name = g.Name
	}
	if m, ok := s.methods[tx.PaymentMethod.ID]; ok {
		tx.PaymentMethod.Name = m.Name
	}
	return tx
}

func copyGroup(g *core.PaymentGroup) core.PaymentGroup {
	out := *g
	out.Methods = append([]string(nil), g.Methods...)
	if out.Methods == nil {
		out.Methods = []string{}
	}
	return out
}
