package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"
)

func seed(t *testing.T, s *Store, user string) (core.PaymentGroup, core.PaymentMethod) {
	t.Helper()
	ctx := context.Background()
	g, err := s.CreatePaymentGroup(ctx, core.PaymentGroupInput{User: user, Name: "UPI"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	m, err := s.CreatePaymentMethod(ctx, core.PaymentMethodInput{
		User: user, Group: g.ID, Name: "GPay", Kind: core.KindUPI,
		Details: core.MethodDetails{UPIID: "me@okbank"},
	})
	if err != nil {
		t.Fatalf("create method: %v", err)
	}
	return g, m
}

func input(user string, g core.PaymentGroup, m core.PaymentMethod, name string, date core.Date) core.TransactionInput {
	return core.TransactionInput{
		User: user, PaymentGroup: g.ID, PaymentMethod: m.ID, Name: name,
		Amount: core.Money{Cents: 1000}, Category: "Food", Type: core.Debit, Date: date,
	}
}

func TestMethodCreationUpdatesBothSides(t *testing.T) {
	s := New()
	ctx := context.Background()
	g, m := seed(t, s, "u1")

	if m.Group != g.ID || !m.Active || m.Kind != core.KindUPI {
		t.Fatalf("unexpected method %+v", m)
	}
	got, err := s.GetPaymentGroup(ctx, g.ID)
	if err != nil || !got.HasMethod(m.ID) {
		t.Fatalf("group should list the new method: %+v err=%v", got, err)
	}
	methods, err := s.MethodsForGroup(ctx, g.ID)
	if err != nil || len(methods) != 1 || methods[0].ID != m.ID {
		t.Fatalf("unexpected methods %v err=%v", methods, err)
	}

	if _, err := s.CreatePaymentMethod(ctx, core.PaymentMethodInput{
		User: "u2", Group: g.ID, Name: "Other", Kind: core.KindUPI,
		Details: core.MethodDetails{UPIID: "x@y"},
	}); !core.IsNotFound(err) {
		t.Fatalf("foreign group should be not found, got %v", err)
	}
	if _, err := s.CreatePaymentGroup(ctx, core.PaymentGroupInput{User: "u1", Name: "upi"}); !core.IsValidation(err) {
		t.Fatalf("duplicate group name should fail, got %v", err)
	}
}

func TestTransactionsLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	g, m := seed(t, s, "u1")

	older, err := s.CreateTransaction(ctx, input("u1", g, m, "Lunch", core.NewDate(2025, 1, 5)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	newer, err := s.CreateTransaction(ctx, input("u1", g, m, "Dinner", core.NewDate(2025, 2, 1)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateTransaction(ctx, input("u2", g, m, "Theirs", core.NewDate(2025, 2, 1))); !core.IsValidation(err) {
		t.Fatalf("foreign group must be rejected, got %v", err)
	}

	list, err := s.ListTransactions(ctx, "u1")
	if err != nil || len(list) != 2 {
		t.Fatalf("unexpected list %v err=%v", list, err)
	}
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("expected newest first")
	}
	if list[0].PaymentGroup.Name != "UPI" || list[0].PaymentMethod.Name != "GPay" {
		t.Fatalf("references should be resolved, got %+v", list[0])
	}

	name := "Late lunch"
	updated, err := s.UpdateTransaction(ctx, older.ID, core.TransactionPatch{Name: &name})
	if err != nil || updated.Name != "Late lunch" || updated.Amount.Cents != 1000 {
		t.Fatalf("partial update failed: %+v err=%v", updated, err)
	}
	if _, err := s.UpdateTransaction(ctx, "missing", core.TransactionPatch{Name: &name}); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := s.DeleteTransaction(ctx, older.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, older.ID); !core.IsNotFound(err) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, older.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateRejectsMethodFromAnotherGroup(t *testing.T) {
	s := New()
	ctx := context.Background()
	g1, m1 := seed(t, s, "u1")
	g2, err := s.CreatePaymentGroup(ctx, core.PaymentGroupInput{User: "u1", Name: "Cards"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	tx, err := s.CreateTransaction(ctx, input("u1", g1, m1, "Lunch", core.NewDate(2025, 1, 5)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{PaymentGroup: &g2.ID, PaymentMethod: &m1.ID}); !core.IsValidation(err) {
		t.Fatalf("mismatched group and method should fail, got %v", err)
	}
}
