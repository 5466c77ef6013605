package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/session"
)

const testFixture = `
user: u1
groups:
  - name: Bank
    methods:
      - name: Visa
        kind: card
        details:
          cardNumber: "4111111111111234"
          cardHolderName: Test User
          expiryDate: "12/29"
          cvv: "123"
          company: Visa
transactions:
  - group: Bank
    method: Visa
    name: Lunch
    amount: "12.50"
    category: Food
    type: debit
    date: 2025-03-14
`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "fintrack.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("JWT_SECRET", "cli-test-secret-000000")
	t.Setenv("JWT_ISSUER", "fintrack")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	a.close()
	return out.String(), err
}

func TestSeedReportExport(t *testing.T) {
	dir := setupEnv(t)
	fixture := filepath.Join(dir, "fixture.yaml")
	if err := os.WriteFile(fixture, []byte(testFixture), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "seed", "--file", fixture)
	if err != nil || !strings.Contains(out, "Seeded 1 groups, 1 methods and 1 transactions for u1") {
		t.Fatalf("seed: %v %q", err, out)
	}

	out, err = run(t, "report", "--user", "u1")
	if err != nil || !strings.Contains(out, "Food") || !strings.Contains(out, "12.50") {
		t.Fatalf("report: %v\n%s", err, out)
	}

	csvPath := filepath.Join(dir, "out", "tx.csv")
	if _, err := run(t, "export", "--user", "u1", "--out", csvPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), ",2025-03-14,Lunch,debit,Food,12.50,Bank,Visa,") {
		t.Fatalf("unexpected csv:\n%s", data)
	}

	out, err = run(t, "chart", "--user", "u1", "--out", filepath.Join(dir, "charts"))
	if err != nil || !strings.Contains(out, "monthly.png") {
		t.Fatalf("chart: %v %q", err, out)
	}
	if _, err := os.Stat(filepath.Join(dir, "charts", "categories.png")); err != nil {
		t.Fatalf("categories chart missing: %v", err)
	}
}

func TestAddAndEdit(t *testing.T) {
	dir := setupEnv(t)
	fixture := filepath.Join(dir, "fixture.yaml")
	if err := os.WriteFile(fixture, []byte(testFixture), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "seed", "--file", fixture); err != nil {
		t.Fatal(err)
	}

	base := []string{"add", "--user", "u1", "--group", "bank", "--method", "visa", "--category", "Food", "--name", "Dinner", "--type", "debit"}

	_, err := run(t, append(base, "--amount", "abc")...)
	if err == nil || !strings.Contains(err.Error(), "Please enter a valid amount") {
		t.Fatalf("expected amount rejection, got %v", err)
	}

	_, err = run(t, "add", "--user", "u1", "--group", "bank", "--amount", "5", "--category", "Food", "--name", "Snack", "--type", "debit")
	if err == nil || !strings.Contains(err.Error(), "Please select a payment method") {
		t.Fatalf("expected method rejection, got %v", err)
	}

	out, err := run(t, append(base, "--amount", "20", "--date", "2025-03-20")...)
	if err != nil || !strings.HasPrefix(out, "Created ") {
		t.Fatalf("add: %v %q", err, out)
	}
	id := strings.TrimSuffix(strings.Fields(out)[1], ":")

	out, err = run(t, "edit", id, "--user", "u1", "--amount", "22.75")
	if err != nil || !strings.Contains(out, "Dinner debit 22.75 on 2025-03-20") {
		t.Fatalf("edit: %v %q", err, out)
	}

	if _, err := run(t, "edit", id, "--user", "u2", "--amount", "1"); err == nil || !strings.Contains(err.Error(), "Transaction not found") {
		t.Fatalf("foreign edit should fail, got %v", err)
	}
}

func TestToken(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "token"); err == nil {
		t.Fatal("token without --user should fail")
	}

	out, err := run(t, "token", "--user", "u1", "--email", "u1@example.com")
	if err != nil {
		t.Fatal(err)
	}
	sess, err := session.NewVerifier("cli-test-secret-000000", "fintrack").Verify(strings.TrimSpace(out))
	if err != nil || sess.UserID != "u1" || sess.Email != "u1@example.com" {
		t.Fatalf("verify: %v %+v", err, sess)
	}
}
