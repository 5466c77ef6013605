package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"
	"fintrack/internal/session"
	"fintrack/internal/storage/memory"
)

const (
	testSecret = "test-secret-0123456789"
	testIssuer = "fintrack-test"
)

type testServer struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Component: "test", Output: io.Discard})
	}
	svc := services.NewTransactionService(memory.New(), nil, nil)
	srv := NewServer(":0", svc, session.NewVerifier(testSecret, testIssuer), opts)
	t.Cleanup(func() { srv.limiter.Stop() })
	return &testServer{t: t, srv: srv}
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok, err := session.NewToken(testSecret, testIssuer, user, user+"@example.com", "Test User", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

func (ts *testServer) do(method, path, user string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "192.0.2.10:5555"
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(ts.t, user))
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, rec).Error
}

// seed creates a group with one method for user and returns their ids.
func (ts *testServer) seed(user string) (groupID, methodID string) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/payment-groups", user, map[string]string{"name": "Bank", "description": "Main account"})
	if rec.Code != http.StatusCreated {
		ts.t.Fatalf("create group: %d %s", rec.Code, rec.Body.String())
	}
	g := decode[core.PaymentGroup](ts.t, rec)

	rec = ts.do(http.MethodPost, "/api/payment-groups/"+g.ID+"/methods", user, map[string]any{
		"name": "Visa",
		"kind": "card",
		"details": map[string]string{
			"cardNumber": "4111 1111 1111 1234", "cardHolderName": "Test User",
			"expiryDate": "12/29", "cvv": "123", "company": "Visa",
		},
	})
	if rec.Code != http.StatusCreated {
		ts.t.Fatalf("create method: %d %s", rec.Code, rec.Body.String())
	}
	m := decode[core.PaymentMethod](ts.t, rec)
	return g.ID, m.ID
}

func txBody(group, method string) map[string]string {
	return map[string]string{
		"paymentGroup":  group,
		"paymentMethod": method,
		"amount":        "12.50",
		"category":      "Food",
		"date":          "2025-03-14",
		"name":          "Lunch",
		"type":          "debit",
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := ts.do(http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}

	rec := ts.do(http.MethodGet, "/healthz", "", nil)
	for _, h := range []string{"X-Content-Type-Options", "Content-Security-Policy", "X-Request-ID"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(http.MethodGet, "/api/session", "", nil)
	if rec.Code != http.StatusUnauthorized || errorOf(t, rec) != "Authorization header required" {
		t.Fatalf("missing token: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized || errorOf(t, rr) != "Invalid or expired token" {
		t.Fatalf("bad token: %d %s", rr.Code, rr.Body.String())
	}

	other, err := session.NewToken("another-secret-000000", testIssuer, "u1", "", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	rr = httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("foreign signature should be rejected, got %d", rr.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.seed("u1")

	rec := ts.do(http.MethodGet, "/api/session", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	view := decode[session.View](t, rec)
	if view.UserID != "u1" || view.Email != "u1@example.com" || len(view.Groups) != 1 {
		t.Fatalf("unexpected session %+v", view)
	}
}

func TestPaymentGroups(t *testing.T) {
	ts := newTestServer(t, Options{})
	groupID, _ := ts.seed("u1")

	rec := ts.do(http.MethodPost, "/api/payment-groups", "u1", map[string]string{"name": "Bank"})
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "Payment group already exists" {
		t.Fatalf("duplicate group: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/api/payment-groups/"+groupID, "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get group: %d", rec.Code)
	}
	got := decode[paymentGroupResponse](t, rec)
	if len(got.Methods) != 1 || got.Methods[0].Details.CardNumber != "************1234" || got.Methods[0].Details.CVV != "" {
		t.Fatalf("method should be redacted, got %+v", got.Methods)
	}

	rec = ts.do(http.MethodGet, "/api/payment-groups/"+groupID+"/methods", "u2", nil)
	if rec.Code != http.StatusNotFound || errorOf(t, rec) != "Group not found" {
		t.Fatalf("foreign group: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodPost, "/api/payment-groups/"+groupID+"/methods", "u2", map[string]any{
		"name": "UPI", "kind": "upi", "details": map[string]string{"upiId": "x@bank"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("adding a method to a foreign group: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodPost, "/api/payment-groups/"+groupID+"/methods", "u1", map[string]any{"name": "UPI", "kind": "upi"})
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "Missing UPI ID" {
		t.Fatalf("missing details: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/api/payment-groups", "u2", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("other user should see no groups: %s", rec.Body.String())
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	ts := newTestServer(t, Options{})
	groupID, methodID := ts.seed("u1")

	tests := []struct {
		name   string
		mutate func(b map[string]string)
		want   string
	}{
		{"missing field", func(b map[string]string) { delete(b, "name") }, "Missing required fields"},
		{"bad amount", func(b map[string]string) { b["amount"] = "abc" }, "Please enter a valid amount"},
		{"zero amount", func(b map[string]string) { b["amount"] = "0" }, "Please enter a valid amount"},
		{"unknown category", func(b map[string]string) { b["category"] = "Gadgets" }, "Please select a category"},
		{"bad date", func(b map[string]string) { b["date"] = "14/03/2025" }, "Please select a date"},
		{"bad type", func(b map[string]string) { b["type"] = "transfer" }, "Please select transaction type"},
		{"method not in group", func(b map[string]string) { b["paymentMethod"] = "nope" }, "Please select a payment method"},
		{"unknown group", func(b map[string]string) { b["paymentGroup"] = "nope" }, "Payment group not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := txBody(groupID, methodID)
			tt.mutate(body)
			rec := ts.do(http.MethodPost, "/api/transactions", "u1", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if got := errorOf(t, rec); got != tt.want {
				t.Fatalf("error = %q, want %q", got, tt.want)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token(t, "u1"))
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body should be 400, got %d", rec.Code)
	}
}

func TestCreateTransactionNumericAmount(t *testing.T) {
	ts := newTestServer(t, Options{})
	groupID, methodID := ts.seed("u1")

	tests := []struct {
		name   string
		amount any
		cents  int64
		errMsg string
	}{
		{name: "number", amount: 12.5, cents: 1250},
		{name: "integer", amount: 30, cents: 3000},
		{name: "string", amount: "7.25", cents: 725},
		{name: "negative number", amount: -4, errMsg: "Please enter a valid amount"},
		{name: "boolean", amount: true, errMsg: "Please enter a valid amount"},
		{name: "null", amount: nil, errMsg: "Missing required fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{}
			for k, v := range txBody(groupID, methodID) {
				body[k] = v
			}
			body["amount"] = tt.amount

			rec := ts.do(http.MethodPost, "/api/transactions", "u1", body)
			if tt.errMsg != "" {
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
				}
				if got := errorOf(t, rec); got != tt.errMsg {
					t.Fatalf("error = %q, want %q", got, tt.errMsg)
				}
				return
			}
			if rec.Code != http.StatusCreated {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if tx := decode[core.Transaction](t, rec); tx.Amount.Cents != tt.cents {
				t.Fatalf("amount = %d cents, want %d", tx.Amount.Cents, tt.cents)
			}
		})
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t, Options{})
	groupID, methodID := ts.seed("u1")

	body := txBody(groupID, methodID)
	body["name"] = "<b>Pierre's</b> bakery"
	rec := ts.do(http.MethodPost, "/api/transactions", "u1", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	tx := decode[core.Transaction](t, rec)
	if tx.Name != "Pierre's bakery" || tx.Amount.Cents != 1250 || tx.PaymentGroup.Name != "Bank" || tx.PaymentMethod.Name != "Visa" {
		t.Fatalf("unexpected transaction %+v", tx)
	}

	salary := txBody(groupID, methodID)
	salary["name"], salary["category"], salary["type"], salary["amount"] = "Salary", "Income", "credit", "3000"
	if rec := ts.do(http.MethodPost, "/api/transactions", "u1", salary); rec.Code != http.StatusCreated {
		t.Fatalf("create salary: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/api/transactions?filter=food&q=BAKERY", "u1", nil)
	list := decode[[]core.Transaction](t, rec)
	if len(list) != 1 || list[0].ID != tx.ID {
		t.Fatalf("filtered list = %+v", list)
	}
	rec = ts.do(http.MethodGet, "/api/transactions?filter=all", "u1", nil)
	if list := decode[[]core.Transaction](t, rec); len(list) != 2 {
		t.Fatalf("expected both transactions, got %d", len(list))
	}

	rec = ts.do(http.MethodPut, "/api/transactions/"+tx.ID, "u1", map[string]any{"name": "Brunch", "amount": 15})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	updated := decode[core.Transaction](t, rec)
	if updated.Name != "Brunch" || updated.Amount.Cents != 1500 || updated.Category != "Food" {
		t.Fatalf("partial update changed the wrong fields: %+v", updated)
	}

	rec = ts.do(http.MethodPut, "/api/transactions/"+tx.ID, "u2", map[string]any{"name": "Hijack"})
	if rec.Code != http.StatusNotFound || errorOf(t, rec) != "Transaction not found" {
		t.Fatalf("foreign update: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/api/analytics", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics: %d", rec.Code)
	}
	var snap struct {
		Totals struct {
			TotalIncome   float64 `json:"totalIncome"`
			TotalExpenses float64 `json:"totalExpenses"`
			Net           float64 `json:"net"`
			Count         int     `json:"count"`
		} `json:"totals"`
		Weekly []json.RawMessage `json:"weekly"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Totals.TotalIncome != 3000 || snap.Totals.TotalExpenses != 15 || snap.Totals.Net != 2985 || snap.Totals.Count != 2 {
		t.Fatalf("unexpected totals %+v", snap.Totals)
	}
	if len(snap.Weekly) != 7 {
		t.Fatalf("weekly series should have 7 days, got %d", len(snap.Weekly))
	}

	rec = ts.do(http.MethodGet, "/api/dashboard", "u1", nil)
	var dash struct {
		Groups []core.PaymentGroup `json:"paymentGroups"`
		Recent []core.Transaction  `json:"recentTransactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %v", rec.Code, err)
	}
	if len(dash.Groups) != 1 || len(dash.Recent) != 2 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	rec = ts.do(http.MethodDelete, "/api/transactions/"+tx.ID, "u1", nil)
	if rec.Code != http.StatusOK || decode[messageResponse](t, rec).Message != "Transaction deleted successfully" {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(http.MethodDelete, "/api/transactions/"+tx.ID, "u1", nil)
	if rec.Code != http.StatusNotFound || errorOf(t, rec) != "Transaction not found" {
		t.Fatalf("second delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(http.MethodGet, "/api/transactions/"+tx.ID, "u1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", rec.Code)
	}
}

func TestFiltersAndUnknownRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(http.MethodGet, "/api/filters", "u1", nil)
	tabs := decode[[]string](t, rec)
	if len(tabs) == 0 || tabs[0] != "all" {
		t.Fatalf("unexpected tabs %v", tabs)
	}

	rec = ts.do(http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound || errorOf(t, rec) != "Not found" {
		t.Fatalf("unknown route: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(http.MethodPatch, "/healthz", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method: %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{RateLimit: ratelimit.Config{RequestsPerSecond: 0.01, Burst: 2}})

	for i := 0; i < 2; i++ {
		if rec := ts.do(http.MethodGet, "/api/session", "u1", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i+1, rec.Code)
		}
	}
	rec := ts.do(http.MethodGet, "/api/session", "u1", nil)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rec.Code)
	}

	// Health checks are not rate limited.
	if rec := ts.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}

func TestSuspiciousRequestBlocked(t *testing.T) {
	ts := newTestServer(t, Options{})
	rec := ts.do(http.MethodGet, "/.env", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}
