package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Lunch", "Lunch"},
		{"  padded  ", "padded"},
		{"<script>alert(1)</script>Groceries", "Groceries"},
		{"<b>Pierre's</b> bakery", "Pierre's bakery"},
		{"Fish & Chips", "Fish & Chips"},
		{"bell\x07char", "bellchar"},
	}
	for _, tt := range tests {
		if got := sanitizeText(tt.in); got != tt.want {
			t.Errorf("sanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCriteria(t *testing.T) {
	tests := []struct {
		url            string
		category, term string
	}{
		{"/api/transactions", "", ""},
		{"/api/transactions?filter=food", "food", ""},
		{"/api/transactions?filter=%20all%20&q=Coffee", "all", "Coffee"},
		{"/api/transactions?search=%20taxi", "", " taxi"},
		{"/api/transactions?q=a&search=b", "", "a"},
	}
	for _, tt := range tests {
		c := parseCriteria(httptest.NewRequest("GET", tt.url, nil))
		if c.Category != tt.category || c.Search != tt.term {
			t.Errorf("%s: got %+v", tt.url, c)
		}
	}
}

func TestAmountText(t *testing.T) {
	tests := map[string]string{
		``:         "",
		`null`:     "",
		`"12.50"`:  "12.50",
		`12.5`:     "12.5",
		` 42 `:     "42",
		`1e2`:      "100",
		`-3`:       "-3",
		`true`:     "true",
		`{"v": 1}`: `{"v": 1}`,
	}
	for raw, want := range tests {
		if got := amountText(json.RawMessage(raw)); got != want {
			t.Errorf("amountText(%s) = %q, want %q", raw, got, want)
		}
	}
}

func TestDecodeJSONErrors(t *testing.T) {
	var v map[string]any

	err := decodeJSON(httptest.NewRequest("POST", "/", strings.NewReader("")), &v)
	if !core.IsValidation(err) || err.Error() != "Request body is required" {
		t.Fatalf("empty body: %v", err)
	}

	err = decodeJSON(httptest.NewRequest("POST", "/", strings.NewReader("{")), &v)
	if !core.IsValidation(err) || !strings.HasPrefix(err.Error(), "Invalid JSON body") {
		t.Fatalf("malformed body: %v", err)
	}
}

func TestRequireFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"paymentGroup":"g","paymentMethod":"m","amount":"1","category":"Food","date":"2025-01-01","name":"  ","type":"debit"}`))
	f, err := parseTransactionFields(r)
	if err != nil {
		t.Fatal(err)
	}
	if err := requireFields(f); err == nil || err.Error() != "Missing required fields" {
		t.Fatalf("blank name should be rejected, got %v", err)
	}
	f.Name = "ok"
	if err := requireFields(f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
