package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/form"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// strict strips every tag. It is safe for concurrent use.
var strict = bluemonday.StrictPolicy()

// sanitizeText removes markup and control characters from free text. Entities
// produced by the policy are decoded so names like "Pierre's" survive intact.
func sanitizeText(s string) string {
	s = html.UnescapeString(strict.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// decodeJSON reads a single JSON document from the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &core.ValidationError{Message: "Request body is required"}
		}
		return &core.ValidationError{Message: fmt.Sprintf("Invalid JSON body: %v", err)}
	}
	return nil
}

// parseCriteria reads ?filter= and ?q= (or ?search=). The search term is kept
// as typed.
func parseCriteria(r *http.Request) filter.Criteria {
	q := r.URL.Query()
	search := q.Get("q")
	if search == "" {
		search = q.Get("search")
	}
	return filter.Criteria{
		Category: strings.TrimSpace(q.Get("filter")),
		Search:   search,
	}
}

// transactionRequest is a create body. Clients send amount either as typed
// text or as a JSON number.
type transactionRequest struct {
	form.Fields
	Amount json.RawMessage `json:"amount"`
}

// amountText renders a raw amount as the text the form rules expect. Numbers
// keep their decimal digits; anything that is neither a string nor a number
// is passed through verbatim so the amount rule rejects it.
func amountText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if d, err := decimal.NewFromString(string(raw)); err == nil {
		return d.String()
	}
	return string(raw)
}

// parseTransactionFields decodes a create request into form fields with the
// free text sanitized.
func parseTransactionFields(r *http.Request) (form.Fields, error) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return form.Fields{}, err
	}
	f := req.Fields
	f.Amount = amountText(req.Amount)
	f.Name = sanitizeText(f.Name)
	f.Notes = sanitizeText(f.Notes)
	return f, nil
}

// requireFields reports "Missing required fields" when any required form
// value is blank.
func requireFields(f form.Fields) error {
	for _, v := range []string{f.PaymentGroup, f.PaymentMethod, f.Amount, f.Category, f.Date, f.Name, f.Type} {
		if strings.TrimSpace(v) == "" {
			return &core.ValidationError{Message: "Missing required fields"}
		}
	}
	return nil
}

// parseTransactionPatch decodes a partial update.
func parseTransactionPatch(r *http.Request) (core.TransactionPatch, error) {
	var p core.TransactionPatch
	if err := decodeJSON(r, &p); err != nil {
		return core.TransactionPatch{}, err
	}
	if p.Name != nil {
		v := sanitizeText(*p.Name)
		p.Name = &v
	}
	if p.Notes != nil {
		v := sanitizeText(*p.Notes)
		p.Notes = &v
	}
	return p, nil
}

func parsePaymentGroup(r *http.Request, user string) (core.PaymentGroupInput, error) {
	var in core.PaymentGroupInput
	if err := decodeJSON(r, &in); err != nil {
		return core.PaymentGroupInput{}, err
	}
	in.User = user
	in.Name = sanitizeText(in.Name)
	in.Description = sanitizeText(in.Description)
	return in, nil
}

func parsePaymentMethod(r *http.Request, user, group string) (core.PaymentMethodInput, error) {
	var in core.PaymentMethodInput
	if err := decodeJSON(r, &in); err != nil {
		return core.PaymentMethodInput{}, err
	}
	in.User = user
	in.Group = group
	in.Name = sanitizeText(in.Name)
	in.Details.CardHolderName = sanitizeText(in.Details.CardHolderName)
	in.Details.Company = sanitizeText(in.Details.Company)
	return in, nil
}
