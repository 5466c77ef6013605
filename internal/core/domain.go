package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	Credit TxType = "credit"
	Debit  TxType = "debit"
)

const (
	CategoryIncome         Category = "Income"
	CategoryTransfer       Category = "Transfer"
	CategoryEntertainment  Category = "Entertainment"
	CategoryShopping       Category = "Shopping"
	CategoryFood           Category = "Food"
	CategoryTransportation Category = "Transportation"
	CategoryUtilities      Category = "Utilities"
	CategoryHealthcare     Category = "Healthcare"
	CategoryOther          Category = "Other"

	// DefaultCategory labels transactions whose category is missing.
	DefaultCategory = "Others"
)

// Categories lists the selectable categories in display order.
var Categories = []Category{
	CategoryIncome,
	CategoryTransfer,
	CategoryEntertainment,
	CategoryShopping,
	CategoryFood,
	CategoryTransportation,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryOther,
}

type (
	// TxType is the direction of a transaction.
	TxType string

	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Ref is a resolved reference to a named record.
	Ref struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID            string `json:"id"`
		User          string `json:"user"`
		PaymentGroup  Ref    `json:"paymentGroup"`
		PaymentMethod Ref    `json:"paymentMethod"`
		Name          string `json:"name"`
		Amount        Money  `json:"amount"`
		Category      string `json:"category"`
		Type          TxType `json:"type"`
		Date          Date   `json:"date"`
		Notes         string `json:"notes,omitempty"`
	}

	// TransactionInput is the payload for creating a transaction.
	TransactionInput struct {
		User          string `json:"user"`
		PaymentGroup  string `json:"paymentGroup"`
		PaymentMethod string `json:"paymentMethod"`
		Name          string `json:"name"`
		Amount        Money  `json:"amount"`
		Category      string `json:"category"`
		Type          TxType `json:"type"`
		Date          Date   `json:"date"`
		Notes         string `json:"notes,omitempty"`
	}

	// TransactionPatch carries a partial update. Nil fields are left untouched.
	TransactionPatch struct {
		PaymentGroup  *string `json:"paymentGroup,omitempty"`
		PaymentMethod *string `json:"paymentMethod,omitempty"`
		Name          *string `json:"name,omitempty"`
		Amount        *Money  `json:"amount,omitempty"`
		Category      *string `json:"category,omitempty"`
		Type          *TxType `json:"type,omitempty"`
		Date          *Date   `json:"date,omitempty"`
		Notes         *string `json:"notes,omitempty"`
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
)

// ParseTxType accepts "credit" or "debit" in any case.
func ParseTxType(s string) (TxType, bool) {
	switch TxType(strings.ToLower(strings.TrimSpace(s))) {
	case Credit:
		return Credit, true
	case Debit:
		return Debit, true
	}
	return "", false
}

func (t TxType) Valid() bool {
	return t == Credit || t == Debit
}

// ParseCategory matches s against the enumerated categories ignoring case
// and returns the canonical spelling.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
// Timestamps are converted to UTC so every store buckets them alike.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t.UTC()}, nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.UTC().Format(time.RFC3339))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Validate reports a missing required field the way the record store does.
func (in TransactionInput) Validate() error {
	switch {
	case strings.TrimSpace(in.User) == "",
		strings.TrimSpace(in.PaymentGroup) == "",
		strings.TrimSpace(in.PaymentMethod) == "",
		strings.TrimSpace(in.Name) == "",
		in.Amount.Cents == 0,
		strings.TrimSpace(in.Category) == "",
		in.Date.IsZero(),
		in.Type == "":
		return &ValidationError{Message: "Missing required fields"}
	}
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Message: "Invalid transaction type"}
	}
	if err := in.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Message: "Amount must be greater than zero"}
	}
	if len(in.Name) > 200 {
		return &ValidationError{Field: "name", Message: "Name too long (max 200 characters)"}
	}
	return nil
}

// Build turns the input into a record with the given id and resolved references.
func (in TransactionInput) Build(id string, group, method Ref) Transaction {
	return Transaction{
		ID:            id,
		User:          in.User,
		PaymentGroup:  group,
		PaymentMethod: method,
		Name:          strings.TrimSpace(in.Name),
		Amount:        in.Amount,
		Category:      strings.TrimSpace(in.Category),
		Type:          in.Type,
		Date:          in.Date,
		Notes:         strings.TrimSpace(in.Notes),
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.PaymentGroup == nil && p.PaymentMethod == nil && p.Name == nil &&
		p.Amount == nil && p.Category == nil && p.Type == nil && p.Date == nil && p.Notes == nil
}

// Validate checks the fields that are present.
func (p TransactionPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Message: "Name cannot be empty"}
	}
	if p.Amount != nil && p.Amount.Validate() != nil {
		return &ValidationError{Field: "amount", Message: "Amount must be greater than zero"}
	}
	if p.Type != nil && !p.Type.Valid() {
		return &ValidationError{Field: "type", Message: "Invalid transaction type"}
	}
	if p.Date != nil && p.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "Date cannot be empty"}
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return &ValidationError{Field: "category", Message: "Category cannot be empty"}
	}
	if (p.PaymentGroup != nil) != (p.PaymentMethod != nil) {
		return &ValidationError{Field: "paymentMethod", Message: "Payment group and method must be updated together"}
	}
	return nil
}

// Apply copies the scalar fields of p onto t. References are resolved by the
// caller since they need a store lookup.
func (p TransactionPatch) Apply(t *Transaction) {
	if p.Name != nil {
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Notes != nil {
		t.Notes = strings.TrimSpace(*p.Notes)
	}
}
