package core

import (
	"strings"
)

const (
	KindCard         MethodKind = "card"
	KindUPI          MethodKind = "upi"
	KindBankTransfer MethodKind = "bankTransfer"
)

type (
	// MethodKind selects which detail fields a payment method carries.
	MethodKind string

	MethodDetails struct {
		CardNumber     string `json:"cardNumber,omitempty" yaml:"cardNumber"`
		CardHolderName string `json:"cardHolderName,omitempty" yaml:"cardHolderName"`
		ExpiryDate     string `json:"expiryDate,omitempty" yaml:"expiryDate"`
		CVV            string `json:"cvv,omitempty" yaml:"cvv"`
		Company        string `json:"company,omitempty" yaml:"company"`

		UPIID string `json:"upiId,omitempty" yaml:"upiId"`

		AccountNumber string `json:"accountNumber,omitempty" yaml:"accountNumber"`
		IFSCCode      string `json:"ifscCode,omitempty" yaml:"ifscCode"`
	}

	PaymentMethod struct {
		ID      string        `json:"id"`
		User    string        `json:"user"`
		Group   string        `json:"group"`
		Name    string        `json:"name"`
		Kind    MethodKind    `json:"kind"`
		Active  bool          `json:"active"`
		Details MethodDetails `json:"details"`
	}

	PaymentGroup struct {
		ID          string   `json:"id"`
		User        string   `json:"user"`
		Name        string   `json:"name"`
		Description string   `json:"description,omitempty"`
		Methods     []string `json:"methods"`
	}

	PaymentGroupInput struct {
		User        string `json:"user"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	PaymentMethodInput struct {
		User    string        `json:"user"`
		Group   string        `json:"group"`
		Name    string        `json:"name"`
		Kind    MethodKind    `json:"kind"`
		Active  *bool         `json:"active,omitempty"`
		Details MethodDetails `json:"details"`
	}
)

// ParseMethodKind accepts the kind names case-insensitively, plus "bank" and
// "neft" as aliases for bank transfers.
func ParseMethodKind(s string) (MethodKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "card":
		return KindCard, true
	case "upi":
		return KindUPI, true
	case "banktransfer", "bank", "neft":
		return KindBankTransfer, true
	}
	return "", false
}

func (k MethodKind) Valid() bool {
	_, ok := ParseMethodKind(string(k))
	return ok
}

// Validate checks that the detail fields required by kind are present.
func (d MethodDetails) Validate(kind MethodKind) error {
	switch kind {
	case KindCard:
		if blank(d.CardNumber, d.CardHolderName, d.ExpiryDate, d.CVV, d.Company) {
			return &ValidationError{Field: "details", Message: "Missing card details: cardNumber, cardHolderName, expiryDate, cvv, company"}
		}
	case KindUPI:
		if blank(d.UPIID) {
			return &ValidationError{Field: "details", Message: "Missing UPI ID"}
		}
	case KindBankTransfer:
		if blank(d.AccountNumber, d.IFSCCode) {
			return &ValidationError{Field: "details", Message: "Missing bank transfer details: accountNumber, ifscCode"}
		}
	default:
		return &ValidationError{Field: "kind", Message: "Invalid payment method kind"}
	}
	return nil
}

// Redacted masks account and card numbers to their last four digits and drops the CVV.
func (d MethodDetails) Redacted() MethodDetails {
	d.CardNumber = lastFour(d.CardNumber)
	d.AccountNumber = lastFour(d.AccountNumber)
	d.CVV = ""
	return d
}

// Redacted returns a copy of m safe to hand to clients.
func (m PaymentMethod) Redacted() PaymentMethod {
	m.Details = m.Details.Redacted()
	return m
}

// Ref returns the {id, name} form used on transactions.
func (m PaymentMethod) Ref() Ref {
	return Ref{ID: m.ID, Name: m.Name}
}

func (g PaymentGroup) Ref() Ref {
	return Ref{ID: g.ID, Name: g.Name}
}

// HasMethod reports whether methodID is listed on the group.
func (g PaymentGroup) HasMethod(methodID string) bool {
	for _, id := range g.Methods {
		if id == methodID {
			return true
		}
	}
	return false
}

func (in PaymentGroupInput) Validate() error {
	if strings.TrimSpace(in.User) == "" || strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Message: "Missing required fields: user or name"}
	}
	return nil
}

func (in PaymentMethodInput) Validate() error {
	if strings.TrimSpace(in.User) == "" || strings.TrimSpace(in.Group) == "" || strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Message: "Missing required fields: user, group, or name"}
	}
	kind, ok := ParseMethodKind(string(in.Kind))
	if !ok {
		return &ValidationError{Field: "kind", Message: "Invalid payment method kind"}
	}
	return in.Details.Validate(kind)
}

// Build turns the input into a method record. Active defaults to true.
func (in PaymentMethodInput) Build(id string) PaymentMethod {
	kind, _ := ParseMethodKind(string(in.Kind))
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return PaymentMethod{
		ID:      id,
		User:    in.User,
		Group:   in.Group,
		Name:    strings.TrimSpace(in.Name),
		Kind:    kind,
		Active:  active,
		Details: in.Details,
	}
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func lastFour(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if len(s) <= 4 {
		return s
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// CheckMethodInGroup verifies that group and method both belong to user and
// that the method is one of the group's methods.
func CheckMethodInGroup(user string, group PaymentGroup, method PaymentMethod) error {
	if group.User != user {
		return &ValidationError{Field: "paymentGroup", Message: "Payment group does not belong to user"}
	}
	if method.User != user {
		return &ValidationError{Field: "paymentMethod", Message: "Payment method does not belong to user"}
	}
	if method.Group != group.ID {
		return &ValidationError{Field: "paymentMethod", Message: "Payment method does not belong to the selected payment group"}
	}
	return nil
}
