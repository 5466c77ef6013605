package form

import (
	"strings"

	"fintrack/internal/core"
)

// Messages shown for each validation rule, in the order the rules run.
const (
	MsgPaymentGroup  = "Please select a payment group"
	MsgPaymentMethod = "Please select a payment method"
	MsgAmount        = "Please enter a valid amount"
	MsgCategory      = "Please select a category"
	MsgDate          = "Please select a date"
	MsgName          = "Please enter a transaction name"
	MsgType          = "Please select transaction type"
)

// Fields is the editable form content. Values are kept as entered.
type Fields struct {
	PaymentGroup  string `json:"paymentGroup"`
	PaymentMethod string `json:"paymentMethod"`
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	Date          string `json:"date"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Notes         string `json:"notes,omitempty"`
}

// FieldsFrom fills a form from an existing transaction.
func FieldsFrom(tx core.Transaction) Fields {
	f := Fields{
		PaymentGroup:  tx.PaymentGroup.ID,
		PaymentMethod: tx.PaymentMethod.ID,
		Amount:        tx.Amount.Abs().String(),
		Category:      tx.Category,
		Name:          tx.Name,
		Type:          string(tx.Type),
		Notes:         tx.Notes,
	}
	if !tx.Date.IsZero() {
		f.Date = tx.Date.UTC().Format("2006-01-02")
	}
	return f
}

// Check runs the form rules in order and stops at the first failure. methods
// are the methods currently offered for the selected group.
//
// Amounts are stored in whole cents, so a positive value that rounds to zero
// cents, such as "0.004", fails with MsgAmount.
func Check(f Fields, methods []core.PaymentMethod) error {
	if strings.TrimSpace(f.PaymentGroup) == "" {
		return &core.ValidationError{Field: "paymentGroup", Message: MsgPaymentGroup}
	}
	if !offered(f.PaymentGroup, f.PaymentMethod, methods) {
		return &core.ValidationError{Field: "paymentMethod", Message: MsgPaymentMethod}
	}
	if _, err := core.ParseDecimalToCents(f.Amount); err != nil {
		return &core.ValidationError{Field: "amount", Message: MsgAmount}
	}
	if _, ok := core.ParseCategory(f.Category); !ok {
		return &core.ValidationError{Field: "category", Message: MsgCategory}
	}
	if _, err := core.ParseDate(f.Date); err != nil {
		return &core.ValidationError{Field: "date", Message: MsgDate}
	}
	if strings.TrimSpace(f.Name) == "" {
		return &core.ValidationError{Field: "name", Message: MsgName}
	}
	if _, ok := core.ParseTxType(f.Type); !ok {
		return &core.ValidationError{Field: "type", Message: MsgType}
	}
	return nil
}

func offered(groupID, methodID string, methods []core.PaymentMethod) bool {
	if strings.TrimSpace(methodID) == "" {
		return false
	}
	for _, m := range methods {
		if m.ID == methodID {
			return m.Group == groupID
		}
	}
	return false
}

// Input converts checked fields into a create payload for user.
func (f Fields) Input(user string) (core.TransactionInput, error) {
	values, err := f.parse()
	if err != nil {
		return core.TransactionInput{}, err
	}
	return core.TransactionInput{
		User:          user,
		PaymentGroup:  f.PaymentGroup,
		PaymentMethod: f.PaymentMethod,
		Name:          strings.TrimSpace(f.Name),
		Amount:        values.amount,
		Category:      string(values.category),
		Type:          values.txType,
		Date:          values.date,
		Notes:         strings.TrimSpace(f.Notes),
	}, nil
}

// Patch converts checked fields into an update that rewrites every field.
func (f Fields) Patch() (core.TransactionPatch, error) {
	values, err := f.parse()
	if err != nil {
		return core.TransactionPatch{}, err
	}
	group, method := f.PaymentGroup, f.PaymentMethod
	name, notes := strings.TrimSpace(f.Name), strings.TrimSpace(f.Notes)
	category := string(values.category)
	return core.TransactionPatch{
		PaymentGroup:  &group,
		PaymentMethod: &method,
		Name:          &name,
		Amount:        &values.amount,
		Category:      &category,
		Type:          &values.txType,
		Date:          &values.date,
		Notes:         &notes,
	}, nil
}

type parsed struct {
	amount   core.Money
	category core.Category
	txType   core.TxType
	date     core.Date
}

func (f Fields) parse() (parsed, error) {
	cents, err := core.ParseDecimalToCents(f.Amount)
	if err != nil {
		return parsed{}, &core.ValidationError{Field: "amount", Message: MsgAmount}
	}
	category, ok := core.ParseCategory(f.Category)
	if !ok {
		return parsed{}, &core.ValidationError{Field: "category", Message: MsgCategory}
	}
	date, err := core.ParseDate(f.Date)
	if err != nil {
		return parsed{}, &core.ValidationError{Field: "date", Message: MsgDate}
	}
	txType, ok := core.ParseTxType(f.Type)
	if !ok {
		return parsed{}, &core.ValidationError{Field: "type", Message: MsgType}
	}
	return parsed{amount: core.Money{Cents: cents}, category: category, txType: txType, date: date}, nil
}
