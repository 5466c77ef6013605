package log

// Attribute keys shared across packages so records can be queried uniformly.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldTransactionID = "transaction_id"
	FieldTxName        = "transaction_name"
	FieldTxType        = "transaction_type"
	FieldCategory      = "category"
	FieldAmountCents   = "amount_cents"
	FieldGroupID       = "payment_group_id"
)

// Component names.
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentTransaction = "transaction"
	ComponentForm        = "form"
	ComponentWorker      = "worker"
	ComponentReport      = "report"
)

// Operation names.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpRefresh = "refresh"
)

// Fields accumulates key/value pairs for a single record. Methods append and
// return the extended slice, so the zero value is ready to use.
type Fields []any

// Add appends an arbitrary pair.
func (f Fields) Add(key string, value any) Fields {
	return append(f, key, value)
}

// User adds the acting user id.
func (f Fields) User(id string) Fields {
	return f.Add(FieldUserID, id)
}

// Op adds the operation name.
func (f Fields) Op(op string) Fields {
	return f.Add(FieldOperation, op)
}

// Err adds err's message. A nil error adds nothing.
func (f Fields) Err(err error) Fields {
	if err == nil {
		return f
	}
	return f.Add(FieldError, err.Error())
}

// Transaction adds the identifying fields of a transaction.
func (f Fields) Transaction(id, name string, amountCents int64, txType, category string) Fields {
	return append(f,
		FieldTransactionID, id,
		FieldTxName, name,
		FieldAmountCents, amountCents,
		FieldTxType, txType,
		FieldCategory, category,
	)
}
