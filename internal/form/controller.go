// Package form drives the create/edit transaction workflow: field edits,
// payment method lookup for the selected group, validation and submission.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
)

type State int

const (
	StateIdle State = iota
	StateEditing
	StateValidating
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrNotEditing     = errors.New("form is not open")
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	ErrDeleteInFlight = errors.New("a delete is already in progress")
)

// Loading holds the independent busy flags of the form and its list.
type Loading struct {
	Fetching bool `json:"fetching"`
	Saving   bool `json:"saving"`
	Deleting bool `json:"deleting"`
}

// Refresher reloads the transaction list from the store.
type Refresher func(ctx context.Context) error

// Controller is safe for concurrent use. Store calls are made without holding
// the lock so a slow method lookup never blocks field edits.
type Controller struct {
	user    string
	store   ports.TransactionWriter
	methods ports.MethodSource
	refresh Refresher
	logger  *log.Logger

	mu        sync.Mutex
	state     State
	fields    Fields
	editingID string
	offered   []core.PaymentMethod
	fetchSeq  uint64
	loading   Loading
	lastErr   error
}

type Option func(*Controller)

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithRefresher sets the function run after every successful write and after
// a write that hit a missing record.
func WithRefresher(r Refresher) Option {
	return func(c *Controller) { c.refresh = r }
}

func New(user string, store ports.TransactionWriter, methods ports.MethodSource, opts ...Option) *Controller {
	c := &Controller{
		user:    user,
		store:   store,
		methods: methods,
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentForm),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Fields() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

// Methods returns the payment methods offered for the selected group.
func (c *Controller) Methods() []core.PaymentMethod {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.PaymentMethod, len(c.offered))
	copy(out, c.offered)
	return out
}

func (c *Controller) Loading() Loading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// EditingID is the id of the transaction being edited, or "" for a new one.
func (c *Controller) EditingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID
}

// Err returns the message of the last failed validation or submission.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// BeginNew opens an empty form.
func (c *Controller) BeginNew() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.state = StateEditing
}

// BeginEdit opens the form on tx and loads the methods of its group without
// clearing the selected method.
func (c *Controller) BeginEdit(ctx context.Context, tx core.Transaction) error {
	c.mu.Lock()
	c.reset()
	c.state = StateEditing
	c.editingID = tx.ID
	c.fields = FieldsFrom(tx)
	seq := c.nextFetch()
	c.mu.Unlock()

	return c.fetchMethods(ctx, seq, tx.PaymentGroup.ID)
}

// Cancel closes the form and drops its content.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// reset must be called with c.mu held.
func (c *Controller) reset() {
	c.state = StateIdle
	c.fields = Fields{}
	c.editingID = ""
	c.offered = nil
	c.lastErr = nil
	c.loading.Fetching = false
	c.fetchSeq++
}

func (c *Controller) SetName(v string)     { c.set(func(f *Fields) { f.Name = v }) }
func (c *Controller) SetAmount(v string)   { c.set(func(f *Fields) { f.Amount = v }) }
func (c *Controller) SetCategory(v string) { c.set(func(f *Fields) { f.Category = v }) }
func (c *Controller) SetDate(v string)     { c.set(func(f *Fields) { f.Date = v }) }
func (c *Controller) SetType(v string)     { c.set(func(f *Fields) { f.Type = v }) }
func (c *Controller) SetNotes(v string)    { c.set(func(f *Fields) { f.Notes = v }) }
func (c *Controller) SetMethod(v string)   { c.set(func(f *Fields) { f.PaymentMethod = v }) }

func (c *Controller) set(apply func(*Fields)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		c.state = StateEditing
	}
	apply(&c.fields)
}

// SelectGroup changes the payment group, clears the selected method and loads
// the methods of the new group. A result that arrives after a newer selection
// is discarded.
func (c *Controller) SelectGroup(ctx context.Context, groupID string) error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.state = StateEditing
	}
	c.fields.PaymentGroup = groupID
	c.fields.PaymentMethod = ""
	c.offered = nil
	seq := c.nextFetch()
	c.mu.Unlock()

	return c.fetchMethods(ctx, seq, groupID)
}

// nextFetch must be called with c.mu held.
func (c *Controller) nextFetch() uint64 {
	c.fetchSeq++
	return c.fetchSeq
}

func (c *Controller) fetchMethods(ctx context.Context, seq uint64, groupID string) error {
	if groupID == "" {
		return nil
	}

	c.mu.Lock()
	c.loading.Fetching = true
	c.mu.Unlock()

	methods, err := c.methods.MethodsForGroup(ctx, groupID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.fetchSeq {
		c.logger.DebugContext(ctx, "Discarding stale payment method list",
			log.FieldGroupID, groupID,
			"seq", seq,
			"latest", c.fetchSeq)
		return nil
	}
	c.loading.Fetching = false
	if err != nil {
		c.offered = []core.PaymentMethod{}
		c.logger.WarnContext(ctx, "Failed to load payment methods",
			log.FieldGroupID, groupID,
			log.FieldError, err)
		return &core.RequestError{Op: "load payment methods", Err: err}
	}
	offered := make([]core.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		if m.Group == groupID {
			offered = append(offered, m)
		}
	}
	c.offered = offered
	return nil
}

// Validate runs the form rules against the current fields.
func (c *Controller) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		return ErrNotEditing
	}
	if c.state == StateSubmitting {
		return ErrSubmitInFlight
	}
	c.state = StateValidating
	err := Check(c.fields, c.offered)
	c.state = StateEditing
	c.lastErr = err
	return err
}

// Submit validates the form and creates or updates the transaction. On
// success the form closes and the list is reloaded. On failure the form keeps
// its content and the returned error carries the message to show.
func (c *Controller) Submit(ctx context.Context) (core.Transaction, error) {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return core.Transaction{}, ErrNotEditing
	case StateSubmitting:
		c.mu.Unlock()
		return core.Transaction{}, ErrSubmitInFlight
	}

	c.state = StateValidating
	if err := Check(c.fields, c.offered); err != nil {
		c.state = StateEditing
		c.lastErr = err
		c.mu.Unlock()
		return core.Transaction{}, err
	}

	fields, id := c.fields, c.editingID
	c.state = StateSubmitting
	c.loading.Saving = true
	c.mu.Unlock()

	tx, err := c.write(ctx, fields, id)

	c.mu.Lock()
	c.loading.Saving = false
	if err != nil {
		c.state = StateEditing
		c.lastErr = err
		c.mu.Unlock()

		c.logger.WarnContext(ctx, "Transaction submit failed",
			log.FieldTransactionID, id,
			log.FieldError, err)
		if core.IsNotFound(err) {
			c.reload(ctx)
		}
		return core.Transaction{}, err
	}
	c.reset()
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Transaction submitted",
		log.FieldTransactionID, tx.ID,
		log.FieldAmountCents, tx.Amount.Cents,
		log.FieldTxType, tx.Type)
	c.reload(ctx)
	return tx, nil
}

func (c *Controller) write(ctx context.Context, fields Fields, id string) (core.Transaction, error) {
	if id == "" {
		in, err := fields.Input(c.user)
		if err != nil {
			return core.Transaction{}, err
		}
		tx, err := c.store.CreateTransaction(ctx, in)
		return tx, asRequestError("create transaction", err)
	}
	patch, err := fields.Patch()
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := c.store.UpdateTransaction(ctx, id, patch)
	return tx, asRequestError("update transaction", err)
}

// Delete removes a transaction and reloads the list. A missing record also
// triggers a reload so the stale row disappears.
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.loading.Deleting {
		c.mu.Unlock()
		return ErrDeleteInFlight
	}
	c.loading.Deleting = true
	c.mu.Unlock()

	err := asRequestError("delete transaction", c.store.DeleteTransaction(ctx, id))

	c.mu.Lock()
	c.loading.Deleting = false
	c.mu.Unlock()

	if err != nil && !core.IsNotFound(err) {
		return err
	}
	c.reload(ctx)
	return err
}

func (c *Controller) reload(ctx context.Context) {
	if c.refresh == nil {
		return
	}
	if err := c.refresh(ctx); err != nil {
		c.logger.WarnContext(ctx, "Transaction list refresh failed",
			log.FieldOperation, log.OpRefresh,
			log.FieldError, err)
	}
}

// asRequestError leaves domain errors alone and wraps everything else so the
// store's message is shown verbatim.
func asRequestError(op string, err error) error {
	if err == nil || core.IsValidation(err) || core.IsNotFound(err) {
		return err
	}
	var re *core.RequestError
	if errors.As(err, &re) {
		return err
	}
	return &core.RequestError{Op: op, Err: err}
}
