package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action is what happened to a transaction.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) Valid() bool {
	return a == ActionCreated || a == ActionUpdated || a == ActionDeleted
}

// TransactionEvent is a lightweight change notification. It carries only the
// id; the worker reads the current record from the store.
type TransactionEvent struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Action    Action    `json:"action"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionEvent stamps the event with the current time. Version orders
// events for the same id.
func NewTransactionEvent(id, user string, action Action) *TransactionEvent {
	now := time.Now()
	return &TransactionEvent{
		ID:        id,
		User:      user,
		Action:    action,
		Version:   now.UnixNano(),
		Timestamp: now,
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event and rejects ones without an id or
// with an unknown action.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		return nil, fmt.Errorf("event without id")
	}
	if !e.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", e.Action)
	}
	return &e, nil
}
