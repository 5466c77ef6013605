package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"closed client", errClosed, true},
		{"other error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestBreaker(t *testing.T) {
	now := time.Now()
	b := newBreaker(3, time.Minute)
	b.now = func() time.Time { return now }

	if !b.allow() {
		t.Fatal("breaker should start closed")
	}
	for range 3 {
		b.failure()
	}
	if b.allow() || b.current() != open {
		t.Fatalf("breaker should open after 3 failures, state %v", b.current())
	}

	now = now.Add(time.Minute + time.Second)
	if !b.allow() || b.current() != halfOpen {
		t.Fatalf("breaker should be half-open after cooldown, state %v", b.current())
	}
	b.failure()
	if b.current() != open {
		t.Fatal("a half-open failure should reopen immediately")
	}

	now = now.Add(2 * time.Minute)
	b.allow()
	b.success()
	if b.current() != closed || b.failures != 0 {
		t.Fatal("success should reset the breaker")
	}
}

func TestClient_PublishGuards(t *testing.T) {
	client := newClient("amqp://unused", "test_exchange", "test_queue")
	event := NewTransactionEvent("t1", "u1", ActionCreated)

	for range maxFailures {
		client.breaker.failure()
	}
	err := client.PublishTransactionEvent(context.Background(), event)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	client.breaker.success()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.PublishTransactionEvent(ctx, event); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTransactionEventJSON(t *testing.T) {
	event := NewTransactionEvent("t1", "u1", ActionUpdated)
	if event.Timestamp.IsZero() || event.Version == 0 {
		t.Fatal("event should be stamped")
	}

	body, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	parsed, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("TransactionEventFromJSON: %v", err)
	}
	if parsed.ID != "t1" || parsed.User != "u1" || parsed.Action != ActionUpdated || parsed.Version != event.Version {
		t.Fatalf("unexpected event %+v", parsed)
	}

	for _, bad := range []string{
		`{"id": 12}`,
		`{"action": "created"}`,
		`{"id": "t1", "action": "archived"}`,
		`not json`,
	} {
		if _, err := TransactionEventFromJSON([]byte(bad)); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}
}

func TestDispatch(t *testing.T) {
	body, _ := NewTransactionEvent("t1", "u1", ActionDeleted).ToJSON()
	ctx := context.Background()

	var seen *TransactionEvent
	ok := func(_ context.Context, e *TransactionEvent) error { seen = e; return nil }
	failing := func(context.Context, *TransactionEvent) error { return errors.New("sheet unavailable") }

	if got := dispatch(ctx, body, ok); got != outcomeAck || seen == nil || seen.Action != ActionDeleted {
		t.Fatalf("expected ack, got %v", got)
	}
	if got := dispatch(ctx, body, failing); got != outcomeRequeue {
		t.Fatalf("handler failure should requeue, got %v", got)
	}
	if got := dispatch(ctx, []byte(strings.Repeat("x", 3)), ok); got != outcomeDrop {
		t.Fatalf("malformed body should be dropped, got %v", got)
	}
}
