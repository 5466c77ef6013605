package amqp

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the publisher refuses to touch the broker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	closed breakerState = iota
	open
	halfOpen
)

func (s breakerState) String() string {
	switch s {
	case open:
		return "open"
	case halfOpen:
		return "half-open"
	}
	return "closed"
}

// breaker opens after threshold consecutive failures and lets one attempt
// through once cooldown has passed since the last failure.
type breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	lastFail time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// allow reports whether a call may proceed, moving an expired open breaker
// to half-open.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == open && b.now().Sub(b.lastFail) > b.cooldown {
		b.state = halfOpen
	}
	return b.state != open
}

func (b *breaker) success() {
	b.mu.Lock()
	b.state, b.failures = closed, 0
	b.mu.Unlock()
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFail = b.now()
	if b.state == halfOpen || b.failures >= b.threshold {
		b.state = open
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
