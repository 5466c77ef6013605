// Package session holds the signed-in user's state for the lifetime of a
// request or CLI invocation.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoSession    = errors.New("no session")
)

// Session is the signed-in user. It is created from a verified token and
// filled by Init; Teardown drops everything it loaded.
type Session struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`

	// mu guards everything below; the identity fields above never change.
	mu     sync.RWMutex
	token  string
	groups []core.PaymentGroup
	ready  bool
}

// New returns a session for userID that has not been initialised yet.
func New(userID, email, name, token string) *Session {
	return &Session{UserID: userID, Email: email, Name: name, token: token}
}

// Init loads the user's payment groups. Calling it again refreshes them.
func (s *Session) Init(ctx context.Context, groups ports.PaymentGroupReader) error {
	if s == nil || s.UserID == "" {
		return ErrNoSession
	}
	list, err := groups.ListPaymentGroups(ctx, s.UserID)
	if err != nil {
		return fmt.Errorf("load payment groups: %w", err)
	}
	s.mu.Lock()
	s.groups = list
	s.ready = true
	s.mu.Unlock()
	return nil
}

// Teardown clears loaded state and the token.
func (s *Session) Teardown() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.groups = nil
	s.ready = false
	s.token = ""
	s.mu.Unlock()
}

// Token returns the bearer token the session was created from, or "" after
// Teardown.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Ready reports whether Init has completed since the last Teardown.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Groups returns a copy of the cached payment groups.
func (s *Session) Groups() []core.PaymentGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.PaymentGroup, len(s.groups))
	copy(out, s.groups)
	return out
}

// View is the JSON form of a session.
type View struct {
	UserID string              `json:"userId"`
	Email  string              `json:"email,omitempty"`
	Name   string              `json:"name,omitempty"`
	Groups []core.PaymentGroup `json:"paymentGroups"`
}

func (s *Session) View() View {
	return View{UserID: s.UserID, Email: s.Email, Name: s.Name, Groups: s.Groups()}
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// Claims are the token claims fintrack issues and accepts.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses token and returns an uninitialised session for its subject.
func (v *Verifier) Verify(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return New(claims.Subject, claims.Email, claims.Name, token), nil
}

// NewToken signs a token for userID. It backs the CLI token command and tests;
// real issuance happens outside this module.
func NewToken(secret, issuer, userID, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// BearerToken extracts the token from an Authorization header value. A value
// without the "Bearer " prefix is taken as the token itself.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return header
}
