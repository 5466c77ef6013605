package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
	"fintrack/internal/form"
)

type (
	// Fixture is a YAML description of one user's groups, methods and
	// transactions. Transactions refer to groups and methods by name.
	Fixture struct {
		User         string               `yaml:"user"`
		Groups       []GroupFixture       `yaml:"groups"`
		Transactions []TransactionFixture `yaml:"transactions"`
	}

	GroupFixture struct {
		Name        string          `yaml:"name"`
		Description string          `yaml:"description"`
		Methods     []MethodFixture `yaml:"methods"`
	}

	MethodFixture struct {
		Name    string             `yaml:"name"`
		Kind    string             `yaml:"kind"`
		Active  *bool              `yaml:"active"`
		Details core.MethodDetails `yaml:"details"`
	}

	TransactionFixture struct {
		Group    string `yaml:"group"`
		Method   string `yaml:"method"`
		Name     string `yaml:"name"`
		Amount   string `yaml:"amount"`
		Category string `yaml:"category"`
		Type     string `yaml:"type"`
		Date     string `yaml:"date"`
		Notes    string `yaml:"notes"`
	}

	// SeedResult counts what Seed created.
	SeedResult struct {
		Groups       int
		Methods      int
		Transactions int
	}
)

// Seeder is the write side Seed needs.
type Seeder interface {
	CreatePaymentGroup(ctx context.Context, in core.PaymentGroupInput) (core.PaymentGroup, error)
	CreatePaymentMethod(ctx context.Context, in core.PaymentMethodInput) (core.PaymentMethod, error)
	CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
}

// LoadFixture decodes a fixture. Unknown keys are rejected so typos surface
// instead of silently seeding less than intended.
func LoadFixture(r io.Reader) (Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return Fixture{}, errors.New("fixture is empty")
		}
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	if fx.User == "" {
		return Fixture{}, errors.New("fixture: user is required")
	}
	return fx, nil
}

// Seed creates the fixture's records in order. Transactions pass through the
// same form checks as interactive entry. It stops at the first failure and
// reports what was created so far.
func Seed(ctx context.Context, s Seeder, fx Fixture) (SeedResult, error) {
	var res SeedResult

	type groupRef struct {
		id      string
		methods map[string]core.PaymentMethod
	}
	groups := make(map[string]*groupRef, len(fx.Groups))

	for _, gf := range fx.Groups {
		g, err := s.CreatePaymentGroup(ctx, core.PaymentGroupInput{User: fx.User, Name: gf.Name, Description: gf.Description})
		if err != nil {
			return res, fmt.Errorf("group %q: %w", gf.Name, err)
		}
		res.Groups++
		ref := &groupRef{id: g.ID, methods: make(map[string]core.PaymentMethod)}
		groups[gf.Name] = ref

		for _, mf := range gf.Methods {
			kind, ok := core.ParseMethodKind(mf.Kind)
			if !ok {
				return res, fmt.Errorf("method %q: unknown kind %q", mf.Name, mf.Kind)
			}
			m, err := s.CreatePaymentMethod(ctx, core.PaymentMethodInput{
				User:    fx.User,
				Group:   g.ID,
				Name:    mf.Name,
				Kind:    kind,
				Active:  mf.Active,
				Details: mf.Details,
			})
			if err != nil {
				return res, fmt.Errorf("method %q: %w", mf.Name, err)
			}
			res.Methods++
			ref.methods[mf.Name] = m
		}
	}

	for i, tf := range fx.Transactions {
		g, ok := groups[tf.Group]
		if !ok {
			return res, fmt.Errorf("transaction %d: unknown group %q", i+1, tf.Group)
		}
		methods := make([]core.PaymentMethod, 0, len(g.methods))
		for _, m := range g.methods {
			methods = append(methods, m)
		}

		fields := form.Fields{
			PaymentGroup:  g.id,
			PaymentMethod: g.methods[tf.Method].ID,
			Amount:        tf.Amount,
			Category:      tf.Category,
			Date:          tf.Date,
			Name:          tf.Name,
			Type:          tf.Type,
			Notes:         tf.Notes,
		}
		if err := form.Check(fields, methods); err != nil {
			return res, fmt.Errorf("transaction %d (%s): %w", i+1, tf.Name, err)
		}
		in, err := fields.Input(fx.User)
		if err != nil {
			return res, fmt.Errorf("transaction %d (%s): %w", i+1, tf.Name, err)
		}
		if _, err := s.CreateTransaction(ctx, in); err != nil {
			return res, fmt.Errorf("transaction %d (%s): %w", i+1, tf.Name, err)
		}
		res.Transactions++
	}
	return res, nil
}
