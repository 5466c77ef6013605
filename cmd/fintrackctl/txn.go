package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
	"fintrack/internal/form"
	"fintrack/internal/services"
)

// txnFlags are the form fields settable from the command line. Groups and
// methods may be given by id or by name.
type txnFlags struct {
	group, method, amount, category, date, name, txType, notes string
}

func (f *txnFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.group, "group", "", "Payment group id or name")
	fl.StringVar(&f.method, "method", "", "Payment method id or name")
	fl.StringVar(&f.amount, "amount", "", "Amount, e.g. 12.50")
	fl.StringVar(&f.category, "category", "", "Category")
	fl.StringVar(&f.date, "date", "", "Date as YYYY-MM-DD")
	fl.StringVar(&f.name, "name", "", "Transaction name")
	fl.StringVar(&f.txType, "type", "", "credit or debit")
	fl.StringVar(&f.notes, "notes", "", "Free text notes")
}

// apply copies every changed flag into the form. Selecting a group reloads
// its methods before the method flag is resolved.
func (f *txnFlags) apply(ctx context.Context, cmd *cobra.Command, svc *services.TransactionService, user string, ctl *form.Controller) error {
	changed := cmd.Flags().Changed

	if changed("group") {
		groupID, err := resolveGroup(ctx, svc, user, f.group)
		if err != nil {
			return err
		}
		if err := ctl.SelectGroup(ctx, groupID); err != nil {
			return err
		}
	}
	if changed("method") {
		ctl.SetMethod(resolveMethod(ctl.Methods(), f.method))
	}

	setters := []struct {
		flag  string
		value string
		set   func(string)
	}{
		{"amount", f.amount, ctl.SetAmount},
		{"category", f.category, ctl.SetCategory},
		{"date", f.date, ctl.SetDate},
		{"name", f.name, ctl.SetName},
		{"type", f.txType, ctl.SetType},
		{"notes", f.notes, ctl.SetNotes},
	}
	for _, s := range setters {
		if changed(s.flag) {
			s.set(s.value)
		}
	}
	return nil
}

func resolveGroup(ctx context.Context, svc *services.TransactionService, user, ref string) (string, error) {
	groups, err := svc.ListPaymentGroups(ctx, user)
	if err != nil {
		return "", err
	}
	for _, g := range groups {
		if g.ID == ref || strings.EqualFold(g.Name, ref) {
			return g.ID, nil
		}
	}
	// Unknown groups are left to the form rules to report.
	return ref, nil
}

func resolveMethod(methods []core.PaymentMethod, ref string) string {
	for _, m := range methods {
		if m.ID == ref || strings.EqualFold(m.Name, ref) {
			return m.ID
		}
	}
	return ref
}

func (a *app) controller(ctx context.Context) (*services.TransactionService, *form.Controller, error) {
	if err := a.requireUser(); err != nil {
		return nil, nil, err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return nil, nil, err
	}
	ctl := form.New(a.user, svc.Writer(a.user), svc.Store(), form.WithLogger(a.logger))
	return svc, ctl, nil
}

func submit(ctx context.Context, cmd *cobra.Command, ctl *form.Controller, verb string) error {
	tx, err := ctl.Submit(ctx)
	if err != nil {
		if core.IsValidation(err) {
			return fmt.Errorf("transaction rejected: %w", err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s %s %s on %s\n",
		verb, tx.ID, tx.Name, tx.Type, tx.Amount, tx.Date.UTC().Format("2006-01-02"))
	return nil
}

func newAddCmd(a *app) *cobra.Command {
	var f txnFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a transaction through the form rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, ctl, err := a.controller(ctx)
			if err != nil {
				return err
			}
			ctl.BeginNew()
			ctl.SetDate(time.Now().Format("2006-01-02"))
			if err := f.apply(ctx, cmd, svc, a.user, ctl); err != nil {
				return err
			}
			return submit(ctx, cmd, ctl, "Created")
		},
	}
	f.register(cmd)
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var f txnFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a transaction through the form rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, ctl, err := a.controller(ctx)
			if err != nil {
				return err
			}
			tx, err := svc.Get(ctx, a.user, args[0])
			if err != nil {
				return err
			}
			if err := ctl.BeginEdit(ctx, tx); err != nil {
				return err
			}
			if err := f.apply(ctx, cmd, svc, a.user, ctl); err != nil {
				return err
			}
			return submit(ctx, cmd, ctl, "Updated")
		},
	}
	f.register(cmd)
	return cmd
}
