package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/report"
)

func newSeedCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load payment groups, methods and transactions from a YAML fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open fixture: %w", err)
			}
			defer f.Close()

			fx, err := report.LoadFixture(f)
			if err != nil {
				return err
			}
			if a.user != "" {
				fx.User = a.user
			}

			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			res, err := report.Seed(ctx, svc, fx)
			a.logger.Info("Seed finished", "user", fx.User, "groups", res.Groups, "methods", res.Methods, "transactions", res.Transactions)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d groups, %d methods and %d transactions for %s\n",
				res.Groups, res.Methods, res.Transactions, fx.User)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Fixture file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
