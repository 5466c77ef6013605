package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fintrack/internal/filter"
	"fintrack/internal/report"
)

func newReportCmd(a *app) *cobra.Command {
	var c filter.Criteria
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print analytics tables for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			snap, err := svc.Analytics(ctx, a.user, c)
			if err != nil {
				return err
			}
			return report.WriteTables(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().StringVar(&c.Category, "filter", "", "Category tab to restrict to (all when empty)")
	cmd.Flags().StringVar(&c.Search, "search", "", "Case-insensitive name search")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out   string
		delim string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's transactions as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			if len([]rune(delim)) != 1 {
				return fmt.Errorf("--delimiter must be a single character")
			}
			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			txs, err := svc.List(ctx, a.user, filter.Criteria{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := report.WriteCSV(w, txs, []rune(delim)[0]); err != nil {
				return err
			}
			a.logger.Info("Exported transactions", "user", a.user, "count", len(txs), "file", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when empty)")
	cmd.Flags().StringVar(&delim, "delimiter", ",", "Field separator")
	return cmd
}

func newChartCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render monthly.png and categories.png for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			snap, err := svc.Analytics(ctx, a.user, filter.Criteria{})
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			charts := []struct {
				name   string
				render func(f *os.File) error
			}{
				{"monthly.png", func(f *os.File) error { return report.MonthlyChart(f, snap.Monthly) }},
				{"categories.png", func(f *os.File) error { return report.CategoryChart(f, snap.Categories) }},
			}
			for _, c := range charts {
				path := filepath.Join(dir, c.name)
				if err := writeChart(path, c.render); err != nil {
					if errors.Is(err, report.ErrNoData) {
						a.logger.Warn("Skipping empty chart", "file", path)
						continue
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "Output directory")
	return cmd
}

// writeChart renders into path and removes the file when rendering fails.
func writeChart(path string, render func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
