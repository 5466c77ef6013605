// Package report renders analytics and transactions for operators: terminal
// tables, CSV exports, PNG charts, and YAML seed fixtures.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"fintrack/internal/analytics"
)

// WriteTables renders every series of snap as a titled table.
func WriteTables(w io.Writer, snap analytics.Snapshot) error {
	sections := []struct {
		title  string
		render func(io.Writer, analytics.Snapshot)
	}{
		{"Totals", writeTotals},
		{"Monthly", writeMonthly},
		{"Weekly", writeWeekly},
		{"Top categories", writeCategories},
	}
	for i, s := range sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "== %s ==\n", s.title); err != nil {
			return err
		}
		s.render(w, snap)
	}
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}

func writeTotals(w io.Writer, snap analytics.Snapshot) {
	t := snap.Totals
	table := newTable(w, "Income", "Expenses", "Net", "Transactions")
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append([]string{t.TotalIncome.String(), t.TotalExpenses.String(), t.Net.String(), strconv.Itoa(t.Count)})
	table.Render()
}

func writeMonthly(w io.Writer, snap analytics.Snapshot) {
	table := newTable(w, "Month", "Spending", "Income")
	for _, p := range snap.Monthly {
		table.Append([]string{fmt.Sprintf("%s %d", p.Month, p.Year), p.Spending.String(), p.Income.String()})
	}
	table.Render()
}

func writeWeekly(w io.Writer, snap analytics.Snapshot) {
	table := newTable(w, "Day", "Transactions", "Amount")
	for _, p := range snap.Weekly {
		table.Append([]string{p.Day, strconv.Itoa(p.Transactions), p.Amount.String()})
	}
	table.Render()
}

func writeCategories(w io.Writer, snap analytics.Snapshot) {
	table := newTable(w, "Category", "Spent", "Color")
	for _, c := range snap.Categories {
		table.Append([]string{c.Name, c.Value.String(), c.Color})
	}
	table.Render()
}
