package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"fintrack/internal/core"
)

// Row is the CSV layout of an exported transaction.
type Row struct {
	ID            string `csv:"id"`
	Date          string `csv:"date"`
	Name          string `csv:"name"`
	Type          string `csv:"type"`
	Category      string `csv:"category"`
	Amount        string `csv:"amount"`
	PaymentGroup  string `csv:"payment_group"`
	PaymentMethod string `csv:"payment_method"`
	Notes         string `csv:"notes"`
}

// RowFor flattens a transaction. Amounts keep two decimals and dates are
// written as YYYY-MM-DD.
func RowFor(tx core.Transaction) Row {
	return Row{
		ID:            tx.ID,
		Date:          tx.Date.UTC().Format("2006-01-02"),
		Name:          tx.Name,
		Type:          string(tx.Type),
		Category:      tx.Category,
		Amount:        tx.Amount.String(),
		PaymentGroup:  tx.PaymentGroup.Name,
		PaymentMethod: tx.PaymentMethod.Name,
		Notes:         tx.Notes,
	}
}

// WriteCSV writes txs with a header row, using delim as the separator.
// A zero delim means a comma.
func WriteCSV(w io.Writer, txs []core.Transaction, delim rune) error {
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, RowFor(tx))
	}

	cw := csv.NewWriter(w)
	if delim != 0 {
		cw.Comma = delim
	}
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
