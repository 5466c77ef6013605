// Package analytics derives dashboard series and totals from a list of
// transactions. Every function here is pure: the same input always yields the
// same output and nothing is retained between calls.
package analytics

import (
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
)

const (
	// MonthWindow is how many of the most recent month buckets are kept.
	MonthWindow = 6
	// TopCategories caps the category breakdown.
	TopCategories = 8
)

type (
	MonthlyPoint struct {
		Month    string     `json:"month"`
		Year     int        `json:"year"`
		Number   int        `json:"monthNumber"`
		Spending core.Money `json:"spending"`
		Income   core.Money `json:"income"`
	}

	WeeklyPoint struct {
		Day          string     `json:"day"`
		Transactions int        `json:"transactions"`
		Amount       core.Money `json:"amount"`
	}

	CategorySlice struct {
		Name  string     `json:"name"`
		Value core.Money `json:"value"`
		Color string     `json:"color"`
	}

	Totals struct {
		TotalIncome   core.Money `json:"totalIncome"`
		TotalExpenses core.Money `json:"totalExpenses"`
		Net           core.Money `json:"net"`
		Count         int        `json:"count"`
	}

	Snapshot struct {
		Monthly    []MonthlyPoint  `json:"monthly"`
		Weekly     []WeeklyPoint   `json:"weekly"`
		Categories []CategorySlice `json:"categories"`
		Totals     Totals          `json:"totals"`
	}
)

// Compute builds every series for txs. An empty input gives zero totals,
// no monthly or category entries, and seven empty weekday buckets.
func Compute(txs []core.Transaction) Snapshot {
	return Snapshot{
		Monthly:    MonthlySeries(txs),
		Weekly:     WeeklySeries(txs),
		Categories: CategoryBreakdown(txs),
		Totals:     Summarize(txs),
	}
}

type monthKey struct {
	year  int
	month time.Month
}

func (k monthKey) before(o monthKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	return k.month < o.month
}

// MonthlySeries groups txs by calendar month and returns the most recent
// MonthWindow buckets in ascending order.
func MonthlySeries(txs []core.Transaction) []MonthlyPoint {
	buckets := make(map[monthKey]*MonthlyPoint)
	keys := make([]monthKey, 0)

	for _, tx := range txs {
		when := tx.Date.UTC()
		k := monthKey{year: when.Year(), month: when.Month()}
		p, ok := buckets[k]
		if !ok {
			p = &MonthlyPoint{
				Month:  k.month.String()[:3],
				Year:   k.year,
				Number: int(k.month),
			}
			buckets[k] = p
			keys = append(keys, k)
		}
		amount := tx.Amount.Abs()
		if tx.Type == core.Credit {
			p.Income = p.Income.Add(amount)
		} else {
			p.Spending = p.Spending.Add(amount)
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].before(keys[j]) })
	if len(keys) > MonthWindow {
		keys = keys[len(keys)-MonthWindow:]
	}

	out := make([]MonthlyPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, *buckets[k])
	}
	return out
}

// WeeklySeries counts transactions and sums magnitudes per weekday, Sunday
// first. All seven days are always present.
func WeeklySeries(txs []core.Transaction) []WeeklyPoint {
	out := make([]WeeklyPoint, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		out[d].Day = d.String()[:3]
	}
	for _, tx := range txs {
		d := tx.Date.UTC().Weekday()
		out[d].Transactions++
		out[d].Amount = out[d].Amount.Add(tx.Amount.Abs())
	}
	return out
}

// CategoryName returns the aggregation label for a transaction category.
func CategoryName(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return core.DefaultCategory
	}
	return category
}

// CategoryBreakdown sums debit magnitudes per category and returns the
// TopCategories largest, biggest first. Ties are ordered by name.
func CategoryBreakdown(txs []core.Transaction) []CategorySlice {
	sums := make(map[string]core.Money)
	for _, tx := range txs {
		if tx.Type != core.Debit {
			continue
		}
		name := CategoryName(tx.Category)
		sums[name] = sums[name].Add(tx.Amount.Abs())
	}

	out := make([]CategorySlice, 0, len(sums))
	for name, v := range sums {
		out = append(out, CategorySlice{Name: name, Value: v, Color: ColorFor(name)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value.Cents != out[j].Value.Cents {
			return out[i].Value.Cents > out[j].Value.Cents
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > TopCategories {
		out = out[:TopCategories]
	}
	return out
}

// Summarize totals income and expenses over the whole list.
func Summarize(txs []core.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case core.Credit:
			t.TotalIncome = t.TotalIncome.Add(tx.Amount.Abs())
		case core.Debit:
			t.TotalExpenses = t.TotalExpenses.Add(tx.Amount.Abs())
		}
	}
	t.Net = core.Money{Cents: t.TotalIncome.Cents - t.TotalExpenses.Cents}
	t.Count = len(txs)
	return t
}
