// Package filter narrows a transaction list by category and free-text search.
package filter

import (
	"strings"

	"fintrack/internal/core"
)

// All is the category sentinel that disables category filtering.
const All = "all"

// Criteria describes which transactions to keep.
type Criteria struct {
	Category string `json:"filter"`
	Search   string `json:"search"`
}

// IsZero reports whether the criteria keep every transaction.
func (c Criteria) IsZero() bool {
	return isAll(c.Category) && c.Search == ""
}

// Apply returns the transactions matching both the category filter and the
// search term, in input order. The input slice is never modified.
func Apply(txs []core.Transaction, activeFilter, searchTerm string) []core.Transaction {
	return Criteria{Category: activeFilter, Search: searchTerm}.Apply(txs)
}

// Apply runs the criteria over txs.
func (c Criteria) Apply(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	term := strings.ToLower(c.Search)
	for _, tx := range txs {
		if !c.matchesCategory(tx) {
			continue
		}
		if term != "" && !matchesTerm(tx, term) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Match reports whether a single transaction passes.
func (c Criteria) Match(tx core.Transaction) bool {
	if !c.matchesCategory(tx) {
		return false
	}
	return c.Search == "" || matchesTerm(tx, strings.ToLower(c.Search))
}

func (c Criteria) matchesCategory(tx core.Transaction) bool {
	if isAll(c.Category) {
		return true
	}
	return strings.EqualFold(c.Category, tx.Category)
}

func matchesTerm(tx core.Transaction, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(tx.Name), lowerTerm) ||
		strings.Contains(strings.ToLower(tx.Category), lowerTerm) ||
		strings.Contains(strings.ToLower(tx.PaymentGroup.Name), lowerTerm)
}

// An empty filter is treated like the sentinel.
func isAll(category string) bool {
	return category == "" || strings.EqualFold(category, All)
}

// Tabs returns the filter keys offered to users: the sentinel followed by
// every category in lower case.
func Tabs() []string {
	tabs := make([]string, 0, len(core.Categories)+1)
	tabs = append(tabs, All)
	for _, c := range core.Categories {
		tabs = append(tabs, strings.ToLower(string(c)))
	}
	return tabs
}
