// Package profit derives per-vehicle and fleet-wide profitability views
// from ledger transactions. Every function here is a pure computation over
// the transactions it is handed; nothing is cached between calls.
package profit

import (
	"fleetledger/internal/core"
)

// MonthlySummary is one vehicle (or the fleet) in one calendar month.
type MonthlySummary struct {
	Month    core.Month `json:"month"`
	Revenue  core.Money `json:"revenue"`
	Expenses core.Money `json:"expenses"`
	Profit   core.Money `json:"profit"`
}

func emptyMonth(m core.Month) MonthlySummary {
	return MonthlySummary{Month: m, Revenue: core.Zero, Expenses: core.Zero, Profit: core.Zero}
}

// add folds a single transaction into the bucket.
func (s MonthlySummary) add(tx core.Transaction) MonthlySummary {
	switch tx.Type {
	case core.Revenue:
		s.Revenue = s.Revenue.Add(tx.Amount)
	case core.Expense:
		s.Expenses = s.Expenses.Add(tx.Amount)
	default:
		return s
	}
	s.Profit = s.Revenue.Sub(s.Expenses)
	return s
}

// merge sums two buckets of the same month.
func (s MonthlySummary) merge(o MonthlySummary) MonthlySummary {
	s.Revenue = s.Revenue.Add(o.Revenue)
	s.Expenses = s.Expenses.Add(o.Expenses)
	s.Profit = s.Revenue.Sub(s.Expenses)
	return s
}

// bucketOf returns the month key of a transaction, falling back to its date
// when the stored key is missing.
func bucketOf(tx core.Transaction) core.Month {
	if tx.Month.IsZero() {
		return core.MonthOf(tx.Date.Time)
	}
	return tx.Month
}

// AggregateMonthly groups transactions into calendar-month buckets. Months
// without transactions are not emitted.
func AggregateMonthly(txs []core.Transaction) map[core.Month]MonthlySummary {
	buckets := make(map[core.Month]MonthlySummary)
	for _, tx := range txs {
		key := bucketOf(tx)
		s, ok := buckets[key]
		if !ok {
			s = emptyMonth(key)
		}
		buckets[key] = s.add(tx)
	}
	return buckets
}
