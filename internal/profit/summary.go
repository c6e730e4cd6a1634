package profit

import (
	"time"

	"fleetledger/internal/core"
)

// WindowMonths is the length of the rolling series.
const WindowMonths = 12

// Summary is the profitability view of a single vehicle.
type Summary struct {
	VehicleID        string           `json:"vehicleId"`
	AsOf             core.Month       `json:"asOf"`
	CurrentMonth     *MonthlySummary  `json:"currentMonth"`
	AllTimeRevenue   core.Money       `json:"allTimeRevenue"`
	AllTimeExpenses  core.Money       `json:"allTimeExpenses"`
	AllTimeProfit    core.Money       `json:"allTimeProfit"`
	Margin           float64          `json:"margin"`
	TransactionCount int              `json:"transactionCount"`
	Months           []MonthlySummary `json:"months"`
}

// Window returns the n calendar months ending at asOf's month, oldest first.
func Window(asOf time.Time, n int) []core.Month {
	end := core.MonthOf(asOf)
	months := make([]core.Month, n)
	for i := 0; i < n; i++ {
		months[i] = end.AddMonths(i - n + 1)
	}
	return months
}

// Summarize builds the current-month, all-time and rolling twelve-month
// views for one vehicle. A vehicle without transactions still gets a full
// zero-valued twelve-month series.
func Summarize(vehicleID string, txs []core.Transaction, asOf time.Time) Summary {
	buckets := AggregateMonthly(txs)
	current := core.MonthOf(asOf)

	s := Summary{
		VehicleID:        vehicleID,
		AsOf:             current,
		AllTimeRevenue:   core.Zero,
		AllTimeExpenses:  core.Zero,
		TransactionCount: len(txs),
	}
	if b, ok := buckets[current]; ok {
		s.CurrentMonth = &b
	}

	for _, tx := range txs {
		switch tx.Type {
		case core.Revenue:
			s.AllTimeRevenue = s.AllTimeRevenue.Add(tx.Amount)
		case core.Expense:
			s.AllTimeExpenses = s.AllTimeExpenses.Add(tx.Amount)
		}
	}
	s.AllTimeProfit = s.AllTimeRevenue.Sub(s.AllTimeExpenses)
	s.Margin = margin(s.AllTimeProfit, s.AllTimeRevenue)

	s.Months = make([]MonthlySummary, 0, WindowMonths)
	for _, m := range Window(asOf, WindowMonths) {
		if b, ok := buckets[m]; ok {
			s.Months = append(s.Months, b)
			continue
		}
		s.Months = append(s.Months, emptyMonth(m))
	}
	return s
}

// margin is profit / revenue rounded to four places, zero without revenue.
func margin(profit, revenue core.Money) float64 {
	if !revenue.IsPositive() {
		return 0
	}
	return profit.Decimal().DivRound(revenue.Decimal(), 4).InexactFloat64()
}
