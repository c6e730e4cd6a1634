package profit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"fleetledger/internal/core"
)

const (
	defaultConcurrency = 4
	defaultTopN        = 5
)

// TransactionLoader returns every ledger transaction of one vehicle.
type TransactionLoader interface {
	LoadVehicleTransactions(ctx context.Context, vehicleID string) ([]core.Transaction, error)
}

// LoaderFunc adapts a function to TransactionLoader.
type LoaderFunc func(ctx context.Context, vehicleID string) ([]core.Transaction, error)

func (f LoaderFunc) LoadVehicleTransactions(ctx context.Context, vehicleID string) ([]core.Transaction, error) {
	return f(ctx, vehicleID)
}

// Ranking is one entry of a leaderboard.
type Ranking struct {
	VehicleID string     `json:"vehicleId"`
	Revenue   core.Money `json:"revenue"`
	Profit    core.Money `json:"profit"`
	Margin    float64    `json:"margin"`
}

// Dashboard is the fleet-wide snapshot.
type Dashboard struct {
	AsOf                 core.Month       `json:"asOf"`
	Vehicles             []Summary        `json:"vehicles"`
	VehicleCount         int              `json:"vehicleCount"`
	FleetRevenue         core.Money       `json:"fleetRevenue"`
	FleetExpenses        core.Money       `json:"fleetExpenses"`
	FleetProfit          core.Money       `json:"fleetProfit"`
	FleetMargin          float64          `json:"fleetMargin"`
	AverageProfit        core.Money       `json:"averageProfit"`
	ProfitableVehicles   int              `json:"profitableVehicles"`
	UnprofitableVehicles int              `json:"unprofitableVehicles"`
	CurrentMonth         MonthlySummary   `json:"currentMonth"`
	Months               []MonthlySummary `json:"months"`
	TopByRevenue         []Ranking        `json:"topByRevenue"`
	TopByProfit          []Ranking        `json:"topByProfit"`
}

// DashboardBuilder loads and summarizes every requested vehicle.
type DashboardBuilder struct {
	loader      TransactionLoader
	concurrency int
	topN        int
}

func NewDashboardBuilder(loader TransactionLoader, concurrency int) *DashboardBuilder {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &DashboardBuilder{
		loader:      loader,
		concurrency: concurrency,
		topN:        defaultTopN,
	}
}

// Build loads each vehicle's transactions and folds the summaries into one
// snapshot. A load failure for any vehicle fails the whole dashboard.
func (b *DashboardBuilder) Build(ctx context.Context, vehicleIDs []string, asOf time.Time) (Dashboard, error) {
	ids := dedupe(vehicleIDs)
	summaries := make([]Summary, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			txs, err := b.loader.LoadVehicleTransactions(gctx, id)
			if err != nil {
				return fmt.Errorf("load transactions for vehicle %s: %w", id, err)
			}
			summaries[i] = Summarize(id, txs, asOf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	slog.DebugContext(ctx, "Dashboard built", "vehicles", len(ids), "as_of", core.MonthOf(asOf).String())
	return Rollup(summaries, asOf, b.topN), nil
}

// Rollup folds per-vehicle summaries into a fleet snapshot.
func Rollup(summaries []Summary, asOf time.Time, topN int) Dashboard {
	d := Dashboard{
		AsOf:          core.MonthOf(asOf),
		Vehicles:      summaries,
		VehicleCount:  len(summaries),
		FleetRevenue:  core.Zero,
		FleetExpenses: core.Zero,
		CurrentMonth:  emptyMonth(core.MonthOf(asOf)),
	}
	if d.Vehicles == nil {
		d.Vehicles = []Summary{}
	}

	window := Window(asOf, WindowMonths)
	d.Months = make([]MonthlySummary, len(window))
	for i, m := range window {
		d.Months[i] = emptyMonth(m)
	}

	for _, s := range summaries {
		d.FleetRevenue = d.FleetRevenue.Add(s.AllTimeRevenue)
		d.FleetExpenses = d.FleetExpenses.Add(s.AllTimeExpenses)
		switch {
		case s.AllTimeProfit.IsPositive():
			d.ProfitableVehicles++
		case s.AllTimeProfit.IsNegative():
			d.UnprofitableVehicles++
		}
		if s.CurrentMonth != nil {
			d.CurrentMonth = d.CurrentMonth.merge(*s.CurrentMonth)
		}
		for i := range d.Months {
			if i < len(s.Months) && s.Months[i].Month == d.Months[i].Month {
				d.Months[i] = d.Months[i].merge(s.Months[i])
			}
		}
	}
	d.FleetProfit = d.FleetRevenue.Sub(d.FleetExpenses)
	d.FleetMargin = margin(d.FleetProfit, d.FleetRevenue)
	d.AverageProfit = d.FleetProfit.DivRound(int64(d.VehicleCount))

	d.TopByRevenue = rank(summaries, topN, func(a, b Summary) int { return a.AllTimeRevenue.Cmp(b.AllTimeRevenue) })
	d.TopByProfit = rank(summaries, topN, func(a, b Summary) int { return a.AllTimeProfit.Cmp(b.AllTimeProfit) })
	return d
}

// rank orders summaries by cmp descending, ties by vehicle id, and keeps topN.
func rank(summaries []Summary, topN int, cmp func(a, b Summary) int) []Ranking {
	sorted := make([]Summary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := cmp(sorted[i], sorted[j]); c != 0 {
			return c > 0
		}
		return sorted[i].VehicleID < sorted[j].VehicleID
	})
	if topN > 0 && len(sorted) > topN {
		sorted = sorted[:topN]
	}
	out := make([]Ranking, len(sorted))
	for i, s := range sorted {
		out[i] = Ranking{
			VehicleID: s.VehicleID,
			Revenue:   s.AllTimeRevenue,
			Profit:    s.AllTimeProfit,
			Margin:    s.Margin,
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
