package profit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"fleetledger/internal/core"
)

type fakeLoader map[string][]core.Transaction

func (f fakeLoader) LoadVehicleTransactions(_ context.Context, id string) ([]core.Transaction, error) {
	return f[id], nil
}

func TestBuildFleetTotalsAreElementWiseSums(t *testing.T) {
	asOf := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	loader := fakeLoader{
		"V1": {
			tx("V1", core.Revenue, 100000, core.NewDate(2025, 3, 1)),
			tx("V1", core.Expense, 30000, core.NewDate(2025, 2, 1)),
		},
		"V2": {
			tx("V2", core.Revenue, 50000, core.NewDate(2025, 1, 10)),
			tx("V2", core.Expense, 20000, core.NewDate(2025, 3, 2)),
		},
	}

	d, err := NewDashboardBuilder(loader, 2).Build(context.Background(), []string{"V1", "V2"}, asOf)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var rev, exp, prof core.Money
	for _, v := range d.Vehicles {
		rev = rev.Add(v.AllTimeRevenue)
		exp = exp.Add(v.AllTimeExpenses)
		prof = prof.Add(v.AllTimeProfit)
	}
	if !d.FleetRevenue.Equal(rev) || !d.FleetExpenses.Equal(exp) || !d.FleetProfit.Equal(prof) {
		t.Fatalf("fleet totals %s/%s/%s do not match sums %s/%s/%s",
			d.FleetRevenue, d.FleetExpenses, d.FleetProfit, rev, exp, prof)
	}
	assertMoney(t, "fleet revenue", d.FleetRevenue, 150000)
	assertMoney(t, "fleet expenses", d.FleetExpenses, 50000)
	assertMoney(t, "fleet profit", d.FleetProfit, 100000)
	assertMoney(t, "average profit", d.AverageProfit, 50000)

	if d.VehicleCount != 2 || d.ProfitableVehicles != 2 || d.UnprofitableVehicles != 0 {
		t.Fatalf("counts = %d/%d/%d", d.VehicleCount, d.ProfitableVehicles, d.UnprofitableVehicles)
	}
	assertMoney(t, "current month revenue", d.CurrentMonth.Revenue, 100000)
	assertMoney(t, "current month expenses", d.CurrentMonth.Expenses, 20000)

	if len(d.Months) != WindowMonths {
		t.Fatalf("fleet series has %d months", len(d.Months))
	}
	assertMoney(t, "fleet jan revenue", d.Months[9].Revenue, 50000)
	assertMoney(t, "fleet feb expenses", d.Months[10].Expenses, 30000)
	assertMoney(t, "fleet mar profit", d.Months[11].Profit, 80000)

	if d.TopByRevenue[0].VehicleID != "V1" || d.TopByProfit[0].VehicleID != "V1" {
		t.Fatalf("rankings = %+v / %+v", d.TopByRevenue, d.TopByProfit)
	}
}

func TestBuildKeepsVehiclesWithoutTransactions(t *testing.T) {
	asOf := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	loader := fakeLoader{
		"V1": {tx("V1", core.Revenue, 30000, core.NewDate(2025, 3, 1))},
	}

	d, err := NewDashboardBuilder(loader, 0).Build(context.Background(), []string{"V1", "EMPTY"}, asOf)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if d.VehicleCount != 2 || len(d.Vehicles) != 2 {
		t.Fatalf("empty vehicle must be counted, got %d", d.VehicleCount)
	}
	assertMoney(t, "average profit", d.AverageProfit, 15000)

	empty := d.Vehicles[1]
	if empty.VehicleID != "EMPTY" || len(empty.Months) != WindowMonths || empty.CurrentMonth != nil {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
	if got := d.TopByRevenue[len(d.TopByRevenue)-1].VehicleID; got != "EMPTY" {
		t.Fatalf("empty vehicle should rank last, got %s", got)
	}
}

func TestBuildFailsWholeDashboardOnLoadError(t *testing.T) {
	boom := errors.New("store unavailable")
	loader := LoaderFunc(func(_ context.Context, id string) ([]core.Transaction, error) {
		if id == "V2" {
			return nil, boom
		}
		return nil, nil
	})

	d, err := NewDashboardBuilder(loader, 1).Build(context.Background(), []string{"V1", "V2", "V3"}, time.Now())
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if d.Vehicles != nil {
		t.Fatal("no partial dashboard should be returned")
	}
}

func TestBuildDeduplicatesVehicleIDs(t *testing.T) {
	var calls int32
	loader := LoaderFunc(func(_ context.Context, id string) ([]core.Transaction, error) {
		atomic.AddInt32(&calls, 1)
		return []core.Transaction{tx(id, core.Revenue, 100, core.NewDate(2025, 1, 1))}, nil
	})

	d, err := NewDashboardBuilder(loader, 4).Build(context.Background(), []string{"V1", "V1", "", "V2"}, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if calls != 2 || d.VehicleCount != 2 {
		t.Fatalf("calls=%d vehicles=%d, want 2/2", calls, d.VehicleCount)
	}
	assertMoney(t, "fleet revenue", d.FleetRevenue, 200)
}

func TestRollupEmptyFleet(t *testing.T) {
	asOf := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	d := Rollup(nil, asOf, 5)
	if d.VehicleCount != 0 || len(d.Vehicles) != 0 || d.Vehicles == nil {
		t.Fatalf("unexpected empty rollup: %+v", d)
	}
	assertMoney(t, "average", d.AverageProfit, 0)
	if len(d.Months) != WindowMonths {
		t.Fatalf("months = %d", len(d.Months))
	}
}

func TestRankTieBreaksByVehicleID(t *testing.T) {
	asOf := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	summaries := []Summary{
		Summarize("B", []core.Transaction{tx("B", core.Revenue, 100, core.NewDate(2025, 3, 1))}, asOf),
		Summarize("A", []core.Transaction{tx("A", core.Revenue, 100, core.NewDate(2025, 3, 1))}, asOf),
		Summarize("C", []core.Transaction{tx("C", core.Revenue, 900, core.NewDate(2025, 3, 1))}, asOf),
	}
	d := Rollup(summaries, asOf, 2)
	if len(d.TopByRevenue) != 2 {
		t.Fatalf("topN not applied: %d", len(d.TopByRevenue))
	}
	if d.TopByRevenue[0].VehicleID != "C" || d.TopByRevenue[1].VehicleID != "A" {
		t.Fatalf("ranking = %+v", d.TopByRevenue)
	}
}
