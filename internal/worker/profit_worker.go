// Package worker reacts to ledger events published by the API server.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fleetledger/internal/amqp"
	"fleetledger/internal/core"
	"fleetledger/internal/ledger"
	"fleetledger/internal/profit"
)

// ProfitReader is the slice of the ledger service the worker needs.
type ProfitReader interface {
	GetProfitability(ctx context.Context, vehicleID string, asOf *time.Time) (profit.Summary, error)
	GetDashboard(ctx context.Context, vehicleIDs []string, asOf *time.Time) (profit.Dashboard, error)
}

// ProfitWorker recomputes a vehicle's profitability whenever its ledger
// changes and logs the result, leaving an audit trail of profit movement.
// It never writes the ledger.
type ProfitWorker struct {
	profits ProfitReader
	now     func() time.Time

	mu          sync.Mutex
	lastCompute map[string]time.Time
}

func NewProfitWorker(profits ProfitReader, now func() time.Time) *ProfitWorker {
	if now == nil {
		now = time.Now
	}
	return &ProfitWorker{
		profits:     profits,
		now:         now,
		lastCompute: make(map[string]time.Time),
	}
}

// HandleLedgerEvent processes one ledger event. Events older than the last
// recomputation of the same vehicle are skipped: that run already read the
// newer ledger state.
func (w *ProfitWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	logger := slog.With("message_id", msg.MessageID, "kind", msg.Kind, "vehicle_id", msg.VehicleID)

	if msg.Kind == ledger.EventVehicleDeleted {
		w.forget(msg.VehicleID)
		logger.InfoContext(ctx, "Vehicle removed from ledger")
		return nil
	}

	if w.isStale(msg.VehicleID, msg.Timestamp) {
		logger.DebugContext(ctx, "Skipping stale ledger event", "timestamp", msg.Timestamp)
		return nil
	}

	started := w.now()
	summary, err := w.profits.GetProfitability(ctx, msg.VehicleID, nil)
	if core.IsNotFound(err) {
		logger.InfoContext(ctx, "Vehicle no longer exists, nothing to recompute")
		return nil
	}
	if err != nil {
		return fmt.Errorf("recompute profitability for %s: %w", msg.VehicleID, err)
	}
	w.markComputed(msg.VehicleID, started)

	attrs := []any{
		"transaction_id", msg.TransactionID,
		"all_time_revenue", summary.AllTimeRevenue.String(),
		"all_time_expenses", summary.AllTimeExpenses.String(),
		"all_time_profit", summary.AllTimeProfit.String(),
		"margin", summary.Margin,
		"transactions", summary.TransactionCount,
	}
	if summary.CurrentMonth != nil {
		attrs = append(attrs, "current_month_profit", summary.CurrentMonth.Profit.String())
	}
	logger.InfoContext(ctx, "Vehicle profitability recomputed", attrs...)
	return nil
}

// Snapshot logs the fleet-wide totals. It backs up the event stream when
// messages were lost while the worker was down.
func (w *ProfitWorker) Snapshot(ctx context.Context) error {
	d, err := w.profits.GetDashboard(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("build fleet snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Fleet snapshot",
		"as_of", d.AsOf.String(),
		"vehicles", d.VehicleCount,
		"fleet_revenue", d.FleetRevenue.String(),
		"fleet_expenses", d.FleetExpenses.String(),
		"fleet_profit", d.FleetProfit.String(),
		"profitable", d.ProfitableVehicles,
		"unprofitable", d.UnprofitableVehicles)
	return nil
}

func (w *ProfitWorker) isStale(vehicleID string, ts time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.lastCompute[vehicleID]
	return ok && !ts.IsZero() && ts.Before(last)
}

func (w *ProfitWorker) markComputed(vehicleID string, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastCompute[vehicleID] = at
}

func (w *ProfitWorker) forget(vehicleID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.lastCompute, vehicleID)
}
