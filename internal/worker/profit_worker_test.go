package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetledger/internal/amqp"
	"fleetledger/internal/core"
	"fleetledger/internal/ledger"
	"fleetledger/internal/profit"
)

type fakeProfits struct {
	calls     []string
	err       error
	dashboard profit.Dashboard
}

func (f *fakeProfits) GetProfitability(_ context.Context, vehicleID string, _ *time.Time) (profit.Summary, error) {
	f.calls = append(f.calls, vehicleID)
	if f.err != nil {
		return profit.Summary{}, f.err
	}
	return profit.Summary{VehicleID: vehicleID, AllTimeRevenue: core.MoneyFromCents(100)}, nil
}

func (f *fakeProfits) GetDashboard(context.Context, []string, *time.Time) (profit.Dashboard, error) {
	return f.dashboard, f.err
}

func event(kind ledger.EventKind, vehicle string, ts time.Time) *amqp.LedgerEventMessage {
	return amqp.NewLedgerEventMessage(ledger.Event{Kind: kind, TransactionID: "t1", VehicleID: vehicle, Timestamp: ts})
}

func TestHandleLedgerEventRecomputes(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeProfits{}
	w := NewProfitWorker(fake, func() time.Time { return now })

	if err := w.HandleLedgerEvent(context.Background(), event(ledger.EventTransactionCreated, "V1", now)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(fake.calls) != 1 || fake.calls[0] != "V1" {
		t.Fatalf("unexpected recomputations: %v", fake.calls)
	}
}

func TestHandleLedgerEventSkipsStale(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeProfits{}
	w := NewProfitWorker(fake, func() time.Time { return now })
	ctx := context.Background()

	_ = w.HandleLedgerEvent(ctx, event(ledger.EventTransactionCreated, "V1", now))
	_ = w.HandleLedgerEvent(ctx, event(ledger.EventTransactionUpdated, "V1", now.Add(-time.Minute)))
	if len(fake.calls) != 1 {
		t.Fatalf("stale event should not recompute, calls=%v", fake.calls)
	}

	_ = w.HandleLedgerEvent(ctx, event(ledger.EventTransactionUpdated, "V1", now.Add(time.Minute)))
	if len(fake.calls) != 2 {
		t.Fatalf("newer event should recompute, calls=%v", fake.calls)
	}
}

func TestHandleLedgerEventVehicleDeleted(t *testing.T) {
	fake := &fakeProfits{}
	w := NewProfitWorker(fake, nil)
	if err := w.HandleLedgerEvent(context.Background(), event(ledger.EventVehicleDeleted, "V1", time.Now())); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("vehicle deletion should not recompute, calls=%v", fake.calls)
	}
}

func TestHandleLedgerEventErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"vehicle gone", &core.NotFoundError{Entity: core.EntityVehicle, ID: "V1"}, false},
		{"storage failure", &core.StorageError{Op: "list", Err: errors.New("disk")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewProfitWorker(&fakeProfits{err: tt.err}, nil)
			err := w.HandleLedgerEvent(context.Background(), event(ledger.EventTransactionDeleted, "V1", time.Now()))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	fake := &fakeProfits{dashboard: profit.Dashboard{VehicleCount: 2}}
	w := NewProfitWorker(fake, nil)
	if err := w.Snapshot(context.Background()); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	fake.err = errors.New("boom")
	if err := w.Snapshot(context.Background()); err == nil {
		t.Fatal("expected snapshot error")
	}
}
