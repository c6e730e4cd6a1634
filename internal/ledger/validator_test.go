package ledger_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fleetledger/internal/core"
	"fleetledger/internal/ledger"
	"fleetledger/internal/storage/memory"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newResolver(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	for _, err := range []error{
		s.UpsertVehicle(ctx, "V1"),
		s.UpsertVehicle(ctx, "V2"),
		s.UpsertEmployee(ctx, "E1"),
		s.UpsertInvoice(ctx, "I1"),
		s.UpsertPurchaseOrder(ctx, "P1"),
		s.UpsertQuote(ctx, "Q1"),
	} {
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return s
}

func validInput() core.TransactionInput {
	return core.TransactionInput{
		VehicleID: "V1",
		Type:      core.Revenue,
		Amount:    core.MoneyFromCents(100000),
		Date:      core.NewDate(2025, 5, 31),
	}
}

func TestValidateCreate(t *testing.T) {
	v := ledger.NewValidator(newResolver(t), fixedClock)

	tests := []struct {
		name    string
		mutate  func(in *core.TransactionInput)
		wantRef string
		wantMsg string
	}{
		{name: "valid", mutate: func(*core.TransactionInput) {}},
		{
			name:    "unknown vehicle",
			mutate:  func(in *core.TransactionInput) { in.VehicleID = "ghost" },
			wantRef: `Vehicle with ID "ghost" does not exist`,
		},
		{
			name: "unknown vehicle wins over bad amount",
			mutate: func(in *core.TransactionInput) {
				in.VehicleID = "ghost"
				in.Amount = core.Zero
			},
			wantRef: `Vehicle with ID "ghost" does not exist`,
		},
		{
			name:    "zero amount",
			mutate:  func(in *core.TransactionInput) { in.Amount = core.Zero },
			wantMsg: core.MsgAmountNotPositive,
		},
		{
			name:    "negative amount",
			mutate:  func(in *core.TransactionInput) { in.Amount = core.MoneyFromCents(-500) },
			wantMsg: core.MsgAmountNotPositive,
		},
		{
			name: "bad amount wins over future date",
			mutate: func(in *core.TransactionInput) {
				in.Amount = core.Zero
				in.Date = core.NewDate(2025, 7, 1)
			},
			wantMsg: core.MsgAmountNotPositive,
		},
		{
			name:    "future date",
			mutate:  func(in *core.TransactionInput) { in.Date = core.NewDate(2025, 6, 16) },
			wantMsg: core.MsgDateInFuture,
		},
		{name: "today", mutate: func(in *core.TransactionInput) { in.Date = core.NewDate(2025, 6, 15) }},
		{name: "exactly twelve months ago", mutate: func(in *core.TransactionInput) { in.Date = core.NewDate(2024, 6, 15) }},
		{
			name:    "one day past the window",
			mutate:  func(in *core.TransactionInput) { in.Date = core.NewDate(2024, 6, 14) },
			wantMsg: core.MsgDateTooOld,
		},
		{
			name:    "thirteen months ago",
			mutate:  func(in *core.TransactionInput) { in.Date = core.NewDate(2024, 5, 15) },
			wantMsg: core.MsgDateTooOld,
		},
		{
			name:    "missing date",
			mutate:  func(in *core.TransactionInput) { in.Date = core.Date{} },
			wantMsg: "Transaction date is required",
		},
		{name: "known employee", mutate: func(in *core.TransactionInput) { in.EmployeeID = core.Ref("E1") }},
		{name: "blank employee is absent", mutate: func(in *core.TransactionInput) { in.EmployeeID = core.Ref("  ") }},
		{
			name:    "unknown employee",
			mutate:  func(in *core.TransactionInput) { in.EmployeeID = core.Ref("E9") },
			wantRef: `Employee with ID "E9" does not exist`,
		},
		{
			name: "old date wins over unknown employee",
			mutate: func(in *core.TransactionInput) {
				in.Date = core.NewDate(2023, 1, 1)
				in.EmployeeID = core.Ref("E9")
			},
			wantMsg: core.MsgDateTooOld,
		},
		{
			name:    "unknown invoice",
			mutate:  func(in *core.TransactionInput) { in.InvoiceID = core.Ref("I9") },
			wantRef: `Invoice with ID "I9" does not exist`,
		},
		{
			name:    "unknown purchase order",
			mutate:  func(in *core.TransactionInput) { in.PurchaseOrderID = core.Ref("P9") },
			wantRef: `Purchase order with ID "P9" does not exist`,
		},
		{
			name:    "unknown quote",
			mutate:  func(in *core.TransactionInput) { in.QuoteID = core.Ref("Q9") },
			wantRef: `Quote with ID "Q9" does not exist`,
		},
		{
			name: "all documents known",
			mutate: func(in *core.TransactionInput) {
				in.InvoiceID = core.Ref("I1")
				in.PurchaseOrderID = core.Ref("P1")
				in.QuoteID = core.Ref("Q1")
			},
		},
		{
			name:    "invalid type",
			mutate:  func(in *core.TransactionInput) { in.Type = "refund" },
			wantMsg: core.MsgInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			got, err := v.ValidateCreate(context.Background(), in)

			switch {
			case tt.wantRef != "":
				var re *core.ReferentialError
				if !errors.As(err, &re) || re.Error() != tt.wantRef {
					t.Fatalf("expected referential error %q, got %v", tt.wantRef, err)
				}
			case tt.wantMsg != "":
				var rg *core.RangeError
				if !errors.As(err, &rg) || rg.Message != tt.wantMsg {
					t.Fatalf("expected range error %q, got %v", tt.wantMsg, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.Month != core.MonthOf(in.Date.Time) {
					t.Fatalf("month %s not derived from date %s", got.Month, in.Date)
				}
			}
		})
	}
}

func TestValidateCreateNormalizes(t *testing.T) {
	v := ledger.NewValidator(newResolver(t), fixedClock)
	in := validInput()
	in.VehicleID = " V1 "
	in.Description = "  fuel  "
	in.QuoteID = core.Ref("")

	got, err := v.ValidateCreate(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.VehicleID != "V1" || got.Description != "fuel" || got.QuoteID != nil {
		t.Fatalf("input not normalized: %+v", got)
	}
	if got.Month.String() != "2025-05" {
		t.Fatalf("month = %s, want 2025-05", got.Month)
	}
}

func TestValidateUpdate(t *testing.T) {
	v := ledger.NewValidator(newResolver(t), fixedClock)
	current := core.Transaction{
		ID:         "t1",
		VehicleID:  "V1",
		Type:       core.Expense,
		Amount:     core.MoneyFromCents(5000),
		Date:       core.NewDate(2025, 5, 10),
		Month:      core.Month{Year: 2025, Month: time.May},
		EmployeeID: core.Ref("E1"),
	}
	date := func(y, m, d int) *core.Date { dt := core.NewDate(y, m, d); return &dt }
	amount := func(cents int64) *core.Money { m := core.MoneyFromCents(cents); return &m }
	str := func(s string) *string { return &s }

	t.Run("only supplied fields change", func(t *testing.T) {
		got, err := v.ValidateUpdate(context.Background(), current, core.TransactionPatch{Amount: amount(7000)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Amount.Cents() != 7000 || got.VehicleID != "V1" || got.Month != current.Month || *got.EmployeeID != "E1" {
			t.Fatalf("unexpected result: %+v", got)
		}
	})

	t.Run("date change re-derives month", func(t *testing.T) {
		got, err := v.ValidateUpdate(context.Background(), current, core.TransactionPatch{Date: date(2025, 3, 1)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Month.String() != "2025-03" {
			t.Fatalf("month = %s, want 2025-03", got.Month)
		}
	})

	t.Run("stale date rejected like a create", func(t *testing.T) {
		_, err := v.ValidateUpdate(context.Background(), current, core.TransactionPatch{Date: date(2024, 1, 1)})
		var rg *core.RangeError
		if !errors.As(err, &rg) || rg.Message != core.MsgDateTooOld {
			t.Fatalf("expected stale date error, got %v", err)
		}
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		_, err := v.ValidateUpdate(context.Background(), current, core.TransactionPatch{VehicleID: str("ghost")})
		var re *core.ReferentialError
		if !errors.As(err, &re) || re.ID != "ghost" {
			t.Fatalf("expected referential error, got %v", err)
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := v.ValidateUpdate(context.Background(), current, core.TransactionPatch{Amount: amount(0)})
		if !core.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("explicit null clears a reference", func(t *testing.T) {
		got, err := v.ValidateUpdate(context.Background(), current, core.TransactionPatch{
			EmployeeID: core.OptionalRef{Set: true},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.EmployeeID != nil {
			t.Fatalf("employee not cleared: %v", *got.EmployeeID)
		}
	})

	t.Run("unknown reference", func(t *testing.T) {
		_, err := v.ValidateUpdate(context.Background(), current, core.TransactionPatch{
			InvoiceID: core.OptionalRef{Set: true, Value: str("I9")},
		})
		if err == nil || !strings.Contains(err.Error(), `"I9"`) {
			t.Fatalf("expected invoice error, got %v", err)
		}
	})
}

func TestValidatorTodayUsesClockLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	clock := func() time.Time { return time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC).In(loc) }
	v := ledger.NewValidator(newResolver(t), clock)
	if got := v.Today().String(); got != "2025-06-16" {
		t.Fatalf("today = %s, want 2025-06-16", got)
	}
}

func TestValidateCreateDateWindowOnLeapDay(t *testing.T) {
	clock := func() time.Time { return time.Date(2028, 2, 29, 9, 0, 0, 0, time.UTC) }
	v := ledger.NewValidator(newResolver(t), clock)

	tests := []struct {
		date    core.Date
		wantErr string
	}{
		{core.NewDate(2027, 2, 28), ""},
		{core.NewDate(2027, 3, 1), ""},
		{core.NewDate(2027, 2, 27), core.MsgDateTooOld},
		{core.NewDate(2028, 2, 29), ""},
		{core.NewDate(2028, 3, 1), core.MsgDateInFuture},
	}
	for _, tt := range tests {
		t.Run(tt.date.String(), func(t *testing.T) {
			in := validInput()
			in.Date = tt.date
			_, err := v.ValidateCreate(context.Background(), in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
