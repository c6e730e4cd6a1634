package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfTruncatesToCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2025, 3, 1, 1, 30, 0, 0, loc) // still Feb 28 in UTC
	got := DateOf(in)
	if got.String() != "2025-03-01" {
		t.Fatalf("DateOf = %s, want 2025-03-01", got)
	}
}

func TestDateAddMonthsClampsDay(t *testing.T) {
	cases := []struct {
		d    Date
		n    int
		want string
	}{
		{NewDate(2028, 2, 29), -12, "2027-02-28"},
		{NewDate(2025, 3, 31), -1, "2025-02-28"},
		{NewDate(2024, 3, 31), -1, "2024-02-29"},
		{NewDate(2025, 6, 15), -12, "2024-06-15"},
		{NewDate(2025, 1, 31), 1, "2025-02-28"},
	}
	for _, tc := range cases {
		if got := tc.d.AddMonths(tc.n).String(); got != tc.want {
			t.Errorf("%s.AddMonths(%d) = %s, want %s", tc.d, tc.n, got, tc.want)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2025-02-14"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !d.Equal(NewDate(2025, 2, 14)) {
		t.Fatalf("got %s", d)
	}
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-02-14"` {
		t.Fatalf("marshal = %s", b)
	}
	if err := json.Unmarshal([]byte(`"14/02/2025"`), &d); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}

func TestOptionalRefDistinguishesAbsentFromNull(t *testing.T) {
	var p struct {
		EmployeeID OptionalRef `json:"employeeId"`
		QuoteID    OptionalRef `json:"quoteId"`
		InvoiceID  OptionalRef `json:"invoiceId"`
	}
	if err := json.Unmarshal([]byte(`{"employeeId": null, "quoteId": "Q-1"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.EmployeeID.Set || p.EmployeeID.Value != nil {
		t.Errorf("employeeId = %+v, want explicit null", p.EmployeeID)
	}
	if !p.QuoteID.Set || p.QuoteID.Value == nil || *p.QuoteID.Value != "Q-1" {
		t.Errorf("quoteId = %+v, want Q-1", p.QuoteID)
	}
	if p.InvoiceID.Set {
		t.Errorf("invoiceId should be absent")
	}
}

func TestTransactionInputNormalize(t *testing.T) {
	in := TransactionInput{
		VehicleID:   "  V1 ",
		Category:    " Fuel ",
		EmployeeID:  Ref("   "),
		InvoiceID:   Ref(" INV-1 "),
		Description: "\tfill up ",
	}.Normalize()

	if in.VehicleID != "V1" || in.Category != "Fuel" || in.Description != "fill up" {
		t.Fatalf("unexpected trim result: %+v", in)
	}
	if in.EmployeeID != nil {
		t.Errorf("blank employee should become nil")
	}
	if in.InvoiceID == nil || *in.InvoiceID != "INV-1" {
		t.Errorf("invoice = %v", in.InvoiceID)
	}
}

func TestTransactionPatchEmpty(t *testing.T) {
	if !(TransactionPatch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
	if (TransactionPatch{QuoteID: OptionalRef{Set: true}}).Empty() {
		t.Fatal("patch clearing a reference is not empty")
	}
}

func TestTransactionTypeIsValid(t *testing.T) {
	for _, tt := range []TransactionType{Revenue, Expense} {
		if !tt.IsValid() {
			t.Errorf("%s should be valid", tt)
		}
	}
	if TransactionType("refund").IsValid() {
		t.Error("refund should be invalid")
	}
}
