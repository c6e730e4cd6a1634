package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.230", "1.23", true},
		{"1.005", "", false},
		{" 2.50 ", "2.50", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	sum := Zero
	for i := 0; i < 10; i++ {
		sum = sum.Add(MoneyFromCents(10)) // 0.10 ten times
	}
	if !sum.Equal(MoneyFromCents(100)) {
		t.Fatalf("sum = %s, want 1.00", sum)
	}
	if got := MoneyFromCents(500).Sub(MoneyFromCents(700)); got.String() != "-2.00" || !got.IsNegative() {
		t.Fatalf("sub = %s", got)
	}
	if got := MoneyFromCents(1000).DivRound(3); got.String() != "3.33" {
		t.Fatalf("div = %s", got)
	}
	if got := MoneyFromCents(1000).DivRound(0); !got.IsZero() {
		t.Fatalf("div by zero = %s", got)
	}
	if MoneyFromCents(1234).Cents() != 1234 {
		t.Fatal("cents round trip")
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{A: MoneyFromCents(100050)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":1000.50}` {
		t.Fatalf("marshal = %s", b)
	}

	var m Money
	for _, in := range []string{`12.5`, `"12.50"`, `"12,50"`} {
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if m.String() != "12.50" {
			t.Fatalf("%s decoded to %s", in, m)
		}
	}
	if err := json.Unmarshal([]byte(`"twelve"`), &m); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseMoneyRejectsSubCentInput(t *testing.T) {
	for _, in := range []string{"0.004", "12,345", "1.001"} {
		if _, err := ParseMoney(in); !errors.Is(err, ErrAmountPrecision) || !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("%q: err = %v, want ErrAmountPrecision", in, err)
		}
	}
	var m Money
	if err := json.Unmarshal([]byte(`0.004`), &m); !errors.Is(err, ErrAmountPrecision) {
		t.Errorf("unmarshal 0.004: err = %v, want ErrAmountPrecision", err)
	}
}
