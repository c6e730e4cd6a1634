package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-01", "2025-01", true},
		{"2025-1", "2025-01", true},
		{"2025-12", "2025-12", true},
		{" 2024-7 ", "2024-07", true},
		{"2025-13", "", false},
		{"2025-0", "", false},
		{"2025-001", "", false},
		{"25-01", "", false},
		{"2025/01", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonth(tt.in)
			if !tt.ok {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				if !errors.Is(err, ErrInvalidMonth) {
					t.Fatalf("error %v should wrap ErrInvalidMonth", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUnpaddedKeyEqualsPadded(t *testing.T) {
	a, _ := ParseMonth("2025-1")
	b, _ := ParseMonth("2025-01")
	if a != b {
		t.Fatalf("%v != %v", a, b)
	}
	key, err := NormalizeMonthKey("2025-1")
	if err != nil || key != "2025-01" {
		t.Fatalf("NormalizeMonthKey = %q, %v", key, err)
	}
}

func TestMonthOfAndFirstDay(t *testing.T) {
	m := MonthOf(time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC))
	if m.String() != "2025-03" {
		t.Fatalf("MonthOf = %s", m)
	}
	if m.FirstDay().String() != "2025-03-01" {
		t.Fatalf("FirstDay = %s", m.FirstDay())
	}
}

func TestAddMonths(t *testing.T) {
	base := Month{Year: 2025, Month: time.March}
	tests := []struct {
		n    int
		want string
	}{
		{0, "2025-03"},
		{-2, "2025-01"},
		{-3, "2024-12"},
		{-11, "2024-04"},
		{-14, "2024-01"},
		{-15, "2023-12"},
		{9, "2025-12"},
		{10, "2026-01"},
	}
	for _, tt := range tests {
		if got := base.AddMonths(tt.n).String(); got != tt.want {
			t.Errorf("AddMonths(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestMonthBefore(t *testing.T) {
	a := Month{Year: 2024, Month: time.December}
	b := Month{Year: 2025, Month: time.January}
	if !a.Before(b) || b.Before(a) || a.Before(a) {
		t.Fatal("Before ordering is wrong")
	}
}

func TestMonthJSON(t *testing.T) {
	var m Month
	if err := json.Unmarshal([]byte(`"2025-2"`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, _ := json.Marshal(m)
	if string(b) != `"2025-02"` {
		t.Fatalf("marshal = %s", b)
	}
}
