package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Revenue TransactionType = "revenue"
	Expense TransactionType = "expense"
)

const dateLayout = "2006-01-02"

type (
	TransactionType string

	// Date is a calendar date stored as UTC midnight.
	Date struct {
		time.Time
	}

	// Transaction is one financial event recorded against a vehicle.
	Transaction struct {
		ID              string          `json:"id"`
		VehicleID       string          `json:"vehicleId"`
		Type            TransactionType `json:"transactionType"`
		Category        string          `json:"category,omitempty"`
		Amount          Money           `json:"amount"`
		Date            Date            `json:"date"`
		Month           Month           `json:"month"`
		Description     string          `json:"description,omitempty"`
		EmployeeID      *string         `json:"employeeId"`
		InvoiceID       *string         `json:"invoiceId"`
		PurchaseOrderID *string         `json:"purchaseOrderId"`
		QuoteID         *string         `json:"quoteId"`
		CreatedAt       time.Time       `json:"createdAt"`
		UpdatedAt       time.Time       `json:"updatedAt"`
	}

	// TransactionInput carries the caller-supplied fields of a new transaction.
	TransactionInput struct {
		VehicleID       string
		Type            TransactionType
		Category        string
		Amount          Money
		Date            Date
		Description     string
		EmployeeID      *string
		InvoiceID       *string
		PurchaseOrderID *string
		QuoteID         *string
	}

	// TransactionPatch is a partial update. Nil fields are left untouched.
	TransactionPatch struct {
		VehicleID       *string
		Type            *TransactionType
		Category        *string
		Amount          *Money
		Date            *Date
		Description     *string
		EmployeeID      OptionalRef
		InvoiceID       OptionalRef
		PurchaseOrderID OptionalRef
		QuoteID         OptionalRef
	}

	// OptionalRef distinguishes an absent reference from an explicit null.
	OptionalRef struct {
		Set   bool
		Value *string
	}
)

var (
	ErrInvalidDay   = errors.New("invalid day")
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidDate  = errors.New("invalid date")
)

func (t TransactionType) IsValid() bool {
	return t == Revenue || t == Expense
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// AddMonths moves d by n calendar months, clamping the day to the end of
// the target month (2028-02-29 minus 12 months is 2027-02-28).
func (d Date) AddMonths(n int) Date {
	target := MonthOf(d.Time).AddMonths(n)
	last := target.FirstDay().AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return NewDate(target.Year, int(target.Month), day)
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Before reports whether d is an earlier calendar date than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is a later calendar date than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (o *OptionalRef) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = normalizeRef(&s)
	return nil
}

// Ref returns a normalized optional reference: blank strings become nil.
func Ref(s string) *string {
	return normalizeRef(&s)
}

func normalizeRef(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Normalize trims free-text fields and blanks out empty references.
func (in TransactionInput) Normalize() TransactionInput {
	in.VehicleID = strings.TrimSpace(in.VehicleID)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.EmployeeID = normalizeRef(in.EmployeeID)
	in.InvoiceID = normalizeRef(in.InvoiceID)
	in.PurchaseOrderID = normalizeRef(in.PurchaseOrderID)
	in.QuoteID = normalizeRef(in.QuoteID)
	return in
}

// Empty reports whether the patch changes nothing.
func (p TransactionPatch) Empty() bool {
	return p.VehicleID == nil && p.Type == nil && p.Category == nil && p.Amount == nil &&
		p.Date == nil && p.Description == nil && !p.EmployeeID.Set && !p.InvoiceID.Set &&
		!p.PurchaseOrderID.Set && !p.QuoteID.Set
}
