package core

import (
	"errors"
	"fmt"
)

// ReferentialError reports a reference to a vehicle, employee or document
// that does not exist.
type ReferentialError struct {
	Entity string
	ID     string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s with ID \"%s\" does not exist", e.Entity, e.ID)
}

// RangeError reports a value outside its permitted range.
type RangeError struct {
	Message string
}

func (e *RangeError) Error() string {
	return e.Message
}

// NotFoundError reports a missing lookup, update or delete target.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s \"%s\" not found", e.Entity, e.ID)
}

// StorageError wraps an unexpected failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

const (
	EntityVehicle       = "Vehicle"
	EntityEmployee      = "Employee"
	EntityInvoice       = "Invoice"
	EntityPurchaseOrder = "Purchase order"
	EntityQuote         = "Quote"
	EntityTransaction   = "Transaction"
)

// Validation messages.
const (
	MsgAmountNotPositive = "Transaction amount must be greater than 0"
	MsgDateInFuture      = "Transaction date cannot be in the future"
	MsgDateTooOld        = "Transaction date cannot be more than 12 months in the past"
	MsgInvalidType       = `Transaction type must be "revenue" or "expense"`
)

// IsValidation reports whether err is a client-input error.
func IsValidation(err error) bool {
	var re *ReferentialError
	var rg *RangeError
	return errors.As(err, &re) || errors.As(err, &rg)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// NewStorageError wraps err unless it is nil or already classified.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || IsNotFound(err) || IsValidation(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
