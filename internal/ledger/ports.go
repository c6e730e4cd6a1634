// Package ledger records revenue and expense events against vehicles and
// serves the profitability views derived from them.
package ledger

import (
	"context"
	"time"

	"fleetledger/internal/core"
)

// Clock returns the current instant. The validator derives "today" from its
// calendar date in the clock's location.
type Clock func() time.Time

// Ports for outbound adapters.
type (
	// Resolver answers existence lookups against the record stores the
	// ledger references but does not own.
	Resolver interface {
		VehicleExists(ctx context.Context, id string) (bool, error)
		EmployeeExists(ctx context.Context, id string) (bool, error)
		InvoiceExists(ctx context.Context, id string) (bool, error)
		PurchaseOrderExists(ctx context.Context, id string) (bool, error)
		QuoteExists(ctx context.Context, id string) (bool, error)
	}

	// Store persists transactions. GetTransaction and UpdateTransaction
	// return *core.NotFoundError for unknown ids; DeleteTransaction does not.
	Store interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, filter ListFilter) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) (deleted bool, err error)
		// DeleteVehicle removes the vehicle and all of its transactions atomically.
		DeleteVehicle(ctx context.Context, vehicleID string) (removed int64, err error)
		ListVehicleIDs(ctx context.Context) ([]string, error)
		Ping(ctx context.Context) error
	}

	// Registry maintains the reference records transactions point at.
	Registry interface {
		UpsertVehicle(ctx context.Context, id string) error
		UpsertEmployee(ctx context.Context, id string) error
		UpsertInvoice(ctx context.Context, id string) error
		UpsertPurchaseOrder(ctx context.Context, id string) error
		UpsertQuote(ctx context.Context, id string) error
	}

	// Publisher announces ledger mutations to interested workers.
	Publisher interface {
		PublishLedgerEvent(ctx context.Context, ev Event) error
	}
)

// ListFilter narrows ListTransactions. Zero fields do not filter.
type ListFilter struct {
	VehicleID string
	Month     *core.Month
}

// Matches reports whether tx passes the filter.
func (f ListFilter) Matches(tx core.Transaction) bool {
	if f.VehicleID != "" && tx.VehicleID != f.VehicleID {
		return false
	}
	if f.Month != nil && tx.Month != *f.Month {
		return false
	}
	return true
}

// EventKind names a ledger mutation.
type EventKind string

const (
	EventTransactionCreated EventKind = "transaction.created"
	EventTransactionUpdated EventKind = "transaction.updated"
	EventTransactionDeleted EventKind = "transaction.deleted"
	EventVehicleDeleted     EventKind = "vehicle.deleted"
)

// Event describes one committed ledger mutation.
type Event struct {
	Kind          EventKind `json:"kind"`
	TransactionID string    `json:"transactionId,omitempty"`
	VehicleID     string    `json:"vehicleId"`
	Month         string    `json:"month,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
