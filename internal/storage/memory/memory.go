// Package memory is an in-process ledger and reference store.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"fleetledger/internal/core"
	"fleetledger/internal/ledger"
)

// Store implements ledger.Store and ledger.Resolver. Every operation holds
// the store mutex, so writes are serialized and a vehicle cascade is atomic.
type Store struct {
	mu             sync.Mutex
	vehicles       map[string]struct{}
	employees      map[string]struct{}
	invoices       map[string]struct{}
	purchaseOrders map[string]struct{}
	quotes         map[string]struct{}
	txs            map[string]core.Transaction
}

var (
	_ ledger.Store    = (*Store)(nil)
	_ ledger.Resolver = (*Store)(nil)
)

func New() *Store {
	return &Store{
		vehicles:       map[string]struct{}{},
		employees:      map[string]struct{}{},
		invoices:       map[string]struct{}{},
		purchaseOrders: map[string]struct{}{},
		quotes:         map[string]struct{}{},
		txs:            map[string]core.Transaction{},
	}
}

// NewFromFiles seeds reference ids from seed_vehicles.txt and
// seed_employees.txt under base. Missing files seed nothing.
func NewFromFiles(base string) *Store {
	s := New()
	for _, id := range readLines(filepath.Join(base, "seed_vehicles.txt")) {
		s.vehicles[id] = struct{}{}
	}
	for _, id := range readLines(filepath.Join(base, "seed_employees.txt")) {
		s.employees[id] = struct{}{}
	}
	return s
}

// UpsertVehicle registers a vehicle id.
func (s *Store) UpsertVehicle(_ context.Context, id string) error {
	return s.put(s.vehicles, id)
}

func (s *Store) UpsertEmployee(_ context.Context, id string) error {
	return s.put(s.employees, id)
}

func (s *Store) UpsertInvoice(_ context.Context, id string) error {
	return s.put(s.invoices, id)
}

func (s *Store) UpsertPurchaseOrder(_ context.Context, id string) error {
	return s.put(s.purchaseOrders, id)
}

func (s *Store) UpsertQuote(_ context.Context, id string) error {
	return s.put(s.quotes, id)
}

func (s *Store) VehicleExists(_ context.Context, id string) (bool, error) {
	return s.has(s.vehicles, id), nil
}

func (s *Store) EmployeeExists(_ context.Context, id string) (bool, error) {
	return s.has(s.employees, id), nil
}

func (s *Store) InvoiceExists(_ context.Context, id string) (bool, error) {
	return s.has(s.invoices, id), nil
}

func (s *Store) PurchaseOrderExists(_ context.Context, id string) (bool, error) {
	return s.has(s.purchaseOrders, id), nil
}

func (s *Store) QuoteExists(_ context.Context, id string) (bool, error) {
	return s.has(s.quotes, id), nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[tx.VehicleID]; !ok {
		return &core.ReferentialError{Entity: core.EntityVehicle, ID: tx.VehicleID}
	}
	s.txs[tx.ID] = tx
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Entity: core.EntityTransaction, ID: id}
	}
	return tx, nil
}

// ListTransactions returns matching transactions ordered by date, then
// creation time, then id.
func (s *Store) ListTransactions(_ context.Context, filter ledger.ListFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if filter.Matches(tx) {
			out = append(out, tx)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.ID]; !ok {
		return &core.NotFoundError{Entity: core.EntityTransaction, ID: tx.ID}
	}
	if _, ok := s.vehicles[tx.VehicleID]; !ok {
		return &core.ReferentialError{Entity: core.EntityVehicle, ID: tx.VehicleID}
	}
	s.txs[tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return false, nil
	}
	delete(s.txs, id)
	return true, nil
}

// DeleteVehicle removes the vehicle and its transactions under one lock.
func (s *Store) DeleteVehicle(_ context.Context, vehicleID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[vehicleID]; !ok {
		return 0, &core.NotFoundError{Entity: core.EntityVehicle, ID: vehicleID}
	}
	var removed int64
	for id, tx := range s.txs {
		if tx.VehicleID == vehicleID {
			delete(s.txs, id)
			removed++
		}
	}
	delete(s.vehicles, vehicleID)
	return removed, nil
}

// ListVehicleIDs returns every known vehicle id, sorted.
func (s *Store) ListVehicleIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.vehicles))
	for id := range s.vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// NormalizeMonthKeys is a no-op: months are held as typed values.
func (s *Store) NormalizeMonthKeys(context.Context) (int64, error) {
	return 0, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) put(set map[string]struct{}, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &core.RangeError{Message: "id cannot be empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set[id] = struct{}{}
	return nil
}

func (s *Store) has(set map[string]struct{}, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := set[id]
	return ok
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
