package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetledger/internal/core"
	applog "fleetledger/internal/log"
	"fleetledger/internal/profit"
)

// ServiceConfig tunes a Service. Zero values pick defaults.
type ServiceConfig struct {
	Clock                Clock
	DashboardConcurrency int
}

// Service is the caller-facing API of the ledger: validated writes, filtered
// reads and the profitability views recomputed on every call.
type Service struct {
	store     Store
	resolver  Resolver
	validator *Validator
	dashboard *profit.DashboardBuilder
	publisher Publisher
	now       Clock
	locks     *recordLocks
}

func NewService(store Store, resolver Resolver, publisher Publisher, cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	s := &Service{
		store:     store,
		resolver:  resolver,
		validator: NewValidator(resolver, cfg.Clock),
		publisher: publisher,
		now:       cfg.Clock,
		locks:     newRecordLocks(),
	}
	s.dashboard = profit.NewDashboardBuilder(profit.LoaderFunc(s.loadVehicle), cfg.DashboardConcurrency)
	return s
}

// CreateTransaction validates and persists a new transaction.
func (s *Service) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	tx, err := s.validator.ValidateCreate(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}

	now := s.now().UTC()
	tx.ID = uuid.NewString()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, core.NewStorageError("create transaction", err)
	}

	applog.FromContext(ctx).InfoContext(ctx, "Transaction created",
		applog.NewFields().WithTransaction(tx).ToSlice()...)

	s.publish(ctx, EventTransactionCreated, tx)
	return tx, nil
}

// GetTransaction returns a transaction or a *core.NotFoundError.
func (s *Service) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, core.NewStorageError("get transaction", err)
	}
	return tx, nil
}

// ListTransactions narrows the ledger by vehicle and/or month. An empty
// filter returns the whole ledger.
func (s *Service) ListTransactions(ctx context.Context, vehicleID, month string) ([]core.Transaction, error) {
	filter := ListFilter{VehicleID: strings.TrimSpace(vehicleID)}
	if strings.TrimSpace(month) != "" {
		m, err := core.ParseMonth(month)
		if err != nil {
			return nil, &core.RangeError{Message: fmt.Sprintf("Invalid month %q: expected YYYY-MM", month)}
		}
		filter.Month = &m
	}

	txs, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, core.NewStorageError("list transactions", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// UpdateTransaction applies a partial update. Writes to the same id are
// serialized so that the read-validate-write cycle is atomic per record.
func (s *Service) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	current, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, core.NewStorageError("get transaction", err)
	}
	if patch.Empty() {
		return current, nil
	}

	next, err := s.validator.ValidateUpdate(ctx, current, patch)
	if err != nil {
		return core.Transaction{}, err
	}
	next.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateTransaction(ctx, next); err != nil {
		return core.Transaction{}, core.NewStorageError("update transaction", err)
	}

	applog.FromContext(ctx).InfoContext(ctx, "Transaction updated",
		applog.NewFields().WithTransaction(next).ToSlice()...)

	s.publish(ctx, EventTransactionUpdated, next)
	if next.VehicleID != current.VehicleID {
		s.publish(ctx, EventTransactionUpdated, current)
	}
	return next, nil
}

// DeleteTransaction removes a transaction. Deleting an unknown id is a no-op.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	tx, err := s.store.GetTransaction(ctx, id)
	if core.IsNotFound(err) {
		applog.FromContext(ctx).DebugContext(ctx, "Delete of unknown transaction ignored", applog.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return core.NewStorageError("get transaction", err)
	}

	deleted, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return core.NewStorageError("delete transaction", err)
	}
	if deleted {
		applog.FromContext(ctx).InfoContext(ctx, "Transaction deleted",
			applog.NewFields().WithTransaction(tx).WithOperation(applog.OpDelete).ToSlice()...)
		s.publish(ctx, EventTransactionDeleted, tx)
	}
	return nil
}

// DeleteVehicle removes a vehicle together with all of its transactions.
func (s *Service) DeleteVehicle(ctx context.Context, vehicleID string) (int64, error) {
	unlock := s.locks.lock("vehicle:" + vehicleID)
	defer unlock()

	removed, err := s.store.DeleteVehicle(ctx, vehicleID)
	if err != nil {
		return 0, core.NewStorageError("delete vehicle", err)
	}

	fields := applog.NewFields().WithVehicle(vehicleID).WithOperation(applog.OpCascade).ToSlice()
	applog.FromContext(ctx).InfoContext(ctx, "Vehicle deleted", append(fields, "transactions_removed", removed)...)
	s.publish(ctx, EventVehicleDeleted, core.Transaction{VehicleID: vehicleID})
	return removed, nil
}

// GetProfitability summarizes one vehicle as of the given instant (now when nil).
func (s *Service) GetProfitability(ctx context.Context, vehicleID string, asOf *time.Time) (profit.Summary, error) {
	txs, err := s.loadVehicle(ctx, vehicleID)
	if err != nil {
		return profit.Summary{}, err
	}
	return profit.Summarize(vehicleID, txs, s.asOf(asOf)), nil
}

// GetDashboard builds the fleet snapshot for the given vehicles, or for
// every known vehicle when none are given.
func (s *Service) GetDashboard(ctx context.Context, vehicleIDs []string, asOf *time.Time) (profit.Dashboard, error) {
	if len(vehicleIDs) == 0 {
		ids, err := s.store.ListVehicleIDs(ctx)
		if err != nil {
			return profit.Dashboard{}, core.NewStorageError("list vehicles", err)
		}
		vehicleIDs = ids
	}
	return s.dashboard.Build(ctx, vehicleIDs, s.asOf(asOf))
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// loadVehicle resolves the vehicle and returns its transactions.
func (s *Service) loadVehicle(ctx context.Context, vehicleID string) ([]core.Transaction, error) {
	ok, err := s.resolver.VehicleExists(ctx, vehicleID)
	if err != nil {
		return nil, core.NewStorageError("resolve vehicle", err)
	}
	if !ok {
		return nil, &core.NotFoundError{Entity: core.EntityVehicle, ID: vehicleID}
	}
	txs, err := s.store.ListTransactions(ctx, ListFilter{VehicleID: vehicleID})
	if err != nil {
		return nil, core.NewStorageError("list transactions", err)
	}
	return txs, nil
}

func (s *Service) asOf(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return s.now()
}

func (s *Service) publish(ctx context.Context, kind EventKind, tx core.Transaction) {
	if s.publisher == nil {
		applog.FromContext(ctx).DebugContext(ctx, "No publisher configured, skipping ledger event", applog.FieldEventKind, kind)
		return
	}
	ev := Event{
		Kind:          kind,
		TransactionID: tx.ID,
		VehicleID:     tx.VehicleID,
		Timestamp:     s.now().UTC(),
	}
	if !tx.Month.IsZero() {
		ev.Month = tx.Month.String()
	}
	// The write is already committed; a lost event must not fail it.
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		fields := applog.NewFields().WithVehicle(tx.VehicleID).WithError(err).ToSlice()
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to publish ledger event",
			append(fields, applog.FieldEventKind, kind, applog.FieldTransactionID, tx.ID)...)
	}
}

// recordLocks hands out one mutex per record key.
type recordLocks struct {
	mu    sync.Mutex
	locks map[string]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

func newRecordLocks() *recordLocks {
	return &recordLocks{locks: make(map[string]*recordLock)}
}

func (l *recordLocks) lock(key string) func() {
	l.mu.Lock()
	rl, ok := l.locks[key]
	if !ok {
		rl = &recordLock{}
		l.locks[key] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
