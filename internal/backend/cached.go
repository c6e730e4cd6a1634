package backend

import (
	"context"
	"time"

	"fleetledger/internal/cache"
)

const referenceCacheSize = 4096

// cachedStore remembers which reference records exist. Only positive
// answers are cached, so a record registered elsewhere is seen at once;
// a vehicle deleted through this store is forgotten immediately and one
// deleted by another process after at most the TTL.
type cachedStore struct {
	Store
	known *cache.LRU[struct{}]
}

// WithReferenceCache wraps store with an existence cache. A non-positive
// ttl returns store unchanged.
func WithReferenceCache(store Store, ttl time.Duration) Store {
	if ttl <= 0 {
		return store
	}
	return &cachedStore{Store: store, known: cache.NewLRU[struct{}](referenceCacheSize, ttl)}
}

const (
	kindVehicle       = "vehicle:"
	kindEmployee      = "employee:"
	kindInvoice       = "invoice:"
	kindPurchaseOrder = "purchase_order:"
	kindQuote         = "quote:"
)

func (s *cachedStore) exists(ctx context.Context, kind, id string, lookup func(context.Context, string) (bool, error)) (bool, error) {
	if _, ok := s.known.Get(kind + id); ok {
		return true, nil
	}
	ok, err := lookup(ctx, id)
	if err == nil && ok {
		s.known.Set(kind+id, struct{}{})
	}
	return ok, err
}

func (s *cachedStore) VehicleExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, kindVehicle, id, s.Store.VehicleExists)
}

func (s *cachedStore) EmployeeExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, kindEmployee, id, s.Store.EmployeeExists)
}

func (s *cachedStore) InvoiceExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, kindInvoice, id, s.Store.InvoiceExists)
}

func (s *cachedStore) PurchaseOrderExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, kindPurchaseOrder, id, s.Store.PurchaseOrderExists)
}

func (s *cachedStore) QuoteExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, kindQuote, id, s.Store.QuoteExists)
}

// DeleteVehicle evicts the vehicle before and after the delete so that no
// concurrent lookup can re-cache it in between.
func (s *cachedStore) DeleteVehicle(ctx context.Context, vehicleID string) (int64, error) {
	s.known.Delete(kindVehicle + vehicleID)
	n, err := s.Store.DeleteVehicle(ctx, vehicleID)
	s.known.Delete(kindVehicle + vehicleID)
	return n, err
}

// ReferenceCacheStats returns the cache statistics of store, or false when
// it is not cached.
func ReferenceCacheStats(store Store) (cache.Stats, bool) {
	cs, ok := store.(*cachedStore)
	if !ok {
		return cache.Stats{}, false
	}
	return cs.known.Stats(), true
}
