package backend

import (
	"context"
	"time"

	"fleetledger/internal/ledger"
)

// Store is everything a storage backend provides: the ledger, the
// reference lookups and their maintenance.
type Store interface {
	ledger.Store
	ledger.Resolver
	ledger.Registry
	NormalizeMonthKeys(ctx context.Context) (int64, error)
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Store Store
	// Publisher is nil when no broker is configured.
	Publisher ledger.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// ReferenceCacheTTL caches positive reference lookups of the SQLite
	// store; zero disables the cache.
	ReferenceCacheTTL time.Duration

	// Optional event broker, shared by every backend type.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend seed files
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
