// Package store provides storage backends for LegalDraft's delivery log.
//
// It records provider receipts and the documents delivered to recipients. Interview
// state is never stored: it lives with the caller.
package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/BTreeMap/LegalDraft/internal/models"
)

// Store is the delivery log.
type Store interface {
	AddReceipt(r models.Receipt) error
	GetReceipts() ([]models.Receipt, error)
	AddDelivery(d models.Delivery) error
	GetDeliveries() ([]models.Delivery, error)
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithPostgresDSN sets the Postgres connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets the SQLite database path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for Postgres URLs and key/value DSNs, "sqlite"
// for everything else.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a Store kept in process memory.
type InMemoryStore struct {
	mu         sync.RWMutex
	receipts   []models.Receipt
	deliveries []models.Delivery
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AddReceipt(r models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *InMemoryStore) GetReceipts() ([]models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Receipt, len(s.receipts))
	copy(out, s.receipts)
	return out, nil
}

func (s *InMemoryStore) AddDelivery(d models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, d)
	return nil
}

// GetDeliveries returns deliveries newest first.
func (s *InMemoryStore) GetDeliveries() ([]models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Delivery, len(s.deliveries))
	copy(out, s.deliveries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
