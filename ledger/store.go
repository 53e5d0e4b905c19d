package ledger

import (
	"context"
	"sync"
)

// Store persists invoices. Implementations must return deep copies (or
// otherwise guarantee the ledger's copy cannot be mutated externally); the
// ledger is the only writer and serializes writes per invoice id.
type Store interface {
	// InvoiceGet returns the invoice and true, or false when the id was
	// never created.
	InvoiceGet(ctx context.Context, id uint64) (*Invoice, bool, error)
	// InvoicePut inserts or replaces the invoice record.
	InvoicePut(ctx context.Context, inv *Invoice) error
	// InvoiceCount returns the number of invoices ever created. Used once at
	// construction to seed the id counter; records are never deleted.
	InvoiceCount(ctx context.Context) (uint64, error)
}

// MemoryStore is the in-process Store used by tests and by deployments that
// run without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[uint64]*Invoice
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{invoices: make(map[uint64]*Invoice)}
}

func (s *MemoryStore) InvoiceGet(ctx context.Context, id uint64) (*Invoice, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, false, nil
	}
	return inv.Clone(), true, nil
}

func (s *MemoryStore) InvoicePut(ctx context.Context, inv *Invoice) error {
	sanitized, err := SanitizeInvoice(inv)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[sanitized.ID] = sanitized
	return nil
}

func (s *MemoryStore) InvoiceCount(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.invoices)), nil
}

var _ Store = (*MemoryStore)(nil)
