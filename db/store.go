package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/escrowhub/escrowhub.go/db/models"
	"github.com/escrowhub/escrowhub.go/ledger"
	"github.com/uptrace/bun"
)

// Store implements ledger.Store on Postgres. The ledger serializes writes per
// invoice id, so a plain upsert is sufficient here.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InvoiceGet(ctx context.Context, id uint64) (*ledger.Invoice, bool, error) {
	var row models.Invoice
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	inv, err := toLedgerInvoice(&row)
	if err != nil {
		return nil, false, err
	}
	return inv, true, nil
}

func (s *Store) InvoicePut(ctx context.Context, inv *ledger.Invoice) error {
	sanitized, err := ledger.SanitizeInvoice(inv)
	if err != nil {
		return err
	}
	row := toInvoiceRow(sanitized)
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("updated_at = now()").
		Exec(ctx)
	return err
}

func (s *Store) InvoiceCount(ctx context.Context) (uint64, error) {
	count, err := s.db.NewSelect().Model((*models.Invoice)(nil)).Count(ctx)
	if err != nil {
		return 0, err
	}
	return uint64(count), nil
}

var _ ledger.Store = (*Store)(nil)

func toLedgerInvoice(row *models.Invoice) (*ledger.Invoice, error) {
	amount, err := ledger.ParseAmount(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("invoice %d: stored amount %q: %w", row.ID, row.Amount, err)
	}
	inv := &ledger.Invoice{
		ID:          row.ID,
		Client:      ledger.Identity(row.Client),
		Freelancer:  ledger.Identity(row.Freelancer),
		Amount:      amount,
		Description: row.Description,
		Status:      ledger.Status(row.Status),
		CreatedAt:   row.CreatedAt.Unix(),
	}
	if !row.UpdatedAt.IsZero() {
		inv.UpdatedAt = row.UpdatedAt.Time.Unix()
	}
	return inv, nil
}

func toInvoiceRow(inv *ledger.Invoice) *models.Invoice {
	row := &models.Invoice{
		ID:          inv.ID,
		Client:      string(inv.Client),
		Freelancer:  string(inv.Freelancer),
		Amount:      inv.Amount.Dec(),
		Description: inv.Description,
		Status:      uint8(inv.Status),
	}
	return row
}
