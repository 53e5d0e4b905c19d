package models

import (
	"time"

	"github.com/uptrace/bun"
)

// InvoiceEvent : append-only audit record of one ledger transition.
type InvoiceEvent struct {
	bun.BaseModel `bun:"table:invoice_events"`

	ID        int64     `bun:",pk,autoincrement"`
	Type      string    `bun:",notnull"`
	InvoiceID uint64    `bun:",notnull"`
	Status    uint8     `bun:",notnull"`
	Actor     string    `bun:",notnull"`
	Amount    string    `bun:"type:numeric,nullzero"`
	Outcome   string    `bun:",nullzero"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
