package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Invoice : Invoice Model
//
// IDs are minted by the ledger, not by the database: the primary key carries
// no autoincrement. Status holds the ordinal (created=0, funded=1,
// completed=2, paid=3, cancelled=4); Amount is a base-10 numeric so the full
// 256-bit range survives the round trip.
type Invoice struct {
	bun.BaseModel `bun:"table:invoices"`

	ID          uint64       `bun:",pk"`
	Client      string       `bun:",notnull"`
	Freelancer  string       `bun:",notnull"`
	Amount      string       `bun:"type:numeric,notnull"`
	Description string       `bun:",notnull"`
	Status      uint8        `bun:",notnull,default:0"`
	CreatedAt   time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt   bun.NullTime `bun:",nullzero"`
}

func (i *Invoice) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		i.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Invoice)(nil)
