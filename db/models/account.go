package models

import "github.com/uptrace/bun"

// Account : Account Model
//
// One row per (principal, type). The escrow omnibus account holds all funds
// committed to invoices; per-principal current accounts receive payouts.
type Account struct {
	bun.BaseModel `bun:"table:accounts"`

	ID        int64  `bun:",pk,autoincrement"`
	Principal string `bun:",notnull"`
	Type      string `bun:",notnull"`
}
