package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TransactionEntry : Transaction Entries Model
//
// Double-entry bookkeeping: every value movement debits one account and
// credits another for the same amount. Escrow holds credit the omnibus
// account; payouts debit it.
type TransactionEntry struct {
	bun.BaseModel `bun:"table:transaction_entries"`

	ID              int64     `bun:",pk,autoincrement"`
	InvoiceID       int64     `bun:",nullzero"`
	Invoice         *Invoice  `bun:"rel:belongs-to,join:invoice_id=id"`
	CreditAccountID int64     `bun:",notnull"`
	CreditAccount   *Account  `bun:"rel:belongs-to,join:credit_account_id=id"`
	DebitAccountID  int64     `bun:",notnull"`
	DebitAccount    *Account  `bun:"rel:belongs-to,join:debit_account_id=id"`
	Amount          string    `bun:"type:numeric,notnull"`
	EntryType       string    `bun:",notnull"`
	CreatedAt       time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
