package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/escrowhub/escrowhub.go/common"
	"github.com/escrowhub/escrowhub.go/db/models"
	"github.com/escrowhub/escrowhub.go/ledger"
	"github.com/holiman/uint256"
	"github.com/uptrace/bun"
)

// Bookkeeper implements ledger.ValueTransferPort with double-entry
// bookkeeping on Postgres. Escrow holds credit the omnibus escrow account
// from the external account; payouts debit the omnibus account into the
// recipient's current account. A payout exceeding the held balance fails,
// which the ledger surfaces as a failed (and rolled back) transition.
type Bookkeeper struct {
	db *bun.DB
}

func NewBookkeeper(db *bun.DB) *Bookkeeper {
	return &Bookkeeper{db: db}
}

func (b *Bookkeeper) HoldIncoming(ctx context.Context, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("hold amount must be positive")
	}
	return b.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		escrowAcc, err := accountFor(ctx, tx, common.EscrowOmnibusPrincipal, common.AccountTypeEscrow)
		if err != nil {
			return err
		}
		externalAcc, err := accountFor(ctx, tx, common.ExternalPrincipal, common.AccountTypeExternal)
		if err != nil {
			return err
		}
		entry := models.TransactionEntry{
			CreditAccountID: escrowAcc.ID,
			DebitAccountID:  externalAcc.ID,
			Amount:          amount.Dec(),
			EntryType:       common.EntryTypeHold,
		}
		_, err = tx.NewInsert().Model(&entry).Exec(ctx)
		return err
	})
}

func (b *Bookkeeper) PayOut(ctx context.Context, recipient ledger.Identity, amount *uint256.Int) error {
	if recipient.Zero() {
		return fmt.Errorf("payout recipient required")
	}
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("payout amount must be positive")
	}
	return b.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		escrowAcc, err := accountFor(ctx, tx, common.EscrowOmnibusPrincipal, common.AccountTypeEscrow)
		if err != nil {
			return err
		}
		balance, err := escrowBalance(ctx, tx, escrowAcc.ID)
		if err != nil {
			return err
		}
		if balance.Lt(amount) {
			return fmt.Errorf("insufficient escrow balance: have %s, need %s", balance.Dec(), amount.Dec())
		}
		recipientAcc, err := accountFor(ctx, tx, string(recipient), common.AccountTypeCurrent)
		if err != nil {
			return err
		}
		entry := models.TransactionEntry{
			CreditAccountID: recipientAcc.ID,
			DebitAccountID:  escrowAcc.ID,
			Amount:          amount.Dec(),
			EntryType:       common.EntryTypePayout,
		}
		// The check_escrow_balance trigger re-verifies the balance inside
		// the same transaction, closing the race between the read above and
		// this insert.
		_, err = tx.NewInsert().Model(&entry).Exec(ctx)
		return err
	})
}

var _ ledger.ValueTransferPort = (*Bookkeeper)(nil)

// Balance returns the current account balance for a principal.
func (b *Bookkeeper) Balance(ctx context.Context, principal ledger.Identity) (*uint256.Int, error) {
	var acc models.Account
	err := b.db.NewSelect().Model(&acc).
		Where("principal = ? AND type = ?", string(principal), common.AccountTypeCurrent).
		Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uint256.NewInt(0), nil
		}
		return nil, err
	}
	return accountBalance(ctx, b.db, acc.ID)
}

func accountFor(ctx context.Context, tx bun.Tx, principal, accountType string) (*models.Account, error) {
	account := models.Account{}
	err := tx.NewSelect().Model(&account).
		Where("principal = ? AND type = ?", principal, accountType).
		Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		account = models.Account{Principal: principal, Type: accountType}
		if _, err := tx.NewInsert().Model(&account).Exec(ctx); err != nil {
			return nil, err
		}
		return &account, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func escrowBalance(ctx context.Context, tx bun.Tx, accountID int64) (*uint256.Int, error) {
	return sumEntries(ctx, tx, accountID)
}

func accountBalance(ctx context.Context, db bun.IDB, accountID int64) (*uint256.Int, error) {
	return sumEntries(ctx, db, accountID)
}

func sumEntries(ctx context.Context, db bun.IDB, accountID int64) (*uint256.Int, error) {
	var balanceStr string
	err := db.NewRaw(
		`SELECT COALESCE(SUM(CASE WHEN credit_account_id = ? THEN amount ELSE -amount END), 0)::text
		 FROM transaction_entries
		 WHERE credit_account_id = ? OR debit_account_id = ?`,
		accountID, accountID, accountID,
	).Scan(ctx, &balanceStr)
	if err != nil {
		return nil, err
	}
	balance, err := ledger.ParseAmount(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("account %d: stored balance %q: %w", accountID, balanceStr, err)
	}
	return balance, nil
}
