package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if db.Dialect().Name().String() != "pg" {
			fmt.Printf("\033[1;31m%s\033[0m", "You are not using PostgreSQL. DB level checks can not be enabled!\n")
			return nil
		}
		sql := `
			-- invoice status ordinals are a wire contract: created=0 .. cancelled=4
				ALTER TABLE invoices
				ADD CONSTRAINT check_status_range
				CHECK (status >= 0 AND status <= 4);

				ALTER TABLE invoices
				ADD CONSTRAINT check_amount_positive
				CHECK (amount > 0);

			-- one account per (principal, type)
				ALTER TABLE accounts
				ADD CONSTRAINT unique_principal_type
				UNIQUE (principal, type);

			-- make sure transfers happen from one account to another one
				ALTER TABLE transaction_entries
				ADD CONSTRAINT check_not_same_account
				CHECK (debit_account_id != credit_account_id);

			-- the escrow omnibus account balance may never go negative:
			-- a payout larger than the held funds means double spending
				CREATE OR REPLACE FUNCTION check_escrow_balance()
					RETURNS TRIGGER AS $$
				DECLARE
					balance NUMERIC;
					debit_account_type VARCHAR;
				BEGIN
					SELECT INTO debit_account_type type
					FROM accounts
					WHERE id = NEW.debit_account_id;

					IF debit_account_type = 'escrow'
					THEN
						SELECT INTO balance
							COALESCE(SUM(CASE WHEN credit_account_id = NEW.debit_account_id THEN amount ELSE -amount END), 0)
						FROM transaction_entries
						WHERE credit_account_id = NEW.debit_account_id
						   OR debit_account_id = NEW.debit_account_id;

						IF balance < 0
						THEN
							RAISE EXCEPTION 'escrow balance would go negative [debit_account_id:%] balance [%]',
							NEW.debit_account_id,
							balance;
						END IF;
					END IF;
					RETURN NEW;
				END;
				$$ LANGUAGE plpgsql;
				CREATE TRIGGER check_escrow_balance
				AFTER INSERT OR UPDATE ON transaction_entries
				FOR EACH ROW EXECUTE PROCEDURE check_escrow_balance();
		`
		if _, err := db.Exec(sql); err != nil {
			return err
		}
		return nil
	}, nil)
}
