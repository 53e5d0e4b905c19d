package ledger

import (
	"context"

	"github.com/holiman/uint256"
)

// ValueTransferPort is the untrusted settlement boundary. The ledger invokes
// it synchronously inside the per-invoice critical section: HoldIncoming
// before marking an invoice funded, PayOut after committing a releasing or
// refunding status change. A reported failure aborts the enclosing
// transition; the port must never call back into the ledger for the same
// invoice id.
type ValueTransferPort interface {
	// HoldIncoming accepts incoming funds equal to amount into escrow.
	HoldIncoming(ctx context.Context, amount *uint256.Int) error
	// PayOut moves held funds equal to amount to the recipient.
	PayOut(ctx context.Context, recipient Identity, amount *uint256.Int) error
}
