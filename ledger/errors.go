package ledger

import "errors"

// Error kinds returned by the ledger. Callers match them with errors.Is; the
// HTTP layer maps each kind to a stable response code.
var (
	// ErrNotFound is returned when an invoice id was never created.
	ErrNotFound = errors.New("ledger: invoice not found")
	// ErrInvalidArgument is returned for zero/empty parties, amounts or
	// descriptions at creation, and for malformed identities or amounts.
	ErrInvalidArgument = errors.New("ledger: invalid argument")
	// ErrUnauthorized is returned when the caller does not match the
	// principal required for the requested transition.
	ErrUnauthorized = errors.New("ledger: unauthorized")
	// ErrInvalidState is returned when the invoice status does not satisfy
	// the transition's precondition.
	ErrInvalidState = errors.New("ledger: invalid state")
	// ErrTransferFailed is returned when the value-transfer port reported
	// failure; the transition is aborted and the prior status kept.
	ErrTransferFailed = errors.New("ledger: transfer failed")
	// ErrOverflow is returned when value or counter arithmetic would exceed
	// the representable range.
	ErrOverflow = errors.New("ledger: arithmetic overflow")
)
