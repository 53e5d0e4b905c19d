package common

const (
	AccountTypeCurrent  = "current"
	AccountTypeEscrow   = "escrow"
	AccountTypeExternal = "external"

	// EscrowOmnibusPrincipal is the internal principal the escrow omnibus
	// account is booked under. It can never collide with a caller identity
	// because identities may not contain whitespace.
	EscrowOmnibusPrincipal = "escrow omnibus"
	// ExternalPrincipal books the funding side of escrow holds.
	ExternalPrincipal = "external world"

	EntryTypeHold   = "hold"
	EntryTypePayout = "payout"
)
