package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Identity is an opaque, comparable principal reference used for
// authorization checks. The engine never interprets its content.
type Identity string

// ZeroIdentity is the null principal. No invoice party may be zero.
const ZeroIdentity Identity = ""

const maxIdentityLen = 128

// ParseIdentity normalizes and validates a caller-supplied principal string.
func ParseIdentity(s string) (Identity, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ZeroIdentity, fmt.Errorf("%w: empty identity", ErrInvalidArgument)
	}
	if len(trimmed) > maxIdentityLen {
		return ZeroIdentity, fmt.Errorf("%w: identity exceeds %d bytes", ErrInvalidArgument, maxIdentityLen)
	}
	for _, r := range trimmed {
		if r < 0x21 || r > 0x7e {
			return ZeroIdentity, fmt.Errorf("%w: identity contains invalid character %q", ErrInvalidArgument, r)
		}
	}
	return Identity(trimmed), nil
}

// Zero reports whether the identity is the null principal.
func (id Identity) Zero() bool { return id == ZeroIdentity }

// Status represents the lifecycle states of an invoice. The ordinal values
// are a compatibility contract for any persisted or wire-exposed
// representation and must not be reordered.
type Status uint8

const (
	StatusCreated Status = iota // 0
	StatusFunded                // 1
	StatusCompleted             // 2
	StatusPaid                  // 3
	StatusCancelled             // 4
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusFunded, StatusCompleted, StatusPaid, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition leaves the status.
func (s Status) Terminal() bool { return s == StatusPaid || s == StatusCancelled }

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusFunded:
		return "funded"
	case StatusCompleted:
		return "completed"
	case StatusPaid:
		return "paid"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseAmount parses a decimal amount string into a 256-bit unsigned integer.
// Values that exceed the representable range fail with ErrOverflow; everything
// else malformed fails with ErrInvalidArgument.
func ParseAmount(s string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidArgument)
	}
	amt, err := uint256.FromDecimal(trimmed)
	if err != nil {
		if errors.Is(err, uint256.ErrBig256Range) {
			return nil, fmt.Errorf("%w: amount exceeds 256 bits", ErrOverflow)
		}
		return nil, fmt.Errorf("%w: malformed amount %q", ErrInvalidArgument, trimmed)
	}
	return amt, nil
}

// Invoice captures the immutable terms and the runtime status of a single
// escrow agreement. Client, Freelancer, Amount and Description never change
// after creation; only Status does.
type Invoice struct {
	ID          uint64
	Client      Identity
	Freelancer  Identity
	Amount      *uint256.Int
	Description string
	Status      Status
	CreatedAt   int64
	UpdatedAt   int64
}

// Clone returns a deep copy of the invoice so callers can safely mutate the
// copy without affecting the stored instance.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	clone := *inv
	if inv.Amount != nil {
		clone.Amount = new(uint256.Int).Set(inv.Amount)
	} else {
		clone.Amount = uint256.NewInt(0)
	}
	return &clone
}

// SanitizeInvoice validates and normalizes a stored invoice, returning a
// cloned instance with a non-nil amount. It does not mutate the original.
func SanitizeInvoice(inv *Invoice) (*Invoice, error) {
	if inv == nil {
		return nil, fmt.Errorf("%w: nil invoice", ErrInvalidArgument)
	}
	clone := inv.Clone()
	if clone.Client.Zero() {
		return nil, fmt.Errorf("%w: invoice client unset", ErrInvalidArgument)
	}
	if clone.Freelancer.Zero() {
		return nil, fmt.Errorf("%w: invoice freelancer unset", ErrInvalidArgument)
	}
	if clone.Amount.IsZero() {
		return nil, fmt.Errorf("%w: invoice amount must be positive", ErrInvalidArgument)
	}
	if clone.Description == "" {
		return nil, fmt.Errorf("%w: invoice description empty", ErrInvalidArgument)
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid invoice status %d", ErrInvalidArgument, clone.Status)
	}
	return clone, nil
}
