package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The ordinal mapping is a compatibility contract for persisted and
// wire-exposed representations.
func TestStatusOrdinals(t *testing.T) {
	assert.Equal(t, uint8(0), uint8(StatusCreated))
	assert.Equal(t, uint8(1), uint8(StatusFunded))
	assert.Equal(t, uint8(2), uint8(StatusCompleted))
	assert.Equal(t, uint8(3), uint8(StatusPaid))
	assert.Equal(t, uint8(4), uint8(StatusCancelled))

	assert.False(t, Status(5).Valid())
	assert.True(t, StatusPaid.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusCompleted.Terminal())
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("  npub1abc  ")
	require.NoError(t, err)
	assert.Equal(t, Identity("npub1abc"), id)

	_, err = ParseIdentity("")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseIdentity("   ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseIdentity("has space")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseIdentity(strings.Repeat("a", 129))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseAmount(t *testing.T) {
	a, err := ParseAmount("100")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), a.Uint64())

	// full 256-bit range is representable
	max256 := strings.TrimSpace("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	a, err = ParseAmount(max256)
	require.NoError(t, err)
	assert.Equal(t, max256, a.Dec())

	// one past the range overflows
	_, err = ParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639936")
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = ParseAmount("")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseAmount("-5")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParseAmount("12.5")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	inv := &Invoice{
		ID:          0,
		Client:      testClient,
		Freelancer:  testFreelancer,
		Amount:      amt(100),
		Description: "logo",
		Status:      StatusCreated,
	}
	require.NoError(t, store.InvoicePut(ctx, inv))

	got, ok, err := store.InvoiceGet(ctx, 0)
	require.NoError(t, err)
	require.True(t, ok)

	// mutating the returned copy must not leak into the store
	got.Status = StatusPaid
	got.Amount.SetUint64(1)

	again, ok, err := store.InvoiceGet(ctx, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusCreated, again.Status)
	assert.True(t, again.Amount.Eq(amt(100)))

	count, err := store.InvoiceCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSanitizeInvoice(t *testing.T) {
	_, err := SanitizeInvoice(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	base := func() *Invoice {
		return &Invoice{
			Client:      testClient,
			Freelancer:  testFreelancer,
			Amount:      amt(1),
			Description: "x",
			Status:      StatusCreated,
		}
	}

	ok, err := SanitizeInvoice(base())
	require.NoError(t, err)
	assert.NotNil(t, ok.Amount)

	bad := base()
	bad.Client = ZeroIdentity
	_, err = SanitizeInvoice(bad)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	bad = base()
	bad.Amount = nil
	_, err = SanitizeInvoice(bad)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	bad = base()
	bad.Status = Status(9)
	_, err = SanitizeInvoice(bad)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
