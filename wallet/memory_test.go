package wallet

import (
	"context"
	"testing"

	"github.com/escrowhub/escrowhub.go/ledger"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBookHoldAndPayOut(t *testing.T) {
	book := NewMemoryBook()
	ctx := context.Background()
	recipient := ledger.Identity("freelancer-1")

	require.NoError(t, book.HoldIncoming(ctx, uint256.NewInt(100)))
	assert.True(t, book.Held().Eq(uint256.NewInt(100)))

	require.NoError(t, book.PayOut(ctx, recipient, uint256.NewInt(100)))
	assert.True(t, book.Held().IsZero())
	assert.True(t, book.Balance(recipient).Eq(uint256.NewInt(100)))
}

func TestMemoryBookRejectsOverdraw(t *testing.T) {
	book := NewMemoryBook()
	ctx := context.Background()

	require.NoError(t, book.HoldIncoming(ctx, uint256.NewInt(50)))
	err := book.PayOut(ctx, "freelancer-1", uint256.NewInt(51))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient escrow balance")

	// the failed payout left the held balance untouched
	assert.True(t, book.Held().Eq(uint256.NewInt(50)))
	assert.True(t, book.Balance("freelancer-1").IsZero())
}

func TestMemoryBookArgumentChecks(t *testing.T) {
	book := NewMemoryBook()
	ctx := context.Background()

	assert.Error(t, book.HoldIncoming(ctx, nil))
	assert.Error(t, book.HoldIncoming(ctx, uint256.NewInt(0)))
	assert.Error(t, book.PayOut(ctx, ledger.ZeroIdentity, uint256.NewInt(1)))
	assert.Error(t, book.PayOut(ctx, "freelancer-1", uint256.NewInt(0)))
}

func TestMemoryBookHeldOverflow(t *testing.T) {
	book := NewMemoryBook()
	ctx := context.Background()

	max256, err := ledger.ParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(t, err)

	require.NoError(t, book.HoldIncoming(ctx, max256))
	err = book.HoldIncoming(ctx, uint256.NewInt(1))
	assert.ErrorIs(t, err, ledger.ErrOverflow)
}
