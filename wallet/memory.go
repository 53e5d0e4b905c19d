package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/escrowhub/escrowhub.go/ledger"
	"github.com/holiman/uint256"
)

// MemoryBook is the in-process ValueTransferPort used by deployments running
// without a database and by tests that need real balance arithmetic. It keeps
// the omnibus held balance and per-recipient balances in memory.
type MemoryBook struct {
	mu       sync.Mutex
	held     *uint256.Int
	balances map[ledger.Identity]*uint256.Int
}

func NewMemoryBook() *MemoryBook {
	return &MemoryBook{
		held:     uint256.NewInt(0),
		balances: make(map[ledger.Identity]*uint256.Int),
	}
}

func (b *MemoryBook) HoldIncoming(ctx context.Context, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("hold amount must be positive")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	sum, overflow := new(uint256.Int).AddOverflow(b.held, amount)
	if overflow {
		return fmt.Errorf("%w: held balance", ledger.ErrOverflow)
	}
	b.held = sum
	return nil
}

func (b *MemoryBook) PayOut(ctx context.Context, recipient ledger.Identity, amount *uint256.Int) error {
	if recipient.Zero() {
		return fmt.Errorf("payout recipient required")
	}
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("payout amount must be positive")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.held.Lt(amount) {
		return fmt.Errorf("insufficient escrow balance: have %s, need %s", b.held.Dec(), amount.Dec())
	}
	current, ok := b.balances[recipient]
	if !ok {
		current = uint256.NewInt(0)
	}
	sum, overflow := new(uint256.Int).AddOverflow(current, amount)
	if overflow {
		return fmt.Errorf("%w: recipient balance", ledger.ErrOverflow)
	}
	b.held = new(uint256.Int).Sub(b.held, amount)
	b.balances[recipient] = sum
	return nil
}

var _ ledger.ValueTransferPort = (*MemoryBook)(nil)

// Held returns the amount currently committed to escrow.
func (b *MemoryBook) Held() *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(uint256.Int).Set(b.held)
}

// Balance returns the current balance paid out to a principal.
func (b *MemoryBook) Balance(recipient ledger.Identity) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if current, ok := b.balances[recipient]; ok {
		return new(uint256.Int).Set(current)
	}
	return uint256.NewInt(0)
}
