package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/holiman/uint256"
)

// Ledger owns the invoice collection and the counter that mints invoice ids,
// and enforces every lifecycle invariant. All mutation goes through the five
// transition operations; there are no ambient globals.
//
// Every guard sequence runs in the canonical order existence, then
// authorization, then status. Each mutating operation holds a per-invoice
// mutex across the whole check/mutate/transfer sequence, so concurrent calls
// against the same id serialize and at most one value transfer can ever
// happen per releasing transition.
type Ledger struct {
	store   Store
	port    ValueTransferPort
	emitter Emitter
	nowFn   func() int64

	// createMu guards nextID; ids are minted strictly increasing from 0.
	createMu sync.Mutex
	nextID   uint64

	arbMu   sync.RWMutex
	arbiter Identity

	locksMu sync.Mutex
	locks   map[uint64]*sync.Mutex
}

// Option configures a Ledger at construction time.
type Option func(*Ledger)

// WithEmitter sets the event emitter. Passing nil keeps the no-op emitter.
func WithEmitter(emitter Emitter) Option {
	return func(l *Ledger) {
		if emitter != nil {
			l.emitter = emitter
		}
	}
}

// WithNowFunc overrides the time source. Primarily intended for tests to
// provide deterministic timestamps.
func WithNowFunc(now func() int64) Option {
	return func(l *Ledger) {
		if now != nil {
			l.nowFn = now
		}
	}
}

// New constructs a ledger over the given store and value-transfer port. The
// arbiter is the single privileged identity empowered to force-resolve
// disputes; it must be non-zero. The id counter is seeded from the store so a
// restarted process keeps minting strictly increasing ids.
func New(store Store, port ValueTransferPort, arbiter Identity, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}
	if port == nil {
		return nil, fmt.Errorf("%w: nil value transfer port", ErrInvalidArgument)
	}
	if arbiter.Zero() {
		return nil, fmt.Errorf("%w: arbiter identity required", ErrInvalidArgument)
	}
	count, err := store.InvoiceCount(context.Background())
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		store:   store,
		port:    port,
		emitter: NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		nextID:  count,
		arbiter: arbiter,
		locks:   make(map[uint64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Ledger) now() int64 { return l.nowFn() }

func (l *Ledger) emit(ev Event) {
	if l.emitter != nil {
		l.emitter.Emit(ev)
	}
}

// invoiceLock returns the mutex serializing transitions on one invoice id.
// Locks are never released from the map; invoices are never deleted either.
func (l *Ledger) invoiceLock(id uint64) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	mu, ok := l.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[id] = mu
	}
	return mu
}

func (l *Ledger) loadInvoice(ctx context.Context, id uint64) (*Invoice, error) {
	inv, ok, err := l.store.InvoiceGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return inv, nil
}

func requireActor(required, caller Identity, role string) error {
	if caller != required {
		return fmt.Errorf("%w: caller is not the invoice %s", ErrUnauthorized, role)
	}
	return nil
}

func (l *Ledger) requireArbiter(caller Identity) error {
	l.arbMu.RLock()
	defer l.arbMu.RUnlock()
	if caller != l.arbiter {
		return fmt.Errorf("%w: caller is not the arbiter", ErrUnauthorized)
	}
	return nil
}

// CreateInvoice mints a new invoice in status CREATED. The caller becomes the
// client with exclusive authority over fund/release/cancel; the freelancer
// holds exclusive authority over MarkCompleted.
func (l *Ledger) CreateInvoice(ctx context.Context, freelancer Identity, amount *uint256.Int, description string, caller Identity) (uint64, error) {
	if caller.Zero() {
		return 0, fmt.Errorf("%w: caller identity required", ErrInvalidArgument)
	}
	if freelancer.Zero() {
		return 0, fmt.Errorf("%w: freelancer identity required", ErrInvalidArgument)
	}
	if amount == nil || amount.IsZero() {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if description == "" {
		return 0, fmt.Errorf("%w: description required", ErrInvalidArgument)
	}

	l.createMu.Lock()
	defer l.createMu.Unlock()
	if l.nextID == math.MaxUint64 {
		return 0, fmt.Errorf("%w: invoice counter exhausted", ErrOverflow)
	}
	now := l.now()
	inv := &Invoice{
		ID:          l.nextID,
		Client:      caller,
		Freelancer:  freelancer,
		Amount:      new(uint256.Int).Set(amount),
		Description: description,
		Status:      StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.store.InvoicePut(ctx, inv); err != nil {
		return 0, err
	}
	l.nextID++
	l.emit(newInvoiceEvent(EventTypeInvoiceCreated, inv, caller, now))
	return inv.ID, nil
}

// FundInvoice accepts funds equal to the invoice amount into escrow and moves
// the invoice from CREATED to FUNDED. Only the client may fund, and the
// supplied value must match the invoice amount exactly.
//
// Like payOut, the status change is committed before the hold is attempted
// and rolled back if the port reports failure, so a failed store write can
// never strand a hold in escrow and a retry never places a second hold.
func (l *Ledger) FundInvoice(ctx context.Context, id uint64, supplied *uint256.Int, caller Identity) error {
	mu := l.invoiceLock(id)
	mu.Lock()
	defer mu.Unlock()

	inv, err := l.loadInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := requireActor(inv.Client, caller, "client"); err != nil {
		return err
	}
	if inv.Status != StatusCreated {
		return fmt.Errorf("%w: cannot fund invoice in status %s", ErrInvalidState, inv.Status)
	}
	if supplied == nil || !supplied.Eq(inv.Amount) {
		return fmt.Errorf("%w: supplied value does not match invoice amount %s", ErrInvalidArgument, inv.Amount.Dec())
	}

	now := l.now()
	inv.Status = StatusFunded
	inv.UpdatedAt = now
	if err := l.store.InvoicePut(ctx, inv); err != nil {
		inv.Status = StatusCreated
		return err
	}
	if err := l.port.HoldIncoming(ctx, inv.Amount); err != nil {
		inv.Status = StatusCreated
		if putErr := l.store.InvoicePut(ctx, inv); putErr != nil {
			return fmt.Errorf("%w: %v (status rollback also failed: %v)", ErrTransferFailed, err, putErr)
		}
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	l.emit(newInvoiceEvent(EventTypeInvoiceFunded, inv, caller, now))
	return nil
}

// MarkCompleted attests completion of the work, moving the invoice from
// FUNDED to COMPLETED. Only the freelancer may attest; no value moves.
func (l *Ledger) MarkCompleted(ctx context.Context, id uint64, caller Identity) error {
	mu := l.invoiceLock(id)
	mu.Lock()
	defer mu.Unlock()

	inv, err := l.loadInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := requireActor(inv.Freelancer, caller, "freelancer"); err != nil {
		return err
	}
	if inv.Status != StatusFunded {
		return fmt.Errorf("%w: cannot complete invoice in status %s", ErrInvalidState, inv.Status)
	}
	now := l.now()
	inv.Status = StatusCompleted
	inv.UpdatedAt = now
	if err := l.store.InvoicePut(ctx, inv); err != nil {
		return err
	}
	l.emit(newInvoiceEvent(EventTypeInvoiceCompleted, inv, caller, now))
	return nil
}

// ReleasePayment pays the held amount to the freelancer and moves the invoice
// from COMPLETED to the terminal PAID. Only the client may release.
//
// The status change is committed before the payout is attempted, and rolled
// back if the port reports failure. Combined with the per-invoice mutex this
// makes the transition atomic: a concurrent release either runs after PAID is
// visible (and fails the status check) or after a rollback (and retries the
// transfer at most once per successful status commit).
func (l *Ledger) ReleasePayment(ctx context.Context, id uint64, caller Identity) error {
	mu := l.invoiceLock(id)
	mu.Lock()
	defer mu.Unlock()

	inv, err := l.loadInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := requireActor(inv.Client, caller, "client"); err != nil {
		return err
	}
	if inv.Status != StatusCompleted {
		return fmt.Errorf("%w: cannot release invoice in status %s", ErrInvalidState, inv.Status)
	}
	now := l.now()
	if err := l.payOut(ctx, inv, StatusCompleted, StatusPaid, inv.Freelancer, now); err != nil {
		return err
	}
	l.emit(newInvoiceEvent(EventTypeInvoiceReleased, inv, caller, now))
	return nil
}

// CancelInvoice voids a never-funded invoice, moving it from CREATED to the
// terminal CANCELLED. Only the client may cancel. Nothing was held, so no
// value moves; a post-funding refund is only possible through ResolveDispute.
func (l *Ledger) CancelInvoice(ctx context.Context, id uint64, caller Identity) error {
	mu := l.invoiceLock(id)
	mu.Lock()
	defer mu.Unlock()

	inv, err := l.loadInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := requireActor(inv.Client, caller, "client"); err != nil {
		return err
	}
	if inv.Status != StatusCreated {
		return fmt.Errorf("%w: cannot cancel invoice in status %s", ErrInvalidState, inv.Status)
	}
	now := l.now()
	inv.Status = StatusCancelled
	inv.UpdatedAt = now
	if err := l.store.InvoicePut(ctx, inv); err != nil {
		return err
	}
	l.emit(newInvoiceEvent(EventTypeInvoiceCancelled, inv, caller, now))
	return nil
}

// ResolveDispute force-settles a funded or completed invoice. Releasing pays
// the freelancer and ends in PAID; refunding returns the held amount to the
// client and ends in CANCELLED. Only the arbiter may resolve.
func (l *Ledger) ResolveDispute(ctx context.Context, id uint64, releaseToFreelancer bool, caller Identity) error {
	mu := l.invoiceLock(id)
	mu.Lock()
	defer mu.Unlock()

	inv, err := l.loadInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := l.requireArbiter(caller); err != nil {
		return err
	}
	if inv.Status != StatusFunded && inv.Status != StatusCompleted {
		return fmt.Errorf("%w: cannot resolve invoice in status %s", ErrInvalidState, inv.Status)
	}

	prev := inv.Status
	now := l.now()
	outcome := OutcomeRefund
	target := StatusCancelled
	recipient := inv.Client
	if releaseToFreelancer {
		outcome = OutcomeRelease
		target = StatusPaid
		recipient = inv.Freelancer
	}
	if err := l.payOut(ctx, inv, prev, target, recipient, now); err != nil {
		return err
	}
	if releaseToFreelancer {
		l.emit(newInvoiceEvent(EventTypeInvoiceReleased, inv, caller, now))
	}
	resolved := newInvoiceEvent(EventTypeInvoiceResolved, inv, caller, now)
	resolved.Outcome = outcome
	l.emit(resolved)
	return nil
}

// payOut commits the status change, then invokes the transfer port. If the
// port fails, the prior status is restored and the operation fails with
// ErrTransferFailed, leaving the invoice exactly as before. Must be called
// with the invoice lock held.
//
// If the rollback write also fails, the store is left one step ahead of the
// transfer: it shows the target status although no value moved. Both errors
// are surfaced in the combined message; reconcile such invoices against the
// transaction_entries audit trail, which will show no matching payout.
func (l *Ledger) payOut(ctx context.Context, inv *Invoice, prev, target Status, recipient Identity, now int64) error {
	inv.Status = target
	inv.UpdatedAt = now
	if err := l.store.InvoicePut(ctx, inv); err != nil {
		inv.Status = prev
		return err
	}
	if err := l.port.PayOut(ctx, recipient, inv.Amount); err != nil {
		inv.Status = prev
		if putErr := l.store.InvoicePut(ctx, inv); putErr != nil {
			return fmt.Errorf("%w: %v (status rollback also failed: %v)", ErrTransferFailed, err, putErr)
		}
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// GetInvoice returns a copy of the full invoice record.
func (l *Ledger) GetInvoice(ctx context.Context, id uint64) (*Invoice, error) {
	return l.loadInvoice(ctx, id)
}

// GetInvoiceStatus returns the invoice status.
func (l *Ledger) GetInvoiceStatus(ctx context.Context, id uint64) (Status, error) {
	inv, err := l.loadInvoice(ctx, id)
	if err != nil {
		return 0, err
	}
	return inv.Status, nil
}

// GetTotalInvoices returns the number of invoices ever created, including
// cancelled and paid ones. O(1).
func (l *Ledger) GetTotalInvoices() uint64 {
	l.createMu.Lock()
	defer l.createMu.Unlock()
	return l.nextID
}

// Arbiter returns the current arbiter identity.
func (l *Ledger) Arbiter() Identity {
	l.arbMu.RLock()
	defer l.arbMu.RUnlock()
	return l.arbiter
}

// TransferArbiter hands the arbiter role to the next identity. Only the
// current holder may transfer it.
func (l *Ledger) TransferArbiter(next, caller Identity) error {
	if next.Zero() {
		return fmt.Errorf("%w: next arbiter identity required", ErrInvalidArgument)
	}
	l.arbMu.Lock()
	defer l.arbMu.Unlock()
	if caller != l.arbiter {
		return fmt.Errorf("%w: caller is not the arbiter", ErrUnauthorized)
	}
	l.arbiter = next
	l.emit(Event{
		Type:      EventTypeArbiterTransferred,
		Actor:     caller,
		CreatedAt: l.now(),
	})
	return nil
}
