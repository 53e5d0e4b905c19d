package ledger

import "github.com/holiman/uint256"

// Event types emitted on each transition. The routing key of any published
// message is the event type itself.
const (
	EventTypeInvoiceCreated     = "invoice.created"
	EventTypeInvoiceFunded      = "invoice.funded"
	EventTypeInvoiceCompleted   = "invoice.completed"
	EventTypeInvoiceReleased    = "invoice.released"
	EventTypeInvoiceCancelled   = "invoice.cancelled"
	EventTypeInvoiceResolved    = "invoice.resolved"
	EventTypeArbiterTransferred = "arbiter.transferred"
)

// Dispute resolution outcomes carried on resolved events.
const (
	OutcomeRelease = "release"
	OutcomeRefund  = "refund"
)

// Event is an immutable record of one transition. The ledger appends one (or
// for dispute release, two) of these per successful operation.
type Event struct {
	Type      string       `json:"type"`
	InvoiceID uint64       `json:"invoice_id"`
	Status    Status       `json:"status"`
	Actor     Identity     `json:"actor"`
	Amount    *uint256.Int `json:"amount,omitempty"`
	Outcome   string       `json:"outcome,omitempty"`
	CreatedAt int64        `json:"created_at"`
}

// Emitter consumes the ledger's event stream. Implementations must not call
// back into the ledger for the invoice the event belongs to.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards all events.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

func newInvoiceEvent(eventType string, inv *Invoice, actor Identity, now int64) Event {
	ev := Event{
		Type:      eventType,
		InvoiceID: inv.ID,
		Status:    inv.Status,
		Actor:     actor,
		CreatedAt: now,
	}
	if inv.Amount != nil {
		ev.Amount = new(uint256.Int).Set(inv.Amount)
	}
	return ev
}
