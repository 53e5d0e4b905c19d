package service

import (
	"context"
	"sync"
	"time"

	"github.com/escrowhub/escrowhub.go/db/models"
	"github.com/escrowhub/escrowhub.go/ledger"
)

// EventLog keeps the per-invoice transition history in memory. It backs the
// events endpoint when no database is configured and doubles as a hot cache
// otherwise.
type EventLog struct {
	mu     sync.RWMutex
	byID   map[uint64][]ledger.Event
	global []ledger.Event
}

func NewEventLog() *EventLog {
	return &EventLog{byID: make(map[uint64][]ledger.Event)}
}

func (el *EventLog) Append(ev ledger.Event) {
	el.mu.Lock()
	defer el.mu.Unlock()
	// arbiter transfers carry no invoice id, keep them out of the
	// per-invoice histories
	if ev.Type != ledger.EventTypeArbiterTransferred {
		el.byID[ev.InvoiceID] = append(el.byID[ev.InvoiceID], ev)
	}
	el.global = append(el.global, ev)
}

func (el *EventLog) ForInvoice(id uint64) []ledger.Event {
	el.mu.RLock()
	defer el.mu.RUnlock()
	events := el.byID[id]
	out := make([]ledger.Event, len(events))
	copy(out, events)
	return out
}

// Emit satisfies ledger.Emitter. It records the event, persists it when a
// database is configured and fans it out to subscribers. The fan-out never
// blocks; a subscriber that falls behind its channel buffer loses events.
func (svc *EscrowService) Emit(ev ledger.Event) {
	svc.EventLog.Append(ev)

	if svc.DB != nil {
		row := &models.InvoiceEvent{
			Type:      ev.Type,
			InvoiceID: ev.InvoiceID,
			Status:    uint8(ev.Status),
			Actor:     string(ev.Actor),
			Outcome:   ev.Outcome,
			CreatedAt: time.Unix(ev.CreatedAt, 0),
		}
		if ev.Amount != nil {
			row.Amount = ev.Amount.Dec()
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(svc.Config.DatabaseTimeout)*time.Second)
		defer cancel()
		if _, err := svc.DB.NewInsert().Model(row).Exec(ctx); err != nil {
			svc.Logger.Errorf("Failed to persist %s event for invoice %d: %v", ev.Type, ev.InvoiceID, err)
		}
	}

	svc.InvoicePubSub.Publish(ev)
}

// InvoiceEvents returns the transition history of one invoice, oldest first.
func (svc *EscrowService) InvoiceEvents(ctx context.Context, id uint64) ([]ledger.Event, error) {
	if svc.DB == nil {
		return svc.EventLog.ForInvoice(id), nil
	}

	var rows []models.InvoiceEvent
	err := svc.DB.NewSelect().
		Model(&rows).
		Where("invoice_id = ?", id).
		Where("type != ?", ledger.EventTypeArbiterTransferred).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]ledger.Event, 0, len(rows))
	for _, row := range rows {
		ev := ledger.Event{
			Type:      row.Type,
			InvoiceID: row.InvoiceID,
			Status:    ledger.Status(row.Status),
			Actor:     ledger.Identity(row.Actor),
			Outcome:   row.Outcome,
			CreatedAt: row.CreatedAt.Unix(),
		}
		if row.Amount != "" {
			amount, err := ledger.ParseAmount(row.Amount)
			if err != nil {
				return nil, err
			}
			ev.Amount = amount
		}
		events = append(events, ev)
	}
	return events, nil
}

// SubscribeAllEvents is the subscription hook handed to the rabbitmq
// publisher and the webhook routine.
func (svc *EscrowService) SubscribeAllEvents() (chan ledger.Event, func(), error) {
	ch := make(chan ledger.Event, 64)
	subId := svc.InvoicePubSub.Subscribe(TopicAllEvents, ch)
	return ch, func() { svc.InvoicePubSub.Unsubscribe(subId, TopicAllEvents) }, nil
}
