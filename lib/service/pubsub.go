package service

import (
	"os"
	"sync"

	"github.com/labstack/gommon/log"
	"github.com/labstack/gommon/random"
	"github.com/ziflex/lecho/v3"

	"github.com/escrowhub/escrowhub.go/ledger"
)

// TopicAllEvents receives every event regardless of type.
const TopicAllEvents = "*"

type Pubsub struct {
	mu     sync.RWMutex
	subs   map[string]map[string]chan ledger.Event
	logger *lecho.Logger
}

func NewPubsub(logger *lecho.Logger) *Pubsub {
	if logger == nil {
		logger = lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		)
	}
	ps := &Pubsub{logger: logger}
	ps.subs = make(map[string]map[string]chan ledger.Event)
	return ps
}

// Subscribe registers ch for the given topic (an event type or
// TopicAllEvents) and returns the subscription id needed to unsubscribe.
func (ps *Pubsub) Subscribe(topic string, ch chan ledger.Event) (subId string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = make(map[string]chan ledger.Event)
	}
	subId = random.String(32, random.Alphanumeric)
	ps.subs[topic][subId] = ch
	return subId
}

func (ps *Pubsub) Unsubscribe(id string, topic string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		return
	}
	if ps.subs[topic][id] == nil {
		return
	}
	close(ps.subs[topic][id])
	delete(ps.subs[topic], id)
}

// Publish fans the event out to all subscribers of its type and of
// TopicAllEvents. Sends never block: Publish runs inside the ledger's
// per-invoice critical section, so a subscriber that stops draining gets
// events dropped rather than stalling every transition on that invoice.
func (ps *Pubsub) Publish(msg ledger.Event) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, ch := range ps.subs[msg.Type] {
		ps.send(ch, msg)
	}
	for _, ch := range ps.subs[TopicAllEvents] {
		ps.send(ch, msg)
	}
}

func (ps *Pubsub) send(ch chan ledger.Event, msg ledger.Event) {
	select {
	case ch <- msg:
	default:
		ps.logger.Warnf("Dropping %s event for invoice %d: subscriber is not draining", msg.Type, msg.InvoiceID)
	}
}
