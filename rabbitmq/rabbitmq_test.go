package rabbitmq_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escrowhub/escrowhub.go/ledger"
	"github.com/escrowhub/escrowhub.go/rabbitmq"
)

type fakeAMQPClient struct {
	mu        sync.Mutex
	exchanges []string
	published []publishedMsg
	closed    bool
}

type publishedMsg struct {
	exchange string
	key      string
	body     []byte
}

func (f *fakeAMQPClient) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	body := make([]byte, len(msg.Body))
	copy(body, msg.Body)
	f.published = append(f.published, publishedMsg{exchange: exchange, key: key, body: body})
	return nil
}

func (f *fakeAMQPClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeAMQPClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeAMQPClient) snapshot() []publishedMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedMsg, len(f.published))
	copy(out, f.published)
	return out
}

func TestStartPublishEvents(t *testing.T) {
	t.Parallel()

	fake := &fakeAMQPClient{}
	client, err := rabbitmq.NewClient(fake, rabbitmq.WithInvoiceExchange("test_invoice"))
	require.NoError(t, err)

	events := make(chan ledger.Event, 2)
	unsubscribed := false
	subscribe := func() (chan ledger.Event, func(), error) {
		return events, func() { unsubscribed = true }, nil
	}

	events <- ledger.Event{Type: ledger.EventTypeInvoiceFunded, InvoiceID: 7, Status: ledger.StatusFunded}
	events <- ledger.Event{Type: ledger.EventTypeInvoiceReleased, InvoiceID: 7, Status: ledger.StatusPaid}
	close(events)

	err = client.StartPublishEvents(context.Background(), subscribe)
	assert.NoError(t, err)
	assert.True(t, unsubscribed)

	published := fake.snapshot()
	require.Len(t, published, 2)

	assert.Equal(t, "test_invoice", published[0].exchange)
	assert.Equal(t, ledger.EventTypeInvoiceFunded, published[0].key)
	assert.Equal(t, ledger.EventTypeInvoiceReleased, published[1].key)

	var decoded ledger.Event
	require.NoError(t, json.Unmarshal(published[0].body, &decoded))
	assert.Equal(t, uint64(7), decoded.InvoiceID)
	assert.Equal(t, ledger.StatusFunded, decoded.Status)
}

func TestStartPublishEventsStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	fake := &fakeAMQPClient{}
	client, err := rabbitmq.NewClient(fake)
	require.NoError(t, err)

	events := make(chan ledger.Event)
	subscribe := func() (chan ledger.Event, func(), error) {
		return events, func() {}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.StartPublishEvents(ctx, subscribe)
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("publisher did not stop on context cancel")
	}
}
