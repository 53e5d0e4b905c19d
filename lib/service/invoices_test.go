package service

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ziflex/lecho/v3"

	"github.com/escrowhub/escrowhub.go/ledger"
	"github.com/escrowhub/escrowhub.go/wallet"
)

const (
	testClient     = ledger.Identity("alice")
	testFreelancer = ledger.Identity("bob")
	testArbiter    = ledger.Identity("carol")
)

func newTestService(t *testing.T) *EscrowService {
	logger := lecho.New(io.Discard)
	svc := &EscrowService{
		Config: &Config{
			JWTSecret:            []byte("test-secret"),
			JWTAccessTokenExpiry: 3600,
		},
		Logger:        logger,
		EventLog:      NewEventLog(),
		InvoicePubSub: NewPubsub(logger),
	}
	escrowLedger, err := ledger.New(ledger.NewMemoryStore(), wallet.NewMemoryBook(), testArbiter, ledger.WithEmitter(svc))
	require.NoError(t, err)
	svc.Ledger = escrowLedger
	return svc
}

func TestAddInvoiceValidatesRawFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddInvoice(ctx, testClient, "", "100", "logo design")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, err = svc.AddInvoice(ctx, testClient, string(testFreelancer), "12.5", "logo design")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, err = svc.AddInvoice(ctx, testClient, string(testFreelancer), "-100", "logo design")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	id, err := svc.AddInvoice(ctx, testClient, string(testFreelancer), "100", "logo design")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
}

func TestLifecycleThroughService(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddInvoice(ctx, testClient, string(testFreelancer), "2500", "landing page")
	require.NoError(t, err)

	require.NoError(t, svc.FundInvoice(ctx, id, "2500", testClient))
	require.NoError(t, svc.CompleteInvoice(ctx, id, testFreelancer))
	require.NoError(t, svc.ReleasePayment(ctx, id, testClient))

	status, err := svc.GetInvoiceStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, status)
	assert.Equal(t, uint64(1), svc.TotalInvoices())

	events, err := svc.InvoiceEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, ledger.EventTypeInvoiceCreated, events[0].Type)
	assert.Equal(t, ledger.EventTypeInvoiceFunded, events[1].Type)
	assert.Equal(t, ledger.EventTypeInvoiceCompleted, events[2].Type)
	assert.Equal(t, ledger.EventTypeInvoiceReleased, events[3].Type)
}

func TestDisputeRefundThroughService(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddInvoice(ctx, testClient, string(testFreelancer), "900", "copywriting")
	require.NoError(t, err)
	require.NoError(t, svc.FundInvoice(ctx, id, "900", testClient))

	// only the arbiter may resolve
	err = svc.ResolveDispute(ctx, id, false, testClient)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	require.NoError(t, svc.ResolveDispute(ctx, id, false, testArbiter))

	status, err := svc.GetInvoiceStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCancelled, status)

	events, err := svc.InvoiceEvents(ctx, id)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, ledger.EventTypeInvoiceResolved, last.Type)
	assert.Equal(t, ledger.OutcomeRefund, last.Outcome)
}

func TestPubsubReceivesEvents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	events, unsubscribe, err := svc.SubscribeAllEvents()
	require.NoError(t, err)
	defer unsubscribe()

	id, err := svc.AddInvoice(ctx, testClient, string(testFreelancer), "50", "icon set")
	require.NoError(t, err)
	require.NoError(t, svc.FundInvoice(ctx, id, "50", testClient))

	created := <-events
	assert.Equal(t, ledger.EventTypeInvoiceCreated, created.Type)
	assert.Equal(t, id, created.InvoiceID)

	funded := <-events
	assert.Equal(t, ledger.EventTypeInvoiceFunded, funded.Type)
	assert.Equal(t, ledger.StatusFunded, funded.Status)
}

func TestEventLogSkipsArbiterTransfersPerInvoice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.AddInvoice(ctx, testClient, string(testFreelancer), "10", "favicon")
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)

	require.NoError(t, svc.TransferArbiter("dave", testArbiter))

	// invoice 0 history must not pick up the arbiter event
	events, err := svc.InvoiceEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ledger.EventTypeInvoiceCreated, events[0].Type)
}

func TestGenerateToken(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.GenerateToken("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = svc.GenerateToken("")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, err = svc.GenerateToken("has space")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}
