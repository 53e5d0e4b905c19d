package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/escrowhub/escrowhub.go/ledger"
)

// StartWebhookSubscription POSTs every ledger event to the configured
// webhook url until ctx is cancelled.
func (svc *EscrowService) StartWebhookSubscription(ctx context.Context, url string) {
	svc.Logger.Infof("Starting webhook subscription with webhook url %s", url)

	events, unsubscribe, err := svc.SubscribeAllEvents()
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			svc.postToWebhook(ctx, url, event)
		}
	}
}

func (svc *EscrowService) postToWebhook(ctx context.Context, url string, event ledger.Event) {
	payload := new(bytes.Buffer)
	err := json.NewEncoder(payload).Encode(event)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	body := payload.Bytes()

	// endpoints flap, retry with backoff before giving up on an event
	expontentialBackoff := backoff.NewExponentialBackOff()
	expontentialBackoff.MaxInterval = 10 * time.Second
	expontentialBackoff.MaxElapsedTime = time.Minute

	err = backoff.Retry(func() error {
		return svc.deliverWebhook(ctx, url, body)
	}, backoff.WithContext(expontentialBackoff, ctx))
	if err != nil {
		svc.Logger.Errorf("Failed to deliver %s event for invoice %d to webhook: %v", event.Type, event.InvoiceID, err)
	}
}

func (svc *EscrowService) deliverWebhook(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			svc.Logger.Error(err)
		}
		svc.Logger.Errorf("Webhook status code was %d, body: %s", resp.StatusCode, msg)
	}
	return nil
}
