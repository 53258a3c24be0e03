// internal/clients/orders_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// OrdersClient is the payments service's view of the orders service. It is
// used on the webhook path to reconcile provider notifications onto orders.
type OrdersClient struct {
	baseURL string
	http    *http.Client
}

func NewOrdersClient(baseURL string) *OrdersClient {
	return &OrdersClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// ApplyPaymentOutcome reports a provider notification to the orders service.
// The orders-side update is idempotent, so transient failures are retried
// with bounded exponential backoff before the webhook is failed back to the
// provider for redelivery.
func (c *OrdersClient) ApplyPaymentOutcome(ctx context.Context, orderID, intentID, outcome string) error {
	body, err := json.Marshal(struct {
		OrderID  string `json:"order_id"`
		IntentID string `json:"intent_id"`
		Outcome  string `json:"outcome"`
	}{OrderID: orderID, IntentID: intentID, Outcome: outcome})
	if err != nil {
		return err
	}

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/payment-outcomes", bytes.NewBuffer(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return struct{}{}, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return struct{}{}, backoff.Permanent(fmt.Errorf("orders service rejected outcome: %d", resp.StatusCode))
		default:
			return struct{}{}, fmt.Errorf("orders service unavailable: %d", resp.StatusCode)
		}
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	return err
}
