// internal/clients/payments_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// PaymentsClient is the orders service's view of the payments service.
type PaymentsClient struct {
	baseURL string
	http    *http.Client
}

func NewPaymentsClient(baseURL string) *PaymentsClient {
	return &PaymentsClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateIntent requests a payment intent scoped to an order. The caller's
// bearer token is forwarded so the payments service applies the same session
// checks it applies to direct calls.
func (c *PaymentsClient) CreateIntent(ctx context.Context, bearerToken string, amount int64, orderID uuid.UUID) (clientSecret, intentID string, err error) {
	body, err := json.Marshal(struct {
		Amount  int64  `json:"amount"`
		OrderID string `json:"orderId"`
	}{Amount: amount, OrderID: orderID.String()})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payment-intents", bytes.NewBuffer(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var result struct {
		ClientSecret string `json:"clientSecret"`
		IntentID     string `json:"intentId"`
		Error        string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", err
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != "" {
			return "", "", fmt.Errorf("payment intent rejected: %s", result.Error)
		}
		return "", "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return result.ClientSecret, result.IntentID, nil
}
