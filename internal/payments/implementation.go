// internal/payments/implementation.go
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ikirezi/internal/clients"

	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// service implements the Service interface.
type service struct {
	provider      Provider
	breaker       *gobreaker.CircuitBreaker
	webhookSecret string
	ordersClient  *clients.OrdersClient
}

// NewService creates a new payments service instance.
func NewService(provider Provider, webhookSecret string, ordersClient *clients.OrdersClient) Service {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-provider",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &service{
		provider:      provider,
		breaker:       breaker,
		webhookSecret: webhookSecret,
		ordersClient:  ordersClient,
	}
}

// CreateIntent validates the amount and requests an intent from the provider
// behind a circuit breaker, so a failing provider sheds load fast instead of
// stacking up blocked checkouts.
func (s *service) CreateIntent(ctx context.Context, amount int64, orderID string) (*Intent, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.CreateIntent(ctx, amount, orderID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return result.(*Intent), nil
}

// HandleProviderEvent verifies and applies one webhook delivery. Deliveries
// are at-least-once and unordered; the orders-side update is idempotent, so
// processing the same event twice is harmless.
func (s *service) HandleProviderEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	notification, err := classifyEvent(event)
	if err != nil {
		return err
	}

	if notification.Kind == KindIgnored {
		log.Printf("payments: ignoring event type %s", event.Type)
		return nil
	}
	if notification.OrderID == "" {
		// Intent created outside checkout; nothing to reconcile.
		log.Printf("payments: event %s carries no order reference", event.ID)
		return nil
	}

	err = s.ordersClient.ApplyPaymentOutcome(ctx, notification.OrderID, notification.IntentID, string(notification.Kind))
	if err != nil {
		return fmt.Errorf("failed to apply payment outcome: %w", err)
	}

	log.Printf("payments: applied %s for order %s (intent %s)", notification.Kind, notification.OrderID, notification.IntentID)
	return nil
}

// classifyEvent folds a verified provider event into the closed notification
// set, extracting the intent and the order it was scoped to.
func classifyEvent(event stripe.Event) (*Notification, error) {
	kind := KindForEventType(string(event.Type))
	if kind == KindIgnored {
		return &Notification{Kind: KindIgnored}, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent payload: %w", err)
	}

	return &Notification{
		Kind:     kind,
		IntentID: intent.ID,
		OrderID:  intent.Metadata["orderId"],
	}, nil
}
