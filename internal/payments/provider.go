// internal/payments/provider.go
package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// Provider issues payment intents. The production implementation talks to
// Stripe; tests substitute a fake.
type Provider interface {
	CreateIntent(ctx context.Context, amount int64, orderID string) (*Intent, error)
}

type stripeProvider struct{}

// NewStripeProvider configures the Stripe SDK with the account's secret key.
func NewStripeProvider(secretKey string) Provider {
	stripe.Key = secretKey
	return &stripeProvider{}
}

// CreateIntent creates a Stripe payment intent for the order amount, in the
// smallest currency unit (RWF). The order ID rides along as metadata so the
// webhook can correlate the notification back without re-deriving it.
func (p *stripeProvider) CreateIntent(ctx context.Context, amount int64, orderID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String("rwf"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("orderId", orderID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent: %w", err)
	}

	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
