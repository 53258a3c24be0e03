// internal/orders/service.go
package orders

import (
	"context"

	"ikirezi/pkg/eventstore"

	"github.com/google/uuid"
)

// Service defines the interface for the order/payment orchestrator.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, shipping ShippingDetails, cart []CartLine) (*Order, error)
	CreatePaymentIntent(ctx context.Context, userID, orderID uuid.UUID, bearerToken string) (string, error)
	ApplyPaymentOutcome(ctx context.Context, orderID uuid.UUID, intentID string, outcome Outcome) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrdersForUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
	ListAllOrders(ctx context.Context) ([]*Order, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) error
	SetStatus(ctx context.Context, orderID uuid.UUID, status Status) error
	GetOrderHistory(ctx context.Context, orderID uuid.UUID) ([]eventstore.Event, error)
}
