// internal/payments/service.go
package payments

import "context"

// Service defines the interface for the payments service.
type Service interface {
	CreateIntent(ctx context.Context, amount int64, orderID string) (*Intent, error)
	HandleProviderEvent(ctx context.Context, payload []byte, signature string) error
}
