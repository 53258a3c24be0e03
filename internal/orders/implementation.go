// internal/orders/implementation.go
package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ikirezi/internal/clients"
	"ikirezi/pkg/eventstore"

	"github.com/google/uuid"
)

// intentTimeout bounds the round trip to the payments service so a hung
// provider call surfaces as a user-visible failure instead of blocking.
const intentTimeout = 10 * time.Second

// service implements the Service interface.
type service struct {
	db             *sql.DB
	eventStore     *eventstore.EventStore
	catalogClient  *clients.CatalogClient
	paymentsClient *clients.PaymentsClient
}

// NewService creates a new orders service instance.
func NewService(db *sql.DB, es *eventstore.EventStore, catalogClient *clients.CatalogClient, paymentsClient *clients.PaymentsClient) Service {
	return &service{
		db:             db,
		eventStore:     es,
		catalogClient:  catalogClient,
		paymentsClient: paymentsClient,
	}
}

// PlaceOrder drives phase one of checkout: reserve stock for every cart line,
// then materialize the order, its items and the lifecycle event in a single
// transaction. A failure after reservation releases the reserved copies, so
// no orphaned order and no phantom reservation survives a partial failure.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, shipping ShippingDetails, cart []CartLine) (*Order, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}
	for _, line := range cart {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	orderID := uuid.New()

	// Reserve stock line by line, snapshotting the price of each book as it
	// is reserved. Reservations already made are rolled back on any failure.
	var reserved []CartLine
	release := func() {
		for _, line := range reserved {
			if err := s.catalogClient.ReleaseStock(ctx, line.BookID, line.Quantity); err != nil {
				log.Printf("orders: failed to release %d copies of %s after aborted checkout: %v", line.Quantity, line.BookID, err)
			}
		}
	}

	items := make([]OrderItem, 0, len(cart))
	var total int64
	for _, line := range cart {
		book, err := s.catalogClient.GetBook(ctx, line.BookID)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to get book %s: %w", line.BookID, err)
		}
		if err := s.catalogClient.ReserveStock(ctx, line.BookID, line.Quantity); err != nil {
			release()
			return nil, fmt.Errorf("failed to reserve stock for %s: %w", line.BookID, err)
		}
		reserved = append(reserved, line)

		items = append(items, OrderItem{
			ID:       uuid.New(),
			OrderID:  orderID,
			BookID:   line.BookID,
			Quantity: line.Quantity,
			Price:    book.Price,
		})
		total += int64(line.Quantity) * book.Price
	}

	order := &Order{
		ID:                 orderID,
		UserID:             userID,
		TotalAmount:        total,
		Status:             StatusPending,
		PaymentStatus:      PaymentPending,
		ShippingAddress:    shipping.Address,
		ShippingCity:       shipping.City,
		ShippingCountry:    shipping.Country,
		ShippingPostalCode: shipping.PostalCode,
		Items:              items,
		Version:            1,
	}

	if err := s.insertOrder(ctx, order); err != nil {
		release()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return order, nil
}

// insertOrder writes the order row, its items and the OrderPlaced event
// atomically.
func (s *service) insertOrder(ctx context.Context, order *Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (id, user_id, total_amount, status, payment_status,
		                    shipping_address, shipping_city, shipping_country, shipping_postal_code, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, orderQuery,
		order.ID, order.UserID, order.TotalAmount, order.Status, order.PaymentStatus,
		order.ShippingAddress, order.ShippingCity, order.ShippingCountry, order.ShippingPostalCode, order.Version)
	if err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, book_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery, item.ID, item.OrderID, item.BookID, item.Quantity, item.Price); err != nil {
			return err
		}
	}

	err = appendOrderEventTx(ctx, tx, order.ID, "OrderPlaced", OrderPlacedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Lines:       len(order.Items),
	}, 1)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// appendOrderEventTx records a lifecycle event inside the caller's
// transaction, so the event and the state change commit or roll back together.
func appendOrderEventTx(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, eventType string, data interface{}, version int) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, version, created_at)
		VALUES ($1, 'order', $2, $3, $4, NOW())
	`, orderID, eventType, jsonData, version)
	if err != nil {
		return fmt.Errorf("failed to append %s event: %w", eventType, err)
	}
	return nil
}

// CreatePaymentIntent drives phase two: obtain a provider intent scoped to
// the order. The call is bounded by an explicit timeout, and a failure leaves
// the order pending with no intent so the same order can retry later.
func (s *service) CreatePaymentIntent(ctx context.Context, userID, orderID uuid.UUID, bearerToken string) (string, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.UserID != userID {
		return "", ErrNotOwner
	}
	if order.Status != StatusPending {
		return "", ErrIntentNotAllowed
	}
	if order.PaymentStatus != PaymentPending && order.PaymentStatus != PaymentFailed {
		return "", ErrIntentNotAllowed
	}

	intentCtx, cancel := context.WithTimeout(ctx, intentTimeout)
	defer cancel()

	clientSecret, intentID, err := s.paymentsClient.CreateIntent(intentCtx, bearerToken, order.TotalAmount, orderID)
	if err != nil {
		return "", fmt.Errorf("failed to create payment intent: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var version int
	err = tx.QueryRowContext(ctx, `
		UPDATE orders
		SET payment_intent_id = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
		RETURNING version
	`, intentID, orderID).Scan(&version)
	if err == sql.ErrNoRows {
		return "", ErrIntentNotAllowed
	}
	if err != nil {
		return "", fmt.Errorf("failed to attach payment intent: %w", err)
	}

	err = appendOrderEventTx(ctx, tx, orderID, "PaymentIntentAttached", PaymentIntentAttachedEvent{
		OrderID:  orderID,
		IntentID: intentID,
	}, version)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return clientSecret, nil
}

// ApplyPaymentOutcome reconciles a provider notification onto the order. The
// row lock plus the pure transition guard make the update idempotent and safe
// under at-least-once, out-of-order delivery: redelivery changes nothing, and
// a late failure never downgrades a succeeded payment. A notification for an
// intent other than the one attached to the order is dropped.
func (s *service) ApplyPaymentOutcome(ctx context.Context, orderID uuid.UUID, intentID string, outcome Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		status       Status
		payment      PaymentStatus
		storedIntent string
		version      int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT status, payment_status, COALESCE(payment_intent_id, ''), version
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&status, &payment, &storedIntent, &version)
	if err == sql.ErrNoRows {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	if storedIntent != "" && intentID != "" && storedIntent != intentID {
		log.Printf("orders: dropping %s outcome for order %s: intent %s does not match attached intent", outcome, orderID, intentID)
		return tx.Commit()
	}
	if storedIntent != "" {
		intentID = storedIntent
	}

	nextStatus, nextPayment, changed := ApplyOutcome(status, payment, outcome)
	if !changed {
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, payment_status = $2, payment_intent_id = $3, version = version + 1, updated_at = NOW()
		WHERE id = $4
	`, nextStatus, nextPayment, intentID, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	err = appendOrderEventTx(ctx, tx, orderID, "PaymentOutcomeApplied", PaymentOutcomeEvent{
		OrderID:  orderID,
		IntentID: intentID,
		Outcome:  outcome,
	}, version+1)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetOrder retrieves an order with its items.
func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `
		SELECT id, user_id, total_amount, status, payment_status, COALESCE(payment_intent_id, ''),
		       shipping_address, shipping_city, shipping_country, shipping_postal_code,
		       version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	order := &Order{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.UserID, &order.TotalAmount, &order.Status, &order.PaymentStatus, &order.PaymentIntentID,
		&order.ShippingAddress, &order.ShippingCity, &order.ShippingCountry, &order.ShippingPostalCode,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := s.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (s *service) loadItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, book_id, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.BookID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListOrdersForUser returns a customer's orders, newest first.
func (s *service) ListOrdersForUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	return s.listOrders(ctx, `WHERE user_id = $1`, userID)
}

// ListAllOrders returns every order for the admin back office.
func (s *service) ListAllOrders(ctx context.Context) ([]*Order, error) {
	return s.listOrders(ctx, ``)
}

func (s *service) listOrders(ctx context.Context, where string, args ...interface{}) ([]*Order, error) {
	query := `
		SELECT id, user_id, total_amount, status, payment_status, COALESCE(payment_intent_id, ''),
		       shipping_address, shipping_city, shipping_country, shipping_postal_code,
		       version, created_at, updated_at
		FROM orders ` + where + `
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order := &Order{}
		err := rows.Scan(
			&order.ID, &order.UserID, &order.TotalAmount, &order.Status, &order.PaymentStatus, &order.PaymentIntentID,
			&order.ShippingAddress, &order.ShippingCity, &order.ShippingCountry, &order.ShippingPostalCode,
			&order.Version, &order.CreatedAt, &order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// CancelOrder cancels a customer's own order. Permitted only while the order
// is pending or processing; stock reserved at placement is not returned.
func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		owner   uuid.UUID
		status  Status
		version int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, status, version
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&owner, &status, &version)
	if err == sql.ErrNoRows {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	if owner != userID {
		return ErrNotOwner
	}
	if !CanCancel(status) {
		return ErrCancelNotAllowed
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = 'cancelled', version = version + 1, updated_at = NOW()
		WHERE id = $1
	`, orderID)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	err = appendOrderEventTx(ctx, tx, orderID, "OrderCancelled", OrderCancelledEvent{OrderID: orderID}, version+1)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetOrderHistory returns the order's lifecycle event stream for auditing.
func (s *service) GetOrderHistory(ctx context.Context, orderID uuid.UUID) ([]eventstore.Event, error) {
	events, err := s.eventStore.LoadEvents(ctx, orderID)
	if err != nil {
		if err == eventstore.ErrAggregateNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	return events, nil
}

// SetStatus applies an admin override. Any of the four statuses may be set;
// legality of the transition is deliberately not validated here.
func (s *service) SetStatus(ctx context.Context, orderID uuid.UUID, status Status) error {
	if !ValidStatus(status) {
		return ErrUnknownStatus
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var version int
	err = tx.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING version
	`, status, orderID).Scan(&version)
	if err == sql.ErrNoRows {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	err = appendOrderEventTx(ctx, tx, orderID, "StatusOverridden", StatusOverriddenEvent{
		OrderID: orderID,
		Status:  status,
	}, version)
	if err != nil {
		return err
	}

	return tx.Commit()
}
