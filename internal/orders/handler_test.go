// internal/orders/handler_test.go
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ikirezi/internal/accounts"
	"ikirezi/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService is a canned-response Service for exercising the HTTP layer.
type stubService struct {
	order     *Order
	orders    []*Order
	events    []eventstore.Event
	err       error
	lastCall  string
	outcome   Outcome
	newStatus Status
}

func (s *stubService) PlaceOrder(_ context.Context, userID uuid.UUID, _ ShippingDetails, cart []CartLine) (*Order, error) {
	s.lastCall = "PlaceOrder"
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}
	return s.order, s.err
}

func (s *stubService) CreatePaymentIntent(_ context.Context, _, _ uuid.UUID, _ string) (string, error) {
	s.lastCall = "CreatePaymentIntent"
	if s.err != nil {
		return "", s.err
	}
	return "pi_secret", nil
}

func (s *stubService) ApplyPaymentOutcome(_ context.Context, _ uuid.UUID, _ string, outcome Outcome) error {
	s.lastCall = "ApplyPaymentOutcome"
	s.outcome = outcome
	return s.err
}

func (s *stubService) GetOrder(_ context.Context, _ uuid.UUID) (*Order, error) {
	s.lastCall = "GetOrder"
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func (s *stubService) ListOrdersForUser(_ context.Context, _ uuid.UUID) ([]*Order, error) {
	s.lastCall = "ListOrdersForUser"
	return s.orders, s.err
}

func (s *stubService) ListAllOrders(_ context.Context) ([]*Order, error) {
	s.lastCall = "ListAllOrders"
	return s.orders, s.err
}

func (s *stubService) CancelOrder(_ context.Context, _, _ uuid.UUID) error {
	s.lastCall = "CancelOrder"
	return s.err
}

func (s *stubService) SetStatus(_ context.Context, _ uuid.UUID, status Status) error {
	s.lastCall = "SetStatus"
	s.newStatus = status
	return s.err
}

func (s *stubService) GetOrderHistory(_ context.Context, _ uuid.UUID) ([]eventstore.Event, error) {
	s.lastCall = "GetOrderHistory"
	return s.events, s.err
}

func newHandlerFixture(t *testing.T, svc Service) (*httptest.Server, *accounts.TokenIssuer) {
	t.Helper()
	tokens := accounts.NewTokenIssuer([]byte("test-secret"), time.Hour)
	srv := httptest.NewServer(NewHandler(svc, tokens).Routes())
	t.Cleanup(srv.Close)
	return srv, tokens
}

func bearerFor(t *testing.T, tokens *accounts.TokenIssuer, userID uuid.UUID, admin bool) string {
	t.Helper()
	token, err := tokens.Issue(&accounts.Profile{ID: userID, Email: "reader@example.com", IsAdmin: admin})
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, method, url, bearer string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandlerRequiresAuth(t *testing.T) {
	srv, _ := newHandlerFixture(t, &stubService{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/orders", "Bearer not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerAdminRoutesRejectCustomers(t *testing.T) {
	srv, tokens := newHandlerFixture(t, &stubService{})
	bearer := bearerFor(t, tokens, uuid.New(), false)

	resp := doJSON(t, http.MethodGet, srv.URL+"/admin/orders", bearer, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandlerPlaceOrder(t *testing.T) {
	userID := uuid.New()
	stub := &stubService{order: &Order{ID: uuid.New(), UserID: userID, TotalAmount: 2000, Status: StatusPending}}
	srv, tokens := newHandlerFixture(t, stub)
	bearer := bearerFor(t, tokens, userID, false)

	resp := doJSON(t, http.MethodPost, srv.URL+"/orders", bearer, map[string]interface{}{
		"shipping_address": "KG 11 Ave",
		"shipping_city":    "Kigali",
		"items":            []CartLine{{BookID: uuid.New(), Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, int64(2000), got.TotalAmount)
}

func TestHandlerPlaceOrderEmptyCart(t *testing.T) {
	srv, tokens := newHandlerFixture(t, &stubService{})
	bearer := bearerFor(t, tokens, uuid.New(), false)

	resp := doJSON(t, http.MethodPost, srv.URL+"/orders", bearer, map[string]interface{}{
		"items": []CartLine{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerGetOrderHidesOtherCustomers(t *testing.T) {
	owner := uuid.New()
	stub := &stubService{order: &Order{ID: uuid.New(), UserID: owner}}
	srv, tokens := newHandlerFixture(t, stub)

	// A stranger gets 403, an admin gets through.
	resp := doJSON(t, http.MethodGet, srv.URL+"/orders/"+stub.order.ID.String(), bearerFor(t, tokens, uuid.New(), false), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/orders/"+stub.order.ID.String(), bearerFor(t, tokens, uuid.New(), true), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/orders/"+stub.order.ID.String(), bearerFor(t, tokens, owner, false), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlerCreatePaymentIntent(t *testing.T) {
	userID := uuid.New()
	srv, tokens := newHandlerFixture(t, &stubService{})
	bearer := bearerFor(t, tokens, userID, false)

	resp := doJSON(t, http.MethodPost, srv.URL+"/orders/"+uuid.NewString()+"/payment-intent", bearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		ClientSecret string `json:"clientSecret"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "pi_secret", got.ClientSecret)
}

func TestHandlerCreatePaymentIntentConflict(t *testing.T) {
	srv, tokens := newHandlerFixture(t, &stubService{err: ErrIntentNotAllowed})
	bearer := bearerFor(t, tokens, uuid.New(), false)

	resp := doJSON(t, http.MethodPost, srv.URL+"/orders/"+uuid.NewString()+"/payment-intent", bearer, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandlerPaymentOutcome(t *testing.T) {
	stub := &stubService{}
	srv, _ := newHandlerFixture(t, stub)

	// Internal endpoint takes no bearer token.
	resp := doJSON(t, http.MethodPost, srv.URL+"/internal/payment-outcomes", "", map[string]interface{}{
		"order_id":  uuid.New(),
		"intent_id": "pi_abc",
		"outcome":   "succeeded",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, OutcomeSucceeded, stub.outcome)
}

func TestHandlerPaymentOutcomeRejectsUnknownOutcome(t *testing.T) {
	stub := &stubService{}
	srv, _ := newHandlerFixture(t, stub)

	resp := doJSON(t, http.MethodPost, srv.URL+"/internal/payment-outcomes", "", map[string]interface{}{
		"order_id": uuid.New(),
		"outcome":  "refunded",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, stub.lastCall)
}

func TestHandlerCancelConflict(t *testing.T) {
	srv, tokens := newHandlerFixture(t, &stubService{err: ErrCancelNotAllowed})
	bearer := bearerFor(t, tokens, uuid.New(), false)

	resp := doJSON(t, http.MethodPost, srv.URL+"/orders/"+uuid.NewString()+"/cancel", bearer, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandlerSetStatus(t *testing.T) {
	stub := &stubService{}
	srv, tokens := newHandlerFixture(t, stub)
	bearer := bearerFor(t, tokens, uuid.New(), true)

	resp := doJSON(t, http.MethodPatch, srv.URL+"/admin/orders/"+uuid.NewString()+"/status", bearer, map[string]string{
		"status": "completed",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusCompleted, stub.newStatus)
}
