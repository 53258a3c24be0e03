// internal/orders/handler.go
package orders

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ikirezi/internal/accounts"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
	tokens  *accounts.TokenIssuer
}

func NewHandler(service Service, tokens *accounts.TokenIssuer) *Handler {
	return &Handler{service: service, tokens: tokens}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// The outcome endpoint is called by the payments service, not by
	// customers; the gateway refuses to proxy /internal/* so it is only
	// reachable on the service network.
	r.Post("/internal/payment-outcomes", h.handlePaymentOutcome)

	r.Group(func(r chi.Router) {
		r.Use(h.tokens.RequireAuth)
		r.Post("/orders", h.handlePlaceOrder)
		r.Get("/orders", h.handleListOwnOrders)
		r.Get("/orders/{id}", h.handleGetOrder)
		r.Post("/orders/{id}/payment-intent", h.handleCreatePaymentIntent)
		r.Post("/orders/{id}/cancel", h.handleCancelOrder)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.tokens.RequireAdmin)
		r.Get("/admin/orders", h.handleListAllOrders)
		r.Patch("/admin/orders/{id}/status", h.handleSetStatus)
		r.Get("/admin/orders/{id}/history", h.handleOrderHistory)
	})

	return r
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUser(w, r)
	if !ok {
		return
	}

	var req struct {
		ShippingDetails
		Items []CartLine `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), userID, req.ShippingDetails, req.Items)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidQuantity):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(order)
}

func (h *Handler) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUser(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order ID", http.StatusBadRequest)
		return
	}

	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	clientSecret, err := h.service.CreatePaymentIntent(r.Context(), userID, orderID, bearer)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrNotOwner):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, ErrIntentNotAllowed):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(struct {
		ClientSecret string `json:"clientSecret"`
	}{ClientSecret: clientSecret})
}

func (h *Handler) handlePaymentOutcome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID  uuid.UUID `json:"order_id"`
		IntentID string    `json:"intent_id"`
		Outcome  Outcome   `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch req.Outcome {
	case OutcomeSucceeded, OutcomeFailed, OutcomeCanceled:
	default:
		http.Error(w, "unknown outcome", http.StatusBadRequest)
		return
	}

	if err := h.service.ApplyPaymentOutcome(r.Context(), req.OrderID, req.IntentID, req.Outcome); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUser(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order ID", http.StatusBadRequest)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	claims, _ := accounts.ClaimsFromContext(r.Context())
	if order.UserID != userID && !claims.Admin {
		http.Error(w, "order belongs to another customer", http.StatusForbidden)
		return
	}

	json.NewEncoder(w).Encode(order)
}

func (h *Handler) handleListOwnOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrdersForUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(orders)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUser(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order ID", http.StatusBadRequest)
		return
	}

	if err := h.service.CancelOrder(r.Context(), userID, orderID); err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrNotOwner):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, ErrCancelNotAllowed):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAllOrders(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(orders)
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.SetStatus(r.Context(), orderID, req.Status); err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrUnknownStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order ID", http.StatusBadRequest)
		return
	}

	events, err := h.service.GetOrderHistory(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(events)
}

// authenticatedUser extracts the caller's profile ID from the bearer claims.
func authenticatedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := accounts.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	userID, err := claims.UserID()
	if err != nil {
		http.Error(w, "invalid token subject", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}
