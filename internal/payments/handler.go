// internal/payments/handler.go
package payments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ikirezi/internal/accounts"

	"github.com/go-chi/chi/v5"
)

// maxWebhookBody bounds provider payloads; real intent events are ~2KB.
const maxWebhookBody = 64 * 1024

type Handler struct {
	service Service
	tokens  *accounts.TokenIssuer
}

func NewHandler(service Service, tokens *accounts.TokenIssuer) *Handler {
	return &Handler{service: service, tokens: tokens}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(h.tokens.RequireAuth).Post("/payment-intents", h.handleCreateIntent)
	r.Post("/webhook", h.handleWebhook)
	return r
}

func (h *Handler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount  int64  `json:"amount"`
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	intent, err := h.service.CreateIntent(r.Context(), req.Amount, req.OrderID)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	json.NewEncoder(w).Encode(intent)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	err = h.service.HandleProviderEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Non-signature failures are retryable: a non-2xx response makes the
		// provider redeliver, and the orders-side update is idempotent.
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	json.NewEncoder(w).Encode(struct {
		Received bool `json:"received"`
	}{Received: true})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: message})
}
