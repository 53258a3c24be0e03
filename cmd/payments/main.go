// cmd/payments/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"ikirezi/internal/accounts"
	"ikirezi/internal/clients"
	"ikirezi/internal/payments"
	"ikirezi/pkg/metrics"

	"github.com/go-chi/chi/v5"
)

func main() {
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		log.Fatal("STRIPE_SECRET_KEY is required")
	}
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		log.Fatal("SESSION_SECRET is required")
	}
	tokens := accounts.NewTokenIssuer([]byte(secret), 24*time.Hour)

	ordersClient := clients.NewOrdersClient(getEnv("ORDERS_SERVICE_URL", "http://localhost:8082"))

	provider := payments.NewStripeProvider(stripeKey)
	svc := payments.NewService(provider, webhookSecret, ordersClient)
	handler := payments.NewHandler(svc, tokens)
	srvMetrics := metrics.NewServerMetrics("payments")

	router := chi.NewRouter()
	router.Use(srvMetrics.Middleware)
	router.Handle("/metrics", metrics.Handler())
	router.Mount("/", handler.Routes())

	port := getEnv("PORT", "8084")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("Payments service listening on port %s", port)
	log.Fatal(srv.ListenAndServe())
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
