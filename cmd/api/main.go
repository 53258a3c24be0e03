// cmd/api/main.go
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	catalogURL, _ := url.Parse(getEnv("CATALOG_SERVICE_URL", "http://localhost:8081"))
	ordersURL, _ := url.Parse(getEnv("ORDERS_SERVICE_URL", "http://localhost:8082"))
	accountsURL, _ := url.Parse(getEnv("ACCOUNTS_SERVICE_URL", "http://localhost:8083"))
	paymentsURL, _ := url.Parse(getEnv("PAYMENTS_SERVICE_URL", "http://localhost:8084"))

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	mount(router, "/api/v1/catalog", httputil.NewSingleHostReverseProxy(catalogURL))
	mount(router, "/api/v1/orders", httputil.NewSingleHostReverseProxy(ordersURL))
	mount(router, "/api/v1/accounts", httputil.NewSingleHostReverseProxy(accountsURL))
	mount(router, "/api/v1/payments", httputil.NewSingleHostReverseProxy(paymentsURL))

	port := getEnv("PORT", "8080")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API Gateway listening on port %s", port)
	log.Fatal(srv.ListenAndServe())
}

// mount proxies a service prefix, dropping service-to-service routes so they
// are never reachable from outside.
func mount(router chi.Router, prefix string, proxy *httputil.ReverseProxy) {
	router.Handle(prefix+"/internal/*", http.NotFoundHandler())
	router.Handle(prefix+"/*", http.StripPrefix(prefix, proxy))
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
