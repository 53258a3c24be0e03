// cmd/api/main_test.go
package main

import (
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMountBlocksInternalRoutes(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	upstreamURL, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	router := chi.NewRouter()
	mount(router, "/api/v1/orders", httputil.NewSingleHostReverseProxy(upstreamURL))

	gateway := httptest.NewServer(router)
	defer gateway.Close()

	// Customer-facing routes pass through to the service.
	resp, err := http.Get(gateway.URL + "/api/v1/orders/orders")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Service-to-service routes do not exist from outside.
	resp, err = http.Post(gateway.URL+"/api/v1/orders/internal/payment-outcomes", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(gateway.URL+"/api/v1/orders/internal/anything/nested", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
