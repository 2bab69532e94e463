package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/client"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/resilience"
)

var fastRetry = resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond}

func TestRateClient_FetchRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/USD" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"BRL":5.41,"EUR":0.92}}`))
	}))
	defer srv.Close()

	c := client.NewRateClient(srv.Client(), []string{srv.URL + "/latest"},
		resilience.NewCircuitBreaker("test", zap.NewNop()), fastRetry)

	rates, err := c.FetchRates(context.Background(), "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rates["BRL"] != 5.41 {
		t.Errorf("expected BRL 5.41, got %f", rates["BRL"])
	}
}

func TestRateClient_FallsThroughProviders(t *testing.T) {
	var firstCalls int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&firstCalls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rates":{"BRL":5.5}}`))
	}))
	defer up.Close()

	c := client.NewRateClient(http.DefaultClient, []string{down.URL, up.URL},
		resilience.NewCircuitBreaker("test", zap.NewNop()), fastRetry)

	rates, err := c.FetchRates(context.Background(), "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rates["BRL"] != 5.5 {
		t.Errorf("expected BRL 5.5, got %f", rates["BRL"])
	}
	if got := atomic.LoadInt32(&firstCalls); got != 2 {
		t.Errorf("expected 5xx provider to be retried once (2 calls), got %d", got)
	}
}

func TestRateClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := client.NewRateClient(http.DefaultClient, []string{srv.URL},
		resilience.NewCircuitBreaker("test", zap.NewNop()), resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond})

	_, err := c.FetchRates(context.Background(), "XYZ")

	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestRateClient_EmptyRatesIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rates":{}}`))
	}))
	defer srv.Close()

	c := client.NewRateClient(http.DefaultClient, []string{srv.URL},
		resilience.NewCircuitBreaker("test", zap.NewNop()), fastRetry)

	if _, err := c.FetchRates(context.Background(), "USD"); err == nil {
		t.Fatal("expected error for empty rates")
	}
}

func TestRateClient_OpenBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := client.NewRateClient(http.DefaultClient, []string{srv.URL},
		resilience.NewCircuitBreaker("test", zap.NewNop()), resilience.Config{})

	for i := 0; i < 5; i++ {
		_, _ = c.FetchRates(context.Background(), "USD")
	}
	_, err := c.FetchRates(context.Background(), "USD")

	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}
