package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/nlp"
	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/cache"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banco-agil-bfa-go/internal/service"
)

func newExchangeService(t *testing.T, fetcher *mockFetcher) *service.ExchangeService {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return service.NewExchangeService(
		fetcher,
		cache.New[domain.ExchangeQuote](ctx, 5*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
		time.Second,
	)
}

func TestGetRate_LiveThenCached(t *testing.T) {
	fetcher := &mockFetcher{rates: map[string]map[string]float64{"USD": {"BRL": 5.12}}}
	svc := newExchangeService(t, fetcher)

	q := svc.GetRate(context.Background(), "usd", "brl")
	if q.Source != domain.RateLive || q.Rate != 5.12 {
		t.Fatalf("expected live 5.12, got %s %v", q.Source, q.Rate)
	}
	if q.From != "USD" || q.To != "BRL" {
		t.Errorf("expected normalized codes, got %s/%s", q.From, q.To)
	}

	q = svc.GetRate(context.Background(), "USD", "BRL")
	if q.Source != domain.RateCached || q.Rate != 5.12 {
		t.Fatalf("expected cached 5.12, got %s %v", q.Source, q.Rate)
	}
	if fetcher.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", fetcher.calls)
	}
}

func TestGetRate_FallbackOnError(t *testing.T) {
	fetcher := &mockFetcher{err: errors.New("connection refused")}
	svc := newExchangeService(t, fetcher)

	q := svc.GetRate(context.Background(), "EUR", "BRL")
	if q.Source != domain.RateFallback || q.Rate != 5.85 {
		t.Fatalf("expected fallback 5.85, got %s %v", q.Source, q.Rate)
	}

	// fallback quotes are not cached
	q = svc.GetRate(context.Background(), "EUR", "BRL")
	if q.Source != domain.RateFallback {
		t.Errorf("expected fallback again, got %s", q.Source)
	}
}

func TestGetRate_FallbackWhenCurrencyMissing(t *testing.T) {
	fetcher := &mockFetcher{rates: map[string]map[string]float64{"USD": {"EUR": 0.9}}}
	svc := newExchangeService(t, fetcher)

	q := svc.GetRate(context.Background(), "USD", "BRL")
	if q.Source != domain.RateFallback || q.Rate != 5.38 {
		t.Fatalf("expected fallback 5.38, got %s %v", q.Source, q.Rate)
	}
}

func TestFallbackRate(t *testing.T) {
	if got := service.FallbackRate("BRL", "BRL"); got != 1 {
		t.Errorf("identity: got %v", got)
	}
	if got := service.FallbackRate("USD", "JPY"); got != 150 {
		t.Errorf("direct: got %v", got)
	}
	if got := service.FallbackRate("CAD", "BRL"); got != 3.95 {
		t.Errorf("CAD direct: got %v", got)
	}
	if got := service.FallbackRate("BRL", "MXN"); math.Abs(got-1/0.30) > 1e-9 {
		t.Errorf("MXN inverse: got %v", got)
	}
	if got := service.FallbackRate("AUD", "JPY"); math.Abs(got-3.55*27.9) > 1e-9 {
		t.Errorf("cross through BRL: got %v", got)
	}
	if got := service.FallbackRate("XYZ", "BRL"); got != 0 {
		t.Errorf("unknown: got %v", got)
	}
}

func TestFallbackRate_CoversEverySupportedCurrency(t *testing.T) {
	for _, from := range nlp.SupportedCurrencies() {
		for _, to := range nlp.SupportedCurrencies() {
			if got := service.FallbackRate(from, to); got <= 0 {
				t.Errorf("%s->%s has no indicative rate", from, to)
			}
		}
	}
}

func TestFormatQuote(t *testing.T) {
	q := &domain.ExchangeQuote{From: "USD", To: "BRL", Rate: 5.38, Source: domain.RateFallback}
	if got := service.FormatQuote(q); got != "1 USD = 5.3800 BRL (cotacao indicativa)" {
		t.Errorf("unexpected %q", got)
	}
	q.Source = domain.RateLive
	if got := service.FormatQuote(q); got != "1 USD = 5.3800 BRL (cotacao em tempo real)" {
		t.Errorf("unexpected %q", got)
	}
	q = &domain.ExchangeQuote{From: "XYZ", To: "BRL", Source: domain.RateFallback}
	if got := service.FormatQuote(q); got != "cotacao indisponivel para XYZ/BRL" {
		t.Errorf("unexpected %q", got)
	}
}
