package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banco-agil-bfa-go/internal/port"
)

var exchangeTracer = otel.Tracer("service/exchange")

// fallbackRates are indicative quotes used when every provider fails.
var fallbackRates = map[string]map[string]float64{
	"USD": {"BRL": 5.38, "EUR": 0.92, "GBP": 0.79, "JPY": 150.0, "ARS": 1450.0},
	"EUR": {"BRL": 5.85, "USD": 1.09, "GBP": 0.86, "JPY": 163.0, "ARS": 1580.0},
	"BRL": {"USD": 0.186, "EUR": 0.171, "GBP": 0.147, "JPY": 27.9, "ARS": 270.0},
	"GBP": {"BRL": 6.80, "USD": 1.27, "EUR": 1.16, "JPY": 190.0, "ARS": 1840.0},
	"JPY": {"BRL": 0.036, "USD": 0.0067, "EUR": 0.0061, "GBP": 0.0053, "ARS": 9.67},
	"ARS": {"BRL": 0.0037, "USD": 0.00069, "EUR": 0.00063, "GBP": 0.00054, "JPY": 0.103},
	"CAD": {"BRL": 3.95, "USD": 0.73},
	"AUD": {"BRL": 3.55, "USD": 0.66},
	"MXN": {"BRL": 0.30, "USD": 0.056},
	"CHF": {"BRL": 6.15, "USD": 1.14, "EUR": 1.05},
	"CNY": {"BRL": 0.75, "USD": 0.14},
}

// ExchangeService returns quotes from the cache, the live providers or the
// fallback table, in that order. It never fails.
type ExchangeService struct {
	fetcher port.RateFetcher
	cache   port.Cache[domain.ExchangeQuote]
	metrics *observability.Metrics
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewExchangeService creates the exchange service. timeout bounds each live
// lookup; zero means the caller's context decides.
func NewExchangeService(
	fetcher port.RateFetcher,
	cache port.Cache[domain.ExchangeQuote],
	metrics *observability.Metrics,
	logger *zap.Logger,
	timeout time.Duration,
) *ExchangeService {
	return &ExchangeService{
		fetcher: fetcher,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// GetRate quotes 1 unit of from in to.
func (s *ExchangeService) GetRate(ctx context.Context, from, to string) *domain.ExchangeQuote {
	ctx, span := exchangeTracer.Start(ctx, "ExchangeService.GetRate")
	defer span.End()

	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	span.SetAttributes(attribute.String("exchange.pair", from+"_"+to))

	quote := s.lookup(ctx, from, to)

	span.SetAttributes(attribute.String("exchange.source", string(quote.Source)))
	s.metrics.IncrExchangeQuote(string(quote.Source))
	return quote
}

func (s *ExchangeService) lookup(ctx context.Context, from, to string) *domain.ExchangeQuote {
	key := from + "_" + to

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("exchange")
		cached.Source = domain.RateCached
		return &cached
	}
	s.metrics.IncrCacheMiss("exchange")

	if s.fetcher != nil {
		fetchCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		rates, err := s.fetcher.FetchRates(fetchCtx, from)
		if err == nil {
			if rate, ok := rates[to]; ok && rate > 0 {
				quote := domain.ExchangeQuote{
					From:      from,
					To:        to,
					Rate:      rate,
					Timestamp: s.now(),
					Source:    domain.RateLive,
				}
				s.cache.Set(key, quote)
				return &quote
			}
			s.logger.Warn("currency missing from provider rates",
				zap.String("from", from), zap.String("to", to))
		} else {
			s.metrics.IncrExternalError("exchange")
			s.logger.Warn("live rate lookup failed, using fallback table",
				zap.String("pair", key), zap.Error(err))
		}
	}

	return &domain.ExchangeQuote{
		From:      from,
		To:        to,
		Rate:      FallbackRate(from, to),
		Timestamp: s.now(),
		Source:    domain.RateFallback,
	}
}

// FallbackRate looks up the indicative table directly, then inverted, then
// crossed through BRL. Pairs the table cannot price return 0.
func FallbackRate(from, to string) float64 {
	if from == to {
		return 1.0
	}
	if rate, ok := tableRate(from, to); ok {
		return rate
	}
	toBRL, ok1 := tableRate(from, "BRL")
	fromBRL, ok2 := tableRate("BRL", to)
	if ok1 && ok2 {
		return toBRL * fromBRL
	}
	return 0
}

func tableRate(from, to string) (float64, bool) {
	if rate, ok := fallbackRates[from][to]; ok {
		return rate, true
	}
	if inv, ok := fallbackRates[to][from]; ok && inv != 0 {
		return 1 / inv, true
	}
	return 0, false
}

// FormatQuote renders a quote as "1 USD = 5.3800 BRL (cotacao indicativa)".
// A zero rate means no source could price the pair.
func FormatQuote(q *domain.ExchangeQuote) string {
	if q.Rate == 0 {
		return fmt.Sprintf("cotacao indisponivel para %s/%s", q.From, q.To)
	}
	return fmt.Sprintf("1 %s = %.4f %s %s", q.From, q.Rate, q.To, SourceText(q.Source))
}

// SourceText describes where a quote came from.
func SourceText(src domain.RateSource) string {
	switch src {
	case domain.RateLive:
		return "(cotacao em tempo real)"
	case domain.RateCached:
		return "(cotacao recente)"
	}
	return "(cotacao indicativa)"
}
