// Package client holds HTTP clients for external APIs.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// RateClient fetches live exchange rates. Providers are tried in order; each
// one answers GET {url}/{BASE} with a JSON body carrying a "rates" object.
type RateClient struct {
	httpClient *http.Client
	urls       []string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewRateClient creates a new RateClient.
func NewRateClient(httpClient *http.Client, urls []string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *RateClient {
	return &RateClient{
		httpClient: httpClient,
		urls:       urls,
		cb:         cb,
		cfg:        cfg,
	}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// FetchRates returns every rate quoted against base (1 base = rate units).
func (c *RateClient) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	ctx, span := tracer.Start(ctx, "RateClient.FetchRates")
	defer span.End()
	span.SetAttributes(attribute.String("exchange.base", base))

	if len(c.urls) == 0 {
		return nil, &domain.ErrExternalService{Service: "exchange-api", Err: errors.New("no providers configured")}
	}

	result, err := c.cb.Execute(func() (any, error) {
		var errs []error
		for _, url := range c.urls {
			rates, err := c.fetchFrom(ctx, url, base)
			if err == nil {
				return rates, nil
			}
			errs = append(errs, err)
		}
		return nil, errors.Join(errs...)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &domain.ErrCircuitOpen{Service: "exchange-api"}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "exchange-api", Err: err}
	}

	return result.(map[string]float64), nil
}

func (c *RateClient) fetchFrom(ctx context.Context, baseURL, base string) (map[string]float64, error) {
	var body ratesResponse

	err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
		url := fmt.Sprintf("%s/%s", strings.TrimRight(baseURL, "/"), base)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("%s returned status %d", baseURL, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return resilience.Permanent(fmt.Errorf("%s returned status %d", baseURL, resp.StatusCode))
		}

		return json.NewDecoder(resp.Body).Decode(&body)
	})
	if err != nil {
		return nil, err
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("%s returned no rates", baseURL)
	}
	return body.Rates, nil
}
