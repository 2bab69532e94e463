package handler

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/nlp"
	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/port"
	"github.com/boddenberg/banco-agil-bfa-go/internal/service"
)

// ============================================================
// Câmbio
// ============================================================

type exchangeResponse struct {
	*domain.ExchangeQuote
	Message string `json:"message"`
}

// GET /v1/exchange?from=USD&to=BRL
func exchangeRateHandler(svc port.ExchangeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/exchange")
		defer span.End()

		from := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("from")))
		to := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("to")))
		if from == "" {
			from = "USD"
		}
		if to == "" {
			to = "BRL"
		}
		for field, code := range map[string]string{"from": from, "to": to} {
			if !nlp.KnownCurrency(code) {
				handleServiceError(w, &domain.ErrValidation{
					Field:   field,
					Message: "unsupported currency " + code + "; use one of " + strings.Join(nlp.SupportedCurrencies(), ", "),
				}, logger)
				return
			}
		}

		q := svc.GetRate(ctx, from, to)
		span.SetAttributes(
			attribute.String("exchange.pair", from+"_"+to),
			attribute.String("exchange.source", string(q.Source)),
		)

		writeJSON(w, http.StatusOK, exchangeResponse{ExchangeQuote: q, Message: service.FormatQuote(q)})
	}
}
