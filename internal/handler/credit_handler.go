package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/port"
)

// ============================================================
// Crédito
// ============================================================

// GET /v1/credit/limit
func creditLimitHandler(svc port.CreditService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/credit/limit")
		defer span.End()

		cpf := CPFFromContext(ctx)
		span.SetAttributes(attribute.String("client.cpf", domain.MaskCPF(cpf)))

		limit, err := svc.GetLimit(ctx, cpf)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, limit)
	}
}

// POST /v1/credit/request-increase
//
//	{"new_limit": 15000}
func requestIncreaseHandler(svc port.CreditService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/credit/request-increase")
		defer span.End()

		var req domain.IncreaseRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		res, err := svc.RequestIncrease(ctx, CPFFromContext(ctx), req.NewLimit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.String("increase.status", string(res.Status)))
		writeJSON(w, http.StatusOK, res)
	}
}
