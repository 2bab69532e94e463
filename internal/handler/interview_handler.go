package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/port"
)

// ============================================================
// Entrevista financeira
// ============================================================

// POST /v1/interview/submit
//
//	{"renda_mensal": 5000, "tipo_emprego": "CLT", "despesas": 2000, "num_dependentes": 1, "tem_dividas": false}
func interviewSubmitHandler(svc port.InterviewService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/interview/submit")
		defer span.End()

		var data domain.InterviewData
		if err := decodeJSON(r, &data); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if e, ok := domain.ParseEmploymentType(string(data.EmploymentType)); ok {
			data.EmploymentType = e
		}

		res, err := svc.Submit(ctx, CPFFromContext(ctx), &data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.Int("interview.new_score", res.NewScore))
		writeJSON(w, http.StatusOK, res)
	}
}
