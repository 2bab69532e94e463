package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	chathandler "github.com/boddenberg/banco-agil-bfa-go/internal/chat/handler"
	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banco-agil-bfa-go/internal/port"
)

var tracer = otel.Tracer("handler")

// Services groups what the router exposes. Nil fields disable their routes.
type Services struct {
	Chat      chathandler.Conversation
	Clients   port.ClientRepository
	Credit    port.CreditService
	Interview port.InterviewService
	Exchange  port.ExchangeService
	Tokens    port.TokenService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(svc.Clients))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 💬 Chat
		// POST /v1/chat/session, POST /v1/chat,
		// POST /v1/chat/{sessionId}/restart, GET /v1/chat/ws
		// =============================================
		if svc.Chat != nil {
			chathandler.Routes(r, svc.Chat, logger)
		}

		// =============================================
		// 2. 📊 Métricas
		// GET /v1/metrics/chat
		// =============================================
		r.Get("/metrics/chat", chatMetricsHandler(metrics))

		if svc.Tokens == nil {
			return
		}

		// =============================================
		// 3. 🔒 Rotas protegidas (Bearer token emitido pelo chat)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Tokens, logger))

			if svc.Credit != nil {
				r.Get("/credit/limit", creditLimitHandler(svc.Credit, logger))
				r.Post("/credit/request-increase", requestIncreaseHandler(svc.Credit, logger))
			}
			if svc.Interview != nil {
				r.Post("/interview/submit", interviewSubmitHandler(svc.Interview, logger))
			}
			if svc.Exchange != nil {
				r.Get("/exchange", exchangeRateHandler(svc.Exchange, logger))
			}
		})
	})

	return r
}

// ============================================================
// Probes
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// readyzHandler checks that the data files can be read.
func readyzHandler(clients port.ClientRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}

		if clients != nil {
			start := time.Now()
			_, err := clients.ScoreLimits(r.Context())
			s := domain.ServiceHealth{
				Name:        "csv-store",
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				s.Status = "unhealthy"
				s.Detail = err.Error()
			}
			services = append(services, s)
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overall = "unhealthy"
				break
			}
		}

		status := http.StatusOK
		if overall != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, domain.HealthStatus{Status: overall, Services: services})
	}
}

func chatMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetChatSnapshot())
	}
}
