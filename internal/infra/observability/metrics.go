package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	chatMessages    *prometheus.CounterVec
	intents         *prometheus.CounterVec
	oracleFallbacks *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	lockouts        prometheus.Counter
	redirects       *prometheus.CounterVec
	exchangeQuotes  *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		chatMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_chat_messages_total",
				Help: "Inbound chat messages by the state they were handled in.",
			},
			[]string{"state"},
		),
		intents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_chat_intents_total",
				Help: "Classified intents by intent and source (rules, oracle).",
			},
			[]string{"intent", "source"},
		),
		oracleFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_oracle_fallbacks_total",
				Help: "LLM calls that fell back to the deterministic path.",
			},
			[]string{"operation"},
		),
		authFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_chat_auth_failures_total",
				Help: "Failed chat authentication attempts by reason.",
			},
			[]string{"reason"},
		),
		lockouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bfa_chat_lockouts_total",
				Help: "Sessions closed after too many authentication failures.",
			},
		),
		redirects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_chat_redirects_total",
				Help: "Redirect offers by event (offered, accepted, rejected, superseded).",
			},
			[]string{"event"},
		),
		exchangeQuotes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_exchange_quotes_total",
				Help: "Exchange quotes served by source (live, cached, fallback).",
			},
			[]string{"source"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bfa_chat_active_sessions",
				Help: "Chat sessions currently held in memory.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrChatMessage counts a message handled in the given state.
func (m *Metrics) IncrChatMessage(state string) {
	m.chatMessages.WithLabelValues(state).Inc()
}

// IncrIntent counts a classified intent.
func (m *Metrics) IncrIntent(intent, source string) {
	m.intents.WithLabelValues(intent, source).Inc()
}

// IncrOracleFallback counts an LLM call replaced by the deterministic path.
func (m *Metrics) IncrOracleFallback(operation string) {
	m.oracleFallbacks.WithLabelValues(operation).Inc()
}

// IncrAuthFailure counts a failed authentication attempt.
func (m *Metrics) IncrAuthFailure(reason string) {
	m.authFailures.WithLabelValues(reason).Inc()
}

// IncrLockout counts a session closed by the attempt limit.
func (m *Metrics) IncrLockout() {
	m.lockouts.Inc()
}

// IncrRedirect counts a redirect event.
func (m *Metrics) IncrRedirect(event string) {
	m.redirects.WithLabelValues(event).Inc()
}

// IncrExchangeQuote counts a quote by source.
func (m *Metrics) IncrExchangeQuote(source string) {
	m.exchangeQuotes.WithLabelValues(source).Inc()
}

// SetActiveSessions sets the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// GetChatSnapshot returns a snapshot of chat metrics suitable for the
// GET /v1/metrics/chat endpoint.
func (m *Metrics) GetChatSnapshot() *domain.ChatMetrics {
	families, err := m.Registry.Gather()
	if err != nil {
		return &domain.ChatMetrics{Period: "all_time"}
	}

	snap := &domain.ChatMetrics{
		MessagesByState:  map[string]int64{},
		IntentsBySource:  map[string]int64{},
		Redirects:        map[string]int64{},
		ExchangeBySource: map[string]int64{},
		ExternalErrors:   map[string]int64{},
		AvgLatencyMs:     map[string]float64{},
		Period:           "all_time",
	}

	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch f.GetName() {
			case "bfa_chat_messages_total":
				v := int64(metric.GetCounter().GetValue())
				snap.MessagesByState[labelValue(metric, "state")] += v
				snap.TotalMessages += v
			case "bfa_chat_intents_total":
				snap.IntentsBySource[labelValue(metric, "source")] += int64(metric.GetCounter().GetValue())
			case "bfa_chat_auth_failures_total":
				snap.AuthFailures += int64(metric.GetCounter().GetValue())
			case "bfa_chat_lockouts_total":
				snap.Lockouts = int64(metric.GetCounter().GetValue())
			case "bfa_chat_redirects_total":
				snap.Redirects[labelValue(metric, "event")] += int64(metric.GetCounter().GetValue())
			case "bfa_exchange_quotes_total":
				snap.ExchangeBySource[labelValue(metric, "source")] += int64(metric.GetCounter().GetValue())
			case "bfa_external_errors_total":
				snap.ExternalErrors[labelValue(metric, "service")] += int64(metric.GetCounter().GetValue())
			case "bfa_request_duration_seconds":
				h := metric.GetHistogram()
				if h.GetSampleCount() > 0 {
					snap.AvgLatencyMs[labelValue(metric, "operation")] = h.GetSampleSum() / float64(h.GetSampleCount()) * 1000
				}
			case "bfa_chat_active_sessions":
				snap.ActiveSessions = int64(metric.GetGauge().GetValue())
			}
		}
	}

	oracle := float64(snap.IntentsBySource["oracle"])
	fallbacks := getCounterValue(m.oracleFallbacks, "classify")
	if oracle+fallbacks > 0 {
		snap.OracleFallbackRate = fallbacks / (oracle + fallbacks)
	}
	hits := getCounterValue(m.cacheHits, "exchange")
	misses := getCounterValue(m.cacheMisses, "exchange")
	if hits+misses > 0 {
		snap.ExchangeCacheRate = hits / (hits + misses)
	}
	return snap
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
