package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// ChatMetrics is returned by GET /v1/metrics/chat.
type ChatMetrics struct {
	TotalMessages      int64              `json:"totalMessages"`
	MessagesByState    map[string]int64   `json:"messagesByState"`
	IntentsBySource    map[string]int64   `json:"intentsBySource"`
	OracleFallbackRate float64            `json:"oracleFallbackRate"`
	AuthFailures       int64              `json:"authFailures"`
	Lockouts           int64              `json:"lockouts"`
	Redirects          map[string]int64   `json:"redirects"`
	ExchangeBySource   map[string]int64   `json:"exchangeBySource"`
	ExchangeCacheRate  float64            `json:"exchangeCacheHitRate"`
	ExternalErrors     map[string]int64   `json:"externalErrors"`
	AvgLatencyMs       map[string]float64 `json:"avgLatencyMs"`
	ActiveSessions     int64              `json:"activeSessions"`
	Period             string             `json:"period"`
}
