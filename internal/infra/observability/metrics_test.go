package observability_test

import (
	"testing"
	"time"

	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/observability"
)

func TestGetChatSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrChatMessage("collecting_cpf")
	m.IncrChatMessage("collecting_cpf")
	m.IncrChatMessage("authenticated")
	m.IncrIntent("credit_limit", "rules")
	m.IncrIntent("interview", "oracle")
	m.IncrOracleFallback("classify")
	m.IncrAuthFailure("cpf_not_found")
	m.IncrLockout()
	m.IncrRedirect("offered")
	m.IncrExchangeQuote("fallback")
	m.IncrCacheHit("exchange")
	m.IncrCacheMiss("exchange")
	m.SetActiveSessions(4)
	m.RecordRequestDuration("chat", 20*time.Millisecond)

	snap := m.GetChatSnapshot()

	if snap.TotalMessages != 3 {
		t.Errorf("expected 3 messages, got %d", snap.TotalMessages)
	}
	if snap.MessagesByState["collecting_cpf"] != 2 {
		t.Errorf("expected 2 collecting_cpf messages, got %d", snap.MessagesByState["collecting_cpf"])
	}
	if snap.IntentsBySource["rules"] != 1 || snap.IntentsBySource["oracle"] != 1 {
		t.Errorf("unexpected intents: %v", snap.IntentsBySource)
	}
	if snap.OracleFallbackRate != 0.5 {
		t.Errorf("expected fallback rate 0.5, got %f", snap.OracleFallbackRate)
	}
	if snap.AuthFailures != 1 || snap.Lockouts != 1 {
		t.Errorf("unexpected auth counters: %d / %d", snap.AuthFailures, snap.Lockouts)
	}
	if snap.ExchangeBySource["fallback"] != 1 {
		t.Errorf("unexpected exchange sources: %v", snap.ExchangeBySource)
	}
	if snap.ExchangeCacheRate != 0.5 {
		t.Errorf("expected cache rate 0.5, got %f", snap.ExchangeCacheRate)
	}
	if snap.ActiveSessions != 4 {
		t.Errorf("expected 4 sessions, got %d", snap.ActiveSessions)
	}
	if snap.AvgLatencyMs["chat"] <= 0 {
		t.Errorf("expected chat latency, got %v", snap.AvgLatencyMs)
	}
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()

	a.IncrLockout()

	if got := b.GetChatSnapshot().Lockouts; got != 0 {
		t.Errorf("expected registries to be independent, got %d", got)
	}
}
