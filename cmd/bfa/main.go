package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	chatinfra "github.com/boddenberg/banco-agil-bfa-go/internal/chat/infra"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/intent"
	chatport "github.com/boddenberg/banco-agil-bfa-go/internal/chat/port"
	chatservice "github.com/boddenberg/banco-agil-bfa-go/internal/chat/service"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/session"
	"github.com/boddenberg/banco-agil-bfa-go/internal/config"
	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/handler"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/cache"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/client"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/csvstore"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/banco-agil-bfa-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, cfg.ServiceName)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_dir", cfg.DataDir),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.Bool("humanizer_enabled", cfg.HumanizerEnabled),
		zap.Int("max_auth_attempts", cfg.MaxAuthAttempts),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("exchange_cache_ttl", cfg.ExchangeCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Data (CSV) ---
	store, err := csvstore.New(csvstore.Config{
		Dir:          cfg.DataDir,
		ClientsFile:  cfg.ClientsFile,
		ScoresFile:   cfg.ScoresFile,
		RequestsFile: cfg.RequestsFile,
		LockTimeout:  cfg.LockTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("failed to open data store", zap.Error(err))
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	rateClient := client.NewRateClient(httpClient, cfg.ExchangeAPIURLs,
		resilience.NewCircuitBreaker("exchange-api", logger), resilienceCfg)

	// --- Services ---
	quoteCache := cache.New[domain.ExchangeQuote](ctx, cfg.ExchangeCacheTTL)
	creditSvc := service.NewCreditService(store, metrics, logger)
	interviewSvc := service.NewInterviewService(store, logger)
	exchangeSvc := service.NewExchangeService(rateClient, quoteCache, metrics, logger, cfg.HTTPTimeout)
	tokenSvc := service.NewTokenService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// --- LLM (optional) ---
	oracle, generator := buildOracle(ctx, cfg, httpClient, resilienceCfg, logger)

	// --- Chat ---
	sessions := session.NewInMemoryStore(ctx, cfg.SessionTTL, logger,
		session.WithSizeObserver(metrics.SetActiveSessions))

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	orchestrator := chatservice.NewOrchestrator(chatservice.Dependencies{
		Sessions:   sessions,
		Clients:    store,
		Credit:     creditSvc,
		Interview:  interviewSvc,
		Exchange:   exchangeSvc,
		Tokens:     tokenSvc,
		Classifier: intent.NewOracleClassifier(oracle, cfg.LLMTimeout, logger),
		Responder: chatservice.NewResponder(generator, chatservice.ResponderConfig{
			Enabled:  cfg.HumanizerEnabled,
			Timeout:  cfg.LLMTimeout,
			Lookback: cfg.HistoryLookback,
			Seed:     seed,
		}, metrics, logger),
		Metrics:         metrics,
		Logger:          logger,
		MaxAuthAttempts: cfg.MaxAuthAttempts,
	})

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Chat:      orchestrator,
		Clients:   store,
		Credit:    creditSvc,
		Interview: interviewSvc,
		Exchange:  exchangeSvc,
		Tokens:    tokenSvc,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// buildOracle picks the LLM backend. Any setup failure degrades to the
// rule-based classifier and the deterministic humanizer.
func buildOracle(ctx context.Context, cfg *config.Config, httpClient *http.Client, rc resilience.Config, logger *zap.Logger) (chatport.IntentOracle, chatport.TextGenerator) {
	switch cfg.LLMProvider {
	case config.LLMArk:
		if !cfg.ArkConfigured() {
			logger.Warn("ark provider selected without credentials, using rules")
			return nil, nil
		}
		chatModel, err := chatinfra.NewArkChatModel(ctx, chatinfra.ArkModelConfig{
			BaseURL:     cfg.ArkBaseURL,
			Region:      cfg.ArkRegion,
			APIKey:      cfg.ArkAPIKey,
			AccessKey:   cfg.ArkAccessKey,
			SecretKey:   cfg.ArkSecretKey,
			Model:       cfg.ArkModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
		})
		if err != nil {
			logger.Warn("ark chat model unavailable, using rules", zap.Error(err))
			return nil, nil
		}
		oracle, err := chatinfra.NewArkOracle(ctx, chatModel, resilience.NewBulkhead(rc.MaxConcurrency), logger)
		if err != nil {
			logger.Warn("ark chains failed to compile, using rules", zap.Error(err))
			return nil, nil
		}
		logger.Info("llm oracle enabled", zap.String("provider", "ark"), zap.String("model", cfg.ArkModel))
		return oracle, oracle

	case config.LLMAgent:
		agent := chatinfra.NewChatAgentClient(
			&http.Client{Timeout: cfg.LLMTimeout},
			cfg.ChatAgentURL,
			resilience.NewCircuitBreaker("chat-agent", logger),
			rc,
		)
		logger.Info("llm oracle enabled", zap.String("provider", "agent"), zap.String("url", cfg.ChatAgentURL))
		return agent, agent
	}

	logger.Info("llm oracle disabled, using rules")
	return nil, nil
}
