package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM providers accepted in LLM_PROVIDER.
const (
	LLMNone  = "none"
	LLMArk   = "ark"
	LLMAgent = "agent"
)

// Config holds all application configuration.
// Built once at start: defaults → optional YAML file (CONFIG_FILE) → env vars.
// Treat it as read-only after Load.
type Config struct {
	// Server
	ServiceName string `yaml:"service_name"`
	Port        int    `yaml:"port"`
	LogLevel    string `yaml:"log_level"`

	// Data (CSV)
	DataDir      string        `yaml:"data_dir"`
	ClientsFile  string        `yaml:"clients_file"`
	ScoresFile   string        `yaml:"scores_file"`
	RequestsFile string        `yaml:"requests_file"`
	LockTimeout  time.Duration `yaml:"lock_timeout"`

	// JWT / Auth
	JWTSecret       string        `yaml:"jwt_secret"`
	JWTAccessTTL    time.Duration `yaml:"jwt_access_ttl"`
	MaxAuthAttempts int           `yaml:"max_auth_attempts"`

	// Chat
	SessionTTL       time.Duration `yaml:"session_ttl"`
	HistoryLookback  int           `yaml:"history_lookback"`
	HumanizerEnabled bool          `yaml:"humanizer_enabled"`
	RandomSeed       uint64        `yaml:"random_seed"` // 0 → seeded from the clock

	// LLM (optional)
	LLMProvider    string        `yaml:"llm_provider"`
	LLMTimeout     time.Duration `yaml:"llm_timeout"`
	LLMTemperature float64       `yaml:"llm_temperature"`
	LLMMaxTokens   int           `yaml:"llm_max_tokens"`
	ArkBaseURL     string        `yaml:"ark_base_url"`
	ArkRegion      string        `yaml:"ark_region"`
	ArkAPIKey      string        `yaml:"ark_api_key"`
	ArkAccessKey   string        `yaml:"ark_access_key"`
	ArkSecretKey   string        `yaml:"ark_secret_key"`
	ArkModel       string        `yaml:"ark_model"`
	ChatAgentURL   string        `yaml:"chat_agent_url"` // agent externo (POST /v1/chat)

	// Exchange
	ExchangeAPIURLs  []string      `yaml:"exchange_api_urls"`
	ExchangeCacheTTL time.Duration `yaml:"exchange_cache_ttl"`

	// HTTP client
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Resilience
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxConcurrency int           `yaml:"max_concurrency"`

	// Observability
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		ServiceName: "banco-agil-bfa",
		Port:        8080,
		LogLevel:    "info",

		DataDir:      "data",
		ClientsFile:  "clientes.csv",
		ScoresFile:   "score_limite.csv",
		RequestsFile: "solicitacoes_aumento_limite.csv",
		LockTimeout:  10 * time.Second,

		JWTSecret:       "banco-agil-dev-secret-change-me",
		JWTAccessTTL:    15 * time.Minute,
		MaxAuthAttempts: 3,

		SessionTTL:       30 * time.Minute,
		HistoryLookback:  4,
		HumanizerEnabled: true,

		LLMProvider:    LLMNone,
		LLMTimeout:     5 * time.Second,
		LLMTemperature: 0.3,
		LLMMaxTokens:   100,
		ArkRegion:      "cn-beijing",

		ExchangeAPIURLs: []string{
			"https://api.exchangerate-api.com/v4/latest",
			"https://open.er-api.com/v6/latest",
		},
		ExchangeCacheTTL: 5 * time.Minute,

		HTTPTimeout: 5 * time.Second,

		MaxRetries:     2,
		InitialBackoff: 100 * time.Millisecond,
		MaxConcurrency: 50,
	}
}

// Load builds the configuration. A missing CONFIG_FILE is an error; an unset
// one is not.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ServiceName = getEnv("SERVICE_NAME", c.ServiceName)
	c.Port = getEnvInt("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.ClientsFile = getEnv("CLIENTS_FILE", c.ClientsFile)
	c.ScoresFile = getEnv("SCORES_FILE", c.ScoresFile)
	c.RequestsFile = getEnv("REQUESTS_FILE", c.RequestsFile)
	c.LockTimeout = getEnvDuration("LOCK_TIMEOUT", c.LockTimeout)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTAccessTTL = getEnvDuration("JWT_ACCESS_TTL", c.JWTAccessTTL)
	c.MaxAuthAttempts = getEnvInt("MAX_AUTH_ATTEMPTS", c.MaxAuthAttempts)

	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.HistoryLookback = getEnvInt("HISTORY_LOOKBACK", c.HistoryLookback)
	c.HumanizerEnabled = getEnvBool("HUMANIZER_ENABLED", c.HumanizerEnabled)
	c.RandomSeed = uint64(getEnvInt("RANDOM_SEED", int(c.RandomSeed)))

	c.LLMProvider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLMProvider))
	c.LLMTimeout = getEnvDuration("LLM_TIMEOUT", c.LLMTimeout)
	c.LLMTemperature = getEnvFloat("LLM_TEMPERATURE", c.LLMTemperature)
	c.LLMMaxTokens = getEnvInt("LLM_MAX_TOKENS", c.LLMMaxTokens)
	c.ArkBaseURL = getEnv("ARK_BASE_URL", c.ArkBaseURL)
	c.ArkRegion = getEnv("ARK_REGION", c.ArkRegion)
	c.ArkAPIKey = getEnv("ARK_API_KEY", c.ArkAPIKey)
	c.ArkAccessKey = getEnv("ARK_ACCESS_KEY", c.ArkAccessKey)
	c.ArkSecretKey = getEnv("ARK_SECRET_KEY", c.ArkSecretKey)
	c.ArkModel = getEnv("ARK_MODEL", c.ArkModel)
	c.ChatAgentURL = getEnv("CHAT_AGENT_URL", c.ChatAgentURL)

	if v := os.Getenv("EXCHANGE_API_URLS"); v != "" {
		c.ExchangeAPIURLs = splitList(v)
	}
	c.ExchangeCacheTTL = getEnvDuration("EXCHANGE_CACHE_TTL", c.ExchangeCacheTTL)

	c.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", c.HTTPTimeout)
	c.MaxRetries = getEnvInt("MAX_RETRIES", c.MaxRetries)
	c.InitialBackoff = getEnvDuration("INITIAL_BACKOFF", c.InitialBackoff)
	c.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", c.MaxConcurrency)

	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.MaxAuthAttempts < 1 {
		errs = append(errs, errors.New("max_auth_attempts must be at least 1"))
	}
	if c.HistoryLookback < 0 {
		errs = append(errs, errors.New("history_lookback must not be negative"))
	}
	switch c.LLMProvider {
	case LLMNone, LLMArk, LLMAgent:
	default:
		errs = append(errs, fmt.Errorf("unknown llm_provider %q", c.LLMProvider))
	}
	if c.LLMProvider == LLMAgent && c.ChatAgentURL == "" {
		errs = append(errs, errors.New("chat_agent_url is required for llm_provider=agent"))
	}
	return errors.Join(errs...)
}

// ArkConfigured reports whether Ark credentials and a model are present.
func (c *Config) ArkConfigured() bool {
	return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
