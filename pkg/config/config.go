package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SampleWallet is preloaded into the form when RWA_WALLET is unset.
const SampleWallet = "0x742d35Cc6e34d8d7C15fE14c123456789abcdef0"

const (
	MinAlertTTL = 5 * time.Second
	MaxAlertTTL = 7 * time.Second
)

// Client configures rwactl.
type Client struct {
	APIURL        string
	Wallet        string
	AlertTTL      time.Duration
	FollowUpTTL   time.Duration
	CurrencyUnit  string
	StatsSchedule string // cron spec; empty disables scheduled refresh

	LogLevel string
	LogFile  string
}

// Server configures rwa-devserver.
type Server struct {
	DBPath string
	Port   int

	// AI_PROVIDER: "anthropic" | "ollama" | "openai"
	// If not set, auto-detects from available API keys; with none the
	// extractor runs on keyword rules only.
	AIProvider      string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OllamaURL       string
	AIModel         string
	AIMaxTokens     int
	AITimeout       time.Duration

	LogLevel string
}

func LoadClient() (*Client, error) {
	_ = godotenv.Load()

	cfg := &Client{
		APIURL:        envOr("RWA_API_URL", "http://localhost:5000"),
		Wallet:        envOr("RWA_WALLET", SampleWallet),
		AlertTTL:      clampTTL(envDuration("ALERT_TTL", MaxAlertTTL)),
		FollowUpTTL:   envDuration("FOLLOWUP_TTL", 10*time.Second),
		CurrencyUnit:  envOr("CURRENCY_UNIT", "INR"),
		StatsSchedule: envOr("STATS_REFRESH_SCHEDULE", "@every 30s"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFile:       envOr("RWA_LOG_FILE", "rwactl.log"),
	}
	if v, ok := os.LookupEnv("STATS_REFRESH_SCHEDULE"); ok && strings.TrimSpace(v) == "" {
		cfg.StatsSchedule = ""
	}
	return cfg, nil
}

func LoadServer() (*Server, error) {
	_ = godotenv.Load()

	return &Server{
		DBPath:          envOr("DB_PATH", "rwa_tokenizer.db"),
		Port:            envInt("PORT", 5000),
		AIProvider:      strings.ToLower(os.Getenv("AI_PROVIDER")),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OllamaURL:       envOr("OLLAMA_URL", ""),
		AIModel:         envOr("AI_MODEL", ""),
		AIMaxTokens:     envInt("AI_MAX_TOKENS", 1024),
		AITimeout:       envDuration("AI_TIMEOUT", 30*time.Second),
		LogLevel:        envOr("LOG_LEVEL", "info"),
	}, nil
}

func (c *Client) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("RWA_API_URL %q is not an absolute URL", c.APIURL)
	}
	if c.AlertTTL < MinAlertTTL || c.AlertTTL > MaxAlertTTL {
		return fmt.Errorf("ALERT_TTL %s outside [%s, %s]", c.AlertTTL, MinAlertTTL, MaxAlertTTL)
	}
	if c.FollowUpTTL <= 0 {
		return fmt.Errorf("FOLLOWUP_TTL must be positive")
	}
	if c.StatsSchedule != "" {
		if _, err := cron.ParseStandard(c.StatsSchedule); err != nil {
			return fmt.Errorf("STATS_REFRESH_SCHEDULE: %w", err)
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

func (s *Server) Validate() error {
	if s.DBPath == "" {
		return fmt.Errorf("DB_PATH is empty")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", s.Port)
	}
	switch s.AIProvider {
	case "", "anthropic", "openai", "ollama":
	default:
		return fmt.Errorf("AI_PROVIDER %q not supported (anthropic, openai, ollama)", s.AIProvider)
	}
	if _, err := zerolog.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Level resolves a LOG_LEVEL value, falling back to info.
func Level(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func clampTTL(d time.Duration) time.Duration {
	if d < MinAlertTTL {
		return MinAlertTTL
	}
	if d > MaxAlertTTL {
		return MaxAlertTTL
	}
	return d
}

// helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// envDuration accepts Go durations ("7s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	return fallback
}
