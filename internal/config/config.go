package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment string
	HTTPPort    string
	// DatabaseDSN is a SQLite path or a postgres:// URL.
	DatabaseDSN string
	LogDir      string
	Debug       bool
	APIKey      string

	PolicyPath        string
	PolicyWatch       bool
	SecondaryFailMode string
	NotifySync        bool
	SLACheckSchedule  string

	LLM      LLMConfig
	CRM      CRMConfig
	SMS      SMSConfig
	SMTP     SMTPConfig
	Fallback []string
}

// LLMConfig points at an OpenAI-compatible chat completion endpoint used for
// the secondary compliance check. An empty BaseURL disables it.
type LLMConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
}

type CRMConfig struct {
	BaseURL    string
	Token      string
	APIVersion string
}

type SMSConfig struct {
	BaseURL string
	APIKey  string
	Sender  string
}

// SMTPConfig holds the SMTP server configuration.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	Encryption  string // "none", "ssl", "starttls"
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:       getEnv("COMPLIANCE_ENV", "development"),
		HTTPPort:          getEnv("COMPLIANCE_HTTP_PORT", "8080"),
		DatabaseDSN:       getEnv("COMPLIANCE_DB_DSN", filepath.Join("data", "compliance.db")),
		LogDir:            getEnv("COMPLIANCE_LOG_DIR", filepath.Join("data", "logs")),
		APIKey:            os.Getenv("COMPLIANCE_API_KEY"),
		PolicyPath:        os.Getenv("COMPLIANCE_POLICY_PATH"),
		SecondaryFailMode: getEnv("COMPLIANCE_SECONDARY_FAIL_MODE", "fail_open"),
		SLACheckSchedule:  getEnv("COMPLIANCE_SLA_CHECK_SCHEDULE", "@every 5m"),
		LLM: LLMConfig{
			BaseURL: os.Getenv("COMPLIANCE_LLM_BASE_URL"),
			APIKey:  os.Getenv("COMPLIANCE_LLM_API_KEY"),
			Model:   getEnv("COMPLIANCE_LLM_MODEL", "deepseek-chat"),
		},
		CRM: CRMConfig{
			BaseURL:    getEnv("COMPLIANCE_CRM_BASE_URL", "https://services.leadconnectorhq.com"),
			Token:      os.Getenv("COMPLIANCE_CRM_TOKEN"),
			APIVersion: getEnv("COMPLIANCE_CRM_API_VERSION", "2021-07-28"),
		},
		SMS: SMSConfig{
			BaseURL: getEnv("COMPLIANCE_SMS_BASE_URL", "https://api.smtp2go.com/v3"),
			APIKey:  os.Getenv("COMPLIANCE_SMS_API_KEY"),
			Sender:  os.Getenv("COMPLIANCE_SMS_SENDER"),
		},
		SMTP: SMTPConfig{
			Host:        os.Getenv("COMPLIANCE_SMTP_HOST"),
			Username:    os.Getenv("COMPLIANCE_SMTP_USERNAME"),
			Password:    os.Getenv("COMPLIANCE_SMTP_PASSWORD"),
			FromAddress: os.Getenv("COMPLIANCE_SMTP_FROM"),
			Encryption:  getEnv("COMPLIANCE_SMTP_ENCRYPTION", "starttls"),
		},
		Fallback: splitList(os.Getenv("COMPLIANCE_FALLBACK_URLS")),
	}

	var err error
	if cfg.Debug, err = getEnvBool("COMPLIANCE_DEBUG", cfg.Environment == "development"); err != nil {
		return Config{}, err
	}
	if cfg.PolicyWatch, err = getEnvBool("COMPLIANCE_POLICY_WATCH", false); err != nil {
		return Config{}, err
	}
	if cfg.NotifySync, err = getEnvBool("COMPLIANCE_NOTIFY_SYNC", false); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.Port, err = getEnvInt("COMPLIANCE_SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	if cfg.LLM.Timeout, err = getEnvDuration("COMPLIANCE_LLM_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.LLM.RequestsPerSecond, err = getEnvFloat("COMPLIANCE_LLM_RPS", 5); err != nil {
		return Config{}, err
	}

	if !strings.HasPrefix(cfg.DatabaseDSN, "postgres://") && !strings.HasPrefix(cfg.DatabaseDSN, "postgresql://") &&
		!strings.HasPrefix(cfg.DatabaseDSN, "file:") {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabaseDSN), 0o755); err != nil {
			return Config{}, fmt.Errorf("ensure data directory: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
