// Package config loads application configuration from the environment and
// the optional CRM configuration file.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"os"
)

type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string

	CORSAllowAll bool
	CORSOrigins  []string

	RedisURL         string
	AsynqQueue       string
	AsynqConcurrency int

	HealthSweepInterval time.Duration
	StaleSweepInterval  time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	// AlertEmailTo receives health alert and stale lead notifications.
	AlertEmailTo string

	// CRM holds the pipeline, scoring and health tables, merged from
	// defaults and the optional YAML file at CRM_CONFIG_PATH.
	CRM CRMConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTAccessSecret:     getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		RedisURL:            getEnv("REDIS_URL", ""),
		AsynqQueue:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    getIntEnv("ASYNQ_CONCURRENCY", 10),
		HealthSweepInterval: mustDuration(getEnv("HEALTH_SWEEP_INTERVAL", "6h")),
		StaleSweepInterval:  mustDuration(getEnv("STALE_SWEEP_INTERVAL", "24h")),
		EmailEnabled:        emailEnabled && smtpHost != "",
		SMTPHost:            smtpHost,
		SMTPPort:            getIntEnv("SMTP_PORT", 587),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "CoachDesk"),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
		AlertEmailTo:        getEnv("ALERT_EMAIL_TO", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}

	crm, err := LoadCRMConfig(getEnv("CRM_CONFIG_PATH", ""))
	if err != nil {
		return nil, err
	}
	cfg.CRM = crm

	return cfg, nil
}

// GetJWTAccessSecret implements httpkit.JWTConfig.
func (c *Config) GetJWTAccessSecret() string {
	return c.JWTAccessSecret
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return n
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
