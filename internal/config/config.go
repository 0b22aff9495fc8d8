package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port           string
	DataFile       string
	DatabaseURL    string
	JWTSecret      string
	JWTIssuer      string
	JWTTTL         time.Duration
	CORSOrigins    []string
	AdminEmail     string
	AdminName      string
	AdminPassword  string
	MiningInterval time.Duration
}

// Load reads configuration from the environment and performs minimal
// validation. DATABASE_URL is optional: when unset, state lives in the
// local JSON file at DATA_FILE.
func Load() (Config, error) {
	cfg := Config{
		Port:          fallback(os.Getenv("PORT"), "8080"),
		DataFile:      fallback(os.Getenv("DATA_FILE"), "globalbank.json"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:     fallback(os.Getenv("JWT_ISSUER"), "globalbank-backend"),
		CORSOrigins:   parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		AdminEmail:    fallback(os.Getenv("ADMIN_EMAIL"), "admin@globalbank.local"),
		AdminName:     fallback(os.Getenv("ADMIN_NAME"), "Bank Administrator"),
		AdminPassword: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),
	}

	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), "60")
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}

	seconds := fallback(os.Getenv("MINING_INTERVAL_SECONDS"), "5")
	if interval, err := strconv.Atoi(seconds); err == nil && interval > 0 {
		cfg.MiningInterval = time.Duration(interval) * time.Second
	} else {
		cfg.MiningInterval = 5 * time.Second
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.AdminPassword == "" {
		return Config{}, errors.New("ADMIN_PASSWORD is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
