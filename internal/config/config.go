package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// Source spreadsheet
	SheetBaseURL  string
	SheetID       string
	ActivityTab   string
	EvaluationTab string
	MetricsTab    string
	FetchTimeout  time.Duration
	SyncInterval  time.Duration

	// Auth
	AdminEmail string
	JWTSecret  string
	SessionTTL time.Duration

	// Insights
	GeminiAPIKey string
	GeminiModel  string

	// WebSocket timeouts
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		SheetBaseURL:  getEnv("SHEET_BASE_URL", "https://docs.google.com/spreadsheets/d"),
		SheetID:       getEnv("SHEET_ID", "1_MEcMoGiXuYhmxwKv0-Cc0SryMYVIpVOMO6ea2MrKwY"),
		ActivityTab:   getEnv("SHEET_ACTIVITY_TAB", "Agents"),
		EvaluationTab: getEnv("SHEET_EVALUATION_TAB", "CallEvaluations"),
		MetricsTab:    getEnv("SHEET_METRICS_TAB", "TicketMetrics"),

		AdminEmail: getEnv("ADMIN_EMAIL", "callcenter@dialndine.com"),
		JWTSecret:  getEnv("JWT_SECRET", "omnidesk-dev-secret"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	syncInterval, err := strconv.Atoi(getEnv("SYNC_INTERVAL", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}
	config.SyncInterval = time.Duration(syncInterval) * time.Second

	fetchTimeout, err := strconv.Atoi(getEnv("FETCH_TIMEOUT", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}
	config.FetchTimeout = time.Duration(fetchTimeout) * time.Second

	sessionTTL, err := strconv.Atoi(getEnv("SESSION_TTL", "43200"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	config.SessionTTL = time.Duration(sessionTTL) * time.Second

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
