package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"varRiskBot/internal/risk"
)

type Config struct {
	TelegramToken    string
	WebhookPublicURL string
	OpenAIKey        string
	Port             string
	DBPath           string

	HistoryBackend string // sqlite or csv
	HistoryFile    string
	HistorySize    int

	PriceSource string // csv or yahoo
	PriceCSV    string

	Window         int
	Confidence     float64
	PortfolioValue float64
	Simulations    int

	ChartTZ   string
	LogLevel  string
	LogPretty bool
}

const (
	BackendSQLite = "sqlite"
	BackendCSV    = "csv"

	SourceCSV   = "csv"
	SourceYahoo = "yahoo"
)

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookPublicURL: getEnv("WEBHOOK_PUBLIC_URL", ""),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		Port:             getEnv("PORT", "9095"),
		DBPath:           getEnv("DB_PATH", "/app/data/var.db"),
		HistoryBackend:   strings.ToLower(getEnv("HISTORY_BACKEND", BackendSQLite)),
		HistoryFile:      getEnv("HISTORY_FILE", "history.csv"),
		HistorySize:      getEnvAsInt("HISTORY_SIZE", 10),
		PriceSource:      strings.ToLower(getEnv("PRICE_SOURCE", SourceYahoo)),
		PriceCSV:         getEnv("PRICE_CSV", "data/prices.csv"),
		Window:           getEnvAsInt("VAR_WINDOW", 30),
		Confidence:       getEnvAsFloat("VAR_CONFIDENCE", 95),
		PortfolioValue:   getEnvAsFloat("VAR_PORTFOLIO_VALUE", 100000),
		Simulations:      getEnvAsInt("VAR_SIMULATIONS", risk.DefaultSimulations),
		ChartTZ:          getEnv("CHART_TZ", "America/New_York"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("LOG_PRETTY", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken != "" && c.WebhookPublicURL == "" {
		errs = append(errs, errors.New("WEBHOOK_PUBLIC_URL is required when TELEGRAM_BOT_TOKEN is set"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	switch c.HistoryBackend {
	case BackendSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite history backend"))
		}
	case BackendCSV:
		if c.HistoryFile == "" {
			errs = append(errs, errors.New("HISTORY_FILE is required for the csv history backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("HISTORY_BACKEND %q must be sqlite or csv", c.HistoryBackend))
	}
	if c.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("HISTORY_SIZE %d must be at least 1", c.HistorySize))
	}
	switch c.PriceSource {
	case SourceYahoo:
	case SourceCSV:
		if c.PriceCSV == "" {
			errs = append(errs, errors.New("PRICE_CSV is required for the csv price source"))
		}
	default:
		errs = append(errs, fmt.Errorf("PRICE_SOURCE %q must be csv or yahoo", c.PriceSource))
	}
	if c.Window < 1 {
		errs = append(errs, fmt.Errorf("VAR_WINDOW %d must be a positive integer", c.Window))
	}
	if _, err := risk.ParseConfidence(c.Confidence); err != nil {
		errs = append(errs, fmt.Errorf("VAR_CONFIDENCE: %w", err))
	}
	if c.PortfolioValue <= 0 {
		errs = append(errs, fmt.Errorf("VAR_PORTFOLIO_VALUE %v must be positive", c.PortfolioValue))
	}
	if c.Simulations < 1 {
		errs = append(errs, fmt.Errorf("VAR_SIMULATIONS %d must be positive", c.Simulations))
	}
	return errors.Join(errs...)
}

// TelegramEnabled reports whether the bot front end should start.
func (c *Config) TelegramEnabled() bool { return c.TelegramToken != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
