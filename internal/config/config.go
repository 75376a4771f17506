package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"catatan/internal/core"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Reference source selection: memory, sqlite or sheets
	ReferenceBackend string
	ReferenceFile    string
	SQLiteDBPath     string

	// Google Sheets
	GoogleSpreadsheetID         string
	GoogleAccountsSheetName     string
	GoogleCategoriesSheetName   string
	GoogleTransactionsSheetName string
	GoogleServiceAccountJSON    string
	GoogleServiceAccountFile    string

	// AMQP commit notifications; empty URL disables them
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Currency display
	CurrencyLocale string
	CurrencyCode   string
	CurrencySymbol string
	// Digits shown after the decimal separator, independent of the
	// currency's minor unit.
	CurrencyFractionDigits int

	// Sessions
	SessionTTL time.Duration
	SessionMax int

	RateLimitPerMinute int
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ReferenceBackend: getEnv("REFERENCE_BACKEND", "memory"),
		ReferenceFile:    getEnv("REFERENCE_FILE", ""),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/catatan.db"),

		GoogleSpreadsheetID:         getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleAccountsSheetName:     getEnv("GOOGLE_ACCOUNTS_SHEET_NAME", "Accounts"),
		GoogleCategoriesSheetName:   getEnv("GOOGLE_CATEGORIES_SHEET_NAME", "Categories"),
		GoogleTransactionsSheetName: getEnv("GOOGLE_TRANSACTIONS_SHEET_NAME", ""),
		GoogleServiceAccountJSON:    getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:    getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "catatan"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transactions_committed"),

		CurrencyLocale:         getEnv("CURRENCY_LOCALE", "id-ID"),
		CurrencyCode:           getEnv("CURRENCY_CODE", "IDR"),
		CurrencySymbol:         getEnv("CURRENCY_SYMBOL", "Rp"),
		CurrencyFractionDigits: getEnvInt("CURRENCY_FRACTION_DIGITS", 2),

		SessionTTL: getEnvDuration("SESSION_TTL", 12*time.Hour),
		SessionMax: getEnvInt("SESSION_MAX", 1000),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	validBackends := []string{"memory", "sqlite", "sheets"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.ReferenceBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid reference backend '%s': must be one of %v", c.ReferenceBackend, validBackends))
	}

	if c.ReferenceBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.ReferenceBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleAccountsSheetName == "" || c.GoogleCategoriesSheetName == "" {
			errors = append(errors, "Google accounts and categories sheet names are required when using sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := core.NewCurrencyFormatter(c.CurrencyLocale, c.CurrencyCode, c.CurrencySymbol); err != nil {
		errors = append(errors, fmt.Sprintf("invalid currency settings: %v", err))
	}
	if c.CurrencyFractionDigits < 0 || c.CurrencyFractionDigits > core.MaxAmountFractionDigits {
		errors = append(errors, fmt.Sprintf("invalid currency fraction digits %d: must be between 0 and %d", c.CurrencyFractionDigits, core.MaxAmountFractionDigits))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionMax < 1 {
		errors = append(errors, fmt.Sprintf("invalid session max %d: must be at least 1", c.SessionMax))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
