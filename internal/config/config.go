package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"

	"duoledger/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Store
	StoreBackend     string
	SQLiteDBPath     string
	BoltDBPath       string
	CollectionPrefix string

	// AMQP change relay, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string

	// Ledger
	CycleStartDay       int
	PersonA             string
	PersonB             string
	StatementOwner      string
	ClassifierRulesFile string
	PrefsFile           string

	// Logging
	LogLevel  string
	LogFormat string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	ExportSchedule           string
}

// Ledger is the engine-facing subset of the configuration.
type Ledger struct {
	CycleStartDay  int
	Household      core.Household
	StatementOwner core.Person
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		StoreBackend:     getEnv("STORE_BACKEND", "sqlite"),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		BoltDBPath:       getEnv("BOLT_DB_PATH", "./data/ledger.bolt"),
		CollectionPrefix: getEnv("COLLECTION_PREFIX", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger_changes"),

		CycleStartDay:       getEnvInt("CYCLE_START_DAY", 20),
		PersonA:             getEnv("PERSON_A", "Ali"),
		PersonB:             getEnv("PERSON_B", "Fajar"),
		StatementOwner:      getEnv("STATEMENT_OWNER", "Fajar"),
		ClassifierRulesFile: getEnv("CLASSIFIER_RULES_FILE", ""),
		PrefsFile:           getEnv("PREFS_FILE", "./data/prefs.json"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		ExportSchedule:           getEnv("EXPORT_SCHEDULE", "@every 1m"),
	}

	return cfg
}

// Ledger returns the settings the ledger engine needs.
func (c *Config) Ledger() Ledger {
	return Ledger{
		CycleStartDay:  c.CycleStartDay,
		Household:      core.Household{A: core.Person(c.PersonA), B: core.Person(c.PersonB)},
		StatementOwner: core.Person(c.StatementOwner),
	}
}

// ExportEnabled reports whether a spreadsheet export target is configured.
func (c *Config) ExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate store backend
	validBackends := []string{"memory", "sqlite", "bolt"}
	if !slices.Contains(validBackends, c.StoreBackend) {
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of %v", c.StoreBackend, validBackends))
	}

	switch c.StoreBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errors = append(errors, msg)
		}
	case "bolt":
		if c.BoltDBPath == "" {
			errors = append(errors, "Bolt database path cannot be empty when using bolt backend")
		} else if msg := ensureDir(c.BoltDBPath); msg != "" {
			errors = append(errors, msg)
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate ledger settings
	if c.CycleStartDay < 1 || c.CycleStartDay > 31 {
		errors = append(errors, fmt.Sprintf("invalid cycle start day %d: must be between 1 and 31", c.CycleStartDay))
	}
	if strings.TrimSpace(c.PersonA) == "" || strings.TrimSpace(c.PersonB) == "" {
		errors = append(errors, "both household members must be named")
	} else if c.PersonA == c.PersonB {
		errors = append(errors, fmt.Sprintf("household members must differ, both are '%s'", c.PersonA))
	}
	if c.StatementOwner != c.PersonA && c.StatementOwner != c.PersonB {
		errors = append(errors, fmt.Sprintf("statement owner '%s' must be one of the household members", c.StatementOwner))
	}
	if c.ClassifierRulesFile != "" {
		if _, err := os.Stat(c.ClassifierRulesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("classifier rules file does not exist: %s", c.ClassifierRulesFile))
		}
	}

	// Validate logging
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Validate Google Sheets export if configured
	if c.ExportEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when exporting")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if _, err := cron.ParseStandard(c.ExportSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid export schedule '%s': %v", c.ExportSchedule, err))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ensureDir creates the parent directory of path, returning a problem
// description on failure.
func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create database directory '%s': %v", dir, err)
		}
	}
	return ""
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
