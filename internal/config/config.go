package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by LOCAL_BACKEND and REMOTE_BACKEND.
const (
	LocalSQLite  = "sqlite"
	LocalMemory  = "memory"
	RemoteNone   = "none"
	RemoteMemory = "memory"
	RemoteHTTP   = "http"
	RemoteSheets = "sheets"
	RemoteGCS    = "gcs"
	RemoteS3     = "s3"
)

var (
	localBackends  = []string{LocalSQLite, LocalMemory}
	remoteBackends = []string{RemoteNone, RemoteMemory, RemoteHTTP, RemoteSheets, RemoteGCS, RemoteS3}
)

type Config struct {
	// HTTP Server
	Port          string
	LogLevel      string
	SecureCookies bool

	// Local ledger
	LocalBackend string
	SQLiteDBPath string
	LedgerKey    string

	// Role gate
	AdminPassword     string
	AdminPasswordHash string
	SessionTTL        time.Duration

	// Remote document
	RemoteBackend string
	RemoteURL     string

	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	GCSBucket string
	GCSObject string

	S3Bucket          string
	S3Key             string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Connectivity
	ConnectivityProbeAddr string
	ConnectivityInterval  time.Duration

	// Report worker
	ReportDir      string
	ReportSchedule string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8081"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SecureCookies: getEnv("SECURE_COOKIES", "false") == "true",

		LocalBackend: getEnv("LOCAL_BACKEND", LocalSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/anwarfarm.db"),
		LedgerKey:    getEnv("LEDGER_KEY", "anwarfarm_transactions_v1"),

		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		SessionTTL:        getEnvDuration("SESSION_TTL", 12*time.Hour),

		RemoteBackend: getEnv("REMOTE_BACKEND", RemoteNone),
		RemoteURL:     getEnv("REMOTE_URL", ""),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		GCSBucket: getEnv("GCS_BUCKET", ""),
		GCSObject: getEnv("GCS_OBJECT", "ledger.json"),

		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Key:             getEnv("S3_KEY", "ledger.json"),
		S3Region:          getEnv("S3_REGION", "auto"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "anwarfarm"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		ConnectivityProbeAddr: getEnv("CONNECTIVITY_PROBE_ADDR", ""),
		ConnectivityInterval:  getEnvDuration("CONNECTIVITY_INTERVAL", 15*time.Second),

		ReportDir:      getEnv("REPORT_DIR", "./data/reports"),
		ReportSchedule: getEnv("REPORT_SCHEDULE", "@daily"),
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

	if !slices.Contains(localBackends, c.LocalBackend) {
		errors = append(errors, fmt.Sprintf("invalid local backend '%s': must be one of %v", c.LocalBackend, localBackends))
	}
	if c.LocalBackend == LocalSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(filepath.Dir(c.SQLiteDBPath)); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create SQLite database directory: %v", err))
		}
	}
	if strings.TrimSpace(c.LedgerKey) == "" {
		errors = append(errors, "ledger key cannot be empty")
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	errors = append(errors, c.validateRemote()...)

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

	if c.ConnectivityProbeAddr != "" && c.ConnectivityInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid connectivity interval %v: must be at least 1 second", c.ConnectivityInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateRemote() []string {
	var errors []string
	switch c.RemoteBackend {
	case RemoteNone, RemoteMemory:
	case RemoteHTTP:
		if c.RemoteURL == "" {
			errors = append(errors, "REMOTE_URL is required when using http remote backend")
		} else if u, err := url.Parse(c.RemoteURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid remote URL '%s': must be an http(s) URL", c.RemoteURL))
		}
	case RemoteSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets remote backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	case RemoteGCS:
		if c.GCSBucket == "" {
			errors = append(errors, "GCS_BUCKET is required when using gcs remote backend")
		}
	case RemoteS3:
		if c.S3Bucket == "" {
			errors = append(errors, "S3_BUCKET is required when using s3 remote backend")
		}
		if (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
			errors = append(errors, "S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid remote backend '%s': must be one of %v", c.RemoteBackend, remoteBackends))
	}
	return errors
}

// AdminConfigured reports whether any admin passphrase is set.
func (c *Config) AdminConfigured() bool {
	return c.AdminPassword != "" || c.AdminPasswordHash != ""
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
