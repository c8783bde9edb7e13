// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageDriverLocal    = "local"
	StorageDriverFirebase = "firebase"

	ConsistencyTransactional = "transactional"
	ConsistencyBestEffort    = "best_effort"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"`
	CORSOrigins   []string      `mapstructure:"-"`

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"`
	DBSource          string        `mapstructure:"-"`
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Identity
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`
	AuthDisabled                  bool   `mapstructure:"AUTH_DISABLED"`

	// Blob storage
	StorageDriver        string `mapstructure:"STORAGE_DRIVER"`
	StorageLocalPath     string `mapstructure:"STORAGE_LOCAL_PATH"`
	StoragePublicBaseURL string `mapstructure:"STORAGE_PUBLIC_BASE_URL"`
	StorageBucket        string `mapstructure:"STORAGE_BUCKET"`

	// Draft autosave
	RedisURL              string        `mapstructure:"REDIS_URL"`
	DraftAutosaveDebounce time.Duration `mapstructure:"-"`
	DraftTTL              time.Duration `mapstructure:"-"`

	// Submission
	SubmissionConsistency   string        `mapstructure:"SUBMISSION_CONSISTENCY"`
	SubmissionRedirectPath  string        `mapstructure:"SUBMISSION_REDIRECT_PATH"`
	SubmissionRedirectDelay time.Duration `mapstructure:"-"`
	MaxUploadSizeMB         int64         `mapstructure:"MAX_UPLOAD_SIZE_MB"`
	ImageMaxDimension       int           `mapstructure:"IMAGE_MAX_DIMENSION"`
	ImageJPEGQuality        int           `mapstructure:"IMAGE_JPEG_QUALITY"`

	// Cron Jobs
	IncompleteListingSweepSchedule string        `mapstructure:"INCOMPLETE_LISTING_SWEEP_SCHEDULE"`
	IncompleteListingGrace         time.Duration `mapstructure:"-"`

	// Elasticsearch Configuration
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}
	return FromViper(viper.New())
}

// FromViper applies defaults to v, reads the environment and builds a validated Config.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Durations and lists are read directly so env strings like "30" parse as plain numbers.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.DraftAutosaveDebounce = time.Duration(v.GetInt("DRAFT_AUTOSAVE_DEBOUNCE_MS")) * time.Millisecond
	cfg.DraftTTL = time.Duration(v.GetInt("DRAFT_TTL_HOURS")) * time.Hour
	cfg.SubmissionRedirectDelay = time.Duration(v.GetInt("SUBMISSION_REDIRECT_DELAY_MS")) * time.Millisecond
	cfg.IncompleteListingGrace = time.Duration(v.GetInt("INCOMPLETE_LISTING_GRACE_MINUTES")) * time.Minute
	cfg.CORSOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	cfg.DBSource = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBTimezone)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "marketplace_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	v.SetDefault("AUTH_DISABLED", false)

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_LOCAL_PATH", "./media")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/media")
	v.SetDefault("STORAGE_BUCKET", "")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("DRAFT_AUTOSAVE_DEBOUNCE_MS", 500)
	v.SetDefault("DRAFT_TTL_HOURS", 720)

	v.SetDefault("SUBMISSION_CONSISTENCY", ConsistencyTransactional)
	v.SetDefault("SUBMISSION_REDIRECT_PATH", "/dashboard/listings")
	v.SetDefault("SUBMISSION_REDIRECT_DELAY_MS", 2000)
	v.SetDefault("MAX_UPLOAD_SIZE_MB", 50)
	v.SetDefault("IMAGE_MAX_DIMENSION", 2560)
	v.SetDefault("IMAGE_JPEG_QUALITY", 92)

	v.SetDefault("INCOMPLETE_LISTING_SWEEP_SCHEDULE", "@every 15m")
	v.SetDefault("INCOMPLETE_LISTING_GRACE_MINUTES", 30)

	v.SetDefault("ELASTICSEARCH_URL", "")
}

func (cfg *Config) validate() error {
	switch cfg.SubmissionConsistency {
	case ConsistencyTransactional, ConsistencyBestEffort:
	default:
		return fmt.Errorf("SUBMISSION_CONSISTENCY must be %q or %q, got %q", ConsistencyTransactional, ConsistencyBestEffort, cfg.SubmissionConsistency)
	}

	switch cfg.StorageDriver {
	case StorageDriverLocal:
		if strings.TrimSpace(cfg.StorageLocalPath) == "" {
			return fmt.Errorf("STORAGE_LOCAL_PATH is required for the local storage driver")
		}
	case StorageDriverFirebase:
		if strings.TrimSpace(cfg.StorageBucket) == "" {
			return fmt.Errorf("STORAGE_BUCKET is required for the firebase storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.AuthDisabled && cfg.GinMode == "release" {
		return fmt.Errorf("AUTH_DISABLED cannot be used in release mode")
	}

	if cfg.ImageJPEGQuality < 1 || cfg.ImageJPEGQuality > 100 {
		return fmt.Errorf("IMAGE_JPEG_QUALITY must be within [1,100], got %d", cfg.ImageJPEGQuality)
	}
	if cfg.ImageMaxDimension <= 0 {
		return fmt.Errorf("IMAGE_MAX_DIMENSION must be positive, got %d", cfg.ImageMaxDimension)
	}

	if cfg.NeedsFirebase() {
		if strings.TrimSpace(cfg.FirebaseServiceAccountKeyPath) == "" {
			return fmt.Errorf("FATAL: FIREBASE_SERVICE_ACCOUNT_KEY_PATH is not set. This is required for Firebase Admin SDK initialization")
		}
		if _, err := os.Stat(cfg.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", cfg.FirebaseServiceAccountKeyPath)
		}
	}
	return nil
}

// NeedsFirebase reports whether any configured component talks to Firebase.
func (cfg *Config) NeedsFirebase() bool {
	return !cfg.AuthDisabled || cfg.StorageDriver == StorageDriverFirebase
}

// Transactional reports whether submission writes run in one transaction.
func (cfg *Config) Transactional() bool {
	return cfg.SubmissionConsistency != ConsistencyBestEffort
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
