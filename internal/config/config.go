package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"clinichealth-notifier/internal/localtime"
)

const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Logging
	LogLevel  string
	LogFormat string

	// Store
	StoreBackend string
	DatabaseURL  string

	// Firebase
	FirebaseCredentialsPath string
	FirebaseProjectID       string

	// Clinic
	ClinicTimezone string

	// Reminder sweeper
	ReminderSchedule      string
	ReminderLookahead     time.Duration
	NotificationRetention time.Duration
	ReminderRecipient     string
	PushRateLimit         int
	JobTimeout            time.Duration

	// SMTP Configuration
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromName  string
	SMTPFromEmail string

	// Check-in QR
	QRBaseURL string
	QRSize    int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("info: .env not found, reading configuration from the environment")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		StoreBackend: strings.ToLower(v.GetString("STORE_BACKEND")),
		DatabaseURL:  v.GetString("DATABASE_URL"),

		FirebaseCredentialsPath: v.GetString("FIREBASE_CREDENTIALS_PATH"),
		FirebaseProjectID:       v.GetString("FIREBASE_PROJECT_ID"),

		ClinicTimezone: v.GetString("CLINIC_TIMEZONE"),

		ReminderSchedule:      v.GetString("REMINDER_SCHEDULE"),
		ReminderLookahead:     v.GetDuration("REMINDER_LOOKAHEAD"),
		NotificationRetention: v.GetDuration("NOTIFICATION_RETENTION"),
		ReminderRecipient:     v.GetString("REMINDER_RECIPIENT"),
		PushRateLimit:         v.GetInt("PUSH_RATE_LIMIT"),
		JobTimeout:            v.GetDuration("JOB_TIMEOUT"),

		SMTPHost:      v.GetString("SMTP_HOST"),
		SMTPPort:      v.GetInt("SMTP_PORT"),
		SMTPUsername:  v.GetString("SMTP_USERNAME"),
		SMTPPassword:  v.GetString("SMTP_PASSWORD"),
		SMTPFromName:  v.GetString("SMTP_FROM_NAME"),
		SMTPFromEmail: v.GetString("SMTP_FROM_EMAIL"),

		QRBaseURL: v.GetString("QR_BASE_URL"),
		QRSize:    v.GetInt("QR_SIZE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORE_BACKEND", BackendFirestore)

	v.SetDefault("CLINIC_TIMEZONE", "America/Argentina/Buenos_Aires")

	v.SetDefault("REMINDER_SCHEDULE", "@every 1m")
	v.SetDefault("REMINDER_LOOKAHEAD", "10m")
	v.SetDefault("NOTIFICATION_RETENTION", "24h")
	v.SetDefault("REMINDER_RECIPIENT", "doctor")
	v.SetDefault("PUSH_RATE_LIMIT", 50)
	v.SetDefault("JOB_TIMEOUT", "50s")

	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM_NAME", "ClinicHealth")

	v.SetDefault("QR_BASE_URL", "https://api.qrserver.com/v1/create-qr-code/")
	v.SetDefault("QR_SIZE", 200)
}

// Validate checks required settings and fills derived defaults.
func (c *Config) Validate() error {
	if c.FirebaseCredentialsPath == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}
	if _, err := os.Stat(c.FirebaseCredentialsPath); err != nil {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH: %w", err)
	}

	switch c.StoreBackend {
	case BackendFirestore:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if _, err := localtime.LoadZone(c.ClinicTimezone); err != nil {
		return fmt.Errorf("invalid CLINIC_TIMEZONE: %w", err)
	}

	if c.ReminderLookahead <= 0 {
		return fmt.Errorf("REMINDER_LOOKAHEAD must be positive")
	}
	if c.NotificationRetention <= 0 {
		return fmt.Errorf("NOTIFICATION_RETENTION must be positive")
	}
	if c.ReminderRecipient == "" {
		return fmt.Errorf("REMINDER_RECIPIENT is required")
	}

	if c.SMTPUsername == "" || c.SMTPPassword == "" {
		log.Println("warning: SMTP credentials not configured, booking confirmations will fail")
	}
	if c.SMTPFromEmail == "" {
		c.SMTPFromEmail = c.SMTPUsername
	}

	return nil
}
