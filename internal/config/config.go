package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	SMTP     SMTPConfig
	Business BusinessConfig
	Jobs     JobsConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// BusinessConfig holds the attendance policy knobs. The clock-in cutoff and
// the auto-clock-out schedule are deliberately independent values.
type BusinessConfig struct {
	Timezone                 string
	ClockInCutoffHour        int
	MaxBreakMinutes          int
	BreakWarningLeadMinutes  int
	AdminOverdueAfterMinutes int
}

// JobsConfig holds the cron expressions for the reconciliation jobs,
// evaluated in the business timezone.
type JobsConfig struct {
	DayInitCron          string
	MarkAbsentCron       string
	ClockOutReminderCron string
	AutoClockOutCron     string
	BreakReminderCron    string
}

func Load() (*Config, error) {
	// A missing .env is fine in production; the environment is already set.
	_ = godotenv.Load()

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "presence"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "12h"),
	}

	// SMTP configuration
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	config.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     smtpPort,
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "no-reply@gradbridge.example"),
	}

	// Business policy configuration
	cutoffHour, err := strconv.Atoi(getEnv("CLOCK_IN_CUTOFF_HOUR", "17"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOCK_IN_CUTOFF_HOUR: %w", err)
	}
	maxBreak, err := strconv.Atoi(getEnv("MAX_BREAK_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_BREAK_MINUTES: %w", err)
	}
	warnLead, err := strconv.Atoi(getEnv("BREAK_WARNING_LEAD_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid BREAK_WARNING_LEAD_MINUTES: %w", err)
	}
	adminAfter, err := strconv.Atoi(getEnv("BREAK_ADMIN_OVERDUE_MINUTES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid BREAK_ADMIN_OVERDUE_MINUTES: %w", err)
	}

	config.Business = BusinessConfig{
		Timezone:                 getEnv("BUSINESS_TZ", "Africa/Johannesburg"),
		ClockInCutoffHour:        cutoffHour,
		MaxBreakMinutes:          maxBreak,
		BreakWarningLeadMinutes:  warnLead,
		AdminOverdueAfterMinutes: adminAfter,
	}

	// Job schedules (standard 5-field cron, business timezone)
	config.Jobs = JobsConfig{
		DayInitCron:          getEnv("DAY_INIT_CRON", "1 0 * * *"),
		MarkAbsentCron:       getEnv("MARK_ABSENT_CRON", "0 17 * * 1-5"),
		ClockOutReminderCron: getEnv("CLOCKOUT_REMINDER_CRON", "30 17 * * *"),
		AutoClockOutCron:     getEnv("AUTO_CLOCKOUT_CRON", "59 23 * * *"),
		BreakReminderCron:    getEnv("BREAK_REMINDER_CRON", "* * * * *"),
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Business.ClockInCutoffHour < 0 || c.Business.ClockInCutoffHour > 23 {
		return fmt.Errorf("CLOCK_IN_CUTOFF_HOUR must be between 0 and 23")
	}
	if c.Business.MaxBreakMinutes <= 0 {
		return fmt.Errorf("MAX_BREAK_MINUTES must be positive")
	}
	if c.Business.BreakWarningLeadMinutes < 0 {
		return fmt.Errorf("BREAK_WARNING_LEAD_MINUTES must not be negative")
	}
	if c.Business.AdminOverdueAfterMinutes < 0 {
		return fmt.Errorf("BREAK_ADMIN_OVERDUE_MINUTES must not be negative")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
