// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// EmailConfig provides settings for outbound email.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAdminEmail() string
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// HoursWindow is an opening window for a single weekday, expressed as
// "HH:MM" clock strings.
type HoursWindow struct {
	Open  string
	Close string
}

// BookingConfig provides settings for availability and booking.
type BookingConfig interface {
	GetSlotDurationMinutes() int
	GetLookaheadDays() int
	GetBusinessHours() map[time.Weekday]HoursWindow
}

// AutomationConfig provides cadence and policy settings for background
// reminder and follow-up scans. The exact numbers are business policy,
// tunable per deployment.
type AutomationConfig interface {
	GetReminderScanInterval() time.Duration
	GetFollowUpScanInterval() time.Duration
	GetReminderHorizon() time.Duration
	GetReminderTolerance() time.Duration
	GetFollowUpCap() int
	GetSendRatePerMinute() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowAll         bool
	CORSOrigins          []string
	AppBaseURL           string
	EmailEnabled         bool
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	EmailFromName        string
	EmailFromAddress     string
	AdminEmail           string
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	SlotDurationMinutes  int
	LookaheadDays        int
	BusinessHours        map[time.Weekday]HoursWindow
	ReminderScanInterval time.Duration
	FollowUpScanInterval time.Duration
	ReminderHorizon      time.Duration
	ReminderTolerance    time.Duration
	FollowUpCap          int
	SendRatePerMinute    int
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAdminEmail() string       { return c.AdminEmail }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// BookingConfig implementation
func (c *Config) GetSlotDurationMinutes() int { return c.SlotDurationMinutes }
func (c *Config) GetLookaheadDays() int       { return c.LookaheadDays }
func (c *Config) GetBusinessHours() map[time.Weekday]HoursWindow {
	return c.BusinessHours
}

// AutomationConfig implementation
func (c *Config) GetReminderScanInterval() time.Duration { return c.ReminderScanInterval }
func (c *Config) GetFollowUpScanInterval() time.Duration { return c.FollowUpScanInterval }
func (c *Config) GetReminderHorizon() time.Duration      { return c.ReminderHorizon }
func (c *Config) GetReminderTolerance() time.Duration    { return c.ReminderTolerance }
func (c *Config) GetFollowUpCap() int                    { return c.FollowUpCap }
func (c *Config) GetSendRatePerMinute() int              { return c.SendRatePerMinute }

// defaultBusinessHours is the weekly opening table used when BUSINESS_HOURS
// is not set: weekdays 09:00-18:00, Saturday 10:00-14:00, Sunday closed.
func defaultBusinessHours() map[time.Weekday]HoursWindow {
	hours := map[time.Weekday]HoursWindow{
		time.Saturday: {Open: "10:00", Close: "14:00"},
	}
	for d := time.Monday; d <= time.Friday; d++ {
		hours[d] = HoursWindow{Open: "09:00", Close: "18:00"}
	}
	return hours
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	businessHours, err := parseBusinessHours(getEnv("BUSINESS_HOURS", ""))
	if err != nil {
		return nil, err
	}
	if businessHours == nil {
		businessHours = defaultBusinessHours()
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		AppBaseURL:           getEnv("APP_BASE_URL", "http://localhost:4200"),
		EmailEnabled:         emailEnabled && smtpHost != "",
		SMTPHost:             smtpHost,
		SMTPPort:             mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		EmailFromName:        getEnv("EMAIL_FROM_NAME", "AdvisorHub"),
		EmailFromAddress:     getEnv("EMAIL_FROM_ADDRESS", ""),
		AdminEmail:           getEnv("ADMIN_EMAIL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SlotDurationMinutes:  mustInt(getEnv("BOOKING_SLOT_MINUTES", "30")),
		LookaheadDays:        mustInt(getEnv("BOOKING_LOOKAHEAD_DAYS", "14")),
		BusinessHours:        businessHours,
		ReminderScanInterval: mustDuration(getEnv("REMINDER_SCAN_INTERVAL", "1h")),
		FollowUpScanInterval: mustDuration(getEnv("FOLLOWUP_SCAN_INTERVAL", "24h")),
		ReminderHorizon:      mustDuration(getEnv("REMINDER_HORIZON", "24h")),
		ReminderTolerance:    mustDuration(getEnv("REMINDER_TOLERANCE", "1h")),
		FollowUpCap:          mustInt(getEnv("FOLLOWUP_CAP", "5")),
		SendRatePerMinute:    mustInt(getEnv("SEND_RATE_PER_MINUTE", "30")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if emailEnabled && smtpHost != "" && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.SlotDurationMinutes < 5 {
		return nil, fmt.Errorf("BOOKING_SLOT_MINUTES must be at least 5")
	}
	if cfg.FollowUpCap < 1 {
		return nil, fmt.Errorf("FOLLOWUP_CAP must be at least 1")
	}

	return cfg, nil
}

// parseBusinessHours parses a weekly table of the form
// "mon=09:00-18:00,tue=09:00-18:00,sat=10:00-14:00". Days not listed are
// closed. An empty input returns nil so the caller can apply defaults.
func parseBusinessHours(raw string) (map[time.Weekday]HoursWindow, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	dayNames := map[string]time.Weekday{
		"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
		"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
		"sat": time.Saturday,
	}

	hours := make(map[time.Weekday]HoursWindow)
	for _, entry := range splitCSV(raw) {
		dayPart, window, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("BUSINESS_HOURS: invalid entry %q", entry)
		}
		day, ok := dayNames[strings.ToLower(strings.TrimSpace(dayPart))]
		if !ok {
			return nil, fmt.Errorf("BUSINESS_HOURS: unknown day %q", dayPart)
		}
		open, close, ok := strings.Cut(window, "-")
		if !ok {
			return nil, fmt.Errorf("BUSINESS_HOURS: invalid window %q", window)
		}
		for _, clock := range []string{open, close} {
			if _, err := time.Parse("15:04", strings.TrimSpace(clock)); err != nil {
				return nil, fmt.Errorf("BUSINESS_HOURS: invalid time %q", clock)
			}
		}
		hours[day] = HoursWindow{Open: strings.TrimSpace(open), Close: strings.TrimSpace(close)}
	}

	return hours, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
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
