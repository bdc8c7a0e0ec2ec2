package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisDedupDB  int    `mapstructure:"REDIS_DEDUP_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Payment provider.
	StripeKey               string  `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret     string  `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeWebhookSecretNext string  `mapstructure:"STRIPE_WEBHOOK_SECRET_NEXT"`
	FeeRate                 float64 `mapstructure:"FEE_RATE"` // platform share, [0,1)

	// Post-checkout redirect targets; {CHECKOUT_SESSION_ID} is substituted
	// by the payment provider.
	CheckoutSuccessURL string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string `mapstructure:"CHECKOUT_CANCEL_URL"`

	// External calendar (OAuth2 authorization-code flow).
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`

	// Calendar identity webhook signing keys (current + next, rotation tolerant).
	CalendarWebhookSecret     string `mapstructure:"CALENDAR_WEBHOOK_SECRET"`
	CalendarWebhookSecretNext string `mapstructure:"CALENDAR_WEBHOOK_SECRET_NEXT"`

	// Cron trigger authentication.
	CronSecret string `mapstructure:"CRON_SECRET"`

	// Reservation lifecycle.
	ReservationTTLMinutes int `mapstructure:"RESERVATION_TTL_MINUTES"`
	VoucherGraceMinutes   int `mapstructure:"VOUCHER_GRACE_MINUTES"`

	// Payout scheduling.
	PayoutDelayDays        map[string]int `mapstructure:"PAYOUT_DELAY_DAYS"` // ISO-2 -> days, "DEFAULT" required
	PayoutSafetyDelayHours int            `mapstructure:"PAYOUT_SAFETY_DELAY_HOURS"`

	// Default booking policy, applied when an expert has not set one.
	DefaultSlotIntervalMinutes  int `mapstructure:"DEFAULT_SLOT_INTERVAL_MINUTES"`
	DefaultBookingWindowDays    int `mapstructure:"DEFAULT_BOOKING_WINDOW_DAYS"`
	DefaultMinimumNoticeMinutes int `mapstructure:"DEFAULT_MINIMUM_NOTICE_MINUTES"`
	DefaultBeforeBufferMinutes  int `mapstructure:"DEFAULT_BEFORE_BUFFER_MINUTES"`
	DefaultAfterBufferMinutes   int `mapstructure:"DEFAULT_AFTER_BUFFER_MINUTES"`

	// Cron cadences (asynq scheduler specs).
	SweepReservationsCron string `mapstructure:"SWEEP_RESERVATIONS_CRON"`
	SweepTransfersCron    string `mapstructure:"SWEEP_TRANSFERS_CRON"`
	RemindersCron         string `mapstructure:"REMINDERS_CRON"`
}

var AppConfig Config

// recognizedKeys is the closed set of configuration options. Anything else
// in the config file fails startup.
var recognizedKeys = map[string]bool{
	"APP_PORT": true, "DATABASE_URL": true, "ENV": true, "LOG_LEVEL": true,
	"MAX_REQUESTS_PER_MIN": true,
	"REDIS_ADDR":           true, "REDIS_PASSWORD": true, "REDIS_CACHE_DB": true,
	"REDIS_DEDUP_DB": true, "REDIS_QUEUE_DB": true,
	"STRIPE_KEY": true, "STRIPE_WEBHOOK_SECRET": true, "STRIPE_WEBHOOK_SECRET_NEXT": true,
	"FEE_RATE":             true,
	"CHECKOUT_SUCCESS_URL": true, "CHECKOUT_CANCEL_URL": true,
	"GOOGLE_CLIENT_ID": true, "GOOGLE_CLIENT_SECRET": true, "GOOGLE_REDIRECT_URL": true,
	"CALENDAR_WEBHOOK_SECRET": true, "CALENDAR_WEBHOOK_SECRET_NEXT": true,
	"CRON_SECRET":             true,
	"RESERVATION_TTL_MINUTES": true, "VOUCHER_GRACE_MINUTES": true,
	"PAYOUT_DELAY_DAYS": true, "PAYOUT_SAFETY_DELAY_HOURS": true,
	"DEFAULT_SLOT_INTERVAL_MINUTES": true, "DEFAULT_BOOKING_WINDOW_DAYS": true,
	"DEFAULT_MINIMUM_NOTICE_MINUTES": true, "DEFAULT_BEFORE_BUFFER_MINUTES": true,
	"DEFAULT_AFTER_BUFFER_MINUTES": true,
	"SWEEP_RESERVATIONS_CRON":      true, "SWEEP_TRANSFERS_CRON": true, "REMINDERS_CRON": true,
}

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_DEDUP_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("FEE_RATE", 0.15)
	viper.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/booking/confirmed?session_id={CHECKOUT_SESSION_ID}")
	viper.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/booking/cancelled")
	viper.SetDefault("RESERVATION_TTL_MINUTES", 30)
	viper.SetDefault("VOUCHER_GRACE_MINUTES", 4320)
	viper.SetDefault("PAYOUT_DELAY_DAYS", map[string]int{"DEFAULT": 7})
	viper.SetDefault("PAYOUT_SAFETY_DELAY_HOURS", 0)
	viper.SetDefault("DEFAULT_SLOT_INTERVAL_MINUTES", 30)
	viper.SetDefault("DEFAULT_BOOKING_WINDOW_DAYS", 14)
	viper.SetDefault("DEFAULT_MINIMUM_NOTICE_MINUTES", 120)
	viper.SetDefault("DEFAULT_BEFORE_BUFFER_MINUTES", 0)
	viper.SetDefault("DEFAULT_AFTER_BUFFER_MINUTES", 0)
	viper.SetDefault("SWEEP_RESERVATIONS_CRON", "@every 1m")
	viper.SetDefault("SWEEP_TRANSFERS_CRON", "@every 15m")
	viper.SetDefault("REMINDERS_CRON", "@every 10m")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := rejectUnknownKeys(viper.AllSettings()); err != nil {
		log.Printf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if err := AppConfig.Validate(); err != nil {
		log.Printf("Invalid configuration: %v", err)
		os.Exit(1)
	}
}

// rejectUnknownKeys fails on config-file options outside the recognized set.
func rejectUnknownKeys(settings map[string]any) error {
	for key := range settings {
		if !recognizedKeys[strings.ToUpper(key)] {
			return fmt.Errorf("unknown configuration key %q", key)
		}
	}
	return nil
}

// Validate checks option ranges per the recognized-options contract.
func (c Config) Validate() error {
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		return fmt.Errorf("FEE_RATE %v outside [0,1)", c.FeeRate)
	}
	if c.ReservationTTLMinutes <= 0 {
		return fmt.Errorf("RESERVATION_TTL_MINUTES must be positive")
	}
	if c.VoucherGraceMinutes < 0 {
		return fmt.Errorf("VOUCHER_GRACE_MINUTES must not be negative")
	}
	if c.PayoutSafetyDelayHours < 0 {
		return fmt.Errorf("PAYOUT_SAFETY_DELAY_HOURS must not be negative")
	}
	if _, ok := c.PayoutDelayDays["DEFAULT"]; !ok {
		return fmt.Errorf("PAYOUT_DELAY_DAYS must contain a DEFAULT entry")
	}
	for country, days := range c.PayoutDelayDays {
		if days < 0 {
			return fmt.Errorf("PAYOUT_DELAY_DAYS[%s] must not be negative", country)
		}
		if country != "DEFAULT" && len(country) != 2 {
			return fmt.Errorf("PAYOUT_DELAY_DAYS key %q is not an ISO-2 code", country)
		}
	}
	if c.DefaultBookingWindowDays < 1 || c.DefaultBookingWindowDays > 365 {
		return fmt.Errorf("DEFAULT_BOOKING_WINDOW_DAYS %d outside [1,365]", c.DefaultBookingWindowDays)
	}
	switch c.DefaultSlotIntervalMinutes {
	case 5, 10, 15, 20, 30, 45, 60, 90, 120:
	default:
		return fmt.Errorf("DEFAULT_SLOT_INTERVAL_MINUTES %d not in allowed set", c.DefaultSlotIntervalMinutes)
	}
	if c.DefaultMinimumNoticeMinutes < 0 || c.DefaultBeforeBufferMinutes < 0 || c.DefaultAfterBufferMinutes < 0 {
		return fmt.Errorf("default notice and buffers must not be negative")
	}
	return nil
}

// PayoutDelayFor returns the aging days for a country, falling back to DEFAULT.
func (c Config) PayoutDelayFor(country string) int {
	if days, ok := c.PayoutDelayDays[strings.ToUpper(country)]; ok {
		return days
	}
	return c.PayoutDelayDays["DEFAULT"]
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
