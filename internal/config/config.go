package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret         string   `mapstructure:"JWT_SECRET"`
	JWTExpiryHours    int      `mapstructure:"JWT_EXPIRY_HOURS"`
	ClinicTimezone    string   `mapstructure:"CLINIC_TIMEZONE"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int      `mapstructure:"RATE_LIMIT_BURST"`
	SMTPHost          string   `mapstructure:"SMTP_HOST"`
	SMTPPort          string   `mapstructure:"SMTP_PORT"`
	SMTPUser          string   `mapstructure:"SMTP_USER"`
	SMTPPassword      string   `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom          string   `mapstructure:"SMTP_FROM"`
	ReminderInterval  int      `mapstructure:"REMINDER_INTERVAL_MINUTES"`
	ReminderLookahead int      `mapstructure:"REMINDER_LOOKAHEAD_HOURS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("CLINIC_TIMEZONE", "UTC")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("REMINDER_INTERVAL_MINUTES", 60)
	v.SetDefault("REMINDER_LOOKAHEAD_HOURS", 24)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_EXPIRY_HOURS")
	v.BindEnv("CLINIC_TIMEZONE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_USER")
	v.BindEnv("SMTP_PASSWORD")
	v.BindEnv("SMTP_FROM")
	v.BindEnv("REMINDER_INTERVAL_MINUTES")
	v.BindEnv("REMINDER_LOOKAHEAD_HOURS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
		log.Println("WARNING: JWT_SECRET not set; using an insecure development secret.")
		log.Println("WARNING: Set JWT_SECRET and ENV=production before deploying.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ClinicLocation resolves CLINIC_TIMEZONE to a time.Location. Availability
// windows are wall-clock ranges, so booking validation needs a fixed zone to
// derive day-of-week and minute-of-day from request instants.
func (c *Config) ClinicLocation() (*time.Location, error) {
	if c.ClinicTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run. Outside development
// a real JWT secret is mandatory; there is no anonymous mode.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV is %q", c.Env)
	}
	if c.JWTExpiryHours <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive, got %d", c.JWTExpiryHours)
	}
	if c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL_MINUTES must be positive, got %d", c.ReminderInterval)
	}
	if c.ReminderLookahead <= 0 {
		return fmt.Errorf("REMINDER_LOOKAHEAD_HOURS must be positive, got %d", c.ReminderLookahead)
	}
	if _, err := c.ClinicLocation(); err != nil {
		return err
	}
	return nil
}
