package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	UploadDir      string   `mapstructure:"UPLOAD_DIR"`

	// Chat notification secrets. Both must be set to enable the bot.
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `mapstructure:"TELEGRAM_CHAT_ID"`

	// Booking rules
	DailyCap        int    `mapstructure:"DAILY_CAP"`
	SlotStepMinutes int    `mapstructure:"SLOT_STEP_MINUTES"`
	MorningWindow   string `mapstructure:"MORNING_WINDOW"`
	AfternoonWindow string `mapstructure:"AFTERNOON_WINDOW"`
	StrictBooking   bool   `mapstructure:"STRICT_BOOKING"`
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
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("DAILY_CAP", 10)
	v.SetDefault("SLOT_STEP_MINUTES", 20)
	v.SetDefault("MORNING_WINDOW", "08:00-13:00")
	v.SetDefault("AFTERNOON_WINDOW", "16:00-20:00")
	v.SetDefault("STRICT_BOOKING", true)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("UPLOAD_DIR")
	v.BindEnv("TELEGRAM_BOT_TOKEN")
	v.BindEnv("TELEGRAM_CHAT_ID")
	v.BindEnv("DAILY_CAP")
	v.BindEnv("SLOT_STEP_MINUTES")
	v.BindEnv("MORNING_WINDOW")
	v.BindEnv("AFTERNOON_WINDOW")
	v.BindEnv("STRICT_BOOKING")

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

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// TelegramEnabled reports whether both chat credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.DailyCap <= 0 {
		return fmt.Errorf("DAILY_CAP must be positive, got %d", c.DailyCap)
	}
	if c.SlotStepMinutes <= 0 {
		return fmt.Errorf("SLOT_STEP_MINUTES must be positive, got %d", c.SlotStepMinutes)
	}
	for _, w := range []struct{ name, val string }{
		{"MORNING_WINDOW", c.MorningWindow},
		{"AFTERNOON_WINDOW", c.AfternoonWindow},
	} {
		if _, _, err := ParseWindow(w.val); err != nil {
			return fmt.Errorf("%s: %w", w.name, err)
		}
	}
	// Telegram credentials travel together; half a configuration is a
	// deployment mistake worth refusing.
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must both be set or both be empty")
	}
	return nil
}

// ParseWindow splits a "HH:MM-HH:MM" range into its two endpoints.
func ParseWindow(s string) (start, end string, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid window %q: expected HH:MM-HH:MM", s)
	}
	for _, p := range parts {
		if len(p) != 5 || p[2] != ':' {
			return "", "", fmt.Errorf("invalid window %q: expected HH:MM-HH:MM", s)
		}
	}
	return parts[0], parts[1], nil
}
