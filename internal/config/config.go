// Package config loads runtime configuration from the environment and holds
// the moderation constants.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration. Every field can be set through the
// environment variable named in its mapstructure tag.
type Config struct {
	Env         string `mapstructure:"APP_ENV"`
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	DefaultLanguage  string `mapstructure:"DEFAULT_LANGUAGE"`

	RequestExpiry                time.Duration `mapstructure:"REQUEST_EXPIRY"`
	SweepInterval                time.Duration `mapstructure:"SWEEP_INTERVAL"`
	SweepBatchSize               int           `mapstructure:"SWEEP_BATCH_SIZE"`
	DuplicateCheckBothDirections bool          `mapstructure:"DUPLICATE_CHECK_BOTH_DIRECTIONS"`
	RequestMinMessageLength      int           `mapstructure:"REQUEST_MIN_MESSAGE_LENGTH"`
	GreetingTokens               []string      `mapstructure:"GREETING_TOKENS"`
}

var defaults = map[string]any{
	"APP_ENV":                         "development",
	"PORT":                            "8080",
	"DATABASE_URL":                    "host=localhost user=user password=password dbname=zawajdb port=5432 sslmode=disable",
	"FRONTEND_URL":                    "http://localhost:3000",
	"REDIS_ADDR":                      "",
	"REDIS_PASSWORD":                  "",
	"REDIS_DB":                        0,
	"JWT_SECRET":                      "",
	"JWT_TTL":                         "72h",
	"TELEGRAM_BOT_TOKEN":              "",
	"DEFAULT_LANGUAGE":                "ar",
	"REQUEST_EXPIRY":                  "336h",
	"SWEEP_INTERVAL":                  "10m",
	"SWEEP_BATCH_SIZE":                ExpirySweepBatchSize,
	"DUPLICATE_CHECK_BOTH_DIRECTIONS": true,
	"REQUEST_MIN_MESSAGE_LENGTH":      50,
	"GREETING_TOKENS":                 "السلام عليكم,assalamu alaikum,assalamualaikum,as-salamu alaykum,salam",
}

// Load reads the configuration and validates it for the server.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads an optional .env file and then the environment without
// validating. The admin CLI uses it since it never signs tokens.
func Read() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.GreetingTokens = normalizeTokens(cfg.GreetingTokens)
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.RequestExpiry <= 0 {
		return fmt.Errorf("REQUEST_EXPIRY must be positive, got %s", c.RequestExpiry)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.SweepBatchSize <= 0 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be positive, got %d", c.SweepBatchSize)
	}
	if len(c.GreetingTokens) == 0 {
		return fmt.Errorf("GREETING_TOKENS must list at least one greeting")
	}
	return nil
}

// RequestPolicy returns the workflow settings.
func (c *Config) RequestPolicy() RequestPolicy {
	return RequestPolicy{
		Expiry:              c.RequestExpiry,
		CheckBothDirections: c.DuplicateCheckBothDirections,
		MinMessageLength:    c.RequestMinMessageLength,
		GreetingTokens:      c.GreetingTokens,
		SweepBatchSize:      c.SweepBatchSize,
	}
}

// RequestPolicy configures the marriage request workflow.
type RequestPolicy struct {
	Expiry              time.Duration
	CheckBothDirections bool
	MinMessageLength    int
	GreetingTokens      []string
	SweepBatchSize      int
}

// DefaultRequestPolicy mirrors the environment defaults.
func DefaultRequestPolicy() RequestPolicy {
	return RequestPolicy{
		Expiry:              14 * 24 * time.Hour,
		CheckBothDirections: true,
		MinMessageLength:    50,
		GreetingTokens:      normalizeTokens(strings.Split(defaults["GREETING_TOKENS"].(string), ",")),
		SweepBatchSize:      ExpirySweepBatchSize,
	}
}

// viper splits comma separated env values, but a single value may still carry commas.
func normalizeTokens(in []string) []string {
	var out []string
	for _, raw := range in {
		for _, tok := range strings.Split(raw, ",") {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}
