// Package config loads the storefront settings from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	MongoURI      string `mapstructure:"MONGODB_URI"`
	MongoDatabase string `mapstructure:"MONGODB_DATABASE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTExpire       time.Duration `mapstructure:"JWT_EXPIRE"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`

	FrontendURL string `mapstructure:"FRONTEND_URL"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	ReviewAutoApprove bool   `mapstructure:"REVIEW_AUTO_APPROVE"`
	UploadDir         string `mapstructure:"UPLOAD_DIR"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	ShippingFlatRate      string `mapstructure:"SHIPPING_FLAT_RATE"`
	FreeShippingThreshold string `mapstructure:"FREE_SHIPPING_THRESHOLD"`
	TaxRate               string `mapstructure:"TAX_RATE"`
	Currency              string `mapstructure:"CURRENCY"`

	ReceiptSecret string `mapstructure:"RECEIPT_SECRET"`
}

var defaults = map[string]any{
	"APP_ENV":                 "development",
	"PORT":                    "5000",
	"MONGODB_URI":             "mongodb://localhost:27017",
	"MONGODB_DATABASE":        "trendaryo",
	"REDIS_ADDR":              "localhost:6379",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"JWT_SECRET":              "",
	"JWT_EXPIRE":              "24h",
	"REFRESH_TOKEN_TTL":       "720h",
	"FRONTEND_URL":            "http://localhost:3000",
	"CORS_ORIGINS":            "",
	"REVIEW_AUTO_APPROVE":     false,
	"UPLOAD_DIR":              "./static/uploads",
	"RATE_LIMIT_RPS":          10,
	"RATE_LIMIT_BURST":        20,
	"SHIPPING_FLAT_RATE":      "5.99",
	"FREE_SHIPPING_THRESHOLD": "50",
	"TAX_RATE":                "0.08",
	"CURRENCY":                "USD",
	"RECEIPT_SECRET":          "",
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found; using system environment")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.Production() {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		c.JWTSecret = "dev-only-secret"
		log.Warn().Msg("JWT_SECRET not set; using an insecure development secret")
	}
	if c.ReceiptSecret == "" {
		c.ReceiptSecret = c.JWTSecret
	}
	for name, v := range map[string]string{
		"SHIPPING_FLAT_RATE":      c.ShippingFlatRate,
		"FREE_SHIPPING_THRESHOLD": c.FreeShippingThreshold,
		"TAX_RATE":                c.TaxRate,
	} {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("%s must be a non-negative decimal, got %q", name, v)
		}
	}
	if c.JWTExpire <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("JWT_EXPIRE and REFRESH_TOKEN_TTL must be positive durations")
	}
	return nil
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

// Addr is the listen address derived from PORT.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// Origins lists the allowed CORS origins; the frontend URL is always allowed.
func (c *Config) Origins() []string {
	origins := []string{c.FrontendURL}
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Money returns the pricing amounts. validate guarantees they parse.
func (c *Config) Money() (flat, freeOver, taxRate decimal.Decimal) {
	return decimal.RequireFromString(c.ShippingFlatRate),
		decimal.RequireFromString(c.FreeShippingThreshold),
		decimal.RequireFromString(c.TaxRate)
}
