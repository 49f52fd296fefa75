package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Service  Service
	Log      Log
	HTTP     HTTPServer
	Database Database `envPrefix:"DATABASE_"`
	Auth     Auth     `envPrefix:"AUTH_"`
	Checkout Checkout `envPrefix:"CHECKOUT_"`
	Stripe   Stripe   `envPrefix:"STRIPE_"`
	PubSub   PubSub   `envPrefix:"PUBSUB_"`
}

type Service struct {
	Name string `env:"SERVICE_NAME" envDefault:"shop"`
	Env  string `env:"ENV" envDefault:"dev"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	File  string `env:"LOG_FILE"`
}

type HTTPServer struct {
	Host            string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func (h HTTPServer) Addr() string { return h.Host + ":" + h.Port }

type Database struct {
	// Driver is "sqlite" or "memory".
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:shop.db?_busy_timeout=5000"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Checkout struct {
	ShippingFee            int64 `env:"SHIPPING_FEE" envDefault:"30000"`
	AllowUnclaimedVouchers bool  `env:"ALLOW_UNCLAIMED_VOUCHERS" envDefault:"false"`
}

type Stripe struct {
	APIKey        string `env:"API_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	SuccessURL    string `env:"SUCCESS_URL" envDefault:"http://localhost:3000/checkout/success"`
	CancelURL     string `env:"CANCEL_URL" envDefault:"http://localhost:3000/checkout/cancel"`
	Currency      string `env:"CURRENCY" envDefault:"vnd"`
}

// Enabled reports whether online payments are configured.
func (s Stripe) Enabled() bool { return s.APIKey != "" }

type PubSub struct {
	ProjectID string `env:"PROJECT_ID"`
	Topic     string `env:"TOPIC" envDefault:"notifications"`
}

func (p PubSub) Enabled() bool { return p.ProjectID != "" }

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	if c.Checkout.ShippingFee < 0 {
		return errors.New("config: CHECKOUT_SHIPPING_FEE must not be negative")
	}
	if c.Stripe.Enabled() && c.Stripe.WebhookSecret == "" {
		return errors.New("config: STRIPE_WEBHOOK_SECRET is required when STRIPE_API_KEY is set")
	}
	return nil
}
