// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	PublicBaseURL  string        `yaml:"public_base_url"` // externally reachable base, used for back/notification URLs
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // host:port or redis:// URL; empty disables redis features
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.URL) != "" }

type MercadoPagoConfig struct {
	AccessToken   string        `yaml:"access_token"`
	BaseURL       string        `yaml:"base_url"`
	Sandbox       bool          `yaml:"sandbox"`
	WebhookSecret string        `yaml:"webhook_secret"` // empty disables signature checks
	Timeout       time.Duration `yaml:"timeout"`
}

type BackURLsConfig struct {
	Success string `yaml:"success"`
	Failure string `yaml:"failure"`
	Pending string `yaml:"pending"`
}

type PaymentConfig struct {
	Provider            string            `yaml:"provider"` // mercadopago | noop
	Currency            string            `yaml:"currency"`
	PreferenceTTL       time.Duration     `yaml:"preference_ttl"`
	FallbackEmailDomain string            `yaml:"fallback_email_domain"`
	NotificationURL     string            `yaml:"notification_url"`
	BackURLs            BackURLsConfig    `yaml:"back_urls"`
	MercadoPago         MercadoPagoConfig `yaml:"mercadopago"`
}

type AppConfig struct {
	DeepLinkScheme string `yaml:"deep_link_scheme"`
}

type APIConfig struct {
	StatusRateLimit  int           `yaml:"status_rate_limit"` // requests per window per client; 0 disables
	StatusRateWindow time.Duration `yaml:"status_rate_window"`
	WebhookLockTTL   time.Duration `yaml:"webhook_lock_ttl"`
}

type ReconcilerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval"`
	StaleAfter  time.Duration `yaml:"stale_after"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `yaml:"concurrency"` // provider lookups in flight per pass
}

type AdminConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DebugConfig struct {
	// LatestPendingFallback lets a status check without identifiers resolve to the most
	// recent pending payment. Only safe when a single payment is in flight.
	LatestPendingFallback bool `yaml:"latest_pending_fallback"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Payment    PaymentConfig    `yaml:"payment"`
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Admin      AdminConfig      `yaml:"admin"`
	Debug      DebugConfig      `yaml:"debug"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays secrets from the environment
// (a .env file next to the working directory is loaded first when present),
// applies defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfig is LoadConfig without validation, for tools that only need part of it.
func ReadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies environment overrides and defaults. It does not validate.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Payment.MercadoPago.AccessToken, "MERCADOPAGO_ACCESS_TOKEN")
	override(&cfg.Payment.MercadoPago.WebhookSecret, "MERCADOPAGO_WEBHOOK_SECRET")
	override(&cfg.Admin.JWTSecret, "ADMIN_JWT_SECRET")
	override(&cfg.Server.PublicBaseURL, "PUBLIC_BASE_URL")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 20 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	p := &cfg.Payment
	if p.Provider == "" {
		p.Provider = "mercadopago"
	}
	if p.Currency == "" {
		p.Currency = "ARS"
	}
	if p.PreferenceTTL <= 0 {
		p.PreferenceTTL = 30 * time.Minute
	}
	if p.FallbackEmailDomain == "" {
		p.FallbackEmailDomain = "users.noreply.invalid"
	}
	if p.MercadoPago.BaseURL == "" {
		p.MercadoPago.BaseURL = "https://api.mercadopago.com"
	}
	if p.MercadoPago.Timeout <= 0 {
		p.MercadoPago.Timeout = 15 * time.Second
	}
	base := strings.TrimRight(cfg.Server.PublicBaseURL, "/")
	if base != "" {
		if p.NotificationURL == "" {
			p.NotificationURL = base + "/webhook/mercadopago"
		}
		if p.BackURLs.Success == "" {
			p.BackURLs.Success = base + "/payments/success"
		}
		if p.BackURLs.Failure == "" {
			p.BackURLs.Failure = base + "/payments/failure"
		}
		if p.BackURLs.Pending == "" {
			p.BackURLs.Pending = base + "/payments/pending"
		}
	}

	if cfg.App.DeepLinkScheme == "" {
		cfg.App.DeepLinkScheme = "inmobiliaria"
	}
	if cfg.API.StatusRateWindow <= 0 {
		cfg.API.StatusRateWindow = time.Minute
	}
	if cfg.API.WebhookLockTTL <= 0 {
		cfg.API.WebhookLockTTL = 30 * time.Second
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 10 * time.Minute
	}
	if cfg.Reconciler.BatchSize <= 0 {
		cfg.Reconciler.BatchSize = 200
	}
	if cfg.Reconciler.Concurrency <= 0 {
		cfg.Reconciler.Concurrency = 4
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 30 * time.Minute
	}
}

// Validate fails fast on settings the process cannot run without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	switch c.Payment.Provider {
	case "mercadopago":
		if c.Payment.MercadoPago.AccessToken == "" {
			return errors.New("payment.mercadopago.access_token is required")
		}
	case "noop":
		if !c.Runtime.Dev {
			return errors.New("payment.provider noop is only allowed in dev mode")
		}
	default:
		return fmt.Errorf("unknown payment.provider %q", c.Payment.Provider)
	}
	if c.Payment.NotificationURL == "" {
		return errors.New("payment.notification_url or server.public_base_url is required")
	}
	for name, u := range map[string]string{
		"payment.notification_url":  c.Payment.NotificationURL,
		"payment.back_urls.success": c.Payment.BackURLs.Success,
		"payment.back_urls.failure": c.Payment.BackURLs.Failure,
		"payment.back_urls.pending": c.Payment.BackURLs.Pending,
	} {
		if _, err := url.ParseRequestURI(u); err != nil {
			return fmt.Errorf("%s: invalid url %q", name, u)
		}
	}
	if c.Admin.JWTSecret != "" && len(c.Admin.JWTSecret) < 32 {
		return errors.New("admin.jwt_secret must be at least 32 bytes")
	}
	if c.Debug.LatestPendingFallback && !c.Runtime.Dev {
		return errors.New("debug.latest_pending_fallback is only allowed in dev mode")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
