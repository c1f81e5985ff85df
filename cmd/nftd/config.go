package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for nftd.
type Config struct {
	Addr           string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	RateLimit      int           `envconfig:"RATE_LIMIT" default:"60"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// TrustCallerHeader takes X-Caller-Address at face value instead of
	// verifying a request signature. Enable only behind an authenticating proxy.
	TrustCallerHeader bool          `envconfig:"TRUST_CALLER_HEADER" default:"false"`
	SignatureMaxAge   time.Duration `envconfig:"SIGNATURE_MAX_AGE" default:"5m"`

	Name     string   `envconfig:"NAME" default:"Warrior"`
	Symbol   string   `envconfig:"SYMBOL" default:"WARRIOR"`
	BaseURI  string   `envconfig:"BASE_URI" default:"warrior/"`
	Deployer string   `envconfig:"DEPLOYER" required:"true"`
	Minters  []string `envconfig:"MINTERS"`

	AuditBackend   string `envconfig:"AUDIT_BACKEND" default:"memory"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisStream    string `envconfig:"REDIS_STREAM" default:"nftkit:audit"`
	RedisStreamMax int64  `envconfig:"REDIS_STREAM_MAXLEN" default:"100000"`
}

// LoadConfig reads NFTD_* environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("nftd", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !common.IsHexAddress(c.Deployer) || common.HexToAddress(c.Deployer) == (common.Address{}) {
		return errors.New("deployer must be a non-zero hex address")
	}
	for _, m := range c.Minters {
		if !common.IsHexAddress(m) {
			return errors.New("minter " + m + " is not a hex address")
		}
	}
	switch c.AuditBackend {
	case "memory", "redis":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database url must be provided for the postgres audit backend")
		}
	default:
		return errors.New("unknown audit backend " + c.AuditBackend)
	}
	if c.RateLimit <= 0 {
		return errors.New("rate limit must be positive")
	}
	if !c.TrustCallerHeader && c.SignatureMaxAge <= 0 {
		return errors.New("signature max age must be positive")
	}
	return nil
}

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
