package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultVerificationSecret is the placeholder written to new config files.
// It is rejected while email verification is enabled.
const DefaultVerificationSecret = "change-me"

// ErrWeakVerificationSecret is returned by Validate when verification codes
// would be signed with an empty or placeholder secret.
var ErrWeakVerificationSecret = errors.New("verification secret must be set to a private value when email is enabled")

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	StaticDir         string        `mapstructure:"static_dir" yaml:"static_dir"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies" yaml:"trusted_proxies"`

	TLS       TLSConfig       `mapstructure:"tls" yaml:"tls"`
	Limits    Limits          `mapstructure:"limits" yaml:"limits"`
	Accounts  Accounts        `mapstructure:"accounts" yaml:"accounts"`
	Email     EmailConfig     `mapstructure:"email" yaml:"email"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// TLSConfig enables an HTTPS listener. When enabled, Addr serves redirects only.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr     string `mapstructure:"addr" yaml:"addr"`
	CertFile string `mapstructure:"cert_file" yaml:"cert_file"`
	KeyFile  string `mapstructure:"key_file" yaml:"key_file"`
}

// Limits caps the byte length of user supplied text.
type Limits struct {
	Nick    int `mapstructure:"nick" yaml:"nick"`
	Message int `mapstructure:"message" yaml:"message"`
}

// Accounts configures identity handling.
type Accounts struct {
	DefaultAccessLevel int           `mapstructure:"default_access_level" yaml:"default_access_level"`
	MaxNickAttempts    int           `mapstructure:"max_nick_attempts" yaml:"max_nick_attempts"`
	MinPasswordLength  int           `mapstructure:"min_password_length" yaml:"min_password_length"`
	VerificationSecret string        `mapstructure:"verification_secret" yaml:"verification_secret"`
	VerificationTTL    time.Duration `mapstructure:"verification_ttl" yaml:"verification_ttl"`
}

// EmailConfig controls email verification of registrations.
type EmailConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	SMTPAddr string        `mapstructure:"smtp_addr" yaml:"smtp_addr"`
	From     string        `mapstructure:"from" yaml:"from"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// RateLimitConfig bounds inbound events per connection. Zero disables limiting.
type RateLimitConfig struct {
	EventsPerSecond float64 `mapstructure:"events_per_second" yaml:"events_per_second"`
	Burst           int     `mapstructure:"burst" yaml:"burst"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "presence-hub.db",
		LogLevel:          "info",
		LogFormat:         "console",
		TLS: TLSConfig{
			Addr: ":8443",
		},
		Limits: Limits{
			Nick:    32,
			Message: 2048,
		},
		Accounts: Accounts{
			DefaultAccessLevel: 3,
			MaxNickAttempts:    8,
			MinPasswordLength:  6,
			VerificationSecret: DefaultVerificationSecret,
			VerificationTTL:    24 * time.Hour,
		},
		Email: EmailConfig{
			Timeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			EventsPerSecond: 5,
			Burst:           10,
		},
	}
}

// VerifyEnabled reports whether registrations require email verification.
func (c *Config) VerifyEnabled() bool {
	return c.Email.Enabled
}

// Validate rejects configurations that are unsafe to serve.
func (c *Config) Validate() error {
	if c.VerifyEnabled() {
		secret := strings.TrimSpace(c.Accounts.VerificationSecret)
		if secret == "" || secret == DefaultVerificationSecret {
			return fmt.Errorf("accounts.verification_secret: %w", ErrWeakVerificationSecret)
		}
	}
	return nil
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.StaticDir != "" {
		c.StaticDir = other.StaticDir
	}
	if other.TLS.Enabled {
		c.TLS.Enabled = true
	}
	if other.TLS.Addr != "" {
		c.TLS.Addr = other.TLS.Addr
	}
	if other.TLS.CertFile != "" {
		c.TLS.CertFile = other.TLS.CertFile
	}
	if other.TLS.KeyFile != "" {
		c.TLS.KeyFile = other.TLS.KeyFile
	}
}
