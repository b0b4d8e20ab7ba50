package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Session SessionConfig `mapstructure:"session"`
	OIDC    OIDCConfig    `mapstructure:"oidc"`
	Log     LogConfig     `mapstructure:"log"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
	Email   EmailConfig   `mapstructure:"email"`
	Outbox  OutboxConfig  `mapstructure:"outbox"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"base_url"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
type DBConfig struct {
	Driver string `mapstructure:"driver"` // "mysql" or "sqlite3"
	DSN    string `mapstructure:"dsn"`
}

// SessionConfig holds admin session configuration. The CSRF key is derived
// from SecretKey.
type SessionConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Lifetime  int    `mapstructure:"lifetime"` // hours
}

// OIDCConfig holds OIDC client configuration. Single sign-on is disabled
// when IssuerURL is empty.
type OIDCConfig struct {
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"` // defaults to base_url + /auth/callback
}

// Enabled reports whether an OIDC provider is configured.
func (c OIDCConfig) Enabled() bool {
	return c.IssuerURL != ""
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// CacheConfig holds the SQLite read cache configuration.
type CacheConfig struct {
	FilePath string `mapstructure:"file_path"`
}

// StorageConfig holds object storage configuration for uploaded files.
type StorageConfig struct {
	Driver        string `mapstructure:"driver"` // "local" or "remote"
	Dir           string `mapstructure:"dir"`
	PublicURL     string `mapstructure:"public_url"`
	RemoteURL     string `mapstructure:"remote_url"`
	ServiceKey    string `mapstructure:"service_key"`
	MaxImageWidth int    `mapstructure:"max_image_width"`
	MaxUploadMB   int64  `mapstructure:"max_upload_mb"`
}

// EmailConfig holds transactional email configuration.
type EmailConfig struct {
	Provider string   `mapstructure:"provider"` // "resend" or "noop"
	APIKey   string   `mapstructure:"api_key"`
	From     string   `mapstructure:"from"`
	NotifyTo []string `mapstructure:"notify_to"`
}

// OutboxConfig controls the notification outbox dispatcher.
type OutboxConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A local .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/valour-site/")
	v.AddConfigPath("$HOME/.valour-site")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	v.SetEnvPrefix("VALOUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// Recipient lists from the environment are comma separated.
	cfg.Email.NotifyTo = splitList(strings.Join(cfg.Email.NotifyTo, ","))
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("session.secret_key", "")
	v.SetDefault("oidc.issuer_url", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("storage.remote_url", "")
	v.SetDefault("storage.service_key", "")
	v.SetDefault("email.api_key", "")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "valour.db")
	v.SetDefault("session.lifetime", 12)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.file_path", "cache.db")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.dir", "uploads")
	v.SetDefault("storage.public_url", "/uploads")
	v.SetDefault("storage.max_image_width", 1600)
	v.SetDefault("storage.max_upload_mb", 20)
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.from", "Vision & Valour <noreply@visionandvalour.ca>")
	v.SetDefault("email.notify_to", []string{"exec.director@visionandvalour.ca"})
	v.SetDefault("outbox.enabled", true)
	v.SetDefault("outbox.interval", "1m")
	v.SetDefault("outbox.max_attempts", 8)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
