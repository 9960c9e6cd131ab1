// Package config handles configuration for the server component:
// defaults, TOML file overlay, environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Поддерживаемые значения
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds runtime settings of the outreach server.
// Built once at startup and passed explicitly; nothing reads globals.
type Config struct {
	HTTP     HTTPConfig     `toml:"http"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Secrets  SecretsConfig  `toml:"secrets"`
	Storage  StorageConfig  `toml:"storage"`
	Mail     MailConfig     `toml:"mail"`
	Log      LogConfig      `toml:"log"`
}

// HTTPConfig - параметры HTTP сервера
type HTTPConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// DatabaseConfig - подключение к БД
type DatabaseConfig struct {
	Driver string `toml:"driver"` // sqlite | pgx
	DSN    string `toml:"dsn"`
}

// AuthConfig - сессии и пароли
type AuthConfig struct {
	// адреса (IP или CIDR) обратных прокси, которым доверяется X-Forwarded-For
	TrustedProxies []string `toml:"trusted_proxies"`

	SecretKey    string   `toml:"secret_key"`
	RevocationDB string   `toml:"revocation_db"` // пусто - отзыв токенов выключен
	TokenTTL     Duration `toml:"token_ttl"`
	LoginWindow  Duration `toml:"login_window"`
	BcryptCost   int      `toml:"bcrypt_cost"`
	LoginRate    int      `toml:"login_rate"`
	CookieSecure bool     `toml:"cookie_secure"`
}

// SecretsConfig - ключ шифрования app password в БД
type SecretsConfig struct {
	SealingKey string `toml:"sealing_key"` // пусто - хранить как есть
}

// StorageConfig - хранилище резюме
type StorageConfig struct {
	Backend     string `toml:"backend"` // local | s3
	Dir         string `toml:"dir"`
	S3Bucket    string `toml:"s3_bucket"`
	S3Region    string `toml:"s3_region"`
	S3Endpoint  string `toml:"s3_endpoint"`
	S3AccessKey string `toml:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key"`
	S3PathStyle bool   `toml:"s3_path_style"`
}

// MailConfig - SMTP релей и пул воркеров
type MailConfig struct {
	Host      string   `toml:"host"`
	Timeout   Duration `toml:"timeout"`
	Port      int      `toml:"port"`
	Workers   int      `toml:"workers"`
	QueueSize int      `toml:"queue_size"`
}

// LogConfig - уровень и формат логов
type LogConfig struct {
	Level  string `toml:"level"`  // debug | info | warn | error
	Format string `toml:"format"` // json | text
}

// LoadDefaults populates Config with development defaults.
// SecretKey остается пустым и должен быть задан явно.
func (c *Config) LoadDefaults() {
	c.HTTP = HTTPConfig{
		Addr:            ":8080",
		ReadTimeout:     Duration{15 * time.Second},
		WriteTimeout:    Duration{30 * time.Second},
		ShutdownTimeout: Duration{30 * time.Second},
	}
	c.Database = DatabaseConfig{
		Driver: DriverSQLite,
		DSN:    "outreach.db",
	}
	c.Auth = AuthConfig{
		TokenTTL:    Duration{300 * time.Minute},
		BcryptCost:  bcrypt.DefaultCost,
		LoginRate:   10,
		LoginWindow: Duration{time.Minute},
	}
	c.Storage = StorageConfig{
		Backend:  StorageLocal,
		Dir:      "uploads",
		S3Region: "us-east-1",
	}
	c.Mail = MailConfig{
		Host:      "smtp.gmail.com",
		Port:      465,
		Timeout:   Duration{30 * time.Second},
		Workers:   2,
		QueueSize: 64,
	}
	c.Log = LogConfig{
		Level:  "info",
		Format: "json",
	}
}

// Validate проверяет конфигурацию и возвращает все найденные ошибки сразу
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.HTTP.Addr == "" {
		add("http.addr is required")
	}
	if c.HTTP.ShutdownTimeout.Duration <= 0 {
		add("http.shutdown_timeout must be positive")
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		add("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		add("database.dsn is required")
	}

	if len(c.Auth.SecretKey) < 16 {
		add("auth.secret_key must be at least 16 bytes")
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		add("auth.token_ttl must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		add("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.LoginRate <= 0 || c.Auth.LoginWindow.Duration <= 0 {
		add("auth.login_rate and auth.login_window must be positive")
	}
	for _, p := range c.Auth.TrustedProxies {
		if !validProxy(p) {
			add("auth.trusted_proxies: invalid address %q", p)
		}
	}

	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.Dir == "" {
			add("storage.dir is required for the local backend")
		}
	case StorageS3:
		if c.Storage.S3Bucket == "" || c.Storage.S3Region == "" {
			add("storage.s3_bucket and storage.s3_region are required for the s3 backend")
		}
	default:
		add("storage.backend must be %q or %q, got %q", StorageLocal, StorageS3, c.Storage.Backend)
	}

	if c.Mail.Host == "" {
		add("mail.host is required")
	}
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		add("mail.port must be between 1 and 65535")
	}
	if c.Mail.Timeout.Duration <= 0 {
		add("mail.timeout must be positive")
	}
	if c.Mail.Workers <= 0 || c.Mail.QueueSize <= 0 {
		add("mail.workers and mail.queue_size must be positive")
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		add("log.format must be json or text, got %q", c.Log.Format)
	}

	return errors.Join(errs...)
}

func validProxy(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}
