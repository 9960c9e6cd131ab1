package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvConfigPath - переменная с путем к TOML файлу, если не задан -config
const EnvConfigPath = "OUTREACH_CONFIG"

// ErrVersion возвращается Load, когда запрошен вывод версии (-version)
var ErrVersion = errors.New("version requested")

// Load builds the configuration: defaults, then the TOML file (if any),
// then environment variables, then explicitly set flags. The result is validated.
func Load(args []string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	fs, fv := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fv.version {
		return nil, ErrVersion
	}

	path := fv.configPath
	if path == "" {
		path = getenv(EnvConfigPath)
	}
	cfg, err := Resolve(path, getenv)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if apply, ok := fv.setters[f.Name]; ok {
			apply(cfg)
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Resolve applies defaults, the TOML file at path (may be empty) and the
// environment, without flags and validation. Admin tools use it directly.
func Resolve(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := &Config{}
	cfg.LoadDefaults()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile накладывает значения из TOML файла поверх текущих.
// Ключи, отсутствующие в файле, не меняются.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := c.Decode(data); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Decode накладывает TOML документ поверх текущих значений
func (c *Config) Decode(data []byte) error {
	return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(c)
}

type envBinding struct {
	set func(c *Config, v string) error
	key string
}

func str(dst func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func boolean(dst func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

func list(dst func(c *Config) *[]string) func(*Config, string) error {
	return func(c *Config, v string) error {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst(c) = items
		return nil
	}
}

func duration(dst func(c *Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		dst(c).Duration = d
		return nil
	}
}

// порядок важен: OUTREACH_DATABASE_DSN перекрывает DATABASE_URL
var envBindings = []envBinding{
	{key: "OUTREACH_HTTP_ADDR", set: str(func(c *Config) *string { return &c.HTTP.Addr })},
	{key: "OUTREACH_HTTP_READ_TIMEOUT", set: duration(func(c *Config) *Duration { return &c.HTTP.ReadTimeout })},
	{key: "OUTREACH_HTTP_WRITE_TIMEOUT", set: duration(func(c *Config) *Duration { return &c.HTTP.WriteTimeout })},
	{key: "OUTREACH_HTTP_SHUTDOWN_TIMEOUT", set: duration(func(c *Config) *Duration { return &c.HTTP.ShutdownTimeout })},
	{key: "OUTREACH_DATABASE_DRIVER", set: str(func(c *Config) *string { return &c.Database.Driver })},
	{key: "DATABASE_URL", set: str(func(c *Config) *string { return &c.Database.DSN })},
	{key: "OUTREACH_DATABASE_DSN", set: str(func(c *Config) *string { return &c.Database.DSN })},
	{key: "OUTREACH_SECRET_KEY", set: str(func(c *Config) *string { return &c.Auth.SecretKey })},
	{key: "OUTREACH_TOKEN_TTL", set: duration(func(c *Config) *Duration { return &c.Auth.TokenTTL })},
	{key: "OUTREACH_COOKIE_SECURE", set: boolean(func(c *Config) *bool { return &c.Auth.CookieSecure })},
	{key: "OUTREACH_BCRYPT_COST", set: integer(func(c *Config) *int { return &c.Auth.BcryptCost })},
	{key: "OUTREACH_REVOCATION_DB", set: str(func(c *Config) *string { return &c.Auth.RevocationDB })},
	{key: "OUTREACH_LOGIN_RATE", set: integer(func(c *Config) *int { return &c.Auth.LoginRate })},
	{key: "OUTREACH_TRUSTED_PROXIES", set: list(func(c *Config) *[]string { return &c.Auth.TrustedProxies })},
	{key: "OUTREACH_LOGIN_WINDOW", set: duration(func(c *Config) *Duration { return &c.Auth.LoginWindow })},
	{key: "OUTREACH_SEALING_KEY", set: str(func(c *Config) *string { return &c.Secrets.SealingKey })},
	{key: "OUTREACH_STORAGE_BACKEND", set: str(func(c *Config) *string { return &c.Storage.Backend })},
	{key: "OUTREACH_STORAGE_DIR", set: str(func(c *Config) *string { return &c.Storage.Dir })},
	{key: "OUTREACH_S3_BUCKET", set: str(func(c *Config) *string { return &c.Storage.S3Bucket })},
	{key: "OUTREACH_S3_REGION", set: str(func(c *Config) *string { return &c.Storage.S3Region })},
	{key: "OUTREACH_S3_ENDPOINT", set: str(func(c *Config) *string { return &c.Storage.S3Endpoint })},
	{key: "OUTREACH_S3_ACCESS_KEY", set: str(func(c *Config) *string { return &c.Storage.S3AccessKey })},
	{key: "OUTREACH_S3_SECRET_KEY", set: str(func(c *Config) *string { return &c.Storage.S3SecretKey })},
	{key: "OUTREACH_S3_PATH_STYLE", set: boolean(func(c *Config) *bool { return &c.Storage.S3PathStyle })},
	{key: "OUTREACH_MAIL_HOST", set: str(func(c *Config) *string { return &c.Mail.Host })},
	{key: "OUTREACH_MAIL_PORT", set: integer(func(c *Config) *int { return &c.Mail.Port })},
	{key: "OUTREACH_MAIL_TIMEOUT", set: duration(func(c *Config) *Duration { return &c.Mail.Timeout })},
	{key: "OUTREACH_MAIL_WORKERS", set: integer(func(c *Config) *int { return &c.Mail.Workers })},
	{key: "OUTREACH_MAIL_QUEUE_SIZE", set: integer(func(c *Config) *int { return &c.Mail.QueueSize })},
	{key: "OUTREACH_LOG_LEVEL", set: str(func(c *Config) *string { return &c.Log.Level })},
	{key: "OUTREACH_LOG_FORMAT", set: str(func(c *Config) *string { return &c.Log.Format })},
}

// applyEnv применяет непустые переменные окружения. Ошибки разбора собираются все.
func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error
	for _, b := range envBindings {
		v := getenv(b.key)
		if v == "" {
			continue
		}
		if err := b.set(c, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.key, err))
		}
	}
	return errors.Join(errs...)
}

type flagValues struct {
	setters    map[string]func(*Config)
	configPath string
	version    bool
}

// newFlagSet объявляет флаги. Применяются только явно заданные,
// чтобы значение по умолчанию флага не затирало файл и окружение.
func newFlagSet() (*flag.FlagSet, *flagValues) {
	fs := flag.NewFlagSet("outreach-server", flag.ContinueOnError)
	fv := &flagValues{setters: make(map[string]func(*Config))}

	fs.StringVar(&fv.configPath, "config", "", "path to TOML config file (env "+EnvConfigPath+")")
	fs.BoolVar(&fv.version, "version", false, "print version and exit")

	addr := fs.String("addr", "", "HTTP listen address")
	fv.setters["addr"] = func(c *Config) { c.HTTP.Addr = *addr }

	driver := fs.String("db-driver", "", "database driver: sqlite or pgx")
	fv.setters["db-driver"] = func(c *Config) { c.Database.Driver = *driver }

	dsn := fs.String("dsn", "", "database DSN")
	fv.setters["dsn"] = func(c *Config) { c.Database.DSN = *dsn }

	secret := fs.String("secret", "", "JWT signing secret")
	fv.setters["secret"] = func(c *Config) { c.Auth.SecretKey = *secret }

	storageDir := fs.String("storage-dir", "", "directory for uploaded resumes")
	fv.setters["storage-dir"] = func(c *Config) { c.Storage.Dir = *storageDir }

	workers := fs.Int("mail-workers", 0, "number of mail dispatch workers")
	fv.setters["mail-workers"] = func(c *Config) { c.Mail.Workers = *workers }

	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	fv.setters["log-level"] = func(c *Config) { c.Log.Level = *logLevel }

	return fs, fv
}
