// Package sqldb реализует хранилище на database/sql для SQLite (modernc) и PostgreSQL (pgx).
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// Поддерживаемые драйверы (значение database.driver в конфиге)
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// SecretSealer шифрует app password почты перед записью в БД
type SecretSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Option настраивает Storage
type Option func(*Storage)

// WithSealer включает шифрование gmail_app_password
func WithSealer(sealer SecretSealer) Option {
	return func(s *Storage) {
		s.sealer = sealer
	}
}

// Storage represents SQL storage implementation
type Storage struct {
	db     *sql.DB
	sealer SecretSealer
	driver string
}

// New opens the database, applies connection settings and runs migrations.
// For sqlite use ":memory:" as dsn in tests.
func New(ctx context.Context, driver, dsn string, opts ...Option) (*Storage, error) {
	s, err := Open(ctx, driver, dsn, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Open opens the database without running migrations.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Storage, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	// Открываем соединение с БД
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite с WAL mode может поддерживать несколько читателей, но только одного писателя
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		pragmas := []string{
			"PRAGMA journal_mode = WAL;",
			"PRAGMA synchronous = NORMAL;",
			"PRAGMA foreign_keys = ON;",
			"PRAGMA busy_timeout = 5000;",
		}

		for _, pragma := range pragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to set pragma: %w", err)
			}
		}
	}

	return NewWithDB(db, driver, opts...), nil
}

// NewWithDB wraps an already opened connection (used with sqlmock in tests).
func NewWithDB(db *sql.DB, driver string, opts ...Option) *Storage {
	s := &Storage{db: db, driver: driver}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Migrate выполняет миграции из embedded FS для текущего диалекта
func (s *Storage) Migrate(ctx context.Context) error {
	dialect, dir := "sqlite3", "migrations/sqlite"
	if s.driver == DriverPostgres {
		dialect, dir = "postgres", "migrations/postgres"
	}

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.UpContext(ctx, s.db, dir); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// DB returns the underlying database connection for testing purposes
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность БД (health check)
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind переводит плейсхолдеры "?" в "$n" для PostgreSQL
func (s *Storage) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation распознает нарушение UNIQUE в обоих диалектах
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Storage) seal(v string) (string, error) {
	if s.sealer == nil {
		return v, nil
	}
	return s.sealer.Seal(v)
}

func (s *Storage) open(v string) (string, error) {
	if s.sealer == nil {
		return v, nil
	}
	return s.sealer.Open(v)
}
