// Package server assembles the outreach HTTP application from its configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/outreach/internal/crypto"
	"github.com/iudanet/outreach/internal/server/config"
	"github.com/iudanet/outreach/internal/server/identity"
	"github.com/iudanet/outreach/internal/server/jwt"
	"github.com/iudanet/outreach/internal/server/mailer"
	"github.com/iudanet/outreach/internal/server/metrics"
	"github.com/iudanet/outreach/internal/server/middleware"
	"github.com/iudanet/outreach/internal/server/resumes"
	"github.com/iudanet/outreach/internal/server/revocation"
	"github.com/iudanet/outreach/internal/server/storage/sqldb"
	"github.com/iudanet/outreach/internal/server/web"
)

const revocationPurgeInterval = time.Hour

// Option настраивает App
type Option func(*App)

// WithTransport подменяет SMTP транспорт (тесты, локальная отладка)
func WithTransport(t mailer.Transport) Option {
	return func(a *App) {
		a.transport = t
	}
}

// WithMetrics подменяет метрики
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// App owns every long-lived component of the server and their shutdown order.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *sqldb.Storage
	files      resumes.Store
	revoked    *revocation.Store
	tokens     *jwt.Service
	transport  mailer.Transport
	dispatcher *mailer.Dispatcher
	limiter    *middleware.RateLimiter
	metrics    *metrics.Metrics
	renderer   *web.Renderer
	handler    http.Handler
	version    string
	purgeEvery time.Duration
}

// New opens the stores, starts the mail workers and builds the router.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string, opts ...Option) (_ *App, err error) {
	a := &App{
		cfg:        cfg,
		logger:     logger,
		version:    version,
		purgeEvery: revocationPurgeInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	if a.transport == nil {
		a.transport = mailer.NewSMTPTransport(mailer.SMTPConfig{
			Host:    cfg.Mail.Host,
			Port:    cfg.Mail.Port,
			Timeout: cfg.Mail.Timeout.Duration,
		})
	}

	defer func() {
		if err != nil {
			a.closeStores()
		}
	}()

	a.store, err = OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err = a.store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a.files, err = openResumeStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	if cfg.Auth.RevocationDB != "" {
		a.revoked, err = revocation.Open(cfg.Auth.RevocationDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open revocation store: %w", err)
		}
	}

	a.renderer, err = web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a.tokens = jwt.NewService([]byte(cfg.Auth.SecretKey), cfg.Auth.TokenTTL.Duration)
	proxies, err := middleware.ParseTrustedProxies(cfg.Auth.TrustedProxies)
	if err != nil {
		return nil, err
	}
	a.limiter = middleware.NewRateLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginWindow.Duration,
		middleware.WithTrustedProxies(proxies))

	a.dispatcher = mailer.New(logger, a.transport, a.files, a.store, mailer.Config{
		Workers:   cfg.Mail.Workers,
		QueueSize: cfg.Mail.QueueSize,
		Timeout:   cfg.Mail.Timeout.Duration,
	}, mailer.WithMetrics(a.metrics))

	a.handler = a.routes()

	logger.InfoContext(ctx, "application initialized",
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.Bool("revocation", a.revoked != nil),
		slog.Int("mail_workers", cfg.Mail.Workers),
	)
	return a, nil
}

// OpenStorage opens the database without migrating it. App passwords are
// sealed when secrets.sealing_key is set.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqldb.Storage, error) {
	var opts []sqldb.Option
	if cfg.Secrets.SealingKey != "" {
		key, err := crypto.DeriveSealingKey(cfg.Secrets.SealingKey)
		if err != nil {
			return nil, err
		}
		sealer, err := crypto.NewSealer(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create sealer: %w", err)
		}
		opts = append(opts, sqldb.WithSealer(sealer))
	} else {
		logger.WarnContext(ctx, "secrets.sealing_key is not set, mail app passwords are stored unencrypted")
	}

	store, err := sqldb.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return store, nil
}

func openResumeStore(ctx context.Context, cfg config.StorageConfig) (resumes.Store, error) {
	switch cfg.Backend {
	case config.StorageS3:
		s, err := resumes.NewS3Store(ctx, resumes.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open s3 resume store: %w", err)
		}
		return s, nil
	default:
		s, err := resumes.NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open local resume store: %w", err)
		}
		return s, nil
	}
}

// identityResolver возвращает Resolver; при выключенном отзыве
// проверка не передается вовсе, чтобы не получить typed nil.
func (a *App) identityResolver() *identity.Resolver {
	if a.revoked == nil {
		return identity.NewResolver(a.tokens, nil)
	}
	return identity.NewResolver(a.tokens, a.revoked)
}

// Handler возвращает корневой http.Handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP on cfg.HTTP.Addr until ctx is cancelled, then shuts down
// gracefully: stop accepting requests, drain the mail queue, close stores.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.HTTP.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadTimeout:       a.cfg.HTTP.ReadTimeout.Duration,
		ReadHeaderTimeout: a.cfg.HTTP.ReadTimeout.Duration,
		WriteTimeout:      a.cfg.HTTP.WriteTimeout.Duration,
		ErrorLog:          slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn),
	}

	// очистка должна завершиться до закрытия хранилищ
	purgeCtx, cancelPurge := context.WithCancel(ctx)
	purgeDone := make(chan struct{})
	if a.revoked != nil {
		go func() {
			defer close(purgeDone)
			a.purgeRevoked(purgeCtx, a.revoked)
		}()
	} else {
		close(purgeDone)
	}
	stopPurge := func() {
		cancelPurge()
		<-purgeDone
	}
	defer stopPurge()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			stopPurge()
			a.Close(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout.Duration)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	stopPurge()
	if err := a.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close drains the mail dispatcher and closes the stores.
// Queued jobs are still sent and logged until ctx expires.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mail dispatcher: %w", err))
		}
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var errs []error
	if a.revoked != nil {
		if err := a.revoked.Close(); err != nil {
			errs = append(errs, fmt.Errorf("revocation store: %w", err))
		}
		a.revoked = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
		a.store = nil
	}
	return errors.Join(errs...)
}

// purgeRevoked периодически удаляет истекшие записи об отозванных токенах
func (a *App) purgeRevoked(ctx context.Context, revoked *revocation.Store) {
	ticker := time.NewTicker(a.purgeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := revoked.Purge(ctx)
			if err != nil {
				a.logger.ErrorContext(ctx, "failed to purge revoked tokens", slog.Any("error", err))
				continue
			}
			if n > 0 {
				a.logger.DebugContext(ctx, "purged revoked tokens", slog.Int("count", n))
			}
		}
	}
}
