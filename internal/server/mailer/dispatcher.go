// Package mailer отправляет резюме в фоне и записывает результат каждой попытки.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/outreach/internal/models"
	"github.com/iudanet/outreach/internal/server/metrics"
	"github.com/iudanet/outreach/internal/server/resumes"
)

var (
	// ErrQueueFull - очередь заполнена, задание не принято
	ErrQueueFull = errors.New("mail queue is full")
	// ErrClosed - диспетчер остановлен
	ErrClosed = errors.New("mail dispatcher is closed")
)

// Параметры по умолчанию
const (
	DefaultWorkers     = 2
	DefaultQueueSize   = 64
	DefaultTimeout     = 30 * time.Second
	recordWriteTimeout = 5 * time.Second
)

// Transport передает готовое письмо почтовому серверу
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// AttachmentReader читает содержимое резюме по ключу
type AttachmentReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// Recorder пишет результат попытки в журнал отправок
type Recorder interface {
	RecordDispatch(ctx context.Context, outcome *models.DispatchOutcome) error
}

// Config - параметры пула воркеров
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Option настраивает Dispatcher
type Option func(*Dispatcher)

// WithMetrics подключает метрики
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithClock подменяет источник времени для меток попыток
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// Dispatcher принимает задания в ограниченную очередь и обрабатывает их
// фиксированным пулом воркеров. Каждая попытка завершается ровно одной
// записью в журнал, успешной или нет.
type Dispatcher struct {
	logger    *slog.Logger
	transport Transport
	files     AttachmentReader
	recorder  Recorder
	metrics   *metrics.Metrics
	now       func() time.Time
	jobs      chan Job
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	timeout   time.Duration
	mu        sync.RWMutex
	closed    bool
}

// New создает диспетчер и запускает воркеры
func New(logger *slog.Logger, transport Transport, files AttachmentReader, recorder Recorder, cfg Config, opts ...Option) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		logger:    logger,
		transport: transport,
		files:     files,
		recorder:  recorder,
		now:       time.Now,
		jobs:      make(chan Job, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		timeout:   cfg.Timeout,
	}
	for _, opt := range opts {
		opt(d)
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	return d
}

// Submit ставит задание в очередь, не блокируясь
func (d *Dispatcher) Submit(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.RejectDispatch("closed")
		return ErrClosed
	}

	select {
	case d.jobs <- job:
		d.metrics.SetQueueDepth(len(d.jobs))
		return nil
	default:
		d.metrics.RejectDispatch("queue_full")
		return ErrQueueFull
	}
}

// Pending возвращает число заданий в очереди
func (d *Dispatcher) Pending() int {
	return len(d.jobs)
}

// Close перестает принимать задания и дожидается обработки очереди.
// Если ctx истекает раньше, текущие отправки прерываются; их результат
// все равно записывается.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return fmt.Errorf("mail queue drain interrupted: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for job := range d.jobs {
		d.metrics.SetQueueDepth(len(d.jobs))
		d.Dispatch(d.ctx, job)
	}

	d.logger.Debug("mail worker stopped", slog.Int("worker", id))
}

// Dispatch выполняет одну попытку отправки и записывает ее результат.
// Запись в журнал происходит после того, как попытка завершилась.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) models.DispatchOutcome {
	start := d.now()

	err := d.attempt(ctx, job)

	outcome := models.DispatchOutcome{
		UserID:    job.UserID,
		CompanyID: job.CompanyID,
		Timestamp: d.now(),
		Succeeded: err == nil,
	}

	attrs := []any{
		slog.Int64("user_id", job.UserID),
		slog.Int64("company_id", job.CompanyID),
		slog.String("recipient", job.Recipient),
	}
	if err != nil {
		d.logger.WarnContext(ctx, "mail dispatch failed", append(attrs, slog.Any("error", err))...)
	} else {
		d.logger.InfoContext(ctx, "mail dispatched", attrs...)
	}

	// Журнал пишется даже если ctx уже отменен
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordWriteTimeout)
	defer cancel()

	if rerr := d.recorder.RecordDispatch(recCtx, &outcome); rerr != nil {
		d.metrics.LogWriteFailed()
		d.logger.ErrorContext(ctx, "failed to record mail dispatch",
			append(attrs, slog.Bool("succeeded", outcome.Succeeded), slog.Any("error", rerr))...)
	}

	d.metrics.ObserveDispatch(outcome.Succeeded, d.now().Sub(start))

	return outcome
}

// attempt - чтение вложения, сборка письма и отправка. Паника считается неудачей.
func (d *Dispatcher) attempt(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mail dispatch panicked: %v", r)
		}
	}()

	data, err := d.files.Read(ctx, job.ResumeKey)
	if err != nil {
		return fmt.Errorf("failed to read attachment: %w", err)
	}

	msg := BuildMessage(job, data, resumes.DisplayName(job.ResumeName, job.ResumeKey))

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.transport.Send(sendCtx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}
