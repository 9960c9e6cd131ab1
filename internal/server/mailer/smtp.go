package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// Адрес почтового релея по умолчанию (неявный TLS)
const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 465
)

// SMTPConfig - параметры подключения к релею
type SMTPConfig struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// SMTPTransport подключается, аутентифицируется учетными данными отправителя
// и отправляет письмо за один вызов Send.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport создает транспорт
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Host == "" {
		cfg.Host = DefaultSMTPHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultSMTPPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &SMTPTransport{cfg: cfg}
}

// Send отправляет письмо через SMTP over TLS с PLAIN аутентификацией
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	m, err := buildMailMsg(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(t.cfg.Host,
		mail.WithPort(t.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(msg.From),
		mail.WithPassword(msg.Secret),
		mail.WithTimeout(t.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// buildMailMsg собирает MIME письмо: текстовая часть и одно вложение
func buildMailMsg(msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if msg.AttachmentName != "" {
		m.AttachReadSeeker(msg.AttachmentName, bytes.NewReader(msg.Attachment))
	}

	return m, nil
}
