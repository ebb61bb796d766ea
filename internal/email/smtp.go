// Package email compone y envía el email de login (magic link) por SMTP.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/weasl/internal/observability/logger"
)

// Notifier envía un email con cuerpo HTML y alternativa en texto plano.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SMTPConfig configura el SMTPSender.
type SMTPConfig struct {
	Host               string
	Port               int
	From               string
	Username           string
	Password           string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

// SMTPSender implementa Notifier usando go-mail.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender crea un SMTPSender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) dialer(ctx context.Context) *mail.Dialer {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify, // solo dev
	}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		// auto: STARTTLS si el server lo ofrece
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 {
			d.Timeout = left
		}
	}
	return d
}

// Send envía el mensaje. Respeta la cancelación de ctx antes de conectar y
// usa su deadline como timeout de la conexión.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	log := logger.From(ctx).With(
		logger.Component("SMTPSender"),
		logger.String("host", s.cfg.Host),
		logger.Email(to),
	)
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
		if htmlBody != "" {
			m.AddAlternative("text/html", htmlBody)
		}
	} else {
		m.SetBody("text/html", htmlBody)
	}

	if err := s.dialer(ctx).DialAndSend(m); err != nil {
		log.Error("smtp send failed", logger.String("diag", Diagnose(err)), logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Debug("email sent")
	return nil
}

// LogSender es el Notifier usado cuando no hay SMTP configurado: solo loguea.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	logger.From(ctx).Info("email delivery disabled, not sending",
		logger.Component("LogSender"), logger.Email(to), logger.String("subject", subject))
	return nil
}
