// Package sms envía el código de login por SMS usando la API REST de Twilio
// (o cualquier proveedor compatible).
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/weasl/internal/observability/logger"
)

// DefaultAPIBase es el host de la API de Twilio.
const DefaultAPIBase = "https://api.twilio.com"

// ErrRejected indica que el proveedor rechazó el mensaje (4xx).
var ErrRejected = errors.New("sms: message rejected by provider")

// Notifier envía un SMS.
type Notifier interface {
	Send(ctx context.Context, to, from, body string) error
}

// Config configura el TwilioSender.
type Config struct {
	APIBase    string
	AccountSID string
	AuthToken  string
	Timeout    time.Duration
}

// TwilioSender implementa Notifier sobre la API Messages de Twilio.
type TwilioSender struct {
	cfg  Config
	http *http.Client
}

// NewTwilioSender crea un TwilioSender.
func NewTwilioSender(cfg Config) *TwilioSender {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &TwilioSender{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *TwilioSender) endpoint() string {
	return strings.TrimRight(s.cfg.APIBase, "/") +
		"/2010-04-01/Accounts/" + url.PathEscape(s.cfg.AccountSID) + "/Messages.json"
}

// Send publica el mensaje. 4xx → ErrRejected; 5xx o red → error genérico.
func (s *TwilioSender) Send(ctx context.Context, to, from, body string) error {
	log := logger.From(ctx).With(logger.Component("TwilioSender"), logger.Phone(to))

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		log.Error("sms send failed", logger.Err(err))
		return fmt.Errorf("sms: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.Debug("sms sent")
		return nil
	}

	var apiErr apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
	log.Error("sms provider error",
		logger.Status(resp.StatusCode),
		logger.Int("provider_code", apiErr.Code),
		logger.String("provider_message", apiErr.Message))

	if resp.StatusCode/100 == 4 {
		return fmt.Errorf("%w: status %d code %d", ErrRejected, resp.StatusCode, apiErr.Code)
	}
	return fmt.Errorf("sms: provider status %d", resp.StatusCode)
}

// LogSender es el Notifier usado cuando no hay proveedor configurado.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, from, body string) error {
	logger.From(ctx).Info("sms delivery disabled, not sending",
		logger.Component("LogSender"), logger.Phone(to))
	return nil
}
