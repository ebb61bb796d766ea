// Package auth implementa el flujo de login passwordless: pedir un token
// (email o SMS), canjearlo por una sesión, o iniciar sesión con un token de
// Google.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/email"
	"github.com/dropDatabas3/weasl/internal/events"
	jwtx "github.com/dropDatabas3/weasl/internal/jwt"
	"github.com/dropDatabas3/weasl/internal/oauth/google"
	"github.com/dropDatabas3/weasl/internal/principal"
	"github.com/dropDatabas3/weasl/internal/sms"
	"github.com/dropDatabas3/weasl/internal/tenant"
	"github.com/dropDatabas3/weasl/internal/tokens"
)

// Errores del facade. Los de validación de identificadores vienen de
// principal (ErrInvalidEmail, ErrInvalidPhone).
var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPhoneRequired    = errors.New("phone number is required")
	ErrTokenRequired    = errors.New("token is required")
	ErrRejected         = tokens.ErrRejected
	ErrMalformed        = tokens.ErrMalformed
	ErrEmailNotVerified = errors.New("email not verified by identity provider")
	ErrUpstream         = errors.New("identity provider failed")
	ErrDelivery         = errors.New("token delivery failed")
	ErrUnknownChannel   = errors.New("unknown channel")
)

// UserInfoProvider resuelve la identidad de un token externo.
type UserInfoProvider interface {
	FetchUserInfo(ctx context.Context, accessToken string) (*google.UserInfo, error)
}

// DeliveryConfig controla el envío de tokens.
type DeliveryConfig struct {
	// Timeout del notifier, independiente del request.
	Timeout time.Duration
	// Required=true envía en línea y falla el request si el envío falla.
	Required bool
}

// Deps contiene las dependencias del Service.
type Deps struct {
	Tenants    *tenant.Registry
	Principals *principal.Store
	EmailToken *tokens.Engine
	SMSToken   *tokens.Engine
	Sessions   *jwtx.Issuer

	Mailer    email.Notifier
	Templates *email.Templates
	Texter    sms.Notifier
	Google    UserInfoProvider
	Events    events.Publisher

	Delivery    DeliveryConfig
	BaseSiteURL string
	SMSFrom     string
	Now         func() time.Time
}

// Service es el AuthFacade.
type Service struct {
	deps     Deps
	inflight sync.WaitGroup
}

// NewService crea el Service.
func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Delivery.Timeout <= 0 {
		d.Delivery.Timeout = 10 * time.Second
	}
	if d.Events == nil {
		d.Events = events.LogPublisher{}
	}
	return &Service{deps: d}
}

// Wait bloquea hasta que terminen los envíos en curso. Se usa en el shutdown.
func (s *Service) Wait() { s.inflight.Wait() }

func (s *Service) engine(kind repository.TokenKind) (*tokens.Engine, error) {
	switch kind {
	case repository.TokenEmail:
		return s.deps.EmailToken, nil
	case repository.TokenSMS:
		return s.deps.SMSToken, nil
	}
	return nil, ErrUnknownChannel
}
