package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/email"
	"github.com/dropDatabas3/weasl/internal/events"
	"github.com/dropDatabas3/weasl/internal/metrics"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/principal"
	"github.com/dropDatabas3/weasl/internal/security/token"
	"github.com/dropDatabas3/weasl/internal/tenant"
)

// RequestToken resuelve (o crea) el principal del tenant con ese identificador,
// genera un token del canal y lo envía. Con delivery asíncrono retorna apenas
// el token queda persistido.
func (s *Service) RequestToken(ctx context.Context, t *repository.Tenant, kind repository.TokenKind, value string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.request"),
		logger.Op("RequestToken"),
		logger.TenantID(t.ID),
		logger.Channel(string(kind)),
	)

	id, err := identifierFor(kind, value)
	if err != nil {
		return err
	}
	eng, err := s.engine(kind)
	if err != nil {
		return err
	}

	p, err := s.deps.Principals.GetOrCreate(ctx, t.ID, id)
	if err != nil {
		return err
	}
	log = log.With(logger.PrincipalID(p.ID))

	tok, err := eng.Generate(ctx, p)
	if err != nil {
		return err
	}

	send, err := s.composer(ctx, t, kind, id.Value, tok.Token)
	if err != nil {
		// Sin magic link o template no hay nada que enviar; el token queda
		// pendiente y expira solo.
		log.Error("compose message failed", logger.Err(err))
		metrics.DeliveryResults.WithLabelValues(string(kind), "compose_error").Inc()
		if s.deps.Delivery.Required {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		return nil
	}

	deliver := func(dctx context.Context) error {
		if err := send(dctx); err != nil {
			metrics.DeliveryResults.WithLabelValues(string(kind), diagnose(kind, err)).Inc()
			log.Warn("token delivery failed", logger.Err(err))
			return err
		}
		metrics.DeliveryResults.WithLabelValues(string(kind), "ok").Inc()
		if err := eng.MarkDelivered(dctx, tok); err != nil {
			log.Warn("mark delivered failed", logger.Err(err))
		}
		return nil
	}

	// El envío no depende de la vida del request.
	base := logger.ToContext(context.WithoutCancel(ctx), log)
	if s.deps.Delivery.Required {
		dctx, cancel := context.WithTimeout(base, s.deps.Delivery.Timeout)
		defer cancel()
		if err := deliver(dctx); err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
	} else {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			dctx, cancel := context.WithTimeout(base, s.deps.Delivery.Timeout)
			defer cancel()
			_ = deliver(dctx)
		}()
	}

	events.Emit(ctx, s.deps.Events, events.Event{
		Type:        events.TokenIssued,
		TenantID:    t.ID,
		PrincipalID: p.ID,
		Channel:     string(kind),
		At:          s.deps.Now().UTC(),
	})
	log.Info("token issued", logger.ExpiresAt(tok.ExpiresAt))
	return nil
}

func identifierFor(kind repository.TokenKind, value string) (repository.Identifier, error) {
	switch kind {
	case repository.TokenEmail:
		if strings.TrimSpace(value) == "" {
			return repository.Identifier{}, ErrEmailRequired
		}
		return principal.Email(value)
	case repository.TokenSMS:
		if strings.TrimSpace(value) == "" {
			return repository.Identifier{}, ErrPhoneRequired
		}
		return principal.Phone(value)
	}
	return repository.Identifier{}, ErrUnknownChannel
}

func diagnose(kind repository.TokenKind, err error) string {
	if kind == repository.TokenEmail {
		return email.Diagnose(err)
	}
	return "error"
}

// composer arma el mensaje del canal y retorna la función que lo envía.
func (s *Service) composer(ctx context.Context, t *repository.Tenant, kind repository.TokenKind, to, tok string) (func(context.Context) error, error) {
	switch kind {
	case repository.TokenEmail:
		return s.composeEmail(ctx, t, to, tok)
	case repository.TokenSMS:
		return s.composeSMS(ctx, t, to, tok), nil
	}
	return nil, ErrUnknownChannel
}

func (s *Service) composeEmail(ctx context.Context, t *repository.Tenant, to, tok string) (func(context.Context) error, error) {
	company := s.deps.Tenants.PropertyString(ctx, t.ID, repository.NamespaceNone, tenant.PropCompanyName)

	base := s.deps.Tenants.PropertyString(ctx, t.ID, repository.NamespaceNone, tenant.PropEmailMagicLink)
	if base == "" {
		base = s.deps.BaseSiteURL
	}
	link, err := email.MagicLink(base, tok)
	if err != nil {
		return nil, err
	}
	html, text, err := s.deps.Templates.RenderMagicLink(email.MagicLinkVars{
		CompanyName: company,
		Link:        link,
		TTL:         humanDuration(token.EmailLifetime),
	})
	if err != nil {
		return nil, err
	}
	subject := email.Subject(company)
	return func(dctx context.Context) error {
		return s.deps.Mailer.Send(dctx, to, subject, html, text)
	}, nil
}

func (s *Service) composeSMS(ctx context.Context, t *repository.Tenant, to, tok string) func(context.Context) error {
	prefix := s.deps.Tenants.PropertyString(ctx, t.ID, repository.NamespaceNone, tenant.PropTextLoginMessage)
	body := prefix + ": " + strings.ToUpper(tok)
	return func(dctx context.Context) error {
		return s.deps.Texter.Send(dctx, to, s.deps.SMSFrom, body)
	}
}
