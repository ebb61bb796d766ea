package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/events"
	jwtx "github.com/dropDatabas3/weasl/internal/jwt"
	"github.com/dropDatabas3/weasl/internal/metrics"
	"github.com/dropDatabas3/weasl/internal/oauth/google"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/principal"
)

// VerifyToken canjea un token del canal por una sesión. Toda falla de canje
// (inexistente, de otro tenant, vencido, ya usado) es ErrRejected; un valor con
// formato inválido es ErrMalformed.
func (s *Service) VerifyToken(ctx context.Context, t *repository.Tenant, kind repository.TokenKind, value string) (*jwtx.SessionCredential, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.verify"),
		logger.Op("VerifyToken"),
		logger.TenantID(t.ID),
		logger.Channel(string(kind)),
	)
	if strings.TrimSpace(value) == "" {
		return nil, ErrTokenRequired
	}
	eng, err := s.engine(kind)
	if err != nil {
		return nil, err
	}

	p, err := eng.Consume(ctx, value, t.ID)
	if err != nil {
		return nil, err
	}
	log = log.With(logger.PrincipalID(p.ID))
	return s.login(logger.ToContext(ctx, log), t, p, string(kind))
}

// VerifyFederated inicia sesión con un access token de Google. El email debe
// venir verificado por el proveedor.
func (s *Service) VerifyFederated(ctx context.Context, t *repository.Tenant, externalToken string) (*jwtx.SessionCredential, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.verify"),
		logger.Op("VerifyFederated"),
		logger.TenantID(t.ID),
	)
	if strings.TrimSpace(externalToken) == "" {
		return nil, ErrTokenRequired
	}

	info, err := s.deps.Google.FetchUserInfo(ctx, externalToken)
	if err != nil {
		if errors.Is(err, google.ErrInvalidToken) {
			return nil, ErrRejected
		}
		log.Warn("identity provider failed", logger.Err(err))
		return nil, ErrUpstream
	}
	if !info.Verified() {
		return nil, ErrEmailNotVerified
	}
	id, err := principal.Email(info.Email)
	if err != nil {
		log.Warn("identity provider returned unusable email", logger.Err(err))
		return nil, ErrUpstream
	}

	p, err := s.deps.Principals.GetOrCreate(ctx, t.ID, id)
	if err != nil {
		return nil, err
	}
	return s.login(logger.ToContext(ctx, log.With(logger.PrincipalID(p.ID))), t, p, "google")
}

func (s *Service) login(ctx context.Context, t *repository.Tenant, p *repository.Principal, method string) (*jwtx.SessionCredential, error) {
	log := logger.From(ctx)

	if err := s.deps.Principals.RecordLogin(ctx, p.ID, s.deps.Now()); err != nil {
		log.Warn("record login failed", logger.Err(err))
	}
	cred, err := s.deps.Sessions.Issue(p.ID)
	if err != nil {
		return nil, err
	}
	metrics.SessionsIssued.WithLabelValues(method).Inc()
	events.Emit(ctx, s.deps.Events, events.Event{
		Type:        events.PrincipalLogin,
		TenantID:    t.ID,
		PrincipalID: p.ID,
		Channel:     method,
		At:          s.deps.Now().UTC(),
	})
	log.Info("principal logged in")
	return cred, nil
}
