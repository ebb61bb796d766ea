// Package tokens implementa el ciclo de vida de tokens de un solo uso:
// generación con reintento ante colisión, marca de entrega y consumo atómico
// con scope de tenant. Un Engine sirve a un único namespace (email o sms).
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/metrics"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/security/token"
)

var (
	// ErrRejected es el único resultado de un consume fallido: valor inexistente,
	// de otro tenant, vencido o ya consumido son indistinguibles.
	ErrRejected = errors.New("token rejected")

	// ErrMalformed indica que el valor no cumple el formato del namespace. Se
	// detecta antes de tocar el storage.
	ErrMalformed = token.ErrMalformed
)

// Deps agrupa las dependencias del Engine.
type Deps struct {
	Tokens     repository.AuthTokenRepository
	Principals repository.PrincipalRepository
	// Now es el reloj; nil usa time.Now.
	Now func() time.Time
}

// Engine es el state machine de tokens de un namespace.
type Engine struct {
	ns         token.Namespace
	tokens     repository.AuthTokenRepository
	principals repository.PrincipalRepository
	now        func() time.Time
}

// NewEngine crea un Engine para ns.
func NewEngine(ns token.Namespace, deps Deps) *Engine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{ns: ns, tokens: deps.Tokens, principals: deps.Principals, now: now}
}

// Kind retorna el namespace del Engine.
func (e *Engine) Kind() repository.TokenKind { return e.ns.Kind() }

// Normalize aplica la regla de comparación del namespace.
func (e *Engine) Normalize(value string) string { return e.ns.Normalize(value) }

// Validate normaliza y chequea el formato. Retorna ErrMalformed.
func (e *Engine) Validate(value string) error {
	return e.ns.Validate(e.ns.Normalize(value))
}

// Generate crea un token activo y no entregado para p. Las colisiones (probe
// positivo o conflicto en el insert) se resuelven sorteando de nuevo, sin
// límite de intentos; solo se corta por error del storage o cancelación.
func (e *Engine) Generate(ctx context.Context, p *repository.Principal) (*repository.AuthToken, error) {
	log := logger.From(ctx).With(
		logger.Layer("tokens"),
		logger.Op("Generate"),
		logger.Channel(string(e.ns.Kind())),
		logger.PrincipalID(p.ID),
	)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate, err := e.ns.Candidate()
		if err != nil {
			return nil, fmt.Errorf("tokens: draw candidate: %w", err)
		}

		taken, err := e.tokens.ActiveExists(ctx, e.ns.Kind(), candidate)
		if err != nil {
			return nil, fmt.Errorf("tokens: probe: %w", err)
		}
		if taken {
			metrics.TokenCollisions.WithLabelValues(string(e.ns.Kind())).Inc()
			log.Debug("token collision on probe, redrawing", logger.Attempt(attempt))
			continue
		}

		now := e.now().UTC()
		t := &repository.AuthToken{
			Kind:        e.ns.Kind(),
			Token:       candidate,
			PrincipalID: p.ID,
			TenantID:    p.TenantID,
			CreatedAt:   now,
			ExpiresAt:   now.Add(e.ns.Lifetime()),
			Active:      true,
			Delivered:   false,
		}
		if err := e.tokens.Insert(ctx, t); err != nil {
			if repository.IsConflict(err) {
				metrics.TokenCollisions.WithLabelValues(string(e.ns.Kind())).Inc()
				log.Debug("token collision on insert, redrawing", logger.Attempt(attempt))
				continue
			}
			return nil, fmt.Errorf("tokens: insert: %w", err)
		}

		metrics.TokensIssued.WithLabelValues(string(e.ns.Kind())).Inc()
		log.Debug("token generated", logger.ExpiresAt(t.ExpiresAt), logger.Attempt(attempt))
		return t, nil
	}
}

// MarkDelivered registra que el notifier confirmó el envío. Es informativo:
// un fallo acá no invalida el token.
func (e *Engine) MarkDelivered(ctx context.Context, t *repository.AuthToken) error {
	if err := e.tokens.MarkDelivered(ctx, e.ns.Kind(), t.Token, t.PrincipalID); err != nil {
		return fmt.Errorf("tokens: mark delivered: %w", err)
	}
	t.Delivered = true
	return nil
}

// Consume valida el formato, desactiva atómicamente el token si pertenece a
// tenantID, está activo y no venció, y retorna su principal. Cualquier otro
// caso retorna ErrRejected.
func (e *Engine) Consume(ctx context.Context, value string, tenantID int64) (*repository.Principal, error) {
	channel := string(e.ns.Kind())
	log := logger.From(ctx).With(
		logger.Layer("tokens"),
		logger.Op("Consume"),
		logger.Channel(channel),
		logger.TenantID(tenantID),
	)

	normalized := e.ns.Normalize(value)
	if err := e.ns.Validate(normalized); err != nil {
		metrics.TokensConsumed.WithLabelValues(channel, "malformed").Inc()
		return nil, ErrMalformed
	}

	principalID, err := e.tokens.Consume(ctx, e.ns.Kind(), normalized, tenantID, e.now().UTC())
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.TokensConsumed.WithLabelValues(channel, "rejected").Inc()
			log.Debug("token rejected", logger.Token(normalized))
			return nil, ErrRejected
		}
		return nil, fmt.Errorf("tokens: consume: %w", err)
	}

	p, err := e.principals.GetByID(ctx, principalID)
	if err != nil {
		// El token se consumió pero el principal ya no existe (soft delete).
		if repository.IsNotFound(err) {
			metrics.TokensConsumed.WithLabelValues(channel, "rejected").Inc()
			log.Warn("token consumed for missing principal", logger.PrincipalID(principalID))
			return nil, ErrRejected
		}
		return nil, fmt.Errorf("tokens: load principal: %w", err)
	}

	metrics.TokensConsumed.WithLabelValues(channel, "ok").Inc()
	return p, nil
}

// List retorna tokens del tenant (más recientes primero) para el listado de
// logins recientes.
func (e *Engine) List(ctx context.Context, tenantID int64, page repository.Page) ([]repository.AuthToken, int, error) {
	list, total, err := e.tokens.ListByTenant(ctx, e.ns.Kind(), tenantID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("tokens: list: %w", err)
	}
	return list, total, nil
}
