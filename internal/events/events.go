// Package events publica eventos de auditoría del flujo de login
// (token emitido, login exitoso, tenant creado). La publicación es best
// effort: un fallo se loguea y nunca falla el request.
package events

import (
	"context"
	"time"

	"github.com/dropDatabas3/weasl/internal/observability/logger"
)

// Tipos de evento.
const (
	TokenIssued     = "token.issued"
	PrincipalLogin  = "principal.logged_in"
	TenantCreated   = "tenant.created"
	PrincipalDelete = "principal.deleted"
)

// Event es el payload publicado. Nunca incluye el valor del token.
type Event struct {
	Type        string    `json:"type"`
	TenantID    int64     `json:"tenant_id"`
	PrincipalID string    `json:"principal_id,omitempty"`
	Channel     string    `json:"channel,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher publica eventos.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher escribe los eventos en el log estructurado. Es el default
// cuando no hay brokers configurados.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e Event) error {
	logger.From(ctx).Info("audit event",
		logger.String("event", e.Type),
		logger.TenantID(e.TenantID),
		logger.PrincipalID(e.PrincipalID),
		logger.Channel(e.Channel),
	)
	return nil
}

func (LogPublisher) Close() error { return nil }

// Emit publica e y loguea el error si lo hay.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.From(ctx).Warn("event publish failed", logger.String("event", e.Type), logger.Err(err))
	}
}
