package repository

import (
	"context"
	"time"
)

// TokenKind identifica el namespace (y la tabla) de un AuthToken.
type TokenKind string

const (
	TokenEmail TokenKind = "email"
	TokenSMS   TokenKind = "sms"
)

// AuthToken es una credencial de un solo uso entregada fuera de banda.
// La clave primaria es (Token, PrincipalID).
type AuthToken struct {
	Kind        TokenKind
	Token       string
	PrincipalID string
	TenantID    int64
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Active      bool
	Delivered   bool
}

// AuthTokenRepository persiste tokens. Los valores llegan ya normalizados por
// el namespace; el storage compara por igualdad exacta.
type AuthTokenRepository interface {
	// ActiveExists indica si hay un token activo con ese valor en el namespace.
	ActiveExists(ctx context.Context, kind TokenKind, token string) (bool, error)

	// Insert crea el token. Retorna ErrConflict si el valor ya está activo.
	Insert(ctx context.Context, t *AuthToken) error

	// MarkDelivered setea delivered=true. Retorna ErrNotFound si no existe.
	MarkDelivered(ctx context.Context, kind TokenKind, token, principalID string) error

	// Consume desactiva atómicamente el token que matchee valor, tenant,
	// active=true y expires_at > now, y retorna el principal asociado.
	// Retorna ErrNotFound si ninguna fila matchea.
	Consume(ctx context.Context, kind TokenKind, token string, tenantID int64, now time.Time) (principalID string, err error)

	// ListByTenant retorna los tokens del tenant, más recientes primero, y el total.
	ListByTenant(ctx context.Context, kind TokenKind, tenantID int64, page Page) ([]AuthToken, int, error)
}
