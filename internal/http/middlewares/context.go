package middlewares

import (
	"context"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
)

type ctxKey string

const (
	ctxTenantKey    ctxKey = "tenant"
	ctxTrustedKey   ctxKey = "trusted"
	ctxPrincipalKey ctxKey = "principal"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithTenant inyecta el tenant resuelto del request.
func WithTenant(ctx context.Context, t *repository.Tenant) context.Context {
	return context.WithValue(ctx, ctxTenantKey, t)
}

// GetTenant retorna el tenant del request o nil.
func GetTenant(ctx context.Context) *repository.Tenant {
	t, _ := ctx.Value(ctxTenantKey).(*repository.Tenant)
	return t
}

// MustGetTenant es GetTenant para rutas que siempre pasan por el middleware de tenant.
func MustGetTenant(ctx context.Context) *repository.Tenant {
	t := GetTenant(ctx)
	if t == nil {
		panic("middlewares: no tenant in context")
	}
	return t
}

// WithTrusted marca el request como autenticado con el client secret del tenant.
func WithTrusted(ctx context.Context, trusted bool) context.Context {
	return context.WithValue(ctx, ctxTrustedKey, trusted)
}

// IsTrusted indica si el request presentó el client secret del tenant.
func IsTrusted(ctx context.Context) bool {
	v, _ := ctx.Value(ctxTrustedKey).(bool)
	return v
}

// WithPrincipal inyecta el principal de la sesión.
func WithPrincipal(ctx context.Context, p *repository.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

// GetPrincipal retorna el principal autenticado o nil.
func GetPrincipal(ctx context.Context) *repository.Principal {
	p, _ := ctx.Value(ctxPrincipalKey).(*repository.Principal)
	return p
}

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

// GetRequestID retorna el request id o "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestIDKey).(string)
	return v
}
