package middlewares

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	httperrors "github.com/dropDatabas3/weasl/internal/http/errors"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
	"github.com/dropDatabas3/weasl/internal/tenant"
)

// TenantResolver es lo que los middlewares necesitan del TenantRegistry.
type TenantResolver interface {
	Resolve(ctx context.Context, clientID string) (*repository.Tenant, error)
	ResolveBySecret(ctx context.Context, clientSecret string) (*repository.Tenant, error)
}

var _ TenantResolver = (*tenant.Registry)(nil)

func secretMatches(t *repository.Tenant, secret string) bool {
	return secret != "" && subtle.ConstantTimeCompare([]byte(t.ClientSecret), []byte(secret)) == 1
}

// withTenantLogger agrega el tenant al logger scoped del request.
func withTenantLogger(r *http.Request, t *repository.Tenant) *http.Request {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.TenantID(t.ID), logger.ClientID(t.ClientID))
	return r.WithContext(logger.ToContext(WithTenant(ctx, t), log))
}

// RequireClientID resuelve el tenant por X-Weasl-Client-Id. Si además viene un
// X-Weasl-Client-Secret correcto, el request queda marcado como trusted; un
// secret incorrecto no falla, solo no eleva la confianza.
func RequireClientID(reg TenantResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := strings.TrimSpace(r.Header.Get(HeaderClientID))
			if cid == "" {
				httperrors.WriteError(w, httperrors.ErrClientIDRequired)
				return
			}
			t, err := reg.Resolve(r.Context(), cid)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					httperrors.WriteError(w, httperrors.ErrInvalidClientID.WithDetail(cid))
					return
				}
				logger.From(r.Context()).Error("tenant resolve failed", logger.ClientID(cid), logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
				return
			}
			r = withTenantLogger(r, t)
			trusted := secretMatches(t, r.Header.Get(HeaderClientSecret))
			next.ServeHTTP(w, r.WithContext(WithTrusted(r.Context(), trusted)))
		})
	}
}

// RequireClientSecret resuelve el tenant por X-Weasl-Client-Secret, para
// llamadas server-to-server. Si ya hay un tenant en el contexto (por client id)
// el secret debe ser el de ese tenant.
func RequireClientSecret(reg TenantResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := strings.TrimSpace(r.Header.Get(HeaderClientSecret))
			if secret == "" {
				httperrors.WriteError(w, httperrors.ErrClientSecretReq)
				return
			}
			if t := GetTenant(r.Context()); t != nil {
				if !secretMatches(t, secret) {
					httperrors.WriteError(w, httperrors.ErrInvalidClientSecret)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithTrusted(r.Context(), true)))
				return
			}
			t, err := reg.ResolveBySecret(r.Context(), secret)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					httperrors.WriteError(w, httperrors.ErrInvalidClientSecret)
					return
				}
				logger.From(r.Context()).Error("tenant resolve by secret failed", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
				return
			}
			r = withTenantLogger(r, t)
			next.ServeHTTP(w, r.WithContext(WithTrusted(r.Context(), true)))
		})
	}
}

// WithPlatformTenant fija el tenant de la plataforma (cuyos principals
// administran tenants). Sin platform client id configurado responde 503.
func WithPlatformTenant(reg TenantResolver, clientID string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if clientID == "" {
				httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("platform client id not configured"))
				return
			}
			t, err := reg.Resolve(r.Context(), clientID)
			if err != nil {
				logger.From(r.Context()).Error("platform tenant resolve failed", logger.ClientID(clientID), logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
				return
			}
			next.ServeHTTP(w, withTenantLogger(r, t))
		})
	}
}
