package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	httperrors "github.com/dropDatabas3/weasl/internal/http/errors"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
)

// SessionVerifier valida una credencial de sesión y retorna el principal id.
type SessionVerifier interface {
	Verify(token string) (string, error)
}

// PrincipalGetter carga un principal vivo por id.
type PrincipalGetter interface {
	Get(ctx context.Context, id string) (*repository.Principal, error)
}

func bearer(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireSession exige Authorization: Bearer <sesión>. El principal debe
// existir, no estar borrado y pertenecer al tenant del request. Toda falla es
// 401 login-required.
func RequireSession(sessions SessionVerifier, principals PrincipalGetter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.From(ctx)

			tok := bearer(r)
			if tok == "" {
				httperrors.WriteError(w, httperrors.ErrLoginRequired)
				return
			}
			sub, err := sessions.Verify(tok)
			if err != nil {
				log.Debug("session rejected", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrLoginRequired)
				return
			}
			p, err := principals.Get(ctx, sub)
			if err != nil {
				if !repository.IsNotFound(err) {
					log.Error("load session principal failed", logger.PrincipalID(sub), logger.Err(err))
				}
				httperrors.WriteError(w, httperrors.ErrLoginRequired)
				return
			}
			if t := GetTenant(ctx); t != nil && p.TenantID != t.ID {
				log.Debug("session principal from another tenant", logger.PrincipalID(sub))
				httperrors.WriteError(w, httperrors.ErrLoginRequired)
				return
			}

			ctx = WithPrincipal(ctx, p)
			ctx = logger.ToContext(ctx, log.With(logger.PrincipalID(p.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
