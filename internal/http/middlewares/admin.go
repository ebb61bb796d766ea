package middlewares

import (
	"crypto/subtle"
	"net/http"

	httperrors "github.com/dropDatabas3/weasl/internal/http/errors"
	"github.com/dropDatabas3/weasl/internal/principal"
)

// RequireAdminKey protege la superficie de operador. Con key vacía la
// superficie queda deshabilitada.
func RequireAdminKey(key string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(HeaderAdminKey)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				httperrors.WriteError(w, httperrors.ErrInvalidAdminKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AttrIsAdmin es el atributo trusted que marca a un admin de la plataforma.
const AttrIsAdmin = principal.AttrIsAdmin

// RequirePlatformAdmin exige que el principal de la sesión tenga is_admin=true
// como atributo trusted. Va después de RequireSession.
func RequirePlatformAdmin() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if p == nil {
				httperrors.WriteError(w, httperrors.ErrLoginRequired)
				return
			}
			v, ok := principal.TrustedAttribute(p, AttrIsAdmin)
			if !ok {
				httperrors.WriteError(w, httperrors.ErrNotAdmin)
				return
			}
			if b, err := v.Decode(); err != nil || b != true {
				httperrors.WriteError(w, httperrors.ErrNotAdmin)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
