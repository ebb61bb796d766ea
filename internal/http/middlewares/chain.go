// Package middlewares contiene los decoradores HTTP del servicio: resolución de
// tenant, sesión, rate limit y la infraestructura común (request id, logging,
// recover, headers).
package middlewares

import "net/http"

// Middleware es un decorador de http.Handler. Es compatible con chi.Router.Use.
type Middleware func(http.Handler) http.Handler

// Funcs adapta la lista al tipo que espera chi (r.Use, r.With).
func Funcs(mws ...Middleware) []func(http.Handler) http.Handler {
	out := make([]func(http.Handler) http.Handler, 0, len(mws))
	for _, m := range mws {
		out = append(out, m)
	}
	return out
}
