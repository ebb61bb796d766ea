package middlewares

import (
	"strings"

	"github.com/go-chi/cors"
)

// Headers propios de la API.
const (
	HeaderClientID     = "X-Weasl-Client-Id"
	HeaderClientSecret = "X-Weasl-Client-Secret"
	HeaderAdminKey     = "X-Weasl-Admin-Key"
)

// WithCORS habilita CORS para el widget. Sin orígenes configurados se acepta
// cualquiera (sin credenciales: la sesión viaja en Authorization).
func WithCORS(allowed []string) Middleware {
	origins := make([]string, 0, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			HeaderRequestID, HeaderClientID, HeaderClientSecret,
		},
		ExposedHeaders:   []string{HeaderRequestID, "Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           600,
	})
}
