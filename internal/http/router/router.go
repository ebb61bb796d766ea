// Package router arma el árbol de rutas chi del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	adminctl "github.com/dropDatabas3/weasl/internal/http/controllers/admin"
	"github.com/dropDatabas3/weasl/internal/http/controllers/health"
	orgsctl "github.com/dropDatabas3/weasl/internal/http/controllers/orgs"
	"github.com/dropDatabas3/weasl/internal/http/controllers/widget"
	httperrors "github.com/dropDatabas3/weasl/internal/http/errors"
	mw "github.com/dropDatabas3/weasl/internal/http/middlewares"
	"github.com/dropDatabas3/weasl/internal/rate"
)

// Deps contiene controllers y dependencias de los middlewares.
type Deps struct {
	Widget *widget.Controller
	Orgs   *orgsctl.Controller
	Admin  *adminctl.Controller
	Health *health.Controller

	Tenants    mw.TenantResolver
	Sessions   mw.SessionVerifier
	Principals mw.PrincipalGetter

	// Limiter aplica a los endpoints de envío y canje de tokens. nil deshabilita.
	Limiter          rate.Limiter
	CORSOrigins      []string
	PlatformClientID string
	AdminKey         string

	// Metrics es el handler de /metrics (promhttp). nil no lo expone.
	Metrics http.Handler
}

// New retorna el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.Funcs(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithMetrics(),
		mw.WithSecurityHeaders(),
	)...)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	r.Get("/healthz", d.Health.Healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	cors := mw.WithCORS(d.CORSOrigins)
	send := mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.Limiter, Scope: "send"})
	verify := mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.Limiter, Scope: "verify"})
	session := mw.RequireSession(d.Sessions, d.Principals)
	platform := mw.WithPlatformTenant(d.Tenants, d.PlatformClientID)

	r.Route("/widget", func(wr chi.Router) {
		wr.Use(mw.Funcs(cors, mw.WithNoStore(), mw.RequireClientID(d.Tenants))...)

		wr.Get("/org", d.Widget.Org)
		wr.With(send).Post("/email/send", d.Widget.SendEmail)
		wr.With(verify).Get("/email/verify", d.Widget.VerifyEmail)
		wr.With(verify).Post("/email/verify", d.Widget.VerifyEmail)
		wr.With(send).Post("/sms/send", d.Widget.SendSMS)
		wr.With(verify).Post("/sms/verify", d.Widget.VerifySMS)
		wr.With(verify).Post("/google/verify", d.Widget.VerifyGoogle)

		wr.Group(func(g chi.Router) {
			g.Use(session)
			g.Get("/me", d.Widget.Me)
			g.Post("/attributes/{name}", d.Widget.SetAttribute)
		})
	})

	r.Route("/orgs", func(or chi.Router) {
		or.Use(mw.Funcs(cors, mw.WithNoStore(), platform, session)...)

		or.Get("/me", d.Orgs.Me)
		or.Put("/theme/{name}", d.Orgs.Theme)
		or.Put("/settings/{name}", d.Orgs.Settings)
		or.With(mw.RequirePlatformAdmin()).Put("/{tenant_id}/gates/{name}", d.Orgs.Gate)
	})

	r.Route("/end_users", func(er chi.Router) {
		er.Use(mw.Funcs(cors, mw.WithNoStore())...)

		er.With(mw.RequireClientSecret(d.Tenants)).Post("/{id}/attributes/{name}", d.Orgs.SetTrustedAttribute)

		er.Group(func(g chi.Router) {
			g.Use(mw.Funcs(platform, session)...)
			g.Get("/", d.Orgs.ListEndUsers)
			g.Get("/email-logins", d.Orgs.EmailLogins)
			g.Get("/sms-logins", d.Orgs.SMSLogins)
			g.Get("/{id}", d.Orgs.GetEndUser)
			g.Delete("/{id}", d.Orgs.DeleteEndUser)
		})
	})

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(mw.Funcs(mw.WithNoStore(), mw.RequireAdminKey(d.AdminKey))...)

		ar.Post("/tenants", d.Admin.CreateTenant)
		ar.Get("/tenants/{client_id}", d.Admin.GetTenant)
		ar.Put("/tenants/{client_id}/properties/{namespace}/{name}", d.Admin.SetProperty)
	})

	return r
}
