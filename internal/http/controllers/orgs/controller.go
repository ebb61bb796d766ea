// Package orgs contiene los endpoints de administración de tenants para los
// principals de la plataforma (/orgs y /end_users).
package orgs

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/http/dto"
	"github.com/dropDatabas3/weasl/internal/http/helpers"
	mw "github.com/dropDatabas3/weasl/internal/http/middlewares"
	orgsvc "github.com/dropDatabas3/weasl/internal/http/services/orgs"
)

// Controller maneja /orgs/* y /end_users/*. Corre después de RequireSession
// sobre el tenant de la plataforma.
type Controller struct {
	svc *orgsvc.Service
}

func NewController(svc *orgsvc.Service) *Controller {
	return &Controller{svc: svc}
}

// respondTenant responde con la vista privada del tenant.
func (c *Controller) respondTenant(w http.ResponseWriter, r *http.Request, t *repository.Tenant) {
	props, err := c.svc.Properties(r.Context(), t.ID)
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.Data(w, http.StatusOK, dto.TenantFrom(t, props, true))
}

// adminTenant resuelve el tenant del admin de la sesión. Escribe el error si falla.
func (c *Controller) adminTenant(w http.ResponseWriter, r *http.Request) (*repository.Tenant, bool) {
	t, err := c.svc.AdministeredTenant(r.Context(), mw.GetPrincipal(r.Context()))
	if err != nil {
		helpers.Fail(w, r, err)
		return nil, false
	}
	return t, true
}

// Me maneja GET /orgs/me. Crea el tenant del admin en la primera llamada.
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	t, err := c.svc.MyTenant(r.Context(), mw.GetPrincipal(r.Context()))
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	c.respondTenant(w, r, t)
}

// Theme maneja PUT /orgs/theme/{name}.
func (c *Controller) Theme(w http.ResponseWriter, r *http.Request) {
	c.setProperty(w, r, repository.NamespaceTheme)
}

// Settings maneja PUT /orgs/settings/{name}.
func (c *Controller) Settings(w http.ResponseWriter, r *http.Request) {
	c.setProperty(w, r, repository.NamespaceSettings)
}

func (c *Controller) setProperty(w http.ResponseWriter, r *http.Request, ns repository.PropertyNamespace) {
	var req dto.ValueRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	t, ok := c.adminTenant(w, r)
	if !ok {
		return
	}
	if err := c.svc.SetProperty(r.Context(), t.ID, ns, chi.URLParam(r, "name"), req.Type, req.Value); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	c.respondTenant(w, r, t)
}

// Gate maneja PUT /orgs/{tenant_id}/gates/{name}. Requiere RequirePlatformAdmin.
func (c *Controller) Gate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tenant_id"), 10, 64)
	if err != nil {
		helpers.Fail(w, r, orgsvc.ErrNoTenant)
		return
	}
	var req dto.ValueRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	if err := c.svc.SetGate(r.Context(), id, chi.URLParam(r, "name"), req.Value); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	t, err := c.svc.Tenant(r.Context(), id)
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	c.respondTenant(w, r, t)
}

// ListEndUsers maneja GET /end_users?page&per_page.
func (c *Controller) ListEndUsers(w http.ResponseWriter, r *http.Request) {
	t, ok := c.adminTenant(w, r)
	if !ok {
		return
	}
	page := helpers.PageFromQuery(r)
	list, total, err := c.svc.ListEndUsers(r.Context(), t.ID, page)
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.List(w, r, dto.EndUsersFrom(list), page, total)
}

// GetEndUser maneja GET /end_users/{id}.
func (c *Controller) GetEndUser(w http.ResponseWriter, r *http.Request) {
	t, ok := c.adminTenant(w, r)
	if !ok {
		return
	}
	p, err := c.svc.GetEndUser(r.Context(), t.ID, chi.URLParam(r, "id"))
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.Data(w, http.StatusOK, dto.EndUserFrom(p))
}

// DeleteEndUser maneja DELETE /end_users/{id}.
func (c *Controller) DeleteEndUser(w http.ResponseWriter, r *http.Request) {
	t, ok := c.adminTenant(w, r)
	if !ok {
		return
	}
	if err := c.svc.DeleteEndUser(r.Context(), t.ID, chi.URLParam(r, "id")); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EmailLogins maneja GET /end_users/email-logins.
func (c *Controller) EmailLogins(w http.ResponseWriter, r *http.Request) {
	c.logins(w, r, repository.TokenEmail)
}

// SMSLogins maneja GET /end_users/sms-logins.
func (c *Controller) SMSLogins(w http.ResponseWriter, r *http.Request) {
	c.logins(w, r, repository.TokenSMS)
}

func (c *Controller) logins(w http.ResponseWriter, r *http.Request, kind repository.TokenKind) {
	t, ok := c.adminTenant(w, r)
	if !ok {
		return
	}
	page := helpers.PageFromQuery(r)
	list, total, err := c.svc.ListLogins(r.Context(), t.ID, kind, page)
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.List(w, r, dto.LoginsFrom(list), page, total)
}

// SetTrustedAttribute maneja POST /end_users/{id}/attributes/{name}. Corre
// después de RequireClientSecret: el tenant es el dueño del secret y el
// atributo queda trusted.
func (c *Controller) SetTrustedAttribute(w http.ResponseWriter, r *http.Request) {
	var req dto.ValueRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	t := mw.MustGetTenant(r.Context())
	p, err := c.svc.SetEndUserAttribute(r.Context(), t.ID, chi.URLParam(r, "id"), chi.URLParam(r, "name"),
		req.Type, req.Value, mw.IsTrusted(r.Context()))
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.Data(w, http.StatusOK, dto.EndUserFrom(p))
}
