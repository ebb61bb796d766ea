// Package admin contiene la superficie de operador (X-Weasl-Admin-Key) que usa
// weaslctl.
package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/http/dto"
	httperrors "github.com/dropDatabas3/weasl/internal/http/errors"
	"github.com/dropDatabas3/weasl/internal/http/helpers"
	orgsvc "github.com/dropDatabas3/weasl/internal/http/services/orgs"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
)

type Controller struct {
	svc *orgsvc.Service
}

func NewController(svc *orgsvc.Service) *Controller {
	return &Controller{svc: svc}
}

func (c *Controller) tenant(w http.ResponseWriter, r *http.Request) (*repository.Tenant, bool) {
	t, err := c.svc.TenantByClientID(r.Context(), chi.URLParam(r, "client_id"))
	if err != nil {
		if repository.IsNotFound(err) {
			err = httperrors.ErrInvalidClientID.WithCause(err)
		}
		helpers.Fail(w, r, err)
		return nil, false
	}
	return t, true
}

func (c *Controller) respond(w http.ResponseWriter, r *http.Request, status int, t *repository.Tenant) {
	props, err := c.svc.Properties(r.Context(), t.ID)
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.Data(w, status, dto.TenantFrom(t, props, true))
}

// CreateTenant maneja POST /admin/tenants.
func (c *Controller) CreateTenant(w http.ResponseWriter, r *http.Request) {
	t, err := c.svc.CreateTenant(r.Context())
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	logger.From(r.Context()).Info("tenant created by operator", logger.TenantID(t.ID), logger.ClientID(t.ClientID))
	c.respond(w, r, http.StatusCreated, t)
}

// GetTenant maneja GET /admin/tenants/{client_id}.
func (c *Controller) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, ok := c.tenant(w, r)
	if !ok {
		return
	}
	c.respond(w, r, http.StatusOK, t)
}

// SetProperty maneja PUT /admin/tenants/{client_id}/properties/{namespace}/{name}.
func (c *Controller) SetProperty(w http.ResponseWriter, r *http.Request) {
	ns, ok := repository.ParseNamespace(chi.URLParam(r, "namespace"))
	if !ok {
		helpers.Fail(w, r, orgsvc.ErrBadNamespace)
		return
	}
	var req dto.ValueRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	t, ok := c.tenant(w, r)
	if !ok {
		return
	}
	if err := c.svc.SetProperty(r.Context(), t.ID, ns, chi.URLParam(r, "name"), req.Type, req.Value); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	c.respond(w, r, http.StatusOK, t)
}
