// Package widget contiene los endpoints que usa el widget embebido en el sitio
// de cada tenant.
package widget

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/email"
	"github.com/dropDatabas3/weasl/internal/http/dto"
	httperrors "github.com/dropDatabas3/weasl/internal/http/errors"
	"github.com/dropDatabas3/weasl/internal/http/helpers"
	mw "github.com/dropDatabas3/weasl/internal/http/middlewares"
	authsvc "github.com/dropDatabas3/weasl/internal/http/services/auth"
	orgsvc "github.com/dropDatabas3/weasl/internal/http/services/orgs"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
)

const sentMessage = "token successfully sent"

// Controller maneja /widget/*. Todas las rutas corren después de RequireClientID.
type Controller struct {
	auth *authsvc.Service
	orgs *orgsvc.Service
}

func NewController(auth *authsvc.Service, orgs *orgsvc.Service) *Controller {
	return &Controller{auth: auth, orgs: orgs}
}

// Org maneja GET /widget/org: vista pública del tenant.
func (c *Controller) Org(w http.ResponseWriter, r *http.Request) {
	t := mw.MustGetTenant(r.Context())
	props, err := c.orgs.Properties(r.Context(), t.ID)
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.Data(w, http.StatusOK, dto.TenantFrom(t, props, false))
}

// Me maneja GET /widget/me.
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	helpers.Data(w, http.StatusOK, dto.EndUserFrom(mw.GetPrincipal(r.Context())))
}

// SendEmail maneja POST /widget/email/send {email}.
func (c *Controller) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.SendEmailRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	if req.Email == nil {
		helpers.Fail(w, r, httperrors.ErrEmailRequired)
		return
	}
	ctx := logger.ToContext(r.Context(), logger.From(r.Context()).With(logger.Email(*req.Email)))
	if err := c.auth.RequestToken(ctx, mw.MustGetTenant(ctx), repository.TokenEmail, *req.Email); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.Message(w, http.StatusOK, sentMessage)
}

// VerifyEmail maneja GET /widget/email/verify?w_token= (link del email) y
// POST {token_string}.
func (c *Controller) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	tok, err := tokenFrom(w, r, email.TokenParam, "token_string")
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	c.verify(w, r, repository.TokenEmail, tok)
}

// SendSMS maneja POST /widget/sms/send {phone_number}.
func (c *Controller) SendSMS(w http.ResponseWriter, r *http.Request) {
	var req dto.SendSMSRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	if req.PhoneNumber == nil {
		helpers.Fail(w, r, httperrors.ErrPhoneRequired)
		return
	}
	ctx := logger.ToContext(r.Context(), logger.From(r.Context()).With(logger.Phone(*req.PhoneNumber)))
	if err := c.auth.RequestToken(ctx, mw.MustGetTenant(ctx), repository.TokenSMS, *req.PhoneNumber); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.Message(w, http.StatusOK, sentMessage)
}

// VerifySMS maneja POST /widget/sms/verify {token_string}.
func (c *Controller) VerifySMS(w http.ResponseWriter, r *http.Request) {
	tok, err := tokenFrom(w, r, "token_string")
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	c.verify(w, r, repository.TokenSMS, tok)
}

// VerifyGoogle maneja POST /widget/google/verify {token}.
func (c *Controller) VerifyGoogle(w http.ResponseWriter, r *http.Request) {
	var req dto.GoogleVerifyRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	if req.Token == nil {
		helpers.Fail(w, r, httperrors.ErrMissingToken)
		return
	}
	cred, err := c.auth.VerifyFederated(r.Context(), mw.MustGetTenant(r.Context()), *req.Token)
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.Session{JWT: cred.Token})
}

// SetAttribute maneja POST /widget/attributes/{name} {value, type}. El atributo
// queda trusted solo si el request trae el client secret del tenant.
func (c *Controller) SetAttribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req dto.ValueRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		helpers.Fail(w, r, err)
		return
	}
	t := mw.MustGetTenant(ctx)
	p := mw.GetPrincipal(ctx)
	updated, err := c.orgs.SetEndUserAttribute(ctx, t.ID, p.ID, chi.URLParam(r, "name"), req.Type, req.Value, mw.IsTrusted(ctx))
	if err != nil {
		helpers.Fail(w, r, err)
		return
	}
	helpers.Data(w, http.StatusOK, dto.EndUserFrom(updated))
}

func (c *Controller) verify(w http.ResponseWriter, r *http.Request, kind repository.TokenKind, tok string) {
	cred, err := c.auth.VerifyToken(r.Context(), mw.MustGetTenant(r.Context()), kind, tok)
	if err != nil {
		if kind == repository.TokenEmail && errors.Is(err, authsvc.ErrMalformed) {
			err = httperrors.ErrBadGUID.WithCause(err)
		}
		helpers.Fail(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.Session{JWT: cred.Token})
}

// tokenFrom lee el token de la query (GET) o del body JSON (token_string).
func tokenFrom(w http.ResponseWriter, r *http.Request, queryParams ...string) (string, error) {
	if r.Method == http.MethodGet {
		for _, p := range queryParams {
			if v := strings.TrimSpace(r.URL.Query().Get(p)); v != "" {
				return v, nil
			}
		}
		return "", httperrors.ErrMissingToken
	}
	var req dto.VerifyRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		return "", err
	}
	if req.TokenString == nil || strings.TrimSpace(*req.TokenString) == "" {
		return "", httperrors.ErrMissingToken
	}
	return *req.TokenString, nil
}
