package middlewares_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
	mw "github.com/dropDatabas3/weasl/internal/http/middlewares"
	"github.com/dropDatabas3/weasl/internal/rate"
)

type fakeTenants map[string]*repository.Tenant

func (f fakeTenants) Resolve(_ context.Context, cid string) (*repository.Tenant, error) {
	if t, ok := f[cid]; ok {
		return t, nil
	}
	return nil, repository.ErrNotFound
}

func (f fakeTenants) ResolveBySecret(_ context.Context, secret string) (*repository.Tenant, error) {
	for _, t := range f {
		if t.ClientSecret == secret {
			return t, nil
		}
	}
	return nil, repository.ErrNotFound
}

var acme = &repository.Tenant{ID: 7, ClientID: "acme", ClientSecret: "acme-secret"}

func serve(h http.Handler, req *http.Request) (*httptest.ResponseRecorder, string) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body struct {
		ErrorCode string `json:"error_code"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body.ErrorCode
}

func TestRequireClientID(t *testing.T) {
	var trusted bool
	var got *repository.Tenant
	h := mw.RequireClientID(fakeTenants{"acme": acme})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = mw.GetTenant(r.Context())
		trusted = mw.IsTrusted(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/widget/org", nil)
	_, code := serve(h, req)
	assert.Equal(t, "client-id-required", code)

	req.Header.Set(mw.HeaderClientID, "other")
	_, code = serve(h, req)
	assert.Equal(t, "invalid-client-id", code)

	req.Header.Set(mw.HeaderClientID, "acme")
	rec, _ := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Same(t, acme, got)
	assert.False(t, trusted)

	req.Header.Set(mw.HeaderClientSecret, "wrong")
	serve(h, req)
	assert.False(t, trusted)

	req.Header.Set(mw.HeaderClientSecret, "acme-secret")
	serve(h, req)
	assert.True(t, trusted)
}

func TestRequireClientSecret(t *testing.T) {
	var got *repository.Tenant
	h := mw.RequireClientSecret(fakeTenants{"acme": acme})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = mw.GetTenant(r.Context())
		assert.True(t, mw.IsTrusted(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodPost, "/end_users/x/attributes/plan", nil)
	rec, code := serve(h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "client-secret-required", code)

	req.Header.Set(mw.HeaderClientSecret, "nope")
	_, code = serve(h, req)
	assert.Equal(t, "invalid-client-secret", code)

	req.Header.Set(mw.HeaderClientSecret, "acme-secret")
	rec, _ = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Same(t, acme, got)
}

func TestWithPlatformTenant(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	rec, _ := serve(mw.WithPlatformTenant(fakeTenants{}, "")(next), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = serve(mw.WithPlatformTenant(fakeTenants{"acme": acme}, "acme")(next), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeSessions map[string]string

func (f fakeSessions) Verify(tok string) (string, error) {
	if sub, ok := f[tok]; ok {
		return sub, nil
	}
	return "", errors.New("bad session")
}

type fakePrincipals map[string]*repository.Principal

func (f fakePrincipals) Get(_ context.Context, id string) (*repository.Principal, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func TestRequireSession(t *testing.T) {
	jane := &repository.Principal{ID: "p1", TenantID: acme.ID}
	bob := &repository.Principal{ID: "p2", TenantID: 99}
	h := mw.RequireSession(
		fakeSessions{"good": "p1", "foreign": "p2", "ghost": "p3"},
		fakePrincipals{"p1": jane, "p2": bob},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Same(t, jane, mw.GetPrincipal(r.Context()))
	}))

	for name, auth := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic good",
		"bad token":    "Bearer nope",
		"deleted":      "Bearer ghost",
		"other tenant": "Bearer foreign",
	} {
		req := httptest.NewRequest(http.MethodGet, "/widget/me", nil)
		req = req.WithContext(mw.WithTenant(req.Context(), acme))
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec, code := serve(h, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Equal(t, "login-required", code, name)
	}

	req := httptest.NewRequest(http.MethodGet, "/widget/me", nil)
	req = req.WithContext(mw.WithTenant(req.Context(), acme))
	req.Header.Set("Authorization", "bearer good")
	rec, _ := serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminKey(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodPost, "/admin/tenants", nil)
	req.Header.Set(mw.HeaderAdminKey, "")
	_, code := serve(mw.RequireAdminKey("")(next), req)
	assert.Equal(t, "invalid-admin-key", code, "empty key disables the surface")

	req.Header.Set(mw.HeaderAdminKey, "k1")
	rec, _ := serve(mw.RequireAdminKey("k1")(next), req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePlatformAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := mw.RequirePlatformAdmin()(next)

	with := func(p *repository.Principal) *http.Request {
		req := httptest.NewRequest(http.MethodPut, "/orgs/1/gates/sms", nil)
		return req.WithContext(mw.WithPrincipal(req.Context(), p))
	}

	rec, _ := serve(h, httptest.NewRequest(http.MethodPut, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	untrusted := &repository.Principal{Attributes: map[string]repository.Attribute{
		mw.AttrIsAdmin: {Name: mw.AttrIsAdmin, Value: types.Bool(true)},
	}}
	rec, code := serve(h, with(untrusted))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not-admin", code)

	admin := &repository.Principal{Attributes: map[string]repository.Attribute{
		mw.AttrIsAdmin: {Name: mw.AttrIsAdmin, Value: types.Bool(true), Trusted: true},
	}}
	rec, _ = serve(h, with(admin))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type stubLimiter struct {
	res rate.Result
	err error
}

func (s stubLimiter) Allow(context.Context, string) (rate.Result, error) { return s.res, s.err }

func TestWithRateLimit(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	req := httptest.NewRequest(http.MethodPost, "/widget/sms/verify", nil)

	cfg := mw.RateLimitConfig{Scope: "verify", Limiter: stubLimiter{res: rate.Result{Allowed: false, RetryAfter: 1500 * time.Millisecond}}}
	rec, code := serve(mw.WithRateLimit(cfg)(next), req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate-limited", code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	cfg.Limiter = stubLimiter{res: rate.Result{Allowed: true, Remaining: 4}}
	rec, _ = serve(mw.WithRateLimit(cfg)(next), req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	cfg.Limiter = stubLimiter{err: errors.New("redis down")}
	rec, _ = serve(mw.WithRateLimit(cfg)(next), req)
	assert.Equal(t, http.StatusOK, rec.Code, "limiter errors fail open")

	rec, _ = serve(mw.WithRateLimit(mw.RateLimitConfig{})(next), req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := mw.WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = mw.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(mw.HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(mw.HeaderRequestID))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.NotEqual(t, "abc-123", seen)
}

func TestWithRecover(t *testing.T) {
	h := mw.WithRecover()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec, code := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal-error", code)
}
