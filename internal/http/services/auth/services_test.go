package auth_test

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
	"github.com/dropDatabas3/weasl/internal/email"
	svc "github.com/dropDatabas3/weasl/internal/http/services/auth"
	jwtx "github.com/dropDatabas3/weasl/internal/jwt"
	"github.com/dropDatabas3/weasl/internal/oauth/google"
	"github.com/dropDatabas3/weasl/internal/principal"
	"github.com/dropDatabas3/weasl/internal/security/token"
	"github.com/dropDatabas3/weasl/internal/store/adapters/memory"
	"github.com/dropDatabas3/weasl/internal/tenant"
	"github.com/dropDatabas3/weasl/internal/tokens"
)

type sentMail struct{ to, subject, html, text string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, html, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, html, text})
	return nil
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type sentSMS struct{ to, from, body string }

type fakeTexter struct {
	mu   sync.Mutex
	sent []sentSMS
}

func (f *fakeTexter) Send(ctx context.Context, to, from, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentSMS{to, from, body})
	return nil
}

type fakeGoogle struct {
	info *google.UserInfo
	err  error
}

func (g fakeGoogle) FetchUserInfo(ctx context.Context, tok string) (*google.UserInfo, error) {
	return g.info, g.err
}

type harness struct {
	svc      *svc.Service
	conn     *memory.Conn
	tenants  *tenant.Registry
	sessions *jwtx.Issuer
	mailer   *fakeMailer
	texter   *fakeTexter
	tenant   *repository.Tenant
}

func newHarness(t *testing.T, required bool, g svc.UserInfoProvider) *harness {
	t.Helper()
	conn := memory.New()
	reg, err := tenant.New(conn.Tenants(), tenant.Options{NodeID: 1})
	require.NoError(t, err)
	tpl, err := email.LoadTemplates()
	require.NoError(t, err)
	sessions, err := jwtx.NewIssuer("weasl", []byte("test-secret"))
	require.NoError(t, err)

	tn := &repository.Tenant{ID: 1, ClientID: "abc123", ClientSecret: "s3cret", CreatedAt: time.Now().UTC()}
	require.NoError(t, conn.Tenants().Create(context.Background(), tn))

	deps := tokens.Deps{Tokens: conn.AuthTokens(), Principals: conn.Principals()}
	h := &harness{
		conn:     conn,
		tenants:  reg,
		sessions: sessions,
		mailer:   &fakeMailer{},
		texter:   &fakeTexter{},
		tenant:   tn,
	}
	h.svc = svc.NewService(svc.Deps{
		Tenants:     reg,
		Principals:  principal.New(conn.Principals(), nil),
		EmailToken:  tokens.NewEngine(token.Email{}, deps),
		SMSToken:    tokens.NewEngine(token.SMS{}, deps),
		Sessions:    sessions,
		Mailer:      h.mailer,
		Templates:   tpl,
		Texter:      h.texter,
		Google:      g,
		Delivery:    svc.DeliveryConfig{Timeout: time.Second, Required: required},
		BaseSiteURL: "https://app.example.com/login",
		SMSFrom:     "+15550000000",
	})
	return h
}

func (h *harness) tokens(t *testing.T, kind repository.TokenKind) []repository.AuthToken {
	t.Helper()
	list, _, err := h.conn.AuthTokens().ListByTenant(context.Background(), kind, h.tenant.ID, repository.Page{PerPage: 100})
	require.NoError(t, err)
	return list
}

func TestEmailScenario(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()

	require.NoError(t, h.svc.RequestToken(ctx, h.tenant, repository.TokenEmail, "a@x.com"))

	list := h.tokens(t, repository.TokenEmail)
	require.Len(t, list, 1)
	tok := list[0]
	assert.True(t, tok.Delivered)

	cred, err := h.svc.VerifyToken(ctx, h.tenant, repository.TokenEmail, tok.Token)
	require.NoError(t, err)
	sub, err := h.sessions.Verify(cred.Token)
	require.NoError(t, err)
	assert.Equal(t, tok.PrincipalID, sub)

	p, err := h.conn.Principals().GetByID(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", *p.Email)
	assert.NotNil(t, p.LastLoginAt)

	_, err = h.svc.VerifyToken(ctx, h.tenant, repository.TokenEmail, tok.Token)
	assert.ErrorIs(t, err, svc.ErrRejected)
}

func TestSMSScenario(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()

	require.NoError(t, h.svc.RequestToken(ctx, h.tenant, repository.TokenSMS, "5555555555"))
	require.NoError(t, h.svc.RequestToken(ctx, h.tenant, repository.TokenSMS, "5555555555"))

	_, total, err := h.conn.Principals().List(ctx, h.tenant.ID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	list := h.tokens(t, repository.TokenSMS)
	require.Len(t, list, 2)
	assert.NotEqual(t, list[0].Token, list[1].Token)
	assert.Equal(t, list[0].PrincipalID, list[1].PrincipalID)

	require.Len(t, h.texter.sent, 2)
	msg := h.texter.sent[0]
	assert.Equal(t, "5555555555", msg.to)
	assert.Equal(t, "+15550000000", msg.from)
	assert.Regexp(t, regexp.MustCompile(`^Use this code to login: [0-9A-Z]{6}$`), msg.body)

	// El código llega en mayúsculas y se canjea igual.
	code := strings.TrimPrefix(msg.body, "Use this code to login: ")
	_, err = h.svc.VerifyToken(ctx, h.tenant, repository.TokenSMS, code)
	require.NoError(t, err)
}

func TestEmailComposition(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()

	require.NoError(t, h.svc.RequestToken(ctx, h.tenant, repository.TokenEmail, "a@x.com"))
	m := h.mailer.last()
	assert.Equal(t, "a@x.com", m.to)
	assert.Equal(t, "Log in to your account", m.subject)
	assert.Contains(t, m.text, "https://app.example.com/login?w_token=")

	require.NoError(t, h.tenants.SetProperty(ctx, h.tenant.ID, repository.NamespaceNone, tenant.PropCompanyName, types.String("Acme")))
	require.NoError(t, h.tenants.SetProperty(ctx, h.tenant.ID, repository.NamespaceNone, tenant.PropEmailMagicLink, types.String("https://acme.test/cb?src=mail")))

	require.NoError(t, h.svc.RequestToken(ctx, h.tenant, repository.TokenEmail, "A@X.com "))
	m = h.mailer.last()
	assert.Equal(t, "a@x.com", m.to)
	assert.Equal(t, "Log in to your Acme account", m.subject)

	link := regexp.MustCompile(`https://acme\.test/cb\?\S+`).FindString(m.text)
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "mail", u.Query().Get("src"))

	_, err = h.svc.VerifyToken(ctx, h.tenant, repository.TokenEmail, u.Query().Get("w_token"))
	assert.NoError(t, err)
}

func TestSMSCustomMessage(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()
	require.NoError(t, h.tenants.SetProperty(ctx, h.tenant.ID, repository.NamespaceNone, tenant.PropTextLoginMessage, types.String("Tu código")))

	require.NoError(t, h.svc.RequestToken(ctx, h.tenant, repository.TokenSMS, "+15555550123"))
	assert.True(t, strings.HasPrefix(h.texter.sent[0].body, "Tu código: "))
}

func TestRequestToken_Validation(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()

	assert.ErrorIs(t, h.svc.RequestToken(ctx, h.tenant, repository.TokenEmail, ""), svc.ErrEmailRequired)
	assert.ErrorIs(t, h.svc.RequestToken(ctx, h.tenant, repository.TokenEmail, "nope"), principal.ErrInvalidEmail)
	assert.ErrorIs(t, h.svc.RequestToken(ctx, h.tenant, repository.TokenSMS, " "), svc.ErrPhoneRequired)
	assert.ErrorIs(t, h.svc.RequestToken(ctx, h.tenant, "fax", "x"), svc.ErrUnknownChannel)
}

func TestRequestToken_DeliveryFailure(t *testing.T) {
	t.Run("required", func(t *testing.T) {
		h := newHarness(t, true, nil)
		h.mailer.err = errors.New("535 authentication failed")
		err := h.svc.RequestToken(context.Background(), h.tenant, repository.TokenEmail, "a@x.com")
		assert.ErrorIs(t, err, svc.ErrDelivery)

		list := h.tokens(t, repository.TokenEmail)
		require.Len(t, list, 1)
		assert.False(t, list[0].Delivered)
	})

	t.Run("async", func(t *testing.T) {
		h := newHarness(t, false, nil)
		h.mailer.err = errors.New("dial tcp: connection refused")
		require.NoError(t, h.svc.RequestToken(context.Background(), h.tenant, repository.TokenEmail, "a@x.com"))
		h.svc.Wait()

		list := h.tokens(t, repository.TokenEmail)
		require.Len(t, list, 1)
		assert.False(t, list[0].Delivered)
	})
}

func TestRequestToken_AsyncDelivers(t *testing.T) {
	h := newHarness(t, false, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.svc.RequestToken(ctx, h.tenant, repository.TokenEmail, "a@x.com"))
	cancel() // el envío no depende del request
	h.svc.Wait()

	require.Len(t, h.mailer.sent, 1)
	assert.True(t, h.tokens(t, repository.TokenEmail)[0].Delivered)
}

func TestVerifyToken_Errors(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()

	_, err := h.svc.VerifyToken(ctx, h.tenant, repository.TokenEmail, "")
	assert.ErrorIs(t, err, svc.ErrTokenRequired)
	_, err = h.svc.VerifyToken(ctx, h.tenant, repository.TokenEmail, "not-a-guid")
	assert.ErrorIs(t, err, svc.ErrMalformed)
	_, err = h.svc.VerifyToken(ctx, h.tenant, repository.TokenEmail, "3f1c2a57-9a59-4cde-9d4b-1c1b2f6d7e80")
	assert.ErrorIs(t, err, svc.ErrRejected)

	// Token de otro tenant.
	other := &repository.Tenant{ID: 2, ClientID: "other", ClientSecret: "other-secret", CreatedAt: time.Now().UTC()}
	require.NoError(t, h.conn.Tenants().Create(ctx, other))
	require.NoError(t, h.svc.RequestToken(ctx, other, repository.TokenEmail, "a@x.com"))
	list, _, err := h.conn.AuthTokens().ListByTenant(ctx, repository.TokenEmail, other.ID, repository.Page{})
	require.NoError(t, err)
	_, err = h.svc.VerifyToken(ctx, h.tenant, repository.TokenEmail, list[0].Token)
	assert.ErrorIs(t, err, svc.ErrRejected)
}

func TestVerifyFederated(t *testing.T) {
	ctx := context.Background()

	t.Run("verified email", func(t *testing.T) {
		h := newHarness(t, true, fakeGoogle{info: &google.UserInfo{Sub: "g1", Email: "Ana@Example.com", EmailVerified: true}})
		cred, err := h.svc.VerifyFederated(ctx, h.tenant, "ya29.token")
		require.NoError(t, err)
		sub, err := h.sessions.Verify(cred.Token)
		require.NoError(t, err)
		p, err := h.conn.Principals().GetByID(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", *p.Email)

		again, err := h.svc.VerifyFederated(ctx, h.tenant, "ya29.token")
		require.NoError(t, err)
		assert.Equal(t, cred.Subject, again.Subject)
	})

	t.Run("unverified email", func(t *testing.T) {
		h := newHarness(t, true, fakeGoogle{info: &google.UserInfo{Sub: "g1", Email: "ana@example.com"}})
		_, err := h.svc.VerifyFederated(ctx, h.tenant, "ya29.token")
		assert.ErrorIs(t, err, svc.ErrEmailNotVerified)
	})

	t.Run("provider down", func(t *testing.T) {
		h := newHarness(t, true, fakeGoogle{err: google.ErrUnavailable})
		_, err := h.svc.VerifyFederated(ctx, h.tenant, "ya29.token")
		assert.ErrorIs(t, err, svc.ErrUpstream)
	})

	t.Run("invalid token", func(t *testing.T) {
		h := newHarness(t, true, fakeGoogle{err: google.ErrInvalidToken})
		_, err := h.svc.VerifyFederated(ctx, h.tenant, "ya29.token")
		assert.ErrorIs(t, err, svc.ErrRejected)

		_, err = h.svc.VerifyFederated(ctx, h.tenant, "")
		assert.ErrorIs(t, err, svc.ErrTokenRequired)
	})
}
