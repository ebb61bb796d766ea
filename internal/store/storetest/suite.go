// Package storetest contiene la suite de conformidad que todo adapter de
// store debe pasar. La usan los tests de adapters/memory y adapters/pg.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
	"github.com/dropDatabas3/weasl/internal/store"
)

var seq atomic.Int64

// Run ejecuta la suite. newConn debe retornar una conexión limpia o compartida;
// los tests crean tenants propios así que no dependen de un estado vacío.
func Run(t *testing.T, newConn func(t *testing.T) store.Connection) {
	t.Run("TenantUniqueness", func(t *testing.T) { testTenantUniqueness(t, newConn(t)) })
	t.Run("TenantProperties", func(t *testing.T) { testTenantProperties(t, newConn(t)) })
	t.Run("PrincipalUniqueness", func(t *testing.T) { testPrincipalUniqueness(t, newConn(t)) })
	t.Run("PrincipalAttributes", func(t *testing.T) { testPrincipalAttributes(t, newConn(t)) })
	t.Run("PrincipalSoftDelete", func(t *testing.T) { testPrincipalSoftDelete(t, newConn(t)) })
	t.Run("PrincipalList", func(t *testing.T) { testPrincipalList(t, newConn(t)) })
	t.Run("TokenConsumeOnce", func(t *testing.T) { testTokenConsumeOnce(t, newConn(t)) })
	t.Run("TokenConsumeConcurrent", func(t *testing.T) { testTokenConsumeConcurrent(t, newConn(t)) })
	t.Run("TokenConsumeFilters", func(t *testing.T) { testTokenConsumeFilters(t, newConn(t)) })
	t.Run("TokenActiveUniqueness", func(t *testing.T) { testTokenActiveUniqueness(t, newConn(t)) })
	t.Run("TokenListAndDelivered", func(t *testing.T) { testTokenList(t, newConn(t)) })
}

// NewTenant crea un tenant con credenciales únicas.
func NewTenant(t *testing.T, conn store.Connection) *repository.Tenant {
	t.Helper()
	n := seq.Add(1)
	tn := &repository.Tenant{
		ID:           time.Now().UnixNano() + n,
		ClientID:     fmt.Sprintf("cid-%d-%d", time.Now().UnixNano(), n),
		ClientSecret: uuid.NewString(),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, conn.Tenants().Create(context.Background(), tn))
	return tn
}

// NewPrincipal crea un principal con email dado.
func NewPrincipal(t *testing.T, conn store.Connection, tenantID int64, email string) *repository.Principal {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &repository.Principal{ID: uuid.NewString(), TenantID: tenantID, Email: &email, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, conn.Principals().Create(context.Background(), p))
	return p
}

func newToken(kind repository.TokenKind, value string, p *repository.Principal, expiresIn time.Duration) *repository.AuthToken {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &repository.AuthToken{
		Kind: kind, Token: value, PrincipalID: p.ID, TenantID: p.TenantID,
		CreatedAt: now, ExpiresAt: now.Add(expiresIn), Active: true,
	}
}

func testTenantUniqueness(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	a := NewTenant(t, conn)

	got, err := conn.Tenants().GetByClientID(ctx, a.ClientID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	got, err = conn.Tenants().GetByClientSecret(ctx, a.ClientSecret)
	require.NoError(t, err)
	assert.Equal(t, a.ClientID, got.ClientID)

	taken, err := conn.Tenants().CredentialsTaken(ctx, a.ClientID, "other")
	require.NoError(t, err)
	assert.True(t, taken)

	dup := &repository.Tenant{ID: a.ID + 7919, ClientID: a.ClientID, ClientSecret: uuid.NewString(), CreatedAt: time.Now()}
	err = conn.Tenants().Create(ctx, dup)
	assert.True(t, repository.IsConflict(err), "got %v", err)

	_, err = conn.Tenants().GetByClientID(ctx, "does-not-exist")
	assert.True(t, repository.IsNotFound(err))
}

func testTenantProperties(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	tn := NewTenant(t, conn)
	repo := conn.Tenants()

	_, err := repo.GetProperty(ctx, tn.ID, repository.NamespaceNone, "company_name")
	assert.True(t, repository.IsNotFound(err))

	prop := repository.TenantProperty{
		TenantID: tn.ID, Namespace: repository.NamespaceNone, Name: "company_name",
		Value: types.String("Acme"), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.UpsertProperty(ctx, prop))
	prop.Value = types.String("Acme Inc")
	require.NoError(t, repo.UpsertProperty(ctx, prop))

	got, err := repo.GetProperty(ctx, tn.ID, repository.NamespaceNone, "company_name")
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", got.Value.Raw)
	assert.Equal(t, types.TypeString, got.Value.Type)

	require.NoError(t, repo.UpsertProperty(ctx, repository.TenantProperty{
		TenantID: tn.ID, Namespace: repository.NamespaceGates, Name: "beta",
		Value: types.Bool(true), UpdatedAt: time.Now().UTC(),
	}))
	all, err := repo.ListProperties(ctx, tn.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testPrincipalUniqueness(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	a, b := NewTenant(t, conn), NewTenant(t, conn)

	NewPrincipal(t, conn, a.ID, "a@x.com")
	NewPrincipal(t, conn, b.ID, "a@x.com")

	email := "a@x.com"
	now := time.Now().UTC()
	err := conn.Principals().Create(ctx, &repository.Principal{ID: uuid.NewString(), TenantID: a.ID, Email: &email, CreatedAt: now, UpdatedAt: now})
	require.Error(t, err)
	assert.True(t, repository.IsConflict(err))
	assert.Equal(t, "email", repository.ConflictField(err))

	phone := "5555555555"
	p1 := &repository.Principal{ID: uuid.NewString(), TenantID: a.ID, Phone: &phone, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, conn.Principals().Create(ctx, p1))
	p2 := &repository.Principal{ID: uuid.NewString(), TenantID: a.ID, Phone: &phone, CreatedAt: now, UpdatedAt: now}
	err = conn.Principals().Create(ctx, p2)
	assert.Equal(t, "phone", repository.ConflictField(err))

	got, err := conn.Principals().FindByIdentifier(ctx, a.ID, repository.Identifier{Kind: repository.IdentifierPhone, Value: phone})
	require.NoError(t, err)
	assert.Equal(t, p1.ID, got.ID)
}

func testPrincipalAttributes(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	tn := NewTenant(t, conn)
	p := NewPrincipal(t, conn, tn.ID, "attrs@x.com")

	repo := conn.Principals()
	require.NoError(t, repo.UpsertAttribute(ctx, p.ID, repository.Attribute{Name: "plan", Value: types.String("free"), UpdatedAt: time.Now().UTC()}))
	require.NoError(t, repo.UpsertAttribute(ctx, p.ID, repository.Attribute{Name: "plan", Value: types.String("pro"), Trusted: true, UpdatedAt: time.Now().UTC()}))
	require.NoError(t, repo.UpsertAttribute(ctx, p.ID, repository.Attribute{Name: "seats", Value: types.Number(3), UpdatedAt: time.Now().UTC()}))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Attributes, 2)
	assert.Equal(t, "pro", got.Attributes["plan"].Value.Raw)
	assert.True(t, got.Attributes["plan"].Trusted)
	assert.Equal(t, types.TypeNumber, got.Attributes["seats"].Value.Type)

	err = repo.UpsertAttribute(ctx, uuid.NewString(), repository.Attribute{Name: "x", Value: types.String("y"), UpdatedAt: time.Now()})
	assert.True(t, repository.IsNotFound(err))
}

func testPrincipalSoftDelete(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	tn := NewTenant(t, conn)
	p := NewPrincipal(t, conn, tn.ID, "gone@x.com")

	require.NoError(t, conn.Principals().SoftDelete(ctx, p.ID, time.Now().UTC()))
	_, err := conn.Principals().GetByID(ctx, p.ID)
	assert.True(t, repository.IsNotFound(err))
	_, err = conn.Principals().FindByIdentifier(ctx, tn.ID, repository.Identifier{Kind: repository.IdentifierEmail, Value: "gone@x.com"})
	assert.True(t, repository.IsNotFound(err))

	// El identificador queda libre para un principal nuevo.
	NewPrincipal(t, conn, tn.ID, "gone@x.com")
}

func testPrincipalList(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	tn := NewTenant(t, conn)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, NewPrincipal(t, conn, tn.ID, fmt.Sprintf("u%d@x.com", i)).ID)
	}
	at := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, conn.Principals().TouchLogin(ctx, ids[3], at))

	list, total, err := conn.Principals().List(ctx, tn.ID, repository.Page{Number: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, list, 2)
	assert.Equal(t, ids[3], list[0].ID)
	require.NotNil(t, list[0].LastLoginAt)

	list, _, err = conn.Principals().List(ctx, tn.ID, repository.Page{Number: 3, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testTokenConsumeOnce(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	tn := NewTenant(t, conn)
	p := NewPrincipal(t, conn, tn.ID, "once@x.com")
	tok := newToken(repository.TokenEmail, uuid.NewString(), p, time.Hour)
	require.NoError(t, conn.AuthTokens().Insert(ctx, tok))

	pid, err := conn.AuthTokens().Consume(ctx, repository.TokenEmail, tok.Token, tn.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, p.ID, pid)

	_, err = conn.AuthTokens().Consume(ctx, repository.TokenEmail, tok.Token, tn.ID, time.Now())
	assert.True(t, repository.IsNotFound(err))
}

func testTokenConsumeConcurrent(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	tn := NewTenant(t, conn)
	p := NewPrincipal(t, conn, tn.ID, "race@x.com")
	tok := newToken(repository.TokenSMS, fmt.Sprintf("r%05d", seq.Add(1)%100000), p, time.Hour)
	require.NoError(t, conn.AuthTokens().Insert(ctx, tok))

	const n = 50
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := conn.AuthTokens().Consume(ctx, repository.TokenSMS, tok.Token, tn.ID, time.Now()); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func testTokenConsumeFilters(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	a, b := NewTenant(t, conn), NewTenant(t, conn)
	p := NewPrincipal(t, conn, a.ID, "filters@x.com")
	repo := conn.AuthTokens()

	tok := newToken(repository.TokenEmail, uuid.NewString(), p, time.Hour)
	require.NoError(t, repo.Insert(ctx, tok))

	// Otro tenant.
	_, err := repo.Consume(ctx, repository.TokenEmail, tok.Token, b.ID, time.Now())
	assert.True(t, repository.IsNotFound(err))
	// Otro namespace.
	_, err = repo.Consume(ctx, repository.TokenSMS, tok.Token, a.ID, time.Now())
	assert.True(t, repository.IsNotFound(err))
	// Vencido: now == expires_at ya no es válido.
	_, err = repo.Consume(ctx, repository.TokenEmail, tok.Token, a.ID, tok.ExpiresAt)
	assert.True(t, repository.IsNotFound(err))
	// El rechazo no consumió el token.
	_, err = repo.Consume(ctx, repository.TokenEmail, tok.Token, a.ID, tok.ExpiresAt.Add(-time.Second))
	assert.NoError(t, err)
}

func testTokenActiveUniqueness(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	tn := NewTenant(t, conn)
	p1 := NewPrincipal(t, conn, tn.ID, "u1@x.com")
	p2 := NewPrincipal(t, conn, tn.ID, "u2@x.com")
	repo := conn.AuthTokens()
	value := fmt.Sprintf("u%05d", seq.Add(1)%100000)

	require.NoError(t, repo.Insert(ctx, newToken(repository.TokenSMS, value, p1, time.Hour)))
	exists, err := repo.ActiveExists(ctx, repository.TokenSMS, value)
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.Insert(ctx, newToken(repository.TokenSMS, value, p2, time.Hour))
	assert.True(t, repository.IsConflict(err), "got %v", err)

	// Una vez consumido, el valor puede volver a emitirse.
	_, err = repo.Consume(ctx, repository.TokenSMS, value, tn.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, newToken(repository.TokenSMS, value, p2, time.Hour)))
}

func testTokenList(t *testing.T, conn store.Connection) {
	ctx := context.Background()
	tn := NewTenant(t, conn)
	p := NewPrincipal(t, conn, tn.ID, "list@x.com")
	repo := conn.AuthTokens()

	var last *repository.AuthToken
	for i := 0; i < 3; i++ {
		last = newToken(repository.TokenEmail, uuid.NewString(), p, time.Hour)
		last.CreatedAt = last.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Insert(ctx, last))
	}
	require.NoError(t, repo.MarkDelivered(ctx, repository.TokenEmail, last.Token, p.ID))

	list, total, err := repo.ListByTenant(ctx, repository.TokenEmail, tn.ID, repository.Page{Number: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 3)
	assert.Equal(t, last.Token, list[0].Token)
	assert.True(t, list[0].Delivered)
	assert.False(t, list[1].Delivered)

	err = repo.MarkDelivered(ctx, repository.TokenEmail, uuid.NewString(), p.ID)
	assert.True(t, repository.IsNotFound(err))
}
