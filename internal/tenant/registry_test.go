package tenant_test

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
	"github.com/dropDatabas3/weasl/internal/store/adapters/memory"
	"github.com/dropDatabas3/weasl/internal/tenant"
)

// countingRepo cuenta lecturas por client_id y puede forzar colisiones.
type countingRepo struct {
	repository.TenantRepository
	lookups    atomic.Int32
	collisions atomic.Int32
}

func (r *countingRepo) GetByClientID(ctx context.Context, clientID string) (*repository.Tenant, error) {
	r.lookups.Add(1)
	return r.TenantRepository.GetByClientID(ctx, clientID)
}

func (r *countingRepo) CredentialsTaken(ctx context.Context, clientID, secret string) (bool, error) {
	if r.collisions.Load() > 0 {
		r.collisions.Add(-1)
		return true, nil
	}
	return r.TenantRepository.CredentialsTaken(ctx, clientID, secret)
}

func newRegistry(t *testing.T) (*tenant.Registry, *countingRepo) {
	t.Helper()
	repo := &countingRepo{TenantRepository: memory.New().Tenants()}
	reg, err := tenant.New(repo, tenant.Options{NodeID: 1})
	require.NoError(t, err)
	return reg, repo
}

var hex = regexp.MustCompile(`^[0-9a-f]+$`)

func TestCreateTenant_Credentials(t *testing.T) {
	reg, repo := newRegistry(t)
	repo.collisions.Store(2)

	tn, err := reg.CreateTenant(context.Background())
	require.NoError(t, err)
	assert.Len(t, tn.ClientID, 20)
	assert.Len(t, tn.ClientSecret, 32)
	assert.Regexp(t, hex, tn.ClientID)
	assert.Regexp(t, hex, tn.ClientSecret)
	assert.NotZero(t, tn.ID)
	assert.Zero(t, repo.collisions.Load())

	got, err := reg.Resolve(context.Background(), tn.ClientID)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, got.ID)

	got, err = reg.ResolveBySecret(context.Background(), tn.ClientSecret)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, got.ID)
}

func TestResolve_UnknownAndEmpty(t *testing.T) {
	reg, _ := newRegistry(t)
	_, err := reg.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, tenant.ErrNotFound)
	_, err = reg.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, tenant.ErrNotFound)
	_, err = reg.ResolveBySecret(context.Background(), "")
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestResolve_Cached(t *testing.T) {
	reg, repo := newRegistry(t)
	tn, err := reg.CreateTenant(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Resolve(context.Background(), tn.ClientID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	_, err = reg.Resolve(context.Background(), tn.ClientID)
	require.NoError(t, err)

	// Misses concurrentes pueden pasar antes del primer Set, pero nunca uno por llamada.
	assert.Less(t, repo.lookups.Load(), int32(21))
}

func TestProperties_DefaultsAndInvalidation(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	tn, err := reg.CreateTenant(ctx)
	require.NoError(t, err)

	v, err := reg.GetProperty(ctx, tn.ID, repository.NamespaceNone, tenant.PropTextLoginMessage)
	require.NoError(t, err)
	assert.Equal(t, "Use this code to login", v.Raw)

	_, err = reg.GetProperty(ctx, tn.ID, repository.NamespaceNone, tenant.PropCompanyName)
	assert.ErrorIs(t, err, tenant.ErrNotFound)
	assert.Equal(t, "", reg.PropertyString(ctx, tn.ID, repository.NamespaceNone, tenant.PropCompanyName))

	require.NoError(t, reg.SetProperty(ctx, tn.ID, repository.NamespaceNone, tenant.PropCompanyName, types.String("Acme")))
	assert.Equal(t, "Acme", reg.PropertyString(ctx, tn.ID, repository.NamespaceNone, tenant.PropCompanyName))

	require.NoError(t, reg.SetProperty(ctx, tn.ID, repository.NamespaceNone, tenant.PropTextLoginMessage, types.String("Tu código")))
	assert.Equal(t, "Tu código", reg.PropertyString(ctx, tn.ID, repository.NamespaceNone, tenant.PropTextLoginMessage))

	require.NoError(t, reg.SetProperty(ctx, tn.ID, repository.NamespaceTheme, "color", types.String("#fff")))
	props, err := reg.Properties(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, "#fff", props[repository.NamespaceTheme]["color"].Raw)
}

func TestSetProperty_UnknownTenant(t *testing.T) {
	reg, _ := newRegistry(t)
	err := reg.SetProperty(context.Background(), 42, repository.NamespaceGates, "x", types.Bool(true))
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}
