package principal_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
	"github.com/dropDatabas3/weasl/internal/principal"
	"github.com/dropDatabas3/weasl/internal/store/adapters/memory"
	"github.com/dropDatabas3/weasl/internal/store/storetest"
)

func newStore(t *testing.T) (*principal.Store, *memory.Conn, int64) {
	t.Helper()
	conn := memory.New()
	tn := storetest.NewTenant(t, conn)
	return principal.New(conn.Principals(), nil), conn, tn.ID
}

func TestIdentifiers(t *testing.T) {
	id, err := principal.Email("  Ana@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", id.Value)
	assert.Equal(t, repository.IdentifierEmail, id.Kind)

	_, err = principal.Email("not-an-email")
	assert.ErrorIs(t, err, principal.ErrInvalidEmail)

	ph, err := principal.Phone(" +15555550123 ")
	require.NoError(t, err)
	assert.Equal(t, "+15555550123", ph.Value)

	_, err = principal.Phone("abc")
	assert.ErrorIs(t, err, principal.ErrInvalidPhone)
}

func TestGetOrCreate_ReturnsSamePrincipal(t *testing.T) {
	s, _, tenantID := newStore(t)
	ctx := context.Background()
	id, _ := principal.Email("ana@example.com")

	a, err := s.GetOrCreate(ctx, tenantID, id)
	require.NoError(t, err)
	b, err := s.GetOrCreate(ctx, tenantID, id)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	require.NotNil(t, a.Email)
	assert.Equal(t, "ana@example.com", *a.Email)
	assert.Nil(t, a.Phone)
}

func TestGetOrCreate_TenantScoped(t *testing.T) {
	s, conn, tenantA := newStore(t)
	tenantB := storetest.NewTenant(t, conn).ID
	ctx := context.Background()
	id, _ := principal.Phone("+15555550123")

	a, err := s.GetOrCreate(ctx, tenantA, id)
	require.NoError(t, err)
	b, err := s.GetOrCreate(ctx, tenantB, id)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, tenantA, a.TenantID)
	assert.Equal(t, tenantB, b.TenantID)
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	s, _, tenantID := newStore(t)
	id, _ := principal.Email("race@example.com")

	ids := make([]string, 20)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.GetOrCreate(context.Background(), tenantID, id)
			if assert.NoError(t, err) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()
	for _, v := range ids {
		assert.Equal(t, ids[0], v)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	s, _, tenantID := newStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, tenantID, "ana@example.com", "+15555550123")
	require.NoError(t, err)

	_, err = s.Create(ctx, tenantID, "ana@example.com", "")
	require.ErrorIs(t, err, principal.ErrDuplicateIdentifier)
	var dup *principal.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "email", dup.Field)

	_, err = s.Create(ctx, tenantID, "", "+15555550123")
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "phone", dup.Field)

	_, err = s.Create(ctx, tenantID, "", "")
	assert.ErrorIs(t, err, principal.ErrMissingIdentifier)
}

func TestAttributesAndLogin(t *testing.T) {
	s, _, tenantID := newStore(t)
	ctx := context.Background()
	p, err := s.Create(ctx, tenantID, "ana@example.com", "")
	require.NoError(t, err)

	require.NoError(t, s.SetAttribute(ctx, p.ID, "plan", types.String("pro"), false))
	require.NoError(t, s.SetAttribute(ctx, p.ID, "is_admin", types.Bool(true), true))
	assert.ErrorIs(t, s.SetAttribute(ctx, p.ID, "bad name", types.String("x"), false), principal.ErrInvalidName)
	assert.ErrorIs(t, s.SetAttribute(ctx, "missing", "plan", types.String("x"), false), principal.ErrNotFound)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.RecordLogin(ctx, p.ID, at))
	require.NoError(t, s.RecordLogin(ctx, p.ID, at))

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))

	_, ok := principal.TrustedAttribute(got, "plan")
	assert.False(t, ok)
	v, ok := principal.TrustedAttribute(got, "is_admin")
	require.True(t, ok)
	assert.Equal(t, "true", v.Raw)
}

func TestSetAttribute_ReservedNeedsTrust(t *testing.T) {
	s, _, tenantID := newStore(t)
	ctx := context.Background()
	p, err := s.Create(ctx, tenantID, "owner@example.com", "")
	require.NoError(t, err)

	require.NoError(t, s.SetAttribute(ctx, p.ID, principal.AttrOrgIDAsAdmin, types.String("42"), true))
	require.NoError(t, s.SetAttribute(ctx, p.ID, principal.AttrIsAdmin, types.Bool(true), true))

	for _, name := range []string{principal.AttrOrgIDAsAdmin, principal.AttrIsAdmin} {
		err := s.SetAttribute(ctx, p.ID, name, types.String("x"), false)
		assert.ErrorIs(t, err, principal.ErrReservedAttribute, name)
	}

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	v, ok := principal.TrustedAttribute(got, principal.AttrOrgIDAsAdmin)
	require.True(t, ok)
	assert.Equal(t, "42", v.Raw)
	_, ok = principal.TrustedAttribute(got, principal.AttrIsAdmin)
	assert.True(t, ok)
}

func TestSoftDelete(t *testing.T) {
	s, _, tenantID := newStore(t)
	ctx := context.Background()
	id, _ := principal.Email("gone@example.com")
	p, err := s.GetOrCreate(ctx, tenantID, id)
	require.NoError(t, err)

	require.NoError(t, s.SoftDelete(ctx, p.ID))
	_, err = s.Get(ctx, p.ID)
	assert.ErrorIs(t, err, principal.ErrNotFound)
	assert.ErrorIs(t, s.SoftDelete(ctx, p.ID), principal.ErrNotFound)

	again, err := s.GetOrCreate(ctx, tenantID, id)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, again.ID)

	list, total, err := s.List(ctx, tenantID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, again.ID, list[0].ID)
}
