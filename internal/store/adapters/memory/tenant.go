package memory

import (
	"context"
	"sort"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
)

type tenantRepo struct{ c *Conn }

func (r *tenantRepo) GetByID(ctx context.Context, id int64) (*repository.Tenant, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	t, ok := r.c.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *tenantRepo) GetByClientID(ctx context.Context, clientID string) (*repository.Tenant, error) {
	return r.find(func(t *repository.Tenant) bool { return t.ClientID == clientID })
}

func (r *tenantRepo) GetByClientSecret(ctx context.Context, secret string) (*repository.Tenant, error) {
	return r.find(func(t *repository.Tenant) bool { return t.ClientSecret == secret })
}

func (r *tenantRepo) find(match func(*repository.Tenant) bool) (*repository.Tenant, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, t := range r.c.tenants {
		if match(t) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tenantRepo) CredentialsTaken(ctx context.Context, clientID, secret string) (bool, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.takenLocked(clientID, secret), nil
}

func (r *tenantRepo) takenLocked(clientID, secret string) bool {
	for _, t := range r.c.tenants {
		if t.ClientID == clientID || t.ClientSecret == secret {
			return true
		}
	}
	return false
}

func (r *tenantRepo) Create(ctx context.Context, t *repository.Tenant) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, exists := r.c.tenants[t.ID]; exists {
		return &repository.ConflictError{Field: "id"}
	}
	if r.takenLocked(t.ClientID, t.ClientSecret) {
		return &repository.ConflictError{Field: "client_credentials"}
	}
	cp := *t
	r.c.tenants[t.ID] = &cp
	return nil
}

func (r *tenantRepo) GetProperty(ctx context.Context, tenantID int64, ns repository.PropertyNamespace, name string) (*repository.TenantProperty, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	p, ok := r.c.properties[propertyKey{tenantID, ns, name}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *tenantRepo) ListProperties(ctx context.Context, tenantID int64) ([]repository.TenantProperty, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	var out []repository.TenantProperty
	for k, p := range r.c.properties {
		if k.tenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *tenantRepo) UpsertProperty(ctx context.Context, p repository.TenantProperty) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.tenants[p.TenantID]; !ok {
		return repository.ErrNotFound
	}
	r.c.properties[propertyKey{p.TenantID, p.Namespace, p.Name}] = p
	return nil
}
