package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
)

type principalRepo struct{ c *Conn }

func clonePrincipal(p *repository.Principal) *repository.Principal {
	cp := *p
	if p.Email != nil {
		v := *p.Email
		cp.Email = &v
	}
	if p.Phone != nil {
		v := *p.Phone
		cp.Phone = &v
	}
	if p.LastLoginAt != nil {
		v := *p.LastLoginAt
		cp.LastLoginAt = &v
	}
	cp.Attributes = make(map[string]repository.Attribute, len(p.Attributes))
	for k, a := range p.Attributes {
		cp.Attributes[k] = a
	}
	return &cp
}

func (r *principalRepo) liveLocked(id string) (*repository.Principal, bool) {
	p, ok := r.c.principals[id]
	if !ok || p.DeletedAt != nil {
		return nil, false
	}
	return p, true
}

func (r *principalRepo) GetByID(ctx context.Context, id string) (*repository.Principal, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	p, ok := r.liveLocked(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePrincipal(p), nil
}

func (r *principalRepo) FindByIdentifier(ctx context.Context, tenantID int64, id repository.Identifier) (*repository.Principal, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if p := r.findLocked(tenantID, id); p != nil {
		return clonePrincipal(p), nil
	}
	return nil, repository.ErrNotFound
}

func (r *principalRepo) findLocked(tenantID int64, id repository.Identifier) *repository.Principal {
	for _, p := range r.c.principals {
		if p.TenantID != tenantID || p.DeletedAt != nil {
			continue
		}
		switch id.Kind {
		case repository.IdentifierEmail:
			if p.Email != nil && *p.Email == id.Value {
				return p
			}
		case repository.IdentifierPhone:
			if p.Phone != nil && *p.Phone == id.Value {
				return p
			}
		}
	}
	return nil
}

func (r *principalRepo) Create(ctx context.Context, p *repository.Principal) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if p.Email == nil && p.Phone == nil {
		return repository.ErrInvalidInput
	}
	if _, exists := r.c.principals[p.ID]; exists {
		return &repository.ConflictError{Field: "id"}
	}
	if p.Email != nil && r.findLocked(p.TenantID, repository.Identifier{Kind: repository.IdentifierEmail, Value: *p.Email}) != nil {
		return &repository.ConflictError{Field: "email"}
	}
	if p.Phone != nil && r.findLocked(p.TenantID, repository.Identifier{Kind: repository.IdentifierPhone, Value: *p.Phone}) != nil {
		return &repository.ConflictError{Field: "phone"}
	}
	r.c.principals[p.ID] = clonePrincipal(p)
	return nil
}

func (r *principalRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	p, ok := r.liveLocked(id)
	if !ok {
		return repository.ErrNotFound
	}
	p.LastLoginAt = &at
	p.UpdatedAt = at
	return nil
}

func (r *principalRepo) UpsertAttribute(ctx context.Context, principalID string, attr repository.Attribute) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	p, ok := r.liveLocked(principalID)
	if !ok {
		return repository.ErrNotFound
	}
	if p.Attributes == nil {
		p.Attributes = map[string]repository.Attribute{}
	}
	p.Attributes[attr.Name] = attr
	p.UpdatedAt = attr.UpdatedAt
	return nil
}

func (r *principalRepo) List(ctx context.Context, tenantID int64, page repository.Page) ([]repository.Principal, int, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	var all []*repository.Principal
	for _, p := range r.c.principals {
		if p.TenantID == tenantID && p.DeletedAt == nil {
			all = append(all, p)
		}
	}
	// last_login_at DESC NULLS LAST, created_at DESC
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch {
		case a.LastLoginAt != nil && b.LastLoginAt == nil:
			return true
		case a.LastLoginAt == nil && b.LastLoginAt != nil:
			return false
		case a.LastLoginAt != nil && !a.LastLoginAt.Equal(*b.LastLoginAt):
			return a.LastLoginAt.After(*b.LastLoginAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	out := make([]repository.Principal, 0, page.Normalize().PerPage)
	for _, p := range paginate(all, page) {
		out = append(out, *clonePrincipal(p))
	}
	return out, len(all), nil
}

func (r *principalRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	p, ok := r.liveLocked(id)
	if !ok {
		return repository.ErrNotFound
	}
	p.DeletedAt = &at
	p.UpdatedAt = at
	return nil
}
