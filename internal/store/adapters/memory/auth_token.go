package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
)

type tokenRepo struct{ c *Conn }

func (r *tokenRepo) activeLocked(kind repository.TokenKind, token string) *repository.AuthToken {
	for _, t := range r.c.tokens[kind] {
		if t.Active && t.Token == token {
			return t
		}
	}
	return nil
}

func (r *tokenRepo) ActiveExists(ctx context.Context, kind repository.TokenKind, token string) (bool, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.activeLocked(kind, token) != nil, nil
}

func (r *tokenRepo) Insert(ctx context.Context, t *repository.AuthToken) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if t.Active && r.activeLocked(t.Kind, t.Token) != nil {
		return &repository.ConflictError{Field: "token"}
	}
	for _, existing := range r.c.tokens[t.Kind] {
		if existing.Token == t.Token && existing.PrincipalID == t.PrincipalID {
			return &repository.ConflictError{Field: "token"}
		}
	}
	cp := *t
	r.c.tokens[t.Kind] = append(r.c.tokens[t.Kind], &cp)
	return nil
}

func (r *tokenRepo) MarkDelivered(ctx context.Context, kind repository.TokenKind, token, principalID string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, t := range r.c.tokens[kind] {
		if t.Token == token && t.PrincipalID == principalID {
			t.Delivered = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *tokenRepo) Consume(ctx context.Context, kind repository.TokenKind, token string, tenantID int64, now time.Time) (string, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	t := r.activeLocked(kind, token)
	if t == nil || t.TenantID != tenantID || !t.ExpiresAt.After(now) {
		return "", repository.ErrNotFound
	}
	t.Active = false
	return t.PrincipalID, nil
}

func (r *tokenRepo) ListByTenant(ctx context.Context, kind repository.TokenKind, tenantID int64, page repository.Page) ([]repository.AuthToken, int, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	var all []repository.AuthToken
	for _, t := range r.c.tokens[kind] {
		if t.TenantID == tenantID {
			all = append(all, *t)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, page), len(all), nil
}
