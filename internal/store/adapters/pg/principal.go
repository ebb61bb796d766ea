package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
)

type principalRepo struct{ pool *pgxpool.Pool }

const principalColumns = `id, tenant_id, email, phone, created_at, updated_at, last_login_at`

func scanPrincipal(row pgx.Row) (*repository.Principal, error) {
	var p repository.Principal
	if err := row.Scan(&p.ID, &p.TenantID, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt, &p.LastLoginAt); err != nil {
		return nil, err
	}
	p.Attributes = map[string]repository.Attribute{}
	return &p, nil
}

func (r *principalRepo) GetByID(ctx context.Context, id string) (*repository.Principal, error) {
	const query = `SELECT ` + principalColumns + ` FROM principals WHERE id = $1 AND deleted_at IS NULL`
	return r.getOne(ctx, query, id)
}

func (r *principalRepo) FindByIdentifier(ctx context.Context, tenantID int64, id repository.Identifier) (*repository.Principal, error) {
	var column string
	switch id.Kind {
	case repository.IdentifierEmail:
		column = "email"
	case repository.IdentifierPhone:
		column = "phone"
	default:
		return nil, repository.ErrInvalidInput
	}
	query := `SELECT ` + principalColumns + ` FROM principals
		WHERE tenant_id = $1 AND ` + column + ` = $2 AND deleted_at IS NULL`
	return r.getOne(ctx, query, tenantID, id.Value)
}

func (r *principalRepo) getOne(ctx context.Context, query string, args ...any) (*repository.Principal, error) {
	p, err := scanPrincipal(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get principal: %w", err)
	}
	if err := r.loadAttributes(ctx, map[string]*repository.Principal{p.ID: p}); err != nil {
		return nil, err
	}
	return p, nil
}

// loadAttributes completa Attributes de todos los principals dados en una query.
func (r *principalRepo) loadAttributes(ctx context.Context, byID map[string]*repository.Principal) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	const query = `
		SELECT principal_id, name, value, value_type, trusted, updated_at
		FROM principal_attributes
		WHERE principal_id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("pg: load attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var principalID, valueType string
		var a repository.Attribute
		if err := rows.Scan(&principalID, &a.Name, &a.Value.Raw, &valueType, &a.Trusted, &a.UpdatedAt); err != nil {
			return fmt.Errorf("pg: scan attribute: %w", err)
		}
		a.Value.Type = types.ValueType(valueType)
		if p, ok := byID[principalID]; ok {
			p.Attributes[a.Name] = a
		}
	}
	return rows.Err()
}

func (r *principalRepo) Create(ctx context.Context, p *repository.Principal) error {
	const query = `
		INSERT INTO principals (id, tenant_id, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, p.ID, p.TenantID, nullIfEmpty(p.Email), nullIfEmpty(p.Phone), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if cerr := mapConflict(err); cerr != nil {
			return cerr
		}
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("pg: create principal: %w", err)
	}
	return nil
}

func (r *principalRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE principals SET last_login_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("pg: touch login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *principalRepo) UpsertAttribute(ctx context.Context, principalID string, attr repository.Attribute) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE principals SET updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, principalID, attr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pg: touch principal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	const query = `
		INSERT INTO principal_attributes (principal_id, name, value, value_type, trusted, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (principal_id, name)
		DO UPDATE SET value = EXCLUDED.value, value_type = EXCLUDED.value_type,
		              trusted = EXCLUDED.trusted, updated_at = EXCLUDED.updated_at`
	if _, err := tx.Exec(ctx, query, principalID, attr.Name, attr.Value.Raw, string(attr.Value.Type), attr.Trusted, attr.UpdatedAt); err != nil {
		return fmt.Errorf("pg: upsert attribute: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *principalRepo) List(ctx context.Context, tenantID int64, page repository.Page) ([]repository.Principal, int, error) {
	page = page.Normalize()

	var total int
	const countQuery = `SELECT COUNT(*) FROM principals WHERE tenant_id = $1 AND deleted_at IS NULL`
	if err := r.pool.QueryRow(ctx, countQuery, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pg: count principals: %w", err)
	}

	const query = `SELECT ` + principalColumns + ` FROM principals
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY last_login_at DESC NULLS LAST, created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, tenantID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("pg: list principals: %w", err)
	}
	defer rows.Close()

	var list []*repository.Principal
	byID := map[string]*repository.Principal{}
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pg: scan principal: %w", err)
		}
		list = append(list, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	if err := r.loadAttributes(ctx, byID); err != nil {
		return nil, 0, err
	}
	out := make([]repository.Principal, 0, len(list))
	for _, p := range list {
		out = append(out, *p)
	}
	return out, total, nil
}

func (r *principalRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE principals SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("pg: soft delete principal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
