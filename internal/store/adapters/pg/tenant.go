package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/domain/types"
)

type tenantRepo struct{ pool *pgxpool.Pool }

const tenantColumns = `id, client_id, client_secret, created_at`

func (r *tenantRepo) getBy(ctx context.Context, column string, value any) (*repository.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE ` + column + ` = $1`
	var t repository.Tenant
	err := r.pool.QueryRow(ctx, query, value).Scan(&t.ID, &t.ClientID, &t.ClientSecret, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get tenant by %s: %w", column, err)
	}
	return &t, nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id int64) (*repository.Tenant, error) {
	return r.getBy(ctx, "id", id)
}

func (r *tenantRepo) GetByClientID(ctx context.Context, clientID string) (*repository.Tenant, error) {
	return r.getBy(ctx, "client_id", clientID)
}

func (r *tenantRepo) GetByClientSecret(ctx context.Context, secret string) (*repository.Tenant, error) {
	return r.getBy(ctx, "client_secret", secret)
}

func (r *tenantRepo) CredentialsTaken(ctx context.Context, clientID, secret string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM tenants WHERE client_id = $1 OR client_secret = $2)`
	var taken bool
	if err := r.pool.QueryRow(ctx, query, clientID, secret).Scan(&taken); err != nil {
		return false, fmt.Errorf("pg: probe tenant credentials: %w", err)
	}
	return taken, nil
}

func (r *tenantRepo) Create(ctx context.Context, t *repository.Tenant) error {
	const query = `
		INSERT INTO tenants (id, client_id, client_secret, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.pool.Exec(ctx, query, t.ID, t.ClientID, t.ClientSecret, t.CreatedAt); err != nil {
		if cerr := mapConflict(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("pg: create tenant: %w", err)
	}
	return nil
}

func (r *tenantRepo) GetProperty(ctx context.Context, tenantID int64, ns repository.PropertyNamespace, name string) (*repository.TenantProperty, error) {
	const query = `
		SELECT value, value_type, updated_at
		FROM tenant_properties
		WHERE tenant_id = $1 AND namespace = $2 AND name = $3`
	p := repository.TenantProperty{TenantID: tenantID, Namespace: ns, Name: name}
	var valueType string
	err := r.pool.QueryRow(ctx, query, tenantID, string(ns), name).Scan(&p.Value.Raw, &valueType, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: get tenant property: %w", err)
	}
	p.Value.Type = types.ValueType(valueType)
	return &p, nil
}

func (r *tenantRepo) ListProperties(ctx context.Context, tenantID int64) ([]repository.TenantProperty, error) {
	const query = `
		SELECT namespace, name, value, value_type, updated_at
		FROM tenant_properties
		WHERE tenant_id = $1
		ORDER BY namespace, name`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("pg: list tenant properties: %w", err)
	}
	defer rows.Close()

	var out []repository.TenantProperty
	for rows.Next() {
		p := repository.TenantProperty{TenantID: tenantID}
		var ns, valueType string
		if err := rows.Scan(&ns, &p.Name, &p.Value.Raw, &valueType, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pg: scan tenant property: %w", err)
		}
		p.Namespace = repository.PropertyNamespace(ns)
		p.Value.Type = types.ValueType(valueType)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *tenantRepo) UpsertProperty(ctx context.Context, p repository.TenantProperty) error {
	const query = `
		INSERT INTO tenant_properties (tenant_id, namespace, name, value, value_type, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, namespace, name)
		DO UPDATE SET value = EXCLUDED.value, value_type = EXCLUDED.value_type, updated_at = EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, query, p.TenantID, string(p.Namespace), p.Name, p.Value.Raw, string(p.Value.Type), p.UpdatedAt)
	if isForeignKeyViolation(err) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("pg: upsert tenant property: %w", err)
	}
	return nil
}
