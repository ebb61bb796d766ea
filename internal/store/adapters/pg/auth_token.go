package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
)

type tokenRepo struct{ pool *pgxpool.Pool }

// table resuelve la tabla del namespace. Los nombres son constantes, nunca input.
func table(kind repository.TokenKind) (string, error) {
	switch kind {
	case repository.TokenEmail:
		return "email_tokens", nil
	case repository.TokenSMS:
		return "sms_tokens", nil
	}
	return "", fmt.Errorf("pg: unknown token kind %q: %w", kind, repository.ErrInvalidInput)
}

func (r *tokenRepo) ActiveExists(ctx context.Context, kind repository.TokenKind, token string) (bool, error) {
	tbl, err := table(kind)
	if err != nil {
		return false, err
	}
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + tbl + ` WHERE token = $1 AND active)`
	if err := r.pool.QueryRow(ctx, query, token).Scan(&exists); err != nil {
		return false, fmt.Errorf("pg: probe %s: %w", tbl, err)
	}
	return exists, nil
}

func (r *tokenRepo) Insert(ctx context.Context, t *repository.AuthToken) error {
	tbl, err := table(t.Kind)
	if err != nil {
		return err
	}
	query := `INSERT INTO ` + tbl + ` (token, principal_id, tenant_id, created_at, expires_at, active, delivered)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.pool.Exec(ctx, query, t.Token, t.PrincipalID, t.TenantID, t.CreatedAt, t.ExpiresAt, t.Active, t.Delivered)
	if err != nil {
		if cerr := mapConflict(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("pg: insert %s: %w", tbl, err)
	}
	return nil
}

func (r *tokenRepo) MarkDelivered(ctx context.Context, kind repository.TokenKind, token, principalID string) error {
	tbl, err := table(kind)
	if err != nil {
		return err
	}
	query := `UPDATE ` + tbl + ` SET delivered = TRUE WHERE token = $1 AND principal_id = $2`
	tag, err := r.pool.Exec(ctx, query, token, principalID)
	if err != nil {
		return fmt.Errorf("pg: mark delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Consume es un único UPDATE condicional: la fila pasa a inactive en la misma
// sentencia que la selecciona, así que de N llamadas concurrentes solo una
// obtiene RETURNING.
func (r *tokenRepo) Consume(ctx context.Context, kind repository.TokenKind, token string, tenantID int64, now time.Time) (string, error) {
	tbl, err := table(kind)
	if err != nil {
		return "", err
	}
	query := `UPDATE ` + tbl + ` SET active = FALSE
		WHERE token = $1 AND active AND tenant_id = $2 AND expires_at > $3
		RETURNING principal_id`
	var principalID string
	err = r.pool.QueryRow(ctx, query, token, tenantID, now).Scan(&principalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("pg: consume %s: %w", tbl, err)
	}
	return principalID, nil
}

func (r *tokenRepo) ListByTenant(ctx context.Context, kind repository.TokenKind, tenantID int64, page repository.Page) ([]repository.AuthToken, int, error) {
	tbl, err := table(kind)
	if err != nil {
		return nil, 0, err
	}
	page = page.Normalize()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+tbl+` WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pg: count %s: %w", tbl, err)
	}

	query := `SELECT token, principal_id, tenant_id, created_at, expires_at, active, delivered
		FROM ` + tbl + `
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, tenantID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("pg: list %s: %w", tbl, err)
	}
	defer rows.Close()

	var out []repository.AuthToken
	for rows.Next() {
		t := repository.AuthToken{Kind: kind}
		if err := rows.Scan(&t.Token, &t.PrincipalID, &t.TenantID, &t.CreatedAt, &t.ExpiresAt, &t.Active, &t.Delivered); err != nil {
			return nil, 0, fmt.Errorf("pg: scan %s: %w", tbl, err)
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}
