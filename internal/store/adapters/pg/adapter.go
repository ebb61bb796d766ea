// Package pg implementa el adapter PostgreSQL sobre pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/weasl/internal/domain/repository"
	"github.com/dropDatabas3/weasl/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = 2
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return &Conn{pool: pool}, nil
}

// Conn es una conexión activa a PostgreSQL.
type Conn struct {
	pool *pgxpool.Pool
}

// NewFromPool envuelve un pool existente (tests, herramientas).
func NewFromPool(pool *pgxpool.Pool) *Conn { return &Conn{pool: pool} }

func (c *Conn) Name() string { return "postgres" }

func (c *Conn) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *Conn) Close() error {
	c.pool.Close()
	return nil
}

// Pool expone el pool para el Migrator.
func (c *Conn) Pool() *pgxpool.Pool { return c.pool }

// ─── Repositorios ───

func (c *Conn) Tenants() repository.TenantRepository       { return &tenantRepo{pool: c.pool} }
func (c *Conn) Principals() repository.PrincipalRepository { return &principalRepo{pool: c.pool} }
func (c *Conn) AuthTokens() repository.AuthTokenRepository { return &tokenRepo{pool: c.pool} }

// ─── Helpers ───

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// constraintFields traduce nombres de constraint a campos de dominio.
var constraintFields = map[string]string{
	"tenants_pkey":                 "id",
	"tenants_client_id_uq":         "client_credentials",
	"tenants_client_secret_uq":     "client_credentials",
	"principals_pkey":              "id",
	"principals_tenant_email_uq":   "email",
	"principals_tenant_phone_uq":   "phone",
	"email_tokens_pkey":            "token",
	"email_tokens_active_token_uq": "token",
	"sms_tokens_pkey":              "token",
	"sms_tokens_active_token_uq":   "token",
}

// mapConflict convierte una unique violation en *repository.ConflictError.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &repository.ConflictError{Field: constraintFields[pgErr.ConstraintName]}
	}
	return nil
}

// isForeignKeyViolation indica que la fila padre no existe.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

func nullIfEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
