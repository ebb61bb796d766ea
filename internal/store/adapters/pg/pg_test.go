package pg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dropDatabas3/weasl/internal/store"
	"github.com/dropDatabas3/weasl/internal/store/adapters/pg"
	"github.com/dropDatabas3/weasl/internal/store/storetest"
	migrations "github.com/dropDatabas3/weasl/migrations/postgres"
)

// setupPool levanta PostgreSQL en un contenedor y aplica las migraciones.
// Se saltea si Docker no está disponible o SKIP_INTEGRATION=true.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("weasl_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool: %v", err)
	}
	t.Cleanup(pool.Close)

	m := store.NewMigrator(migrations.FS, migrations.Dir)
	res, err := m.Up(ctx, pool)
	if err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if len(res.Applied) == 0 {
		t.Fatalf("expected migrations to be applied")
	}
	// Re-aplicar es no-op.
	res, err = m.Up(ctx, pool)
	if err != nil || len(res.Applied) != 0 {
		t.Fatalf("second migrate up: applied=%v err=%v", res.Applied, err)
	}
	return pool
}

func TestPostgresAdapterConformance(t *testing.T) {
	pool := setupPool(t)
	conn := pg.NewFromPool(pool)
	storetest.Run(t, func(t *testing.T) store.Connection { return conn })
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := store.Open(context.Background(), store.AdapterConfig{Driver: "mongo"})
	if err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
