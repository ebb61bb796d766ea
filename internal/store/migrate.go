package store

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Formato de archivo: {version}_{name}_up.sql y {version}_{name}_down.sql.
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)_(up|down)\.sql$`)

// Migration es una migración con sus dos direcciones.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// MigrationResult resume una corrida.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

// Migrator aplica migraciones SQL embebidas sobre PostgreSQL, registrando las
// versiones aplicadas en la tabla _migrations.
type Migrator struct {
	fsys fs.FS
	dir  string
}

// NewMigrator crea un Migrator sobre fsys/dir.
func NewMigrator(fsys fs.FS, dir string) *Migrator {
	return &Migrator{fsys: fsys, dir: dir}
}

// Parse lee las migraciones ordenadas por versión.
func (m *Migrator) Parse() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("migrate: read dir: %w", err)
	}
	byVersion := map[int]*Migration{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := migrationFilePattern.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		version, _ := strconv.Atoi(match[1])
		content, err := fs.ReadFile(m.fsys, path.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", e.Name(), err)
		}
		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: match[2]}
			byVersion[version] = mig
		}
		if match[3] == "up" {
			mig.Up = string(content)
		} else {
			mig.Down = string(content)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		out = append(out, *mig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS _migrations (
		version    INT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Up aplica las migraciones pendientes, cada una en su propia transacción.
func (m *Migrator) Up(ctx context.Context, pool *pgxpool.Pool) (*MigrationResult, error) {
	start := time.Now()
	res := &MigrationResult{}

	migrations, err := m.Parse()
	if err != nil {
		return res, err
	}
	if _, err := pool.Exec(ctx, createMigrationsTable); err != nil {
		return res, fmt.Errorf("migrate: create _migrations: %w", err)
	}
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return res, err
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			res.Skipped = append(res.Skipped, mig.Version)
			continue
		}
		if mig.Up == "" {
			continue
		}
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("migrate: apply %04d_%s: %w", mig.Version, mig.Name, err)
		}
		res.Applied = append(res.Applied, mig.Version)
	}
	res.Duration = time.Since(start)
	return res, nil
}

// Down revierte las últimas steps migraciones aplicadas (todas si steps <= 0).
func (m *Migrator) Down(ctx context.Context, pool *pgxpool.Pool, steps int) (*MigrationResult, error) {
	start := time.Now()
	res := &MigrationResult{}

	migrations, err := m.Parse()
	if err != nil {
		return res, err
	}
	if _, err := pool.Exec(ctx, createMigrationsTable); err != nil {
		return res, fmt.Errorf("migrate: create _migrations: %w", err)
	}
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return res, err
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		mig := migrations[i]
		if !applied[mig.Version] {
			continue
		}
		if steps > 0 && len(res.Applied) >= steps {
			break
		}
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if mig.Down != "" {
				if _, err := tx.Exec(ctx, mig.Down); err != nil {
					return err
				}
			}
			_, err := tx.Exec(ctx, `DELETE FROM _migrations WHERE version = $1`, mig.Version)
			return err
		})
		if err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("migrate: revert %04d_%s: %w", mig.Version, mig.Name, err)
		}
		res.Applied = append(res.Applied, mig.Version)
	}
	res.Duration = time.Since(start)
	return res, nil
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[int]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("migrate: list applied: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("migrate: list applied: %w", err)
	}
	out := make(map[int]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}
