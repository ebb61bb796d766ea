package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/weasl/internal/config"
	"github.com/dropDatabas3/weasl/internal/store"
	migrations "github.com/dropDatabas3/weasl/migrations/postgres"
)

func main() {
	configPath := flag.String("config", os.Getenv("WEASL_CONFIG"), "Path to YAML config")
	flag.Parse()
	_ = godotenv.Load()

	// Positional args: [action] [steps]
	action := "up"
	steps := 1
	args := flag.Args()
	if len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			steps = n
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.Storage.Driver != "postgres" {
		log.Fatalf("migrations only apply to postgres (storage.driver=%q)", cfg.Storage.Driver)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()

	m := store.NewMigrator(migrations.FS, migrations.Dir)
	var res *store.MigrationResult
	switch action {
	case "up":
		res, err = m.Up(ctx, pool)
	case "down":
		res, err = m.Down(ctx, pool, steps)
	default:
		log.Fatalf("unknown action %q (use up|down)", action)
	}
	if err != nil {
		log.Fatalf("%s: %v", action, err)
	}
	log.Printf("%s: applied=%v skipped=%d in %s", action, res.Applied, len(res.Skipped), res.Duration)
}
