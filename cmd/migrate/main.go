package main

import (
	"context"
	"flag"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ct-jyjntc/ai-discussion/internal/config"
	"github.com/ct-jyjntc/ai-discussion/internal/repository/postgres"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop discussion tables before creating them (fresh start)")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL must be set")
	}

	log.Printf("🏗️  Setting up schema (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping discussion tables...")
		if err := dropDiscussionTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	if err := runSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")
}

// runSchema creates the discussion tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	createSessions := `
		CREATE TABLE IF NOT EXISTS ` + tables.Sessions + ` (
			id UUID PRIMARY KEY,
			question TEXT NOT NULL,
			state TEXT NOT NULL,
			current_round INTEGER NOT NULL DEFAULT 0,
			is_complete BOOLEAN NOT NULL DEFAULT FALSE,
			final_verdict JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createSessions); err != nil {
		return err
	}

	createTurns := `
		CREATE TABLE IF NOT EXISTS ` + tables.Turns + ` (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES ` + tables.Sessions + `(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			status TEXT NOT NULL,
			round INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			model TEXT,
			verdict JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)
	`
	if _, err := pool.Exec(ctx, createTurns); err != nil {
		return err
	}

	createTurnIndex := `
		CREATE INDEX IF NOT EXISTS idx_` + tables.Turns + `_session
		ON ` + tables.Turns + ` (session_id, created_at)
	`
	if _, err := pool.Exec(ctx, createTurnIndex); err != nil {
		return err
	}

	createSessionIndex := `
		CREATE INDEX IF NOT EXISTS idx_` + tables.Sessions + `_created
		ON ` + tables.Sessions + ` (created_at DESC)
	`
	_, err := pool.Exec(ctx, createSessionIndex)
	return err
}

// dropDiscussionTables removes the discussion tables and their data
func dropDiscussionTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	dropSQL := `
		DROP TABLE IF EXISTS ` + tables.Turns + ` CASCADE;
		DROP TABLE IF EXISTS ` + tables.Sessions + ` CASCADE;
	`
	_, err := pool.Exec(ctx, dropSQL)
	return err
}
