// cmd/migrate/main.go
// Backfills the interaction ledger from the legacy likes/dislikes tables.
// Safe to re-run: rows already present in the ledger are skipped.

package main

import (
    "context"
    "log"

    "github.com/joho/godotenv"

    "github.com/emberly-app/emberly-backend/internal/common/database"
    "github.com/emberly-app/emberly-backend/internal/config"
    "github.com/emberly-app/emberly-backend/internal/discovery"
)

func main() {
    log.SetFlags(log.Ldate | log.Ltime)

    if err := godotenv.Load(); err != nil {
        log.Printf("⚠️  No .env file found (%v), using environment variables", err)
    }

    cfg := config.Load()
    if err := cfg.Validate(); err != nil {
        log.Fatal("❌ Configuration validation failed:", err)
    }

    db, err := database.NewPostgresDB(cfg.DatabaseURL)
    if err != nil {
        log.Fatal("❌ Failed to connect to PostgreSQL:", err)
    }
    defer db.Close()

    ledger := discovery.NewPostgresLedger(db)
    repo := discovery.NewPostgresRepository(db)
    migrator := discovery.NewMigrator(ledger, repo, cfg.MigrationBatchSize)

    log.Println("🔨 Starting ledger backfill...")
    report, err := migrator.Run(context.Background())
    if err != nil {
        log.Fatal("❌ Backfill failed:", err)
    }

    log.Printf("✅ Backfill complete: likes %d/%d, dislikes %d/%d, skipped %d, took %s",
        report.LikesMigrated, report.LikesScanned,
        report.DislikesMigrated, report.DislikesScanned,
        report.Skipped, report.Duration)
}
