package main

import (
	"context"
	"log"

	"nau-assistant/internal/config"
	"nau-assistant/internal/repository/implementation"
	"nau-assistant/pkg/database"
	"nau-assistant/pkg/knowledge"

	"github.com/alecthomas/kong"
)

var cli struct {
	Import string `help:"Snapshot directory to import into knowledge_chunks after migrating." default:""`
}

func main() {
	kong.Parse(&cli, kong.Name("migrate"), kong.Description("Create the knowledge_chunks table and optionally import a file snapshot."))

	// 1. Load Environment Variables
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	ctx := context.Background()
	repo := implementation.NewKnowledgeChunkRepository(db)

	log.Println("Step 1: Migrating knowledge_chunks...")
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("Error: migration failed: %v", err)
	}

	if cli.Import == "" {
		log.Println("Migration finished")
		return
	}

	log.Printf("Step 2: Importing snapshot from %s...", cli.Import)
	snap, err := knowledge.NewFileLoader(cli.Import).Load(ctx)
	if err != nil {
		log.Fatalf("Error: cannot read snapshot: %v", err)
	}
	// validate before replacing the table contents
	if _, err := knowledge.Build(snap); err != nil {
		log.Fatalf("Error: snapshot is invalid: %v", err)
	}
	if err := repo.ReplaceAll(ctx, snap); err != nil {
		log.Fatalf("Error: import failed: %v", err)
	}
	log.Printf("Imported %d chunks", len(snap.Records))
}
