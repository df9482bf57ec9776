package main

import (
	"context"
	"log"
	"os"
	"time"

	"goiqc/adapters/postgres"
	"goiqc/app"
	"goiqc/internal/catalogue"
	"goiqc/internal/config"
	"goiqc/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url> [analytes.yaml]")
	}

	databaseURL := os.Args[1]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema %s ready: %v", runner.Version(), migration.Tables())

	if len(os.Args) < 3 {
		return
	}

	// Optional catalogue import
	cat, err := config.LoadCatalogue(os.Args[2], config.QCConfig{DefaultSigma: 6.0, DefaultNumLevels: 2, EvalConcurrency: 1})
	if err != nil {
		log.Fatalf("Failed to load catalogue: %v", err)
	}
	svc := app.NewEvaluationService(postgres.NewAnalyteRepository(db), postgres.NewEvaluationRepository(db), 1)
	seeded, err := catalogue.Seed(ctx, svc, cat)
	if err != nil {
		log.Fatalf("Catalogue import failed after %d analytes: %v", seeded, err)
	}
	log.Printf("Imported %d analytes from %s", seeded, catalogue.Describe(cat))
}
