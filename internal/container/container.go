package container

import (
	"context"
	"fmt"
	"log"

	"goiqc/adapters/memory"
	"goiqc/adapters/postgres"
	"goiqc/app"
	"goiqc/internal/api"
	"goiqc/internal/config"
	"goiqc/internal/migration"
	"goiqc/ports"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB       *sqlx.DB
	Registry *prometheus.Registry

	// Repositories (data access layer)
	AnalyteRepo    ports.AnalyteRepository
	EvaluationRepo ports.EvaluationRepository

	// Services
	EvaluationService *app.EvaluationService
	Server            *api.Server
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Container{
		Config:   cfg,
		Registry: registry,
	}, nil
}

// InitWithDatabase wires the Postgres repositories after running migrations
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	c.AnalyteRepo = postgres.NewAnalyteRepository(db)
	c.EvaluationRepo = postgres.NewEvaluationRepository(db)
	c.initServices()

	log.Printf("Container initialized with Postgres storage")
	return nil
}

// InitInMemory wires the in-process store
func (c *Container) InitInMemory() {
	store := memory.NewStore()
	c.AnalyteRepo = store
	c.EvaluationRepo = store
	c.initServices()

	log.Printf("Container initialized with in-memory storage; state is lost on exit")
}

func (c *Container) initServices() {
	c.EvaluationService = app.NewEvaluationService(c.AnalyteRepo, c.EvaluationRepo, c.Config.QC.EvalConcurrency)
	c.Server = api.NewServer(c.EvaluationService, c.Registry)
}

// Shutdown releases infrastructure resources
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	log.Printf("Container shutdown complete")
	return nil
}
