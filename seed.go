package main

import (
	"context"
	"log"

	"goiqc/internal/catalogue"
	"goiqc/internal/config"
	"goiqc/internal/container"
)

// seedCatalogue stores the ANALYTES_FILE analytes that are not stored yet
func seedCatalogue(ctx context.Context, c *container.Container, appConfig *config.Config) error {
	cat, err := config.LoadCatalogue(appConfig.Data.AnalytesFile, appConfig.QC)
	if err != nil {
		return err
	}
	seeded, err := catalogue.Seed(ctx, c.EvaluationService, cat)
	if err != nil {
		return err
	}
	log.Printf("Analyte catalogue %s loaded, %d new analytes", catalogue.Describe(cat), seeded)
	return nil
}
