// Package catalogue turns a lab's YAML analyte catalogue into evaluation
// inputs, reading each analyte's baseline and run spreadsheets.
package catalogue

import (
	"context"
	"fmt"

	"goiqc/adapters/excel"
	"goiqc/app"
	"goiqc/domain/core"
	"goiqc/domain/qc"
	"goiqc/internal"
	"goiqc/internal/config"
	"goiqc/internal/errors"
	"goiqc/ports"
)

var catalogueLog = internal.DefaultLogger.With("Catalogue")

// Inputs reads every analyte's files. An analyte without a runs file gets an
// empty run history; a baseline file is required.
func Inputs(cat *config.Catalogue) (map[string]app.Input, error) {
	inputs := make(map[string]app.Input, len(cat.Analytes))
	for _, entry := range cat.Analytes {
		in, err := readEntry(cat, entry)
		if err != nil {
			return nil, errors.Wrapf(err, "analyte %s", entry.Key)
		}
		inputs[entry.Key] = in
	}
	return inputs, nil
}

func readEntry(cat *config.Catalogue, entry config.AnalyteEntry) (app.Input, error) {
	levels := entry.Config.Levels()
	if entry.BaselineFile == "" {
		return app.Input{}, core.NewConfigurationError("baseline", "no baseline file")
	}

	samples, err := openSheet(cat.Resolve(entry.BaselineFile), entry.Sheet).ReadBaseline(levels)
	if err != nil {
		return app.Input{}, err
	}

	var runs []qc.QCRun
	if entry.RunsFile != "" {
		runs, err = openSheet(cat.Resolve(entry.RunsFile), entry.Sheet).ReadRuns(levels)
		if err != nil {
			return app.Input{}, err
		}
	}
	return app.Input{Config: entry.Config, Baseline: samples, Runs: runs}, nil
}

// openSheet returns the reader for one catalogue file
var openSheet = func(path, sheet string) ports.SheetReader {
	cfg := excel.DefaultExcelConfig()
	cfg.FilePath = path
	cfg.Sheet = sheet
	return excel.NewDataReaderWithConfig(cfg)
}

// Seed stores every catalogue analyte that the lab does not have yet. Stored
// analytes are left untouched so restarts do not duplicate runs.
func Seed(ctx context.Context, svc *app.EvaluationService, cat *config.Catalogue) (int, error) {
	lab, err := core.ParseLabID(cat.Lab)
	if err != nil {
		return 0, errors.FromDomain(core.NewConfigurationError("lab", err.Error()))
	}
	inputs, err := Inputs(cat)
	if err != nil {
		return 0, err
	}

	seeded := 0
	for _, entry := range cat.Analytes {
		key := core.AnalyteKey(entry.Key)
		_, err := svc.GetAnalyte(ctx, lab, key)
		if err == nil {
			catalogueLog.Debug("%s/%s already stored, skipping", lab, key)
			continue
		}
		if !core.IsNotFoundError(err) {
			return seeded, err
		}

		in := inputs[entry.Key]
		if _, err := svc.PutAnalyte(ctx, lab, key, app.AnalyteUpdate{Config: in.Config, Baseline: in.Baseline}); err != nil {
			return seeded, err
		}
		if len(in.Runs) > 0 {
			if _, err := svc.AppendRuns(ctx, lab, key, in.Runs); err != nil {
				return seeded, err
			}
		}
		seeded++
	}
	catalogueLog.Info("Seeded %d of %d analytes for %s", seeded, len(cat.Analytes), lab)
	return seeded, nil
}

// Describe summarises a catalogue for logs and CLI output
func Describe(cat *config.Catalogue) string {
	return fmt.Sprintf("%s (%d analytes)", cat.Lab, len(cat.Analytes))
}
