package config

import (
	"fmt"
	"os"
	"path/filepath"

	"goiqc/domain/core"
	"goiqc/domain/qc"
	"goiqc/internal/errors"

	"gopkg.in/yaml.v3"
)

// Catalogue is a lab's analyte working set as kept in a YAML file:
//
//	lab: central-lab
//	analytes:
//	  - key: glucose
//	    baseline: glucose_baseline.xlsx
//	    runs: glucose_runs.xlsx
//	    config:
//	      test_name: Glucose
//	      num_levels: 2
//	      sigma_value: 5.2
type Catalogue struct {
	Lab      string         `yaml:"lab"`
	Analytes []AnalyteEntry `yaml:"analytes"`

	dir string
}

// AnalyteEntry is one analyte of a catalogue
type AnalyteEntry struct {
	Key          string           `yaml:"key"`
	BaselineFile string           `yaml:"baseline"`
	RunsFile     string           `yaml:"runs"`
	Sheet        string           `yaml:"sheet,omitempty"`
	Config       qc.AnalyteConfig `yaml:"config"`
}

// LoadCatalogue reads and validates a catalogue. Analytes without a sigma or
// level count take the defaults from qcDefaults.
func LoadCatalogue(path string, qcDefaults QCConfig) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read analyte catalogue %s", path)
	}

	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse %s: %w", path, err))
	}
	cat.dir = filepath.Dir(path)

	if _, err := core.ParseLabID(cat.Lab); err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("%s: %v", path, err))
	}

	seen := make(map[string]bool, len(cat.Analytes))
	for i := range cat.Analytes {
		entry := &cat.Analytes[i]
		if _, err := core.ParseAnalyteKey(entry.Key); err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("%s: analyte %d: %v", path, i+1, err))
		}
		if seen[entry.Key] {
			return nil, errors.ConfigInvalid(fmt.Sprintf("%s: duplicate analyte %q", path, entry.Key))
		}
		seen[entry.Key] = true

		applyDefaults(&entry.Config, entry.Key, qcDefaults)
		if err := entry.Config.Validate(); err != nil {
			return nil, errors.Wrapf(err, "analyte %s", entry.Key)
		}
	}
	return &cat, nil
}

// Resolve returns a catalogue-relative path as an absolute or working-directory path
func (c *Catalogue) Resolve(file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.dir, file)
}

func applyDefaults(cfg *qc.AnalyteConfig, key string, d QCConfig) {
	if cfg.TestName == "" {
		cfg.TestName = key
	}
	if cfg.SigmaValue == 0 {
		cfg.SigmaValue = d.DefaultSigma
	}
	if cfg.NumLevels == 0 {
		cfg.NumLevels = d.DefaultNumLevels
		if len(cfg.LevelNames) > 0 {
			cfg.NumLevels = len(cfg.LevelNames)
		}
	}
	if d.StrictBaseline {
		cfg.StrictBaseline = true
	}
}
