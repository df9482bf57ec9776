package qc

import (
	"errors"
	"fmt"
	"strings"

	"goiqc/domain/core"

	"github.com/go-playground/validator/v10"
)

// configValidate enforces the struct tags on AnalyteConfig
var configValidate = validator.New()

// AnalyteConfig is the per-analyte settings record kept by the settings store.
// The engine only reads it.
type AnalyteConfig struct {
	TestName     string   `json:"test_name" yaml:"test_name" validate:"required"`
	Unit         string   `json:"unit,omitempty" yaml:"unit"`
	Device       string   `json:"device,omitempty" yaml:"device"`
	Method       string   `json:"method,omitempty" yaml:"method"`
	QCName       string   `json:"qc_name,omitempty" yaml:"qc_name"`
	QCLot        string   `json:"qc_lot,omitempty" yaml:"qc_lot"`
	QCExpiry     string   `json:"qc_expiry,omitempty" yaml:"qc_expiry"`
	ReportPeriod string   `json:"report_period,omitempty" yaml:"report_period"`
	NumLevels    int      `json:"num_levels" yaml:"num_levels" validate:"oneof=2 3"`
	SigmaValue   float64  `json:"sigma_value" yaml:"sigma_value" validate:"gte=1,lte=10"`
	LevelNames   []string `json:"level_names,omitempty" yaml:"level_names" validate:"omitempty,dive,required"`

	// StrictBaseline turns a baseline level with fewer than two samples into
	// ErrInsufficientBaseline instead of a level with undefined z-scores.
	StrictBaseline bool `json:"strict_baseline,omitempty" yaml:"strict_baseline"`
}

// DefaultAnalyteConfig mirrors the settings a freshly created analyte starts with
func DefaultAnalyteConfig(testName string) AnalyteConfig {
	return AnalyteConfig{
		TestName:   testName,
		NumLevels:  2,
		SigmaValue: 6.0,
	}
}

// Validate checks ranges and returns ErrInvalidConfiguration on failure
func (c AnalyteConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return core.NewConfigurationError(fe.Field(), describeTag(fe))
		}
		return core.NewConfigurationError("config", err.Error())
	}
	if len(c.LevelNames) > 0 && len(c.LevelNames) != c.NumLevels {
		return core.NewConfigurationError("LevelNames",
			fmt.Sprintf("%d names given for %d levels", len(c.LevelNames), c.NumLevels))
	}
	if err := ValidateLevels(c.Levels()); err != nil {
		return core.NewConfigurationError("LevelNames", err.Error())
	}
	return nil
}

// Levels returns the configured control levels in position order
func (c AnalyteConfig) Levels() []ControlLevel {
	if len(c.LevelNames) > 0 {
		return NamedLevels(c.LevelNames...)
	}
	return DefaultLevels(c.NumLevels)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "gte":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
