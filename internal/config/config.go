package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"goiqc/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Data     DataConfig
	QC       QCConfig
	LogLevel string `validate:"oneof=ERROR WARN INFO DEBUG"`
}

// DatabaseConfig holds database connection settings. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required,numeric"`
	GinMode string `validate:"oneof=debug release test"`
}

// DataConfig holds input file locations
type DataConfig struct {
	ExcelFile    string
	AnalytesFile string
}

// QCConfig holds the defaults applied to analytes created without settings
type QCConfig struct {
	DefaultSigma     float64 `validate:"gte=1,lte=10"`
	DefaultNumLevels int     `validate:"oneof=2 3"`
	StrictBaseline   bool
	EvalConcurrency  int `validate:"gte=1,lte=64"`
}

// UseDatabase reports whether a Postgres URL is configured
func (c *Config) UseDatabase() bool {
	return c.Database.URL != ""
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server:   *loadServerConfig(),
		Data:     *loadDataConfig(),
		QC:       *loadQCConfig(),
		LogLevel: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO")),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		ExcelFile:    getEnvOrDefault("EXCEL_FILE", ""),
		AnalytesFile: getEnvOrDefault("ANALYTES_FILE", ""),
	}
}

func loadQCConfig() *QCConfig {
	return &QCConfig{
		DefaultSigma:     getEnvFloatOrDefault("DEFAULT_SIGMA", 6.0),
		DefaultNumLevels: getEnvIntOrDefault("DEFAULT_NUM_LEVELS", 2),
		StrictBaseline:   getEnvBoolOrDefault("STRICT_BASELINE", false),
		EvalConcurrency:  getEnvIntOrDefault("EVAL_CONCURRENCY", 4),
	}
}

var validate = validator.New()

func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.ConfigInvalid(fmt.Sprintf("%s failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
