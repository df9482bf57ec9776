package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrAnalyteNotFound  = fmt.Errorf("%w: analyte", ErrNotFound)
	ErrEvaluationAbsent = fmt.Errorf("%w: evaluation", ErrNotFound)

	// Validation errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidRuleSet       = errors.New("invalid rule set")
	ErrInsufficientBaseline = errors.New("insufficient baseline")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewConfigurationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfiguration, field, reason)
}

func NewRuleSetError(token string) error {
	return fmt.Errorf("%w: unknown rule %q", ErrInvalidRuleSet, token)
}

func NewInsufficientBaselineError(level string, n int) error {
	return fmt.Errorf("%w: level %s has %d samples, need at least 2", ErrInsufficientBaseline, level, n)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

func IsRuleSetError(err error) bool {
	return errors.Is(err, ErrInvalidRuleSet)
}

func IsInsufficientBaselineError(err error) bool {
	return errors.Is(err, ErrInsufficientBaseline)
}
