package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	LabID        ID
	AnalyteKey   ID
	EvaluationID ID
)

func (id LabID) String() string        { return ID(id).String() }
func (id AnalyteKey) String() string   { return ID(id).String() }
func (id EvaluationID) String() string { return ID(id).String() }

// NewEvaluationID creates a time-ordered evaluation identifier
func NewEvaluationID() EvaluationID {
	return EvaluationID(NewID())
}

// ParseLabID parses a string into LabID
func ParseLabID(s string) (LabID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("lab ID cannot be empty")
	}
	return LabID(s), nil
}

// ParseAnalyteKey parses a string into AnalyteKey
func ParseAnalyteKey(s string) (AnalyteKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("analyte key cannot be empty")
	}
	return AnalyteKey(s), nil
}

// ParseEvaluationID parses a string into EvaluationID; the value must be a UUID
func ParseEvaluationID(s string) (EvaluationID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid evaluation ID %q: %w", s, err)
	}
	return EvaluationID(u.String()), nil
}
