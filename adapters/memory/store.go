// Package memory keeps analyte state and evaluation history in process.
// It backs the service when no database is configured, and the tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"goiqc/domain/core"
	"goiqc/domain/qc"
)

type stateKey struct {
	lab core.LabID
	key core.AnalyteKey
}

// Store is a mutex-guarded implementation of the analyte and evaluation
// repositories. Values are deep-copied on the way in and out.
type Store struct {
	mu          sync.RWMutex
	states      map[stateKey][]byte
	evaluations map[stateKey][]*qc.EvaluationRecord
	now         func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		states:      make(map[stateKey][]byte),
		evaluations: make(map[stateKey][]*qc.EvaluationRecord),
		now:         time.Now,
	}
}

// Get returns a copy of the saved state
func (s *Store) Get(ctx context.Context, lab core.LabID, key core.AnalyteKey) (*qc.AnalyteState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.states[stateKey{lab, key}]
	s.mu.RUnlock()
	if !ok {
		return nil, core.NewNotFoundError("analyte", lab.String()+"/"+key.String())
	}

	var state qc.AnalyteState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode analyte state: %w", err)
	}
	return &state, nil
}

// Save stores a copy of state, replacing any previous one
func (s *Store) Save(ctx context.Context, lab core.LabID, key core.AnalyteKey, state *qc.AnalyteState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = s.now().UTC()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode analyte state: %w", err)
	}

	s.mu.Lock()
	s.states[stateKey{lab, key}] = data
	s.mu.Unlock()
	return nil
}

// List returns the analyte keys of a lab in lexical order
func (s *Store) List(ctx context.Context, lab core.LabID) ([]core.AnalyteKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	keys := make([]core.AnalyteKey, 0)
	for k := range s.states {
		if k.lab == lab {
			keys = append(keys, k.key)
		}
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// Delete removes an analyte and its evaluation history
func (s *Store) Delete(ctx context.Context, lab core.LabID, key core.AnalyteKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := stateKey{lab, key}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[k]; !ok {
		return core.NewNotFoundError("analyte", lab.String()+"/"+key.String())
	}
	delete(s.states, k)
	delete(s.evaluations, k)
	return nil
}

// SaveEvaluation appends a record to the analyte's history
func (s *Store) SaveEvaluation(ctx context.Context, record *qc.EvaluationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clone, err := cloneRecord(record)
	if err != nil {
		return err
	}
	if clone.ID == "" {
		clone.ID = core.NewEvaluationID()
		record.ID = clone.ID
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = s.now().UTC()
		record.CreatedAt = clone.CreatedAt
	}

	k := stateKey{record.LabID, record.AnalyteKey}
	s.mu.Lock()
	s.evaluations[k] = append(s.evaluations[k], clone)
	s.mu.Unlock()
	return nil
}

// ListEvaluations returns up to limit records, newest first. A limit of zero
// or less returns all of them.
func (s *Store) ListEvaluations(ctx context.Context, lab core.LabID, key core.AnalyteKey, limit int) ([]*qc.EvaluationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	history := s.evaluations[stateKey{lab, key}]
	out := make([]*qc.EvaluationRecord, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		clone, err := cloneRecord(history[i])
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		out = append(out, clone)
	}
	s.mu.RUnlock()
	return out, nil
}

func cloneRecord(record *qc.EvaluationRecord) (*qc.EvaluationRecord, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evaluation: %w", err)
	}
	var clone qc.EvaluationRecord
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation: %w", err)
	}
	return &clone, nil
}
