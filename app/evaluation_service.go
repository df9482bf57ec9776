package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"goiqc/domain/core"
	"goiqc/domain/qc"
	"goiqc/internal"
	"goiqc/internal/aggregate"
	"goiqc/internal/baseline"
	"goiqc/internal/errors"
	"goiqc/internal/sigma"
	"goiqc/internal/westgard"
	"goiqc/ports"

	"golang.org/x/sync/errgroup"
)

// EvaluationService runs the QC pipeline and keeps per-analyte state
type EvaluationService struct {
	analytes    ports.AnalyteRepository
	evaluations ports.EvaluationRepository
	concurrency int
	log         *internal.Logger
	now         func() time.Time
}

// Input is everything one stateless evaluation needs
type Input struct {
	Config   qc.AnalyteConfig     `json:"config"`
	Baseline map[string][]float64 `json:"baseline"`
	Runs     []qc.QCRun           `json:"runs"`
}

// Outcome carries every intermediate product of an evaluation
type Outcome struct {
	Category    sigma.Category       `json:"category"`
	Rules       qc.RuleSet           `json:"rules"`
	Stats       []qc.BaselineStats   `json:"qc_stats"`
	ZScores     []qc.ZScoreRun       `json:"z_scores"`
	Report      *qc.Report           `json:"report"`
	Limits      []qc.Limit           `json:"limits"`
	Performance sigma.Performance    `json:"performance"`
	Evaluation  *qc.Evaluation       `json:"-"`
	Record      *qc.EvaluationRecord `json:"-"`
}

// AnalyteUpdate replaces an analyte's settings and, when set, its baseline
type AnalyteUpdate struct {
	Config   qc.AnalyteConfig     `json:"config"`
	Baseline map[string][]float64 `json:"baseline,omitempty"`
}

// ReportView is a stored report with the settings and limits it was made from
type ReportView struct {
	Lab     core.LabID         `json:"lab"`
	Analyte core.AnalyteKey    `json:"analyte"`
	Config  qc.AnalyteConfig   `json:"config"`
	Stats   []qc.BaselineStats `json:"qc_stats"`
	Limits  []qc.Limit         `json:"limits"`
	Report  *qc.Report         `json:"report"`
}

// NewEvaluationService creates the service. concurrency bounds lab-wide
// evaluation; values below one mean one.
func NewEvaluationService(analytes ports.AnalyteRepository, evaluations ports.EvaluationRepository, concurrency int) *EvaluationService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &EvaluationService{
		analytes:    analytes,
		evaluations: evaluations,
		concurrency: concurrency,
		log:         internal.DefaultLogger.With("EvaluationService"),
		now:         time.Now,
	}
}

// Evaluate runs the pipeline without touching storage: validate settings,
// classify sigma, derive baseline statistics, standardize, apply rules,
// aggregate.
func (s *EvaluationService) Evaluate(ctx context.Context, in Input) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := in.Config.Validate(); err != nil {
		return nil, errors.FromDomain(err)
	}

	category, rules, err := sigma.Classify(in.Config.SigmaValue)
	if err != nil {
		return nil, errors.FromDomain(err)
	}

	levels := in.Config.Levels()
	if err := checkLevelNames(levels, in.Baseline, in.Runs); err != nil {
		return nil, errors.FromDomain(err)
	}

	stats, err := baseline.ComputeAll(levels, in.Baseline, in.Config.StrictBaseline)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	for _, st := range stats {
		if st.Degenerate() {
			s.log.Warn("level %s has no usable spread (n=%d); its z-scores are undefined", st.Level, st.N)
		}
	}

	zruns := baseline.Transform(levels, in.Runs, stats)
	ev, err := westgard.Evaluate(levels, zruns, rules)
	if err != nil {
		return nil, errors.FromDomain(err)
	}

	report, err := aggregate.Aggregate(ev, category.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate evaluation")
	}

	s.log.Debug("%s: %s, %d runs, %d rejected, %d warnings",
		in.Config.TestName, category, len(zruns), report.Rejections, report.Warnings)

	return &Outcome{
		Category:    category,
		Rules:       rules,
		Stats:       stats,
		ZScores:     zruns,
		Report:      report,
		Limits:      baseline.AllControlLimits(stats),
		Performance: sigma.Estimate(rules, len(levels)),
		Evaluation:  ev,
	}, nil
}

// EvaluateBatch evaluates independent inputs concurrently, bounded by the
// service concurrency. The first failure cancels the rest.
func (s *EvaluationService) EvaluateBatch(ctx context.Context, inputs map[string]Input) (map[string]*Outcome, error) {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make(map[string]*Outcome, len(inputs))
	var mu sync.Mutex
	err := s.forEach(ctx, keys, func(gctx context.Context, key string) error {
		out, err := s.Evaluate(gctx, inputs[key])
		if err != nil {
			return errors.Wrapf(err, "analyte %s", key)
		}
		mu.Lock()
		results[key] = out
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// EvaluateAnalyte evaluates a stored analyte and persists the derived
// statistics, z-scores and report together with an evaluation record
func (s *EvaluationService) EvaluateAnalyte(ctx context.Context, lab core.LabID, key core.AnalyteKey) (*Outcome, error) {
	state, err := s.analytes.Get(ctx, lab, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load analyte %s/%s", lab, key)
	}

	out, err := s.Evaluate(ctx, Input{Config: state.Config, Baseline: state.Baseline, Runs: state.Runs})
	if err != nil {
		return nil, errors.Wrapf(err, "evaluation of %s/%s failed", lab, key)
	}

	now := s.now().UTC()
	state.Stats = out.Stats
	state.ZScores = out.ZScores
	state.Report = out.Report
	state.UpdatedAt = now
	if err := s.analytes.Save(ctx, lab, key, state); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("save analyte %s/%s: %w", lab, key, err))
	}

	record := &qc.EvaluationRecord{
		ID:          core.NewEvaluationID(),
		LabID:       lab,
		AnalyteKey:  key,
		SigmaValue:  state.Config.SigmaValue,
		Category:    out.Category.String(),
		Rules:       out.Rules,
		RunCount:    len(out.Report.Summary),
		Rejections:  out.Report.Rejections,
		Warnings:    out.Report.Warnings,
		Fingerprint: out.Report.Fingerprint,
		Report:      out.Report,
		CreatedAt:   now,
	}
	if err := s.evaluations.SaveEvaluation(ctx, record); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("record evaluation %s/%s: %w", lab, key, err))
	}
	out.Record = record

	s.log.Info("Evaluated %s/%s: %s, %d runs, %d rejected, %d warnings (%s)",
		lab, key, out.Category, record.RunCount, record.Rejections, record.Warnings, record.Fingerprint.Short())
	return out, nil
}

// EvaluateLab evaluates every analyte of a lab concurrently
func (s *EvaluationService) EvaluateLab(ctx context.Context, lab core.LabID) (map[core.AnalyteKey]*Outcome, error) {
	keys, err := s.analytes.List(ctx, lab)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list analytes of %s", lab)
	}

	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}

	results := make(map[core.AnalyteKey]*Outcome, len(keys))
	var mu sync.Mutex
	err = s.forEach(ctx, names, func(gctx context.Context, name string) error {
		out, err := s.EvaluateAnalyte(gctx, lab, core.AnalyteKey(name))
		if err != nil {
			return err
		}
		mu.Lock()
		results[core.AnalyteKey(name)] = out
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Evaluated %d analytes of %s", len(results), lab)
	return results, nil
}

func (s *EvaluationService) forEach(ctx context.Context, keys []string, fn func(context.Context, string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, key)
		})
	}
	return g.Wait()
}

// PutAnalyte creates or updates an analyte's settings. Derived results are
// cleared because they no longer match the settings.
func (s *EvaluationService) PutAnalyte(ctx context.Context, lab core.LabID, key core.AnalyteKey, update AnalyteUpdate) (*qc.AnalyteState, error) {
	if err := update.Config.Validate(); err != nil {
		return nil, errors.FromDomain(err)
	}
	if err := checkLevelNames(update.Config.Levels(), update.Baseline, nil); err != nil {
		return nil, errors.FromDomain(err)
	}

	state, err := s.analytes.Get(ctx, lab, key)
	switch {
	case core.IsNotFoundError(err):
		state = qc.NewAnalyteState(update.Config)
	case err != nil:
		return nil, errors.Wrapf(err, "failed to load analyte %s/%s", lab, key)
	default:
		state.Config = update.Config
	}
	if update.Baseline != nil {
		state.Baseline = update.Baseline
	}
	clearDerived(state)
	state.UpdatedAt = s.now().UTC()

	if err := s.analytes.Save(ctx, lab, key, state); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("save analyte %s/%s: %w", lab, key, err))
	}
	return state, nil
}

// GetAnalyte returns the stored state
func (s *EvaluationService) GetAnalyte(ctx context.Context, lab core.LabID, key core.AnalyteKey) (*qc.AnalyteState, error) {
	state, err := s.analytes.Get(ctx, lab, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load analyte %s/%s", lab, key)
	}
	return state, nil
}

// ListAnalytes returns a lab's analyte keys
func (s *EvaluationService) ListAnalytes(ctx context.Context, lab core.LabID) ([]core.AnalyteKey, error) {
	keys, err := s.analytes.List(ctx, lab)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list analytes of %s", lab)
	}
	return keys, nil
}

// DeleteAnalyte removes an analyte and its history
func (s *EvaluationService) DeleteAnalyte(ctx context.Context, lab core.LabID, key core.AnalyteKey) error {
	if err := s.analytes.Delete(ctx, lab, key); err != nil {
		return errors.Wrapf(err, "failed to delete analyte %s/%s", lab, key)
	}
	return nil
}

// AppendRuns adds daily runs to an analyte. Runs without an order key are
// placed after the current last run, in the order given; the stored history
// is kept sorted by order.
func (s *EvaluationService) AppendRuns(ctx context.Context, lab core.LabID, key core.AnalyteKey, runs []qc.QCRun) (*qc.AnalyteState, error) {
	state, err := s.analytes.Get(ctx, lab, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load analyte %s/%s", lab, key)
	}
	if err := checkLevelNames(state.Config.Levels(), nil, runs); err != nil {
		return nil, errors.FromDomain(err)
	}

	var last int64
	for _, r := range state.Runs {
		if r.ID.Order > last {
			last = r.ID.Order
		}
	}
	for _, r := range runs {
		if r.ID.Order == 0 {
			last++
			r.ID.Order = last
		}
		if r.ID.Label == "" {
			r.ID.Label = fmt.Sprintf("%d", r.ID.Order)
		}
		state.Runs = append(state.Runs, r)
	}
	state.Runs = qc.SortRuns(state.Runs)
	clearDerived(state)
	state.UpdatedAt = s.now().UTC()

	if err := s.analytes.Save(ctx, lab, key, state); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("save analyte %s/%s: %w", lab, key, err))
	}
	s.log.Debug("Appended %d runs to %s/%s (%d total)", len(runs), lab, key, len(state.Runs))
	return state, nil
}

// Report returns the last stored report of an analyte
func (s *EvaluationService) Report(ctx context.Context, lab core.LabID, key core.AnalyteKey) (*ReportView, error) {
	state, err := s.analytes.Get(ctx, lab, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load analyte %s/%s", lab, key)
	}
	if state.Report == nil {
		return nil, errors.FromDomain(fmt.Errorf("%w: %s/%s has not been evaluated", core.ErrEvaluationAbsent, lab, key))
	}
	return &ReportView{
		Lab:     lab,
		Analyte: key,
		Config:  state.Config,
		Stats:   state.Stats,
		Limits:  baseline.AllControlLimits(state.Stats),
		Report:  state.Report,
	}, nil
}

// History returns recent evaluation records, newest first
func (s *EvaluationService) History(ctx context.Context, lab core.LabID, key core.AnalyteKey, limit int) ([]*qc.EvaluationRecord, error) {
	records, err := s.evaluations.ListEvaluations(ctx, lab, key, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list evaluations of %s/%s", lab, key)
	}
	return records, nil
}

func clearDerived(state *qc.AnalyteState) {
	state.Stats = nil
	state.ZScores = nil
	state.Report = nil
}

// checkLevelNames rejects baseline columns and run values for levels the
// settings do not define
func checkLevelNames(levels []qc.ControlLevel, samples map[string][]float64, runs []qc.QCRun) error {
	known := make(map[string]bool, len(levels))
	for _, l := range levels {
		known[l.Name] = true
	}
	for name := range samples {
		if !known[name] {
			return core.NewConfigurationError("baseline", fmt.Sprintf("unknown level %q", name))
		}
	}
	for _, r := range runs {
		for name := range r.Values {
			if !known[name] {
				return core.NewConfigurationError("runs", fmt.Sprintf("run %s: unknown level %q", r.ID.Label, name))
			}
		}
	}
	return nil
}
