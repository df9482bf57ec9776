package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"goiqc/adapters/excel"
	"goiqc/adapters/memory"
	"goiqc/app"
	"goiqc/domain/qc"
	"goiqc/internal"
	"goiqc/internal/baseline"
	"goiqc/internal/catalogue"
	"goiqc/internal/config"
	"goiqc/internal/sigma"
	"goiqc/ports"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "iqc",
		Short:         "Westgard internal quality control from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			internal.DefaultLogger.SetLevel(internal.ParseLogLevel(logLevel))
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Log level: ERROR|WARN|INFO|DEBUG")

	rootCmd.AddCommand(
		newClassifyCmd(),
		newBaselineCmd(),
		newEvaluateCmd(),
		newLabCmd(),
	)
	return rootCmd
}

// levelFlags are shared by every command that reads spreadsheet columns
type levelFlags struct {
	count int
	names []string
	sheet string
}

func (f *levelFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.count, "levels", 2, "Number of control levels (columns Ctrl1..CtrlN)")
	cmd.Flags().StringSliceVar(&f.names, "level-names", nil, "Explicit level column names, overrides --levels")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Worksheet name, first sheet when empty")
}

func (f *levelFlags) levels() ([]qc.ControlLevel, error) {
	if len(f.names) > 0 {
		levels := qc.NamedLevels(f.names...)
		return levels, qc.ValidateLevels(levels)
	}
	if f.count < 1 {
		return nil, fmt.Errorf("--levels must be at least 1, got %d", f.count)
	}
	return qc.DefaultLevels(f.count), nil
}

func (f *levelFlags) reader(path string) ports.SheetReader {
	cfg := excel.DefaultExcelConfig()
	cfg.FilePath = path
	cfg.Sheet = f.sheet
	return excel.NewDataReaderWithConfig(cfg)
}

var reportWriter ports.ReportWriter = excel.NewReportWriter()

func newClassifyCmd() *cobra.Command {
	var sigmaValue string
	var levels int

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Select the Westgard rule set for a sigma metric",
		Long: `Map a sigma metric to its performance category and active rules, with the
expected false rejection rate of that rule set.

Example: iqc classify --sigma 5.2 --levels 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd.OutOrStdout(), sigmaValue, levels)
		},
	}

	cmd.Flags().StringVar(&sigmaValue, "sigma", "", "Sigma metric of the analytical method")
	cmd.Flags().IntVar(&levels, "levels", 2, "Control levels per run, used for the false rejection estimate")
	_ = cmd.MarkFlagRequired("sigma")
	return cmd
}

func runClassify(w io.Writer, sigmaValue string, levels int) error {
	value, err := sigma.ParseSigma(sigmaValue)
	if err != nil {
		return err
	}
	category, rules, err := sigma.Classify(value)
	if err != nil {
		return err
	}
	if levels < 1 {
		return fmt.Errorf("--levels must be at least 1, got %d", levels)
	}

	printClassification(w, value, category, rules, sigma.Estimate(rules, levels))
	return nil
}

func newBaselineCmd() *cobra.Command {
	var file string
	var strict bool
	var flags levelFlags

	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Compute per-level mean, SD and control limits from calibration samples",
		Long: `Read calibration samples (one column per level) from an xlsx or csv file and
print each level's mean, sample standard deviation and Levey-Jennings limits.

Example: iqc baseline --file glucose_baseline.xlsx --levels 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBaseline(cmd.OutOrStdout(), file, &flags, strict)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Baseline spreadsheet (.xlsx or .csv)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a level has fewer than two samples")
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runBaseline(w io.Writer, file string, flags *levelFlags, strict bool) error {
	levels, err := flags.levels()
	if err != nil {
		return err
	}
	samples, err := flags.reader(file).ReadBaseline(levels)
	if err != nil {
		return err
	}
	stats, err := baseline.ComputeAll(levels, samples, strict)
	if err != nil {
		return err
	}
	printBaseline(w, stats, baseline.AllControlLimits(stats))
	return nil
}

type evaluateOptions struct {
	baselineFile string
	runsFile     string
	sigma        float64
	testName     string
	unit         string
	strict       bool
	out          string
	asJSON       bool
	levels       levelFlags
}

func newEvaluateCmd() *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate daily QC runs against a baseline",
		Long: `Compute the baseline, convert the daily runs to z-scores, apply the Westgard
rules selected by --sigma and print the run and point status tables.

Example: iqc evaluate --baseline base.xlsx --runs runs.xlsx --sigma 5.2 --levels 2 --out report.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), cmd.OutOrStdout(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.baselineFile, "baseline", "", "Baseline spreadsheet (.xlsx or .csv)")
	cmd.Flags().StringVar(&opts.runsFile, "runs", os.Getenv("EXCEL_FILE"), "Daily run spreadsheet (.xlsx or .csv), defaults to EXCEL_FILE")
	cmd.Flags().Float64Var(&opts.sigma, "sigma", 6.0, "Sigma metric of the analytical method")
	cmd.Flags().StringVar(&opts.testName, "test-name", "", "Test name shown in the report, defaults to the runs file name")
	cmd.Flags().StringVar(&opts.unit, "unit", "", "Measurement unit")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when a level has fewer than two baseline samples")
	cmd.Flags().StringVar(&opts.out, "out", "", "Write the report workbook to this .xlsx path")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full evaluation as JSON")
	opts.levels.register(cmd)
	_ = cmd.MarkFlagRequired("baseline")
	return cmd
}

func runEvaluate(ctx context.Context, w io.Writer, opts *evaluateOptions) error {
	if opts.runsFile == "" {
		return fmt.Errorf("--runs is required when EXCEL_FILE is not set")
	}
	levels, err := opts.levels.levels()
	if err != nil {
		return err
	}

	cfg := qc.AnalyteConfig{
		TestName:       opts.testName,
		Unit:           opts.unit,
		NumLevels:      len(levels),
		SigmaValue:     opts.sigma,
		StrictBaseline: opts.strict,
	}
	if len(opts.levels.names) > 0 {
		cfg.LevelNames = opts.levels.names
	}
	if cfg.TestName == "" {
		cfg.TestName = trimExt(filepath.Base(opts.runsFile))
	}

	samples, err := opts.levels.reader(opts.baselineFile).ReadBaseline(levels)
	if err != nil {
		return err
	}
	runs, err := opts.levels.reader(opts.runsFile).ReadRuns(levels)
	if err != nil {
		return err
	}

	out, err := newStatelessService().Evaluate(ctx, app.Input{Config: cfg, Baseline: samples, Runs: runs})
	if err != nil {
		return err
	}

	if opts.out != "" {
		if err := reportWriter.WriteReport(out.Report, out.Limits, opts.out); err != nil {
			return err
		}
	}

	if opts.asJSON {
		return writeJSON(w, out)
	}
	printOutcome(w, cfg.TestName, out)
	if opts.out != "" {
		fmt.Fprintf(w, "\nReport written to %s\n", opts.out)
	}
	return nil
}

func newLabCmd() *cobra.Command {
	var analytesFile string
	var concurrency int
	var outDir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lab",
		Short: "Evaluate every analyte of a lab catalogue concurrently",
		Long: `Load a YAML analyte catalogue, read each analyte's baseline and run files and
evaluate all analytes concurrently.

Example: iqc lab --analytes lab.yaml --out-dir reports/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLab(cmd.Context(), cmd.OutOrStdout(), analytesFile, concurrency, outDir, asJSON)
		},
	}

	cmd.Flags().StringVar(&analytesFile, "analytes", os.Getenv("ANALYTES_FILE"), "Analyte catalogue YAML, defaults to ANALYTES_FILE")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Analytes evaluated in parallel")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write one report workbook per analyte into this directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func runLab(ctx context.Context, w io.Writer, analytesFile string, concurrency int, outDir string, asJSON bool) error {
	if analytesFile == "" {
		return fmt.Errorf("--analytes is required when ANALYTES_FILE is not set")
	}
	defaults := config.QCConfig{DefaultSigma: 6.0, DefaultNumLevels: 2, EvalConcurrency: concurrency}
	cat, err := config.LoadCatalogue(analytesFile, defaults)
	if err != nil {
		return err
	}
	inputs, err := catalogue.Inputs(cat)
	if err != nil {
		return err
	}

	store := memory.NewStore()
	results, err := app.NewEvaluationService(store, store, concurrency).EvaluateBatch(ctx, inputs)
	if err != nil {
		return err
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		for key, out := range results {
			if err := reportWriter.WriteReport(out.Report, out.Limits, filepath.Join(outDir, key+".xlsx")); err != nil {
				return err
			}
		}
	}

	if asJSON {
		return writeJSON(w, map[string]interface{}{"lab": cat.Lab, "analytes": results})
	}

	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	printLab(w, catalogue.Describe(cat), keys, results)
	return nil
}

func newStatelessService() *app.EvaluationService {
	store := memory.NewStore()
	return app.NewEvaluationService(store, store, 1)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
