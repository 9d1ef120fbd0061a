package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/timvw/plan-judge/internal/config"
	"github.com/timvw/plan-judge/internal/corpus"
	"github.com/timvw/plan-judge/internal/evaluator"
	"github.com/timvw/plan-judge/internal/model"
	"github.com/timvw/plan-judge/internal/progress"
	"github.com/timvw/plan-judge/internal/report"
	"github.com/timvw/plan-judge/internal/run"
)

var (
	flagAudit    string
	flagPlans    string
	flagFormat   string
	flagOut      string
	flagTopN     int
	flagMode     string
	flagParallel int
	flagTheme    string
	flagQuiet    bool
	flagRefresh  bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score, rank and merge remediation plans",
	Long: `Evaluate every plan in --plans against the audit report in --audit.

Each plan is scored on every weighted criterion, plans are ranked by
composite score and the top N are merged into a champion plan. The report
is written as JSON (default) or Markdown to --out or stdout; a summary is
printed on stderr.

In manual mode no LLM is called: one prompt per plan and criterion is
written to the prompt directory, and answers pasted into the response
directory (as <plan>.<criterion>.json) are picked up on the next run.

The exit status is 1 when the run fails. The report is written either way.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&flagAudit, "audit", "", "audit report file (.txt, .md, .html)")
	evaluateCmd.Flags().StringVar(&flagPlans, "plans", "", "directory of candidate plan files")
	evaluateCmd.Flags().StringVar(&flagFormat, "format", "json", "report format: json, markdown")
	evaluateCmd.Flags().StringVar(&flagOut, "out", "", "report file (default: stdout)")
	evaluateCmd.Flags().IntVar(&flagTopN, "top-n", 0, "plans considered for the champion (default: config top_n)")
	evaluateCmd.Flags().StringVar(&flagMode, "mode", "", "automated or manual (default: config mode)")
	evaluateCmd.Flags().IntVar(&flagParallel, "parallel", 0, "max concurrent evaluations (default: config parallel)")
	evaluateCmd.Flags().StringVar(&flagTheme, "theme", "dark", "summary color theme: dark, light")
	evaluateCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "do not print the summary")
	evaluateCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "re-evaluate cached scores and replace them")
	_ = evaluateCmd.MarkFlagRequired("audit")
	_ = evaluateCmd.MarkFlagRequired("plans")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger()

	format, err := report.ParseFormat(flagFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagMode != "" {
		cfg.Mode = flagMode
	}
	if cmd.Flags().Changed("top-n") {
		cfg.TopN = flagTopN
	}
	if flagParallel > 0 {
		cfg.Parallel = flagParallel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.ConfigFile != "" {
		log.Info("config loaded", "path", cfg.ConfigFile)
	}

	metrics, shutdown := initTelemetry(ctx, cfg, log)
	defer shutdown()

	c, warnings, err := corpus.Load(flagAudit, flagPlans)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn("plan extraction failed", "error", w)
	}

	ev, cleanup, err := buildEvaluator(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer cleanup()
	cached, _ := ev.(*evaluator.CachingEvaluator)
	if cached != nil {
		cached.Refresh = flagRefresh
	}

	store := progress.NewStore(func(e progress.Event) {
		log.Debug("criterion", "plan", e.Plan, "criterion", e.Criterion, "state", e.State, "message", e.Message)
	})

	runner := &run.Runner{Evaluator: ev, Metrics: metrics, Progress: store, Logger: log}
	rep, runErr := runner.Run(ctx, run.Input{
		Corpus:       c,
		Criteria:     cfg.Criteria,
		TopN:         cfg.TopN,
		GapThreshold: cfg.GapThresholdValue(),
		Parallel:     cfg.Parallel,
		Timeout:      cfg.TimeoutDuration,
	})

	if cached != nil {
		st := cached.Cache.Stats()
		log.Info("score cache", "entries", st.Entries, "hits", st.Hits, "misses", st.Misses, "evicted", st.Evictions)
	}

	if err := writeReport(format, rep); err != nil {
		return err
	}
	if !flagQuiet {
		fmt.Fprint(os.Stderr, report.Summary(rep, report.ThemeByName(flagTheme)))
	}
	if hint := manualHint(cfg, store); hint != "" {
		fmt.Fprintln(os.Stderr, hint)
	}
	return runErr
}

// manualHint tells the user where prompts went and where answers go. A first
// manual run scores nothing and fails at synthesis, so the hint does not
// depend on the run status.
func manualHint(cfg *config.Config, store *progress.Store) string {
	if cfg.Mode != config.ModeManual {
		return ""
	}
	pending := len(store.SnapshotUnscored())
	if pending == 0 {
		return ""
	}
	responses := cfg.ResponseDir
	if responses == "" {
		responses = cfg.PromptDir
	}
	return fmt.Sprintf("manual mode: %d evaluations unscored. Prompts are in %s; paste answers into %s and run again.",
		pending, cfg.PromptDir, responses)
}

func writeReport(format report.Format, rep *model.RunReport) error {
	if flagOut == "" {
		return writeReportTo(os.Stdout, format, rep)
	}
	return writeReportFile(flagOut, format, rep)
}

func writeReportFile(path string, format report.Format, rep *model.RunReport) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("report: close %s: %w", path, cerr)
		}
	}()
	return writeReportTo(f, format, rep)
}

func writeReportTo(w io.Writer, format report.Format, rep *model.RunReport) error {
	if err := report.Write(w, format, rep); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
