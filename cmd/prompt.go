package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/timvw/plan-judge/internal/corpus"
	"github.com/timvw/plan-judge/internal/evaluator"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print one comparison prompt covering all plans",
	Long: `Build a single prompt containing the audit findings, every candidate plan
and the weighted criteria, for pasting into any chat LLM.

Nothing is scored; this is pure transport.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, warnings, err := corpus.Load(flagAudit, flagPlans)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %v\n", w)
		}

		text, err := evaluator.BuildComparisonPrompt(c.Audit.Text, cfg.Criteria, c.Plans)
		if err != nil {
			return err
		}
		if flagOut == "" {
			fmt.Print(text)
			return nil
		}
		if err := os.WriteFile(flagOut, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write prompt: %w", err)
		}
		fmt.Fprintf(os.Stderr, "prompt written to %s\n", flagOut)
		return nil
	},
}

func init() {
	promptCmd.Flags().StringVar(&flagAudit, "audit", "", "audit report file (.txt, .md, .html)")
	promptCmd.Flags().StringVar(&flagPlans, "plans", "", "directory of candidate plan files")
	promptCmd.Flags().StringVar(&flagOut, "out", "", "prompt file (default: stdout)")
	_ = promptCmd.MarkFlagRequired("audit")
	_ = promptCmd.MarkFlagRequired("plans")
	rootCmd.AddCommand(promptCmd)
}
