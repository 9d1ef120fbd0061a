package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/timvw/plan-judge/internal/corpus"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Show the findings and actions extracted from the documents",
	Long: `Load the audit report and plans exactly as evaluate does and print the
parsed audit findings and the numbered actions of every plan as JSON.

Use it to check extraction before paying for an evaluation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, warnings, err := corpus.Load(flagAudit, flagPlans)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %v\n", w)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	},
}

func init() {
	extractCmd.Flags().StringVar(&flagAudit, "audit", "", "audit report file (.txt, .md, .html)")
	extractCmd.Flags().StringVar(&flagPlans, "plans", "", "directory of candidate plan files")
	_ = extractCmd.MarkFlagRequired("audit")
	_ = extractCmd.MarkFlagRequired("plans")
	rootCmd.AddCommand(extractCmd)
}
