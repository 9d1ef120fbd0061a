package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/timvw/plan-judge/internal/scoring"
)

var criteriaCmd = &cobra.Command{
	Use:   "criteria",
	Short: "List the evaluation criteria and their weights",
	Long: `List the configured criteria, highest weight first, and check that the
weights form a valid weighting (each in [0, 1], summing to 1).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		weights := cfg.Weights()
		titles := make(map[string]string, len(cfg.Criteria))
		for _, c := range cfg.Criteria {
			titles[c.Name] = c.DisplayName()
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		sum := 0.0
		for _, name := range scoring.SortedNames(weights) {
			fmt.Fprintf(w, "%s\t%.2f\t%s\n", name, weights[name], titles[name])
			sum += weights[name]
		}
		fmt.Fprintf(w, "total\t%.2f\t\n", sum)
		if err := w.Flush(); err != nil {
			return err
		}
		return scoring.ValidateWeights(weights)
	},
}

func init() {
	rootCmd.AddCommand(criteriaCmd)
}
