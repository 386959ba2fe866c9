package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	inspector "github.com/vals/anndata-design-inspector"
	"github.com/vals/anndata-design-inspector/pkg/nesting"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file.h5ad] [parent-factor] [child-factor]",
	Short: "Classify a pair of factors as nested or crossed",
	Long: `Classifies whether the child factor's categories are nested within the
parent factor's categories, using case-insensitive substring matching.

Factors can come from an .h5ad file:

  adi classify pbmc.h5ad genotype sample

or directly as comma-separated label lists:

  adi classify --parent-labels WT,KO --child-labels WT_rep1,WT_rep2,KO_rep1,KO_rep2`,
	Args: cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		parentLabels, _ := cmd.Flags().GetString("parent-labels")
		childLabels, _ := cmd.Flags().GetString("child-labels")
		asJSON, _ := cmd.Flags().GetBool("json")

		var res nesting.Result
		switch {
		case parentLabels != "" || childLabels != "":
			res = nesting.Classify(
				inspector.ParseLabels(parentLabels),
				inspector.ParseLabels(childLabels),
			)
		case len(args) == 3:
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				fail(err)
			}
			engine, err := buildEngine(cfg, logger)
			if err != nil {
				fail(err)
			}
			res, err = engine.Classify(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				fail(err)
			}
		default:
			fail(fmt.Errorf("provide a file with two factor names, or --parent-labels and --child-labels"))
		}

		if asJSON {
			json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			return
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		fmt.Fprintln(cmd.OutOrStdout(), formatClassification(res, verbose))
	},
}

// formatClassification keeps the default output a bare tag so scripts can
// match it exactly; counts are opt-in.
func formatClassification(res nesting.Result, verbose bool) string {
	if verbose {
		return fmt.Sprintf("%s (%d/%d child labels match a parent label)", res.Tag, res.MatchCount, res.Total)
	}
	return string(res.Tag)
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().String("parent-labels", "", "Comma-separated parent category labels")
	classifyCmd.Flags().String("child-labels", "", "Comma-separated child category labels")
	classifyCmd.Flags().Bool("json", false, "Emit the result as JSON")
	classifyCmd.Flags().BoolP("verbose", "v", false, "Include match counts in the output")
}
