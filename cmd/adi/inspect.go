package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	inspector "github.com/vals/anndata-design-inspector"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.h5ad>",
	Short: "Inspect a file and report its inferred experimental design",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			fail(err)
		}
		engine, err := buildEngine(cfg, logger)
		if err != nil {
			fail(err)
		}

		report, err := engine.Inspect(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(report)
			return
		}

		printReport(report)
	},
}

func printReport(report *inspector.Report) {
	fmt.Printf("File:    %s\n", report.File)
	fmt.Printf("Cells:   %d\n", report.TotalCells)
	fmt.Printf("Design:  %s\n", report.DesignType)
	fmt.Printf("Grammar: %s\n\n", report.Grammar)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Factor", "Kind", "Levels", "Categories"})
	for _, f := range report.Factors {
		t.AppendRow(table.Row{f.Name, string(f.Kind), f.Levels(), previewCategories(f.Categories)})
	}
	t.Render()

	if report.Diagram != "" {
		fmt.Println("\n" + report.Diagram)
	}
	for _, note := range report.Notes {
		fmt.Println("Note: " + note)
	}
}

// previewCategories keeps the table readable for high-cardinality factors.
func previewCategories(cats []string) string {
	const max = 6
	if len(cats) <= max {
		return strings.Join(cats, ", ")
	}
	return strings.Join(cats[:max], ", ") + fmt.Sprintf(", … (%d more)", len(cats)-max)
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().Bool("json", false, "Emit the full report as JSON")
}
