package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	inspector "github.com/vals/anndata-design-inspector"
	"github.com/vals/anndata-design-inspector/internal/presentation/card"
	"github.com/vals/anndata-design-inspector/internal/presentation/tui"
)

var cardCmd = &cobra.Command{
	Use:   "card <file.h5ad>",
	Short: "Generate a Markdown experiment card documenting the design",
	Long: `Inspects the file and generates a Markdown experiment card: dataset info,
factor table, design classification, diagrams, cell distribution and
analysis considerations (mixed-model notation, pseudobulking guidance).`,
	Args: cobra.ExactArgs(1),
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

		species, _ := cmd.Flags().GetString("species")
		md, err := card.Generate(card.Input{
			File:        report.File,
			Species:     species,
			TotalCells:  report.TotalCells,
			DesignType:  report.DesignType,
			Grammar:     report.Grammar,
			Diagram:     report.Diagram,
			Design:      report.Design,
			Notes:       report.Notes,
			ToolVersion: inspector.Version,
		})
		if err != nil {
			fail(err)
		}

		if output, _ := cmd.Flags().GetString("output"); output != "" {
			if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
				fail(err)
			}
			fmt.Printf("Experiment card written to %s\n", output)
			return
		}

		render, _ := cmd.Flags().GetBool("render")
		if render && term.IsTerminal(int(os.Stdout.Fd())) {
			pretty, err := tui.NewRenderer()(md)
			if err == nil {
				fmt.Print(pretty)
				return
			}
			logger.Warn("terminal rendering failed, falling back to raw markdown", "err", err)
		}
		fmt.Print(md)
	},
}

func init() {
	rootCmd.AddCommand(cardCmd)

	cardCmd.Flags().String("species", "", "Species of the dataset, e.g. 'mouse'")
	cardCmd.Flags().StringP("output", "o", "", "Write the card to a file instead of stdout")
	cardCmd.Flags().Bool("render", false, "Render the card with terminal styling")
}
