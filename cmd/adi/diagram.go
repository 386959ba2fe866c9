package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vals/anndata-design-inspector/internal/presentation/diagram"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram <file.h5ad>",
	Short: "Render the inferred design as an ASCII or Mermaid diagram",
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

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "mermaid":
			fmt.Println(diagram.GenerateMermaid(report.Design))
		case "ascii":
			fmt.Println(report.Diagram)
		default:
			fail(fmt.Errorf("unknown format %q (supported: ascii, mermaid)", format))
		}
	},
}

func init() {
	rootCmd.AddCommand(diagramCmd)

	diagramCmd.Flags().String("format", "ascii", "Diagram format: 'ascii' or 'mermaid'")
}
