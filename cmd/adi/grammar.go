package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vals/anndata-design-inspector/internal/config"
	"github.com/vals/anndata-design-inspector/pkg/domain"
	"github.com/vals/anndata-design-inspector/pkg/grammar"
)

var grammarCmd = &cobra.Command{
	Use:   "grammar [design.json]",
	Short: "Serialize a design document to its grammar string",
	Long: `Reads a JSON design document (factors plus relationships) and prints its
design-grammar string, e.g. "Genotype(2) > Sample(4) : CellType(3)".
Use "-" or omit the argument to read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			fail(err)
		}

		var raw []byte
		if len(args) == 0 || args[0] == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			fail(err)
		}

		var design domain.Design
		if err := json.Unmarshal(raw, &design); err != nil {
			fail(fmt.Errorf("parsing design document: %w", err))
		}

		out, err := grammar.SerializeWith(&design, grammarOptions(cfg))
		if err != nil {
			fail(err)
		}
		fmt.Println(out)
	},
}

func grammarOptions(cfg config.Config) grammar.Options {
	return grammar.Options{
		BalanceTolerance:  cfg.Grammar.BalanceTolerance,
		ApproximateCounts: cfg.Grammar.ApproximateCounts,
	}
}

func init() {
	rootCmd.AddCommand(grammarCmd)
}
