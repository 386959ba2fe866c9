package main

import (
	"fmt"

	"github.com/spf13/cobra"

	inspector "github.com/vals/anndata-design-inspector"
	"github.com/vals/anndata-design-inspector/internal/presentation/tui"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of adi",
	Run: func(cmd *cobra.Command, args []string) {
		if banner, _ := cmd.Flags().GetBool("banner"); banner {
			tui.PrintBanner()
		}
		fmt.Printf("adi version %s\n", inspector.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().Bool("banner", false, "Show the ASCII banner")
}
