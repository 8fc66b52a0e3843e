// Command policyanalyzer serves and runs insurance policy analyses.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "policyanalyzer",
		Short:         "Insurance policy analyzer",
		Long:          "Extracts, structures and analyzes homeowners policy PDFs against a stated loss,\nand checks carrier estimates for underpayment risk.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// path config.yaml
	defaultPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "Config file path (YAML)")

	cmd.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		analyzeCmd(&configPath),
		underpaymentCmd(&configPath),
	)
	return cmd
}
