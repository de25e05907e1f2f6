package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stimguard",
	Short: "Safety-envelope decision kernel for bio-actuation requests",
	Long: "Evaluates proposed actuation parameters against per-device-class biophysical\n" +
		"ceilings using deterministic fixed-point arithmetic, and records every decision\n" +
		"in a hash-chained, tamper-evident log suitable for regulatory audit.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
