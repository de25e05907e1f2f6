package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stimguard/stimguard/internal/limits"
)

var initLimitsOut string

func init() {
	rootCmd.AddCommand(initLimitsCmd)
	initLimitsCmd.Flags().StringVar(&initLimitsOut, "out", "", "Destination path (default ~/.stimguard/limits.yaml)")
}

var initLimitsCmd = &cobra.Command{
	Use:   "init-limits",
	Short: "Write a commented default limits configuration",
	RunE:  runInitLimits,
}

func runInitLimits(cmd *cobra.Command, args []string) error {
	path := initLimitsOut
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".stimguard", "limits.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing config: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(limits.DefaultConfigYAML()), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("wrote %s\n", path)
	return nil
}
