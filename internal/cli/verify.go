package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stimguard/stimguard/internal/archive"
)

var (
	verifyArchive string
	verifyKernel  string
)

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyArchive, "archive", "", "SQLite archive path (required)")
	verifyCmd.Flags().StringVar(&verifyKernel, "kernel", "", "Verify a single kernel ID (default: all)")
	verifyCmd.MarkFlagRequired("archive")
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify archived decision chains",
	Long: "Recomputes every hash link of the archived decision logs. A failed check\n" +
		"localizes the earliest tampered record; reliance on that history for\n" +
		"compliance claims must stop.\n\n" +
		"Exit code 0 if every chain is intact, 1 otherwise.",
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	arc, err := archive.Open(verifyArchive)
	if err != nil {
		return err
	}
	defer arc.Close()

	kernels := []string{verifyKernel}
	if verifyKernel == "" {
		kernels, err = arc.Kernels()
		if err != nil {
			return err
		}
		if len(kernels) == 0 {
			fmt.Println("archive is empty")
			return nil
		}
	}

	tampered := false
	for _, id := range kernels {
		v, err := arc.Verify(id)
		if err != nil {
			return err
		}
		if v.OK {
			fmt.Printf("OK        %s\n", id)
		} else {
			tampered = true
			fmt.Printf("TAMPERED  %s at index %d (%s)\n", id, v.Index, v.Reason)
		}
	}

	if tampered {
		os.Exit(1)
	}
	return nil
}
