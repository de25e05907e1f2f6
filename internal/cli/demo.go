package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stimguard/stimguard/internal/kernel"
	"github.com/stimguard/stimguard/internal/limits"
	"github.com/stimguard/stimguard/internal/model"
)

var demoExport string

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().StringVar(&demoExport, "export", "", "Write the audit bundle to this path after the run")
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted evaluation sequence and verify the decision log",
	Long: "Evaluates a fixed set of requests (in-envelope, limit violation, unknown\n" +
		"device class, exact-boundary) through one kernel, then verifies the hash\n" +
		"chain and optionally exports the audit bundle.",
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, hash, err := limits.LoadConfigWithHash("")
	if err != nil {
		return err
	}
	k := kernel.New(cfg.Registry(hash))

	fmt.Println("=== stimguard demo ===")
	fmt.Printf("kernel:      %s\n", k.ID())
	fmt.Printf("limits hash: %s\n\n", hash)

	steps := []struct {
		label string
		req   model.ActuationRequest
	}{
		{
			label: "retinal, well inside envelope",
			req: model.ActuationRequest{
				DeviceClass: model.ClassRetinal, Intensity: 0.01, RepetitionRate: 10,
				DutyCycle: 0.5, ChargePerArea: 0.1, Cem43Dose: 0.1, Impedance: 1.0,
			},
		},
		{
			label: "retinal, SAR proxy far over ceiling",
			req: model.ActuationRequest{
				DeviceClass: model.ClassRetinal, Intensity: 1.0, RepetitionRate: 50,
				DutyCycle: 0.5, ChargePerArea: 0.1, Cem43Dose: 0.1, Impedance: 1.0,
			},
		},
		{
			label: "unregistered device class",
			req: model.ActuationRequest{
				DeviceClass: "unregistered_device", Intensity: 0.01, RepetitionRate: 1,
				DutyCycle: 0.1, ChargePerArea: 0.1, Cem43Dose: 0.1, Impedance: 1.0,
			},
		},
		{
			label: "retinal, SAR proxy exactly at ceiling",
			req: model.ActuationRequest{
				DeviceClass: model.ClassRetinal, Intensity: 1, RepetitionRate: 1,
				DutyCycle: 1, ChargePerArea: 0.1, Cem43Dose: 0.1, Impedance: 1.0,
			},
		},
	}

	for i, s := range steps {
		outcome, err := k.Process(s.req)
		if err != nil {
			return err
		}
		fmt.Printf("[%d] %-40s %-8s %s\n", i+1, s.label, outcome.Decision, outcome.Result.Status)
	}

	fmt.Println()
	v := k.VerifyLog()
	if v.OK {
		fmt.Printf("chain: OK (%d records)\n", k.LogLen())
	} else {
		fmt.Printf("chain: TAMPERED at index %d (%s)\n", v.Index, v.Reason)
		os.Exit(1)
	}

	if demoExport != "" {
		specDoc := []byte(limits.DefaultConfigYAML())
		bundle := k.ExportForAudit(specDoc)

		f, err := os.Create(demoExport)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		if err := bundle.WriteJSON(f); err != nil {
			return err
		}
		fmt.Printf("export: %s (spec hash %s)\n", demoExport, bundle.SpecHash)
	}

	return nil
}
